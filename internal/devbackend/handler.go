package devbackend

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"skillwallet/internal/platform/metrics"
)

// phonePattern mirrors the validation the real backend applies to phone
// numbers.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,14}$`)

// Handler exposes the dev backend's HTTP endpoints using go-chi.
type Handler struct {
	svc       *Service
	repo      Repository
	issuer    *TokenIssuer
	uploadDir string
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// NewHandler returns a Handler. Metrics may be nil to disable metric
// recording (e.g. in tests).
func NewHandler(svc *Service, repo Repository, issuer *TokenIssuer, uploadDir string, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, repo: repo, issuer: issuer, uploadDir: uploadDir, log: log, metrics: m}
}

// Routes mounts every endpoint under /api/v1. OTP endpoints are open; the
// rest require a bearer token.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/otp/send", h.SendOTP)
		r.Post("/auth/otp/verify", h.VerifyOTP)

		r.Group(func(r chi.Router) {
			r.Use(h.issuer.RequireAuth)
			r.Post("/identity/tier2/upload/{user_id}", h.UploadDocument)
			r.Post("/work/submit/{user_id}", h.SubmitWork)
			r.Get("/user/profile/{user_id}", h.GetProfile)
			r.Get("/user/proofs/{user_id}", h.GetProofs)
			r.Get("/user/score/{user_id}", h.GetSkillScore)
			r.Post("/user/update_core_profile/{user_id}", h.UpdateCoreProfile)
			r.Post("/user/update_identity_info/{user_id}", h.UpdateIdentityInfo)
			r.Post("/user/update_skill_tag/{user_id}", h.UpdateSkillTags)
			r.Post("/wallet/initialize", h.InitializeWallet)
		})
	})
}

// SendOTP handles POST /api/v1/auth/otp/send.
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !phonePattern.MatchString(req.PhoneNumber) {
		writeDetail(w, http.StatusUnprocessableEntity, "A valid phone number is required.")
		return
	}

	if err := h.svc.SendOTP(req.PhoneNumber); err != nil {
		h.log.Error("send otp failed", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Could not send OTP.")
		return
	}

	if h.metrics != nil {
		h.metrics.IncOTPSent()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "OTP sent.",
		"status":  "pending",
	})
}

// VerifyOTP handles POST /api/v1/auth/otp/verify.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phone_number"`
		OTPCode     string `json:"otp_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !phonePattern.MatchString(req.PhoneNumber) || len(req.OTPCode) != 6 {
		writeDetail(w, http.StatusUnprocessableEntity, "Phone number and 6-digit code are required.")
		return
	}

	id, err := h.svc.VerifyOTP(req.PhoneNumber, req.OTPCode)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeDetail(w, http.StatusNotFound, "User not found.")
			return
		}
		writeDetail(w, http.StatusUnauthorized, "Invalid or expired OTP.")
		return
	}

	token, err := h.issuer.Issue(id)
	if err != nil {
		h.log.Error("issue token failed", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Could not issue token.")
		return
	}

	if h.metrics != nil {
		h.metrics.IncOTPVerified()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// UploadDocument handles POST /api/v1/identity/tier2/upload/{user_id}.
// The multipart field "file" is stored under the user's upload folder,
// prefixed with the file_type tag, and the assigned path is returned.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	fileType := r.URL.Query().Get("file_type")
	if fileType == "" {
		writeDetail(w, http.StatusBadRequest, "file_type query parameter is required.")
		return
	}

	if _, exists := h.repo.GetUserSnapshot(id); !exists {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "multipart field 'file' is required.")
		return
	}
	defer file.Close()

	safeName := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(header.Filename)
	relPath := path.Join(strconv.FormatInt(int64(id), 10), fileType+"_"+safeName)
	fsPath := filepath.Join(h.uploadDir, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(fsPath), 0o755); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not create upload directory.")
		return
	}
	dst, err := os.Create(fsPath)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to save file.")
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to save file.")
		return
	}

	if err := h.repo.SaveDocumentPath(id, fileType, relPath); err != nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	h.log.Info("file stored",
		slog.Int64("user_id", int64(id)),
		slog.String("file_type", fileType),
		slog.String("path", relPath),
	)
	if h.metrics != nil {
		h.metrics.IncFilesUploaded()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "File '" + safeName + "' uploaded and saved successfully.",
		"file_path": relPath,
		"user_id":   id,
	})
}

// SubmitWork handles POST /api/v1/work/submit/{user_id}.
func (h *Handler) SubmitWork(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var req struct {
		SkillName    string `json:"skill_name"`
		ImageURL     string `json:"image_url"`
		AudioFileURL string `json:"audio_file_url"`
		LanguageCode string `json:"language_code"`
		Description  string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SkillName == "" || req.ImageURL == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "skill_name and image_url are required.")
		return
	}

	cred, _, err := h.svc.SubmitWork(id, req.SkillName, req.ImageURL, req.AudioFileURL, req.LanguageCode, req.Description)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	}

	h.log.Info("credential minted",
		slog.Int64("user_id", int64(id)),
		slog.String("skill", req.SkillName),
		slog.String("token", cred.TokenID),
	)
	if h.metrics != nil {
		h.metrics.IncCredentialsMinted()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":             "Micro-Proof submitted successfully. Skill Wallet Token Minted!",
		"skill_token":         cred.TokenID,
		"skill_name":          cred.SkillName,
		"credential_id":       cred.ID,
		"verification_status": cred.VerificationStatus,
	})
}

// GetProfile handles GET /api/v1/user/profile/{user_id}.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	u, exists := h.repo.GetUserSnapshot(id)
	if !exists {
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	}

	resp := map[string]any{
		"user_id":            int64(u.ID),
		"phone_number":       u.PhoneNumber,
		"name":               nullable(u.Name),
		"profession":         nullable(u.Profession),
		"email":              nullable(u.Email),
		"date_of_birth":      nullable(u.DateOfBirth),
		"gender":             nullable(u.Gender),
		"skill_tag":          nullable(u.SkillTag),
		"power_skill_tag":    nullable(u.PowerSkillTag),
		"wallet_initialized": u.Wallet != nil,
		"wallet_hash":        nil,
	}
	if u.Wallet != nil {
		resp["wallet_hash"] = u.Wallet.Hash
	}
	for fileType, p := range u.DocumentPaths {
		resp[fileType+"_file_path"] = p
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProofs handles GET /api/v1/user/proofs/{user_id}?scope=.
func (h *Handler) GetProofs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "latest"
	}
	creds, exists := h.repo.GetProofsSnapshot(id, scope)
	if !exists {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	out := make([]map[string]any, 0, len(creds))
	for _, c := range creds {
		out = append(out, map[string]any{
			"title":               c.SkillName,
			"skill":               c.SkillName,
			"visualProofUrl":      nullable(c.ProofURL),
			"audioStoryUrl":       nullable(c.AudioURL),
			"language_code":       c.LanguageCode,
			"grade_score":         c.GradeScore,
			"transcription":       nullable(c.Transcription),
			"verification_status": c.VerificationStatus,
			"is_verified":         c.IsVerified,
			"credential_id":       c.ID,
			"token_id":            c.TokenID,
			"issued_date":         c.IssuedAt.Format("2006-01-02 15:04:05"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSkillScore handles GET /api/v1/user/score/{user_id}.
func (h *Handler) GetSkillScore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}
	score, exists := h.svc.SkillScore(id)
	if !exists {
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     int64(id),
		"skill_score": score,
	})
}

// UpdateCoreProfile handles POST /api/v1/user/update_core_profile/{user_id}.
func (h *Handler) UpdateCoreProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name       string `json:"name"`
		Profession string `json:"profession"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name is required.")
		return
	}
	if err := h.repo.UpdateCoreProfile(id, req.Name, req.Profession); err != nil {
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated."})
}

// UpdateIdentityInfo handles POST /api/v1/user/update_identity_info/{user_id}.
func (h *Handler) UpdateIdentityInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Email       string `json:"email"`
		DateOfBirth string `json:"date_of_birth"`
		Gender      string `json:"gender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid body.")
		return
	}
	if err := h.repo.UpdateIdentityInfo(id, req.Email, req.DateOfBirth, req.Gender); err != nil {
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Identity info updated."})
}

// UpdateSkillTags handles POST /api/v1/user/update_skill_tag/{user_id}.
func (h *Handler) UpdateSkillTags(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}
	var req struct {
		SkillTag      string `json:"skill_tag"`
		PowerSkillTag string `json:"power_skill_tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SkillTag == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "skill_tag is required.")
		return
	}
	if err := h.repo.UpdateSkillTags(id, req.SkillTag, req.PowerSkillTag); err != nil {
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Skill tags updated."})
}

// InitializeWallet handles POST /api/v1/wallet/initialize.
func (h *Handler) InitializeWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !phonePattern.MatchString(req.PhoneNumber) {
		writeDetail(w, http.StatusUnprocessableEntity, "A valid phone number is required.")
		return
	}

	u := h.repo.EnsureUser(req.PhoneNumber)
	hash, err := h.repo.EnsureWallet(u.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not initialize wallet.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     int64(u.ID),
		"wallet_hash": hash,
	})
}

// pathUser parses and authorizes the {user_id} path parameter: the token's
// subject must match the addressed user.
func (h *Handler) pathUser(w http.ResponseWriter, r *http.Request) (UserID, bool) {
	raw := chi.URLParam(r, "user_id")
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if raw != "" && err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid user id.")
		return 0, false
	}
	authed, ok := authedUser(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Authentication required.")
		return 0, false
	}
	if raw == "" {
		return authed, true
	}
	if UserID(parsed) != authed && r.Method != http.MethodGet {
		writeDetail(w, http.StatusForbidden, "Token does not match this user.")
		return 0, false
	}
	return UserID(parsed), true
}

// nullable renders unset optional fields as JSON null instead of "".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
