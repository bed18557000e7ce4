// Package api is the HTTP client for the SkillWallet backend. Every data
// operation the wallet performs goes through here; the backend owns all
// persisted state.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

const defaultTimeout = 30 * time.Second

// phonePattern matches the backend's phone validation, checked client-side
// before any network call.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,14}$`)

// ErrInvalidPhone is returned for phone numbers the backend would reject.
var ErrInvalidPhone = errors.New("api: invalid phone number")

// Error is a non-2xx backend response. Detail carries the backend's
// "detail" field when present.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("api: backend returned %d: %s", e.StatusCode, e.Detail)
}

// IsClientError reports whether the response was a 4xx.
func (e *Error) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Client talks to one backend base URL (including the /api/v1 prefix) and
// attaches the bearer token, when set, to every request.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	log     *slog.Logger
}

// New returns a Client for baseURL, e.g. "http://localhost:8000/api/v1".
func New(baseURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
	}
}

// NewWithHTTPClient is New with a caller-supplied http.Client. Used in tests.
func NewWithHTTPClient(baseURL string, hc *http.Client, log *slog.Logger) *Client {
	return &Client{baseURL: baseURL, http: hc, log: log}
}

// SetToken stores the bearer token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// SendOTP asks the backend to dispatch a one-time code to phone.
func (c *Client) SendOTP(ctx context.Context, phone string) (OTPStatus, error) {
	var out OTPStatus
	if !phonePattern.MatchString(phone) {
		return out, ErrInvalidPhone
	}
	err := c.doJSON(ctx, http.MethodPost, "/auth/otp/send", map[string]string{"phone_number": phone}, &out)
	return out, err
}

// VerifyOTP exchanges phone and code for a bearer token. The caller is
// responsible for persisting the token and passing it to SetToken.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (TokenResponse, error) {
	var out TokenResponse
	if !phonePattern.MatchString(phone) {
		return out, ErrInvalidPhone
	}
	body := map[string]string{"phone_number": phone, "otp_code": code}
	err := c.doJSON(ctx, http.MethodPost, "/auth/otp/verify", body, &out)
	return out, err
}

// GetProfile fetches the server-owned profile for userID.
func (c *Client) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	var out Profile
	err := c.doJSON(ctx, http.MethodGet, "/user/profile/"+strconv.FormatInt(userID, 10), nil, &out)
	return out, err
}

// GetProofs fetches work-proof credentials. scope is "latest", "session",
// or "all"; empty means the backend default.
func (c *Client) GetProofs(ctx context.Context, userID int64, scope string) ([]Proof, error) {
	path := "/user/proofs/" + strconv.FormatInt(userID, 10)
	if scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	var out []Proof
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// UpdateCoreProfile saves name and profession.
func (c *Client) UpdateCoreProfile(ctx context.Context, userID int64, upd CoreProfileUpdate) error {
	return c.doJSON(ctx, http.MethodPost, "/user/update_core_profile/"+strconv.FormatInt(userID, 10), upd, nil)
}

// UpdateIdentityInfo saves optional identity fields.
func (c *Client) UpdateIdentityInfo(ctx context.Context, userID int64, upd IdentityUpdate) error {
	return c.doJSON(ctx, http.MethodPost, "/user/update_identity_info/"+strconv.FormatInt(userID, 10), upd, nil)
}

// UpdateSkillTags saves the skill tag selection.
func (c *Client) UpdateSkillTags(ctx context.Context, userID int64, upd SkillUpdate) error {
	return c.doJSON(ctx, http.MethodPost, "/user/update_skill_tag/"+strconv.FormatInt(userID, 10), upd, nil)
}

// SubmitWork submits a work-proof claim referencing already-uploaded files.
// The backend mints a pending credential and starts grading.
func (c *Client) SubmitWork(ctx context.Context, userID int64, sub WorkSubmission) (WorkReceipt, error) {
	var out WorkReceipt
	err := c.doJSON(ctx, http.MethodPost, "/work/submit/"+strconv.FormatInt(userID, 10), sub, &out)
	return out, err
}

// InitializeWallet creates the user's skill wallet if it does not exist.
func (c *Client) InitializeWallet(ctx context.Context, phone string) (WalletInit, error) {
	var out WalletInit
	if !phonePattern.MatchString(phone) {
		return out, ErrInvalidPhone
	}
	err := c.doJSON(ctx, http.MethodPost, "/wallet/initialize", map[string]string{"phone_number": phone}, &out)
	return out, err
}

// GetSkillScore fetches the aggregate skill score for the dashboard.
func (c *Client) GetSkillScore(ctx context.Context, userID int64) (SkillScore, error) {
	var out SkillScore
	err := c.doJSON(ctx, http.MethodGet, "/user/score/"+strconv.FormatInt(userID, 10), nil, &out)
	return out, err
}

// UploadFile posts one file as multipart form data to the tier-2 upload
// endpoint. fileType tags what the file is (work_evidence, work_story,
// aadhaar, ...); the backend stores it and returns the assigned path.
func (c *Client) UploadFile(ctx context.Context, userID int64, fileType, filename string, data []byte) (UploadResponse, error) {
	var out UploadResponse

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return out, err
	}
	if _, err := fw.Write(data); err != nil {
		return out, err
	}
	if err := mw.Close(); err != nil {
		return out, err
	}

	path := fmt.Sprintf("/identity/tier2/upload/%d?file_type=%s", userID, url.QueryEscape(fileType))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	err = c.send(req, &out)
	return out, err
}

// doJSON issues one JSON request and decodes the response into out (when
// out is non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := decodeDetail(resp.Body)
		c.log.Debug("backend error",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("detail", detail),
		)
		return &Error{StatusCode: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// decodeDetail pulls the backend's {"detail": "..."} message, if any.
func decodeDetail(r io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}
	return payload.Detail
}
