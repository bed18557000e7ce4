package api

// Wire types for the SkillWallet backend (/api/v1). The backend owns and
// validates every one of these; the client treats them as opaque views.

// OTPStatus is the response to an OTP send request.
type OTPStatus struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// TokenResponse is returned by a successful OTP verification.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UploadResponse is returned by the tier-2 file upload endpoint. FilePath is
// the server-assigned path the caller persists into form state.
type UploadResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path"`
	UserID   int64  `json:"user_id"`
}

// WorkSubmission describes a work-proof claim: the skill being claimed, the
// already-uploaded proof paths, and the story language.
type WorkSubmission struct {
	SkillName    string `json:"skill_name"`
	ImageURL     string `json:"image_url"`
	AudioFileURL string `json:"audio_file_url"`
	LanguageCode string `json:"language_code"`
	Description  string `json:"description,omitempty"`
}

// WorkReceipt acknowledges a work submission; the credential enters the
// server-side verification cycle.
type WorkReceipt struct {
	Message            string `json:"message"`
	SkillToken         string `json:"skill_token"`
	SkillName          string `json:"skill_name"`
	CredentialID       int64  `json:"credential_id"`
	VerificationStatus string `json:"verification_status"`
}

// Profile is the server-owned user profile view.
type Profile struct {
	UserID            int64   `json:"user_id"`
	PhoneNumber       string  `json:"phone_number"`
	Name              *string `json:"name"`
	Profession        *string `json:"profession"`
	Email             *string `json:"email"`
	DateOfBirth       *string `json:"date_of_birth"`
	Gender            *string `json:"gender"`
	SkillTag          *string `json:"skill_tag"`
	PowerSkillTag     *string `json:"power_skill_tag"`
	WalletInitialized bool    `json:"wallet_initialized"`
	WalletHash        *string `json:"wallet_hash"`
}

// Proof is one graded (or pending) work-proof credential.
type Proof struct {
	Title              string  `json:"title"`
	Skill              string  `json:"skill"`
	VisualProofURL     *string `json:"visualProofUrl"`
	AudioStoryURL      *string `json:"audioStoryUrl"`
	LanguageCode       string  `json:"language_code"`
	GradeScore         int     `json:"grade_score"`
	Transcription      *string `json:"transcription"`
	VerificationStatus string  `json:"verification_status"`
	IsVerified         bool    `json:"is_verified"`
	CredentialID       int64   `json:"credential_id"`
	TokenID            string  `json:"token_id"`
	IssuedDate         *string `json:"issued_date"`
}

// CoreProfileUpdate sets the worker's display name and trade.
type CoreProfileUpdate struct {
	Name       string `json:"name"`
	Profession string `json:"profession"`
}

// IdentityUpdate sets optional identity fields collected by the profile wizard.
type IdentityUpdate struct {
	Email       *string `json:"email,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	Gender      *string `json:"gender,omitempty"`
}

// SkillUpdate sets the primary and power skill tags.
type SkillUpdate struct {
	SkillTag      string `json:"skill_tag"`
	PowerSkillTag string `json:"power_skill_tag"`
}

// WalletInit is the response to wallet initialization.
type WalletInit struct {
	UserID     int64  `json:"user_id"`
	WalletHash string `json:"wallet_hash"`
}

// SkillScore is the aggregate score view for the dashboard.
type SkillScore struct {
	UserID     int64   `json:"user_id"`
	SkillScore float64 `json:"skill_score"`
}
