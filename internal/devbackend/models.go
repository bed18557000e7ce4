package devbackend

import "time"

// UserID uniquely identifies a registered worker.
type UserID int64

// User is the backend-owned worker record. Only the fields the client
// actually exercises are modeled; the real backend owns far more.
type User struct {
	ID          UserID
	PhoneNumber string

	// OTPHash is the SHA-256 of the outstanding one-time code, empty when
	// no login is pending. Cleared on successful verification.
	OTPHash string

	Name          string
	Profession    string
	Email         string
	DateOfBirth   string
	Gender        string
	SkillTag      string
	PowerSkillTag string

	// DocumentPaths maps a file_type tag (work_evidence, aadhaar, ...) to
	// the stored file path of the latest upload for that slot.
	DocumentPaths map[string]string

	Wallet *Wallet
}

// Wallet holds a user's minted skill credentials.
type Wallet struct {
	Hash        string
	Credentials []*Credential
}

// Credential is one work-proof submission in the verification cycle.
type Credential struct {
	ID           int64
	SkillName    string
	ProofURL     string
	AudioURL     string
	TokenID      string
	LanguageCode string
	Description  string

	VerificationStatus string // PENDING until graded
	IsVerified         bool
	GradeScore         int
	Transcription      string
	IssuedAt           time.Time
}
