package devbackend

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"
)

// OTPSender delivers a one-time code to a phone number. The production-ish
// implementation is Twilio; dev mode logs the code instead.
type OTPSender interface {
	Send(phone, code string) error
}

// Service applies backend business rules (OTP lifecycle, credential minting)
// and delegates storage to Repository.
type Service struct {
	repo   Repository
	sender OTPSender
	log    *slog.Logger
}

// NewService returns a Service over repo that dispatches codes via sender.
func NewService(repo Repository, sender OTPSender, log *slog.Logger) *Service {
	return &Service{repo: repo, sender: sender, log: log}
}

// SendOTP generates a six-digit code for phone, stores its hash, and
// dispatches it. The plaintext code never leaves this method except through
// the sender.
func (s *Service) SendOTP(phone string) error {
	code, err := GenerateOTP(6)
	if err != nil {
		return err
	}
	if err := s.repo.SetOTPHash(phone, HashOTP(code)); err != nil {
		return err
	}
	return s.sender.Send(phone, code)
}

// VerifyOTP checks code against the outstanding hash for phone and clears
// the hash on success, so a code can be used once.
func (s *Service) VerifyOTP(phone, code string) (UserID, error) {
	id, hash, err := s.repo.TakeOTPHash(phone)
	if err != nil {
		return 0, err
	}
	if !VerifyOTPHash(code, hash) {
		return 0, ErrNoPendingOTP
	}
	if err := s.repo.ClearOTPHash(phone); err != nil {
		return 0, err
	}
	return id, nil
}

// SubmitWork mints a pending credential for the user's claim.
func (s *Service) SubmitWork(id UserID, skillName, proofURL, audioURL, language, description string) (*Credential, string, error) {
	return s.repo.MintCredential(id, Credential{
		SkillName:    skillName,
		ProofURL:     proofURL,
		AudioURL:     audioURL,
		LanguageCode: language,
		Description:  description,
	})
}

// SkillScore aggregates the user's graded credentials into one number:
// the mean grade over all credentials, ungraded ones counting as zero.
func (s *Service) SkillScore(id UserID) (float64, bool) {
	creds, ok := s.repo.GetProofsSnapshot(id, "all")
	if !ok {
		return 0, false
	}
	if len(creds) == 0 {
		return 0, true
	}
	total := 0
	for _, c := range creds {
		total += c.GradeScore
	}
	return float64(total) / float64(len(creds)), true
}

// GenerateOTP returns a random numeric code of the given length.
func GenerateOTP(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

// HashOTP returns the hex SHA-256 of code.
func HashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyOTPHash compares code against a stored hash in constant time.
func VerifyOTPHash(code, hash string) bool {
	if hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashOTP(code)), []byte(hash)) == 1
}

// NewWalletHash generates a wallet identifier for a user.
func NewWalletHash(id UserID) string {
	return fmt.Sprintf("WALLET-ID-%d-%s", id, uuid.NewString()[:8])
}

// NewTokenID generates a credential token identifier from the claim.
func NewTokenID(id UserID, skillName string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d:%s:%s", id, skillName, uuid.NewString()))
	return "SW-TKN-" + hex.EncodeToString(sum[:])[:8]
}
