package devbackend

import (
	"errors"
	"strings"
	"testing"

	"skillwallet/internal/platform/logger"
)

// captureSender records the last dispatched code instead of sending it.
type captureSender struct {
	phone string
	code  string
}

func (s *captureSender) Send(phone, code string) error {
	s.phone = phone
	s.code = code
	return nil
}

func newTestService() (*Service, *InMemoryRepository, *captureSender) {
	repo := NewInMemoryRepository(NewWalletHash, NewTokenID)
	sender := &captureSender{}
	return NewService(repo, sender, logger.Discard()), repo, sender
}

func TestGenerateOTP(t *testing.T) {
	code, err := GenerateOTP(6)
	if err != nil {
		t.Fatalf("GenerateOTP: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("len = %d, want 6", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Errorf("non-digit %q in code %q", r, code)
		}
	}
}

func TestVerifyOTPHash(t *testing.T) {
	hash := HashOTP("123456")
	if !VerifyOTPHash("123456", hash) {
		t.Error("correct code should verify")
	}
	if VerifyOTPHash("123457", hash) {
		t.Error("wrong code should not verify")
	}
	if VerifyOTPHash("123456", "") {
		t.Error("empty hash should never verify")
	}
}

func TestService_otp_lifecycle(t *testing.T) {
	svc, _, sender := newTestService()
	phone := "+919876543210"

	if err := svc.SendOTP(phone); err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if sender.phone != phone || len(sender.code) != 6 {
		t.Fatalf("sender got phone=%q code=%q", sender.phone, sender.code)
	}

	id, err := svc.VerifyOTP(phone, sender.code)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if id == 0 {
		t.Error("verified user id should be assigned")
	}

	// A code is single use.
	if _, err := svc.VerifyOTP(phone, sender.code); !errors.Is(err, ErrNoPendingOTP) {
		t.Errorf("reused code: got %v, want ErrNoPendingOTP", err)
	}
}

func TestService_verify_wrong_code(t *testing.T) {
	svc, _, sender := newTestService()
	phone := "9876543210"

	if err := svc.SendOTP(phone); err != nil {
		t.Fatal(err)
	}
	wrong := "000000"
	if wrong == sender.code {
		wrong = "000001"
	}
	if _, err := svc.VerifyOTP(phone, wrong); err == nil {
		t.Error("wrong code should not verify")
	}
	// The pending code survives a failed attempt.
	if _, err := svc.VerifyOTP(phone, sender.code); err != nil {
		t.Errorf("correct code after failed attempt: %v", err)
	}
}

func TestService_verify_unknown_phone(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.VerifyOTP("9876543210", "123456"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}

func TestService_skill_score(t *testing.T) {
	svc, repo, _ := newTestService()
	u := repo.EnsureUser("9876543210")

	if score, ok := svc.SkillScore(u.ID); !ok || score != 0 {
		t.Errorf("empty wallet: score=%v ok=%v", score, ok)
	}

	repo.MintCredential(u.ID, Credential{SkillName: "masonry", GradeScore: 8})
	repo.MintCredential(u.ID, Credential{SkillName: "painting", GradeScore: 4})

	score, ok := svc.SkillScore(u.ID)
	if !ok || score != 6 {
		t.Errorf("score = %v ok=%v, want mean 6", score, ok)
	}

	if _, ok := svc.SkillScore(999); ok {
		t.Error("unknown user should report not found")
	}
}

func TestIdentifierGenerators(t *testing.T) {
	hash := NewWalletHash(7)
	if !strings.HasPrefix(hash, "WALLET-ID-7-") {
		t.Errorf("wallet hash = %q", hash)
	}

	token := NewTokenID(7, "masonry")
	if !strings.HasPrefix(token, "SW-TKN-") || len(token) != len("SW-TKN-")+8 {
		t.Errorf("token id = %q", token)
	}
	if token == NewTokenID(7, "masonry") {
		t.Error("token ids must be unique per mint")
	}
}
