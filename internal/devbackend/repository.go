package devbackend

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Repository defines the concurrency-safe contract for accessing and
// mutating backend state.
type Repository interface {
	// EnsureUser returns the user registered under phone, creating one if
	// none exists.
	EnsureUser(phone string) *User

	// SetOTPHash stores the hash of the outstanding one-time code for the
	// user registered under phone.
	SetOTPHash(phone, hash string) error

	// TakeOTPHash returns the outstanding OTP hash for phone without
	// clearing it. ClearOTPHash removes it after a successful verification.
	TakeOTPHash(phone string) (userID UserID, hash string, err error)
	ClearOTPHash(phone string) error

	// GetUserSnapshot returns a copy of the user record.
	GetUserSnapshot(id UserID) (User, bool)

	// SaveDocumentPath records the stored path for a file_type slot.
	SaveDocumentPath(id UserID, fileType, path string) error

	// UpdateCoreProfile, UpdateIdentityInfo, and UpdateSkillTags mutate the
	// corresponding profile fields.
	UpdateCoreProfile(id UserID, name, profession string) error
	UpdateIdentityInfo(id UserID, email, dob, gender string) error
	UpdateSkillTags(id UserID, skillTag, powerSkillTag string) error

	// EnsureWallet creates the user's wallet if missing and returns its hash.
	EnsureWallet(id UserID) (string, error)

	// MintCredential appends a pending credential to the user's wallet,
	// creating the wallet if needed.
	MintCredential(id UserID, cred Credential) (*Credential, string, error)

	// GetProofsSnapshot returns the user's credentials newest first. scope
	// "latest" keeps only the newest; anything else keeps all.
	GetProofsSnapshot(id UserID, scope string) ([]Credential, bool)

	// UserCount returns the number of registered users. Used for metrics.
	UserCount() int
}

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoPendingOTP is returned when verification is attempted with no
	// outstanding code.
	ErrNoPendingOTP = errors.New("no pending OTP for this phone")
)

// InMemoryRepository is a concurrency-safe Repository over a Store.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store

	walletHash func(UserID) string
	tokenID    func(UserID, string) string
	now        func() time.Time
}

// NewInMemoryRepository constructs a repository with a default in-memory
// store. walletHash and tokenID generate wallet and credential identifiers;
// see service.go for the production generators.
func NewInMemoryRepository(walletHash func(UserID) string, tokenID func(UserID, string) string) *InMemoryRepository {
	return &InMemoryRepository{
		store:      NewInMemoryStore(),
		walletHash: walletHash,
		tokenID:    tokenID,
		now:        time.Now,
	}
}

// EnsureUser implements Repository.EnsureUser.
func (r *InMemoryRepository) EnsureUser(phone string) *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureUserLocked(phone)
}

func (r *InMemoryRepository) ensureUserLocked(phone string) *User {
	if u, ok := r.store.FindUserByPhone(phone); ok {
		return u
	}
	u := &User{
		ID:            r.store.NextUserID(),
		PhoneNumber:   phone,
		DocumentPaths: make(map[string]string),
	}
	r.store.SetUser(u)
	return u
}

// SetOTPHash implements Repository.SetOTPHash.
func (r *InMemoryRepository) SetOTPHash(phone, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.ensureUserLocked(phone)
	u.OTPHash = hash
	return nil
}

// TakeOTPHash implements Repository.TakeOTPHash.
func (r *InMemoryRepository) TakeOTPHash(phone string) (UserID, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.store.FindUserByPhone(phone)
	if !ok {
		return 0, "", ErrUserNotFound
	}
	if u.OTPHash == "" {
		return u.ID, "", ErrNoPendingOTP
	}
	return u.ID, u.OTPHash, nil
}

// ClearOTPHash implements Repository.ClearOTPHash.
func (r *InMemoryRepository) ClearOTPHash(phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store.FindUserByPhone(phone)
	if !ok {
		return ErrUserNotFound
	}
	u.OTPHash = ""
	return nil
}

// GetUserSnapshot implements Repository.GetUserSnapshot.
func (r *InMemoryRepository) GetUserSnapshot(id UserID) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.store.GetUser(id)
	if !ok {
		return User{}, false
	}

	// Copy so callers never hold references into the store.
	snap := *u
	snap.DocumentPaths = make(map[string]string, len(u.DocumentPaths))
	for k, v := range u.DocumentPaths {
		snap.DocumentPaths[k] = v
	}
	if u.Wallet != nil {
		w := *u.Wallet
		w.Credentials = append([]*Credential(nil), u.Wallet.Credentials...)
		snap.Wallet = &w
	}
	return snap, true
}

// SaveDocumentPath implements Repository.SaveDocumentPath.
func (r *InMemoryRepository) SaveDocumentPath(id UserID, fileType, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store.GetUser(id)
	if !ok {
		return ErrUserNotFound
	}
	u.DocumentPaths[fileType] = path
	return nil
}

// UpdateCoreProfile implements Repository.UpdateCoreProfile.
func (r *InMemoryRepository) UpdateCoreProfile(id UserID, name, profession string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store.GetUser(id)
	if !ok {
		return ErrUserNotFound
	}
	u.Name = name
	u.Profession = profession
	return nil
}

// UpdateIdentityInfo implements Repository.UpdateIdentityInfo. Empty fields
// are left unchanged.
func (r *InMemoryRepository) UpdateIdentityInfo(id UserID, email, dob, gender string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store.GetUser(id)
	if !ok {
		return ErrUserNotFound
	}
	if email != "" {
		u.Email = email
	}
	if dob != "" {
		u.DateOfBirth = dob
	}
	if gender != "" {
		u.Gender = gender
	}
	return nil
}

// UpdateSkillTags implements Repository.UpdateSkillTags.
func (r *InMemoryRepository) UpdateSkillTags(id UserID, skillTag, powerSkillTag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store.GetUser(id)
	if !ok {
		return ErrUserNotFound
	}
	u.SkillTag = skillTag
	u.PowerSkillTag = powerSkillTag
	return nil
}

// EnsureWallet implements Repository.EnsureWallet.
func (r *InMemoryRepository) EnsureWallet(id UserID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store.GetUser(id)
	if !ok {
		return "", ErrUserNotFound
	}
	if u.Wallet == nil {
		u.Wallet = &Wallet{Hash: r.walletHash(id)}
	}
	return u.Wallet.Hash, nil
}

// MintCredential implements Repository.MintCredential. The wallet hash of
// the (possibly just-created) wallet is returned alongside the credential.
func (r *InMemoryRepository) MintCredential(id UserID, cred Credential) (*Credential, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store.GetUser(id)
	if !ok {
		return nil, "", ErrUserNotFound
	}

	if u.Wallet == nil {
		u.Wallet = &Wallet{Hash: r.walletHash(id)}
	}

	c := cred
	c.ID = r.store.NextCredentialID()
	c.TokenID = r.tokenID(id, cred.SkillName)
	c.VerificationStatus = "PENDING"
	c.IsVerified = false
	c.IssuedAt = r.now().UTC()
	u.Wallet.Credentials = append(u.Wallet.Credentials, &c)

	return &c, u.Wallet.Hash, nil
}

// GetProofsSnapshot implements Repository.GetProofsSnapshot.
func (r *InMemoryRepository) GetProofsSnapshot(id UserID, scope string) ([]Credential, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.store.GetUser(id)
	if !ok || u.Wallet == nil {
		return nil, ok
	}

	creds := make([]Credential, 0, len(u.Wallet.Credentials))
	for _, c := range u.Wallet.Credentials {
		creds = append(creds, *c)
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].IssuedAt.After(creds[j].IssuedAt) })

	if scope == "latest" && len(creds) > 1 {
		creds = creds[:1]
	}
	return creds, true
}

// UserCount implements Repository.UserCount.
func (r *InMemoryRepository) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.UserCount()
}
