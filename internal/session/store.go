// Package session persists the small set of values the web client kept in
// browser local storage: the user identifier, the bearer token, and the last
// completed wizard step. Flat string keys, no schema. State is read once at
// startup and cleared explicitly on logout; nothing reads it ambiently.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Well-known keys.
const (
	KeyUserID    = "user_id"
	KeyAuthToken = "auth_token"
	keyLastStep  = "last_step." // per-flow suffix
)

// Store is flat string key-value persistence.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Clear() error
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

// Get implements Store.Get.
func (s *MemStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set implements Store.Set.
func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete implements Store.Delete.
func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Clear implements Store.Clear.
func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return nil
}

// FileStore persists the key-value map as one JSON file. Writes go through
// a temp file rename so a crash never leaves a torn session file.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// OpenFileStore loads (or creates) the session file at path.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.values); err != nil {
			return nil, fmt.Errorf("session: parse %s: %w", path, err)
		}
	}
	return s, nil
}

// Get implements Store.Get.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set implements Store.Set and persists immediately.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.saveLocked()
}

// Delete implements Store.Delete and persists immediately.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.saveLocked()
}

// Clear implements Store.Clear: drops every key and removes the file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: clear %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("session: mkdir for %s: %w", s.path, err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("session: rename %s: %w", tmp, err)
	}
	return nil
}

// Session wraps a Store with typed accessors for the well-known keys. It is
// constructed once at startup and passed into the wizard; on logout the
// whole thing is cleared.
type Session struct {
	store Store
}

// New wraps store.
func New(store Store) *Session {
	return &Session{store: store}
}

// UserID returns the persisted user identifier, if logged in.
func (s *Session) UserID() (int64, bool) {
	v, ok := s.store.Get(KeyUserID)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetUserID persists the user identifier.
func (s *Session) SetUserID(id int64) error {
	return s.store.Set(KeyUserID, strconv.FormatInt(id, 10))
}

// Token returns the persisted bearer token ("" when logged out).
func (s *Session) Token() string {
	v, _ := s.store.Get(KeyAuthToken)
	return v
}

// SetToken persists the bearer token.
func (s *Session) SetToken(token string) error {
	return s.store.Set(KeyAuthToken, token)
}

// LastStep returns the last completed step recorded for a wizard flow.
func (s *Session) LastStep(flow string) string {
	v, _ := s.store.Get(keyLastStep + flow)
	return v
}

// SetLastStep records the last completed step for a wizard flow, used to
// resume onboarding across restarts.
func (s *Session) SetLastStep(flow, step string) error {
	return s.store.Set(keyLastStep+flow, step)
}

// Clear wipes everything. Used on logout and reset.
func (s *Session) Clear() error {
	return s.store.Clear()
}
