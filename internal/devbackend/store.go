package devbackend

// Store is the persistence abstraction for backend state. The dev backend
// only ships an in-memory implementation; the Repository uses Store for all
// reads and writes so callers never see which one is plugged in.
type Store interface {
	GetUser(id UserID) (*User, bool)
	FindUserByPhone(phone string) (*User, bool)
	SetUser(u *User)
	UserCount() int
	NextUserID() UserID
	NextCredentialID() int64
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	users      map[UserID]*User
	byPhone    map[string]UserID
	nextUser   UserID
	nextCredID int64
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:   make(map[UserID]*User),
		byPhone: make(map[string]UserID),
	}
}

// GetUser implements Store.GetUser.
func (s *InMemoryStore) GetUser(id UserID) (*User, bool) {
	u, ok := s.users[id]
	return u, ok
}

// FindUserByPhone implements Store.FindUserByPhone.
func (s *InMemoryStore) FindUserByPhone(phone string) (*User, bool) {
	id, ok := s.byPhone[phone]
	if !ok {
		return nil, false
	}
	return s.GetUser(id)
}

// SetUser implements Store.SetUser.
func (s *InMemoryStore) SetUser(u *User) {
	s.users[u.ID] = u
	s.byPhone[u.PhoneNumber] = u.ID
}

// UserCount implements Store.UserCount.
func (s *InMemoryStore) UserCount() int {
	return len(s.users)
}

// NextUserID implements Store.NextUserID.
func (s *InMemoryStore) NextUserID() UserID {
	s.nextUser++
	return s.nextUser
}

// NextCredentialID implements Store.NextCredentialID.
func (s *InMemoryStore) NextCredentialID() int64 {
	s.nextCredID++
	return s.nextCredID
}
