package ajarin

import "sync"

// Storage keys for the persisted tokens.
const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
)

// KeyValueStore is the minimal persistent substrate behind the credential
// store. Implementations must be safe for concurrent use. A missing key is
// reported as an empty value with a nil error.
type KeyValueStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// CredentialStore is the process-wide holder of access/refresh tokens. It is
// the only cross-request mutable state in the core; it is written by login,
// refresh completion and logout/terminal-failure clearing, and every read
// goes through it so no request observes a stale local copy mid-refresh.
type CredentialStore struct {
	mu sync.RWMutex
	kv KeyValueStore

	accessToken  string
	refreshToken string
	loaded       bool
}

// NewCredentialStore wraps a KeyValueStore. Tokens persisted in kv become
// visible on first read, so a restarted process resumes its session.
func NewCredentialStore(kv KeyValueStore) *CredentialStore {
	return &CredentialStore{kv: kv}
}

func (s *CredentialStore) loadLocked() {
	if s.loaded {
		return
	}
	if access, err := s.kv.Get(accessTokenKey); err == nil {
		s.accessToken = access
	}
	if refresh, err := s.kv.Get(refreshTokenKey); err == nil {
		s.refreshToken = refresh
	}
	s.loaded = true
}

// AccessToken returns the current access token, or "" when logged out.
func (s *CredentialStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.accessToken
}

// RefreshToken returns the current refresh token, or "" when logged out.
func (s *CredentialStore) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.refreshToken
}

// SetTokens stores both tokens; called at login.
func (s *CredentialStore) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	if err := s.kv.Set(accessTokenKey, access); err != nil {
		return &StoreError{Operation: "save", Key: accessTokenKey, Cause: err}
	}
	if err := s.kv.Set(refreshTokenKey, refresh); err != nil {
		return &StoreError{Operation: "save", Key: refreshTokenKey, Cause: err}
	}
	s.accessToken = access
	s.refreshToken = refresh
	return nil
}

// SetAccessToken replaces only the access token; called on refresh success.
func (s *CredentialStore) SetAccessToken(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	if err := s.kv.Set(accessTokenKey, access); err != nil {
		return &StoreError{Operation: "save", Key: accessTokenKey, Cause: err}
	}
	s.accessToken = access
	return nil
}

// Clear removes both tokens; called at logout and on terminal refresh
// failure. Subsequent requests carry no Authorization header until the
// caller re-authenticates.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.loaded = true
	if err := s.kv.Delete(accessTokenKey); err != nil {
		return &StoreError{Operation: "delete", Key: accessTokenKey, Cause: err}
	}
	if err := s.kv.Delete(refreshTokenKey); err != nil {
		return &StoreError{Operation: "delete", Key: refreshTokenKey, Cause: err}
	}
	return nil
}

// StoreError indicates a credential persistence failure.
type StoreError struct {
	Operation string // "save", "delete"
	Key       string
	Cause     error
}

func (e *StoreError) Error() string {
	msg := e.Operation + " credential " + e.Key
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// MemoryStore is an in-memory KeyValueStore for tests and sessions that
// should not outlive the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the stored value, or "" when absent.
func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

// Set stores a value.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete removes a value.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
