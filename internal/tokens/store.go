package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearthos/entitlement/internal/shared"
)

// AccessToken is an unforgeable handle issued at login. Administrative
// is fixed at mint time from the credential's scope; evaluation never
// re-derives credential semantics.
type AccessToken struct {
	Value          string
	UserID         string
	CredentialKind string
	Administrative bool
	LastActivity   time.Time
}

// Store is the active-token set. A token is valid only while present
// and not expired; expiry is a computed predicate evaluated at the
// point of use, never a background sweep. Expiry and logout both remove
// the token permanently.
type Store struct {
	mu      sync.RWMutex
	active  map[string]*AccessToken
	timeout time.Duration
	now     func() time.Time
}

// NewStore constructs a token store with the given inactivity timeout.
func NewStore(inactivityTimeout time.Duration) *Store {
	return &Store{
		active:  make(map[string]*AccessToken),
		timeout: inactivityTimeout,
		now:     time.Now,
	}
}

// Timeout exposes the configured inactivity timeout.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// Mint issues a token for the user with a cryptographically
// unpredictable value and activity timestamp set to now.
func (s *Store) Mint(userID, credentialKind string, administrative bool) AccessToken {
	t := &AccessToken{
		Value:          newTokenValue(),
		UserID:         userID,
		CredentialKind: credentialKind,
		Administrative: administrative,
	}
	s.mu.Lock()
	t.LastActivity = s.now()
	s.active[t.Value] = t
	s.mu.Unlock()
	return *t
}

// Resolve returns the token for the given value. Expired tokens are
// removed on observation and reported as absent; there is no
// resurrection path.
func (s *Store) Resolve(value string) (AccessToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.active[value]
	if !ok {
		return AccessToken{}, false
	}
	if s.now().Sub(t.LastActivity) > s.timeout {
		delete(s.active, value)
		return AccessToken{}, false
	}
	return *t, true
}

// Touch refreshes the token's activity timestamp. Touching a token that
// has been logged out or expired in the meantime is a no-op.
func (s *Store) Touch(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.active[value]; ok {
		t.LastActivity = s.now()
	}
}

// Logout removes the token permanently.
func (s *Store) Logout(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[value]; !ok {
		return shared.ErrTokenNotFound
	}
	delete(s.active, value)
	return nil
}

// Active returns the number of tokens currently in the active set,
// including ones whose expiry has not yet been observed.
func (s *Store) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// TokenInfo is a snapshot of one active token. The printable value is
// deliberately omitted so inventories cannot be replayed as handles.
type TokenInfo struct {
	UserID         string
	Administrative bool
	LastActivity   time.Time
}

// Snapshot lists the active tokens sorted by owning user.
func (s *Store) Snapshot() []TokenInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]TokenInfo, 0, len(s.active))
	for _, t := range s.active {
		infos = append(infos, TokenInfo{
			UserID:         t.UserID,
			Administrative: t.Administrative,
			LastActivity:   t.LastActivity,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].UserID < infos[j].UserID })
	return infos
}

// newTokenValue mirrors the session-id generation used elsewhere in the
// platform: a random UUID, with a raw crypto/rand fallback.
func newTokenValue() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("tokens: no entropy source available: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
