// Package session is the single source of truth for the kiosk's bearer token.
//
// The token is the only state the kiosk persists: one file holding the raw
// JWT. The token is never verified locally (the backend owns the signing key);
// it is decoded only to read the subject and expiry. Every read checks the
// expiry, and an expired token is deleted and treated as absent.
package session

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAuthenticated is returned when no valid token is stored.
var ErrNotAuthenticated = errors.New("not authenticated, please login")

// Claims is the decoded subset of the token the kiosk cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Store persists the bearer token and notifies subscribers on logout/expiry.
type Store struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	token   string
	loaded  bool
	subs    []func()
	pending []func()
}

// NewStore creates a store backed by the token file at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Save persists a freshly issued token.
func (s *Store) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return err
	}
	s.token = token
	s.loaded = true
	return nil
}

// Token returns the stored token. An expired or undecodable token is removed
// as a side effect and reported as absent.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	token, ok := s.tokenLocked()
	notify := s.takePendingLocked()
	s.mu.Unlock()
	fire(notify)
	return token, ok
}

// Claims returns the decoded claims of the stored token.
func (s *Store) Claims() (Claims, bool) {
	s.mu.Lock()
	token, ok := s.tokenLocked()
	notify := s.takePendingLocked()
	s.mu.Unlock()
	fire(notify)
	if !ok {
		return Claims{}, false
	}
	claims, err := decode(token)
	if err != nil {
		return Claims{}, false
	}
	return claims, true
}

// OrgEmail returns the organization email carried in the token subject.
func (s *Store) OrgEmail() (string, error) {
	claims, ok := s.Claims()
	if !ok || claims.Subject == "" {
		return "", ErrNotAuthenticated
	}
	return claims.Subject, nil
}

// Authenticated reports whether a live token is stored.
func (s *Store) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// Clear logs out: deletes the stored token and fires subscribers.
func (s *Store) Clear() {
	s.mu.Lock()
	s.clearLocked()
	notify := s.takePendingLocked()
	s.mu.Unlock()
	fire(notify)
}

// Subscribe registers a callback fired once each time the token transitions
// from present to absent (logout or detected expiry). Callbacks run outside
// the store's lock and may call back into the store.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) tokenLocked() (string, bool) {
	if !s.loaded {
		data, err := os.ReadFile(s.path)
		if err == nil {
			s.token = string(data)
		}
		s.loaded = true
	}
	if s.token == "" {
		return "", false
	}
	claims, err := decode(s.token)
	if err != nil || !claims.ExpiresAt.After(s.now()) {
		s.clearLocked()
		return "", false
	}
	return s.token, true
}

// clearLocked queues subscriber notifications instead of firing them; the
// caller delivers them after releasing the lock.
func (s *Store) clearLocked() {
	had := s.token != ""
	s.token = ""
	s.loaded = true
	_ = os.Remove(s.path)
	if had {
		s.pending = append(s.pending, s.subs...)
	}
}

func (s *Store) takePendingLocked() []func() {
	notify := s.pending
	s.pending = nil
	return notify
}

func fire(notify []func()) {
	for _, fn := range notify {
		fn()
	}
}

// decode reads sub and exp from the token without verifying the signature.
func decode(token string) (Claims, error) {
	var reg jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &reg); err != nil {
		return Claims{}, err
	}
	if reg.ExpiresAt == nil {
		return Claims{}, errors.New("token has no expiry")
	}
	return Claims{Subject: reg.Subject, ExpiresAt: reg.ExpiresAt.Time}, nil
}
