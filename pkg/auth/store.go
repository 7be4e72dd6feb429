package auth

import (
	"sync"
	"time"
)

// Store holds the current principal. Reads are safe from any goroutine;
// writes belong to the authentication flow.
type Store struct {
	mu        sync.RWMutex
	principal *Principal
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an unauthenticated Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPrincipal marks the session authenticated as p.
func (s *Store) SetPrincipal(p Principal) {
	s.mu.Lock()
	s.principal = &p
	s.mu.Unlock()
}

// Clear logs the session out.
func (s *Store) Clear() {
	s.mu.Lock()
	s.principal = nil
	s.mu.Unlock()
}

// Principal returns the current principal, if authenticated and unexpired.
func (s *Store) Principal() (Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil || s.principal.Expired(s.now()) {
		return Principal{}, false
	}
	return *s.principal, true
}

// IsAuthenticated implements Session.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Principal()
	return ok
}
