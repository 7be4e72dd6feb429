// Package auth is the session collaborator the navigation guards read.
//
// Navigation never mutates authentication state. It only asks one question,
// Session.IsAuthenticated, at guard time. The Store type is the mutable side
// owned by the login flow: it holds the current Principal and is updated on
// login, logout and token refresh.
//
//	store := auth.NewStore()
//	nav := navigation.New(table, store, ...)
//
//	// login form succeeded
//	store.SetPrincipal(auth.Principal{ID: "u1", ExpiresAtUnixMs: exp})
package auth

import (
	"errors"
	"time"
)

var (
	// ErrSessionExpired indicates the session is no longer valid due to expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidToken indicates a session token failed verification.
	ErrInvalidToken = errors.New("invalid session token")
)

// Session is the read-only view of session state consumed by guards.
type Session interface {
	IsAuthenticated() bool
}

// SessionFunc adapts a function to Session.
type SessionFunc func() bool

// IsAuthenticated implements Session.
func (f SessionFunc) IsAuthenticated() bool { return f() }

// Static is a Session with a fixed answer, for tests and the CLI.
type Static bool

// IsAuthenticated implements Session.
func (s Static) IsAuthenticated() bool { return bool(s) }

// Principal represents the authenticated identity.
// Intentionally minimal: no catch-all claims map.
type Principal struct {
	ID    string   `json:"id"`
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`

	// ExpiresAtUnixMs is the hard expiry. Zero means no expiry.
	ExpiresAtUnixMs int64 `json:"expires_at_unix_ms"`
}

// Expired reports whether the principal's expiry has passed at now.
func (p Principal) Expired(now time.Time) bool {
	return p.ExpiresAtUnixMs > 0 && now.UnixMilli() >= p.ExpiresAtUnixMs
}
