package auth

import (
	"errors"
	"testing"
	"time"
)

func TestStoreLifecycle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewStore(WithClock(func() time.Time { return now }))

	if s.IsAuthenticated() {
		t.Error("new store should be unauthenticated")
	}

	s.SetPrincipal(Principal{ID: "u1", ExpiresAtUnixMs: now.Add(time.Hour).UnixMilli()})
	if !s.IsAuthenticated() {
		t.Error("store should be authenticated after SetPrincipal")
	}
	if p, ok := s.Principal(); !ok || p.ID != "u1" {
		t.Errorf("Principal() = %+v, %v", p, ok)
	}

	now = now.Add(2 * time.Hour)
	if s.IsAuthenticated() {
		t.Error("expired principal should not authenticate")
	}

	s.SetPrincipal(Principal{ID: "u2"})
	s.Clear()
	if s.IsAuthenticated() {
		t.Error("Clear should log out")
	}
}

func TestStaticAndFuncSessions(t *testing.T) {
	if !Static(true).IsAuthenticated() || Static(false).IsAuthenticated() {
		t.Error("Static misreports")
	}
	calls := 0
	f := SessionFunc(func() bool { calls++; return true })
	if !f.IsAuthenticated() || calls != 1 {
		t.Error("SessionFunc should delegate")
	}
}

func TestPrincipalHelpers(t *testing.T) {
	p := Principal{Roles: []string{"reader", "admin"}}
	if p.Expired(time.Now()) {
		t.Error("zero expiry never expires")
	}
}

func TestTokensRoundTrip(t *testing.T) {
	tokens, err := NewTokens("s3cret", "storefront")
	if err != nil {
		t.Fatal(err)
	}
	token, err := tokens.Issue(Principal{ID: "u1", Email: "a@b.c", Roles: []string{"reader"}}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	p, err := s.Login(tokens, token)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if p.ID != "u1" || p.Email != "a@b.c" || len(p.Roles) != 1 || p.Roles[0] != "reader" {
		t.Errorf("principal = %+v", p)
	}
	if !s.IsAuthenticated() {
		t.Error("Login should authenticate the store")
	}
}

func TestTokensRejects(t *testing.T) {
	tokens, _ := NewTokens("s3cret", "storefront")
	other, _ := NewTokens("different", "storefront")
	wrongIssuer, _ := NewTokens("s3cret", "elsewhere")

	token, _ := other.Issue(Principal{ID: "u1"}, time.Hour)
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret error = %v, want ErrInvalidToken", err)
	}

	token, _ = wrongIssuer.Issue(Principal{ID: "u1"}, time.Hour)
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong issuer error = %v, want ErrInvalidToken", err)
	}

	token, _ = tokens.Issue(Principal{ID: "u1"}, -time.Minute)
	if _, err := tokens.Verify(token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expired error = %v, want ErrSessionExpired", err)
	}

	token, _ = tokens.Issue(Principal{}, time.Hour)
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("missing subject error = %v, want ErrInvalidToken", err)
	}

	if _, err := NewTokens(" ", ""); err == nil {
		t.Error("empty secret should be rejected")
	}

	s := NewStore()
	if _, err := s.Login(tokens, "garbage"); err == nil || s.IsAuthenticated() {
		t.Error("failed login must leave the store unauthenticated")
	}
}
