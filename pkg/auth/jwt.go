package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims is the token payload for a storefront session.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokens creates a token codec. The secret must not be empty.
func NewTokens(secret, issuer string) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token for p valid for ttl.
func (t *Tokens) Issue(p Principal, ttl time.Duration) (string, error) {
	now := t.now()
	exp := now.Add(ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: p.Email,
		Name:  p.Name,
		Roles: p.Roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns its principal.
func (t *Tokens) Verify(token string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrSessionExpired
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Principal{
		ID:              claims.Subject,
		Email:           claims.Email,
		Name:            claims.Name,
		Roles:           claims.Roles,
		ExpiresAtUnixMs: claims.ExpiresAt.Time.UnixMilli(),
	}, nil
}

// Login verifies token and stores its principal.
func (s *Store) Login(t *Tokens, token string) (Principal, error) {
	p, err := t.Verify(token)
	if err != nil {
		return Principal{}, err
	}
	s.SetPrincipal(p)
	return p, nil
}
