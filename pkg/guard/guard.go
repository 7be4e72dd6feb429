// Package guard decides whether a matched navigation may proceed.
//
// Guards read the match and the session and return a Decision. They never
// touch navigation state; the navigation router acts on the decision.
package guard

import (
	"context"
	"fmt"
	"net/url"

	nerrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/auth"
	"github.com/vango-dev/storefront/pkg/router"
)

// ErrBlocked is returned for navigations a guard refused outright.
var ErrBlocked = nerrors.New("N003")

// DefaultLoginPath is the authentication entry point.
const DefaultLoginPath = "/"

// RedirectParam is the query parameter carrying the intended path.
const RedirectParam = "redirect"

// Kind is the outcome of a guard check.
type Kind int

const (
	Allow Kind = iota
	Redirect
	Block
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// Decision is a guard verdict.
type Decision struct {
	Kind Kind

	// Path is the redirect target when Kind is Redirect.
	Path string

	// Reason explains a Block.
	Reason string
}

// Allowed is the decision letting a navigation proceed.
func Allowed() Decision { return Decision{Kind: Allow} }

// RedirectTo redirects the navigation to path.
func RedirectTo(path string) Decision { return Decision{Kind: Redirect, Path: path} }

// Blocked refuses the navigation.
func Blocked(reason string) Decision { return Decision{Kind: Block, Reason: reason} }

// Err returns the error for a Block decision, nil otherwise.
func (d Decision) Err() error {
	if d.Kind != Block {
		return nil
	}
	return ErrBlocked.WithDetail(d.Reason)
}

// String formats the decision for logs.
func (d Decision) String() string {
	switch d.Kind {
	case Redirect:
		return fmt.Sprintf("redirect(%s)", d.Path)
	case Block:
		return fmt.Sprintf("block(%s)", d.Reason)
	default:
		return d.Kind.String()
	}
}

// Guard checks a match against the session.
type Guard interface {
	Check(ctx context.Context, m *router.Match, s auth.Session) Decision
}

// Func adapts a function to Guard.
type Func func(ctx context.Context, m *router.Match, s auth.Session) Decision

// Check implements Guard.
func (f Func) Check(ctx context.Context, m *router.Match, s auth.Session) Decision {
	return f(ctx, m, s)
}

// Chain runs guards in order and returns the first decision that is not Allow.
func Chain(guards ...Guard) Guard {
	return Func(func(ctx context.Context, m *router.Match, s auth.Session) Decision {
		for _, g := range guards {
			if d := g.Check(ctx, m, s); d.Kind != Allow {
				return d
			}
		}
		return Allowed()
	})
}

// RequireAuth redirects unauthenticated sessions away from any chain that has
// a record marked requiresAuth. The redirect carries the intended path as
// ?redirect=<path> so the login flow can resume it.
func RequireAuth(loginPath string) Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return Func(func(_ context.Context, m *router.Match, s auth.Session) Decision {
		if !m.RequiresMeta(router.MetaRequiresAuth) {
			return Allowed()
		}
		if s != nil && s.IsAuthenticated() {
			return Allowed()
		}
		return RedirectTo(LoginRedirect(loginPath, m.FullPath()))
	})
}

// LoginRedirect builds the login entry path carrying intended.
func LoginRedirect(loginPath, intended string) string {
	return loginPath + "?" + url.Values{RedirectParam: {intended}}.Encode()
}
