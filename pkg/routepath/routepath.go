// Package routepath canonicalizes navigation targets before they reach the
// route matcher.
//
// A navigation target is a root-relative path with an optional query string.
// Parse normalizes it (collapsed slashes, "." and ".." resolved, no trailing
// slash) and decodes each segment exactly once, so the matcher only ever
// compares decoded segments.
package routepath

import (
	"errors"
	"net/url"
	"strings"

	nerrors "github.com/vango-dev/storefront/internal/errors"
)

// ErrInvalidPath is returned (wrapping one of the reasons below) for any
// target that cannot be canonicalized.
var ErrInvalidPath = nerrors.New("N006")

// Rejection reasons, wrapped by ErrInvalidPath.
var (
	ErrNotRelative          = errors.New("target must be a root-relative path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
	ErrEncodedSlash         = errors.New("encoded slash (%2F) in path segment")
)

// Location is a canonical navigation target.
type Location struct {
	// Path is the canonical, still-escaped path ("/detail/42").
	Path string

	// Segments are the decoded path segments (["detail", "42"]).
	Segments []string

	// Query holds the parsed query string.
	Query url.Values
}

// String renders the location back into a navigable target.
func (l Location) String() string {
	return Join(l.Path, l.Query)
}

// Parse canonicalizes input into a Location.
//
// The following inputs are rejected:
//   - absolute URLs ("https://...", "//host") and paths without a leading "/"
//   - backslashes and NUL bytes (literal or %00)
//   - malformed percent escapes
//   - ".." that would climb above the root
//   - %2F inside a segment
func Parse(input string) (Location, error) {
	if input == "" {
		input = "/"
	}
	if !strings.HasPrefix(input, "/") || strings.HasPrefix(input, "//") {
		return Location{}, invalid(ErrNotRelative, input)
	}

	rawTarget, _, _ := strings.Cut(input, "#")
	rawPath, rawQuery, _ := strings.Cut(rawTarget, "?")

	if strings.Contains(rawPath, "\\") {
		return Location{}, invalid(ErrBackslashInPath, input)
	}
	if strings.Contains(rawPath, "\x00") || strings.Contains(strings.ToUpper(rawPath), "%00") {
		return Location{}, invalid(ErrNullByteInPath, input)
	}
	if strings.Contains(rawPath, "%") {
		if err := validatePercentEscapes(rawPath); err != nil {
			return Location{}, invalid(err, input)
		}
	}

	var kept []string
	for _, seg := range strings.Split(rawPath, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(kept) == 0 {
				return Location{}, invalid(ErrPathEscapesRoot, input)
			}
			kept = kept[:len(kept)-1]
		default:
			kept = append(kept, seg)
		}
	}

	decoded := make([]string, 0, len(kept))
	for _, seg := range kept {
		d, err := url.PathUnescape(seg)
		if err != nil {
			return Location{}, invalid(ErrInvalidPercentEscape, input)
		}
		if strings.Contains(d, "/") {
			return Location{}, invalid(ErrEncodedSlash, input)
		}
		decoded = append(decoded, d)
	}

	// Malformed pairs are dropped; the rest of the query is kept.
	query, _ := url.ParseQuery(rawQuery)

	return Location{
		Path:     "/" + strings.Join(kept, "/"),
		Segments: decoded,
		Query:    query,
	}, nil
}

// Join renders path plus an encoded query.
func Join(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

// Split breaks a route pattern into its raw segments, ignoring empty ones.
// Patterns are not decoded: ":id" stays ":id".
func Split(pattern string) []string {
	pattern = strings.Trim(pattern, "/")
	if pattern == "" {
		return nil
	}
	parts := strings.Split(pattern, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EscapeSegment escapes a parameter value for use inside a path.
func EscapeSegment(s string) string {
	return url.PathEscape(s)
}

func invalid(reason error, input string) error {
	return ErrInvalidPath.WithDetailf("%q", input).Wrap(reason)
}

// validatePercentEscapes checks that every '%' starts a %XX hex escape.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
