package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/vango-dev/storefront/pkg/router"
)

// DefaultExt is appended to view names to build object keys.
const DefaultExt = ".js"

// Bundle is a fetched view implementation.
type Bundle struct {
	Name        string
	Key         string
	ContentType string
	ETag        string
	Body        []byte
}

// ViewName implements router.View.
func (b *Bundle) ViewName() string { return b.Name }

// Size returns the body length in bytes.
func (b *Bundle) Size() int { return len(b.Body) }

// Store fetches bundles by view name.
type Store interface {
	Fetch(ctx context.Context, name string) (*Bundle, error)
}

// Func returns a loader for the named view backed by store.
func Func(store Store, name string) router.LoaderFunc {
	return func(ctx context.Context) (router.View, error) {
		b, err := store.Fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// keyFor maps a view name to an object key.
func keyFor(prefix, name, ext string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\\x00") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid view name %q", name)
	}
	return prefix + name + ext, nil
}
