package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"

	"github.com/vango-dev/storefront/pkg/lazy"
)

// DirStore reads bundles from a local directory, for development.
type DirStore struct {
	dir string
	ext string
}

// NewDirStore creates a store reading <dir>/<name>.js.
func NewDirStore(dir string) (*DirStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &DirStore{dir: dir, ext: DefaultExt}, nil
}

// Fetch implements Store.
func (s *DirStore) Fetch(ctx context.Context, name string) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := keyFor("", name, s.ext)
	if err != nil {
		return nil, lazy.Fatal(err)
	}
	path := filepath.Join(s.dir, key)

	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lazy.Fatal(fmt.Errorf("bundle %s: %w", key, err))
		}
		return nil, err
	}

	return &Bundle{
		Name:        name,
		Key:         key,
		ContentType: mime.TypeByExtension(s.ext),
		Body:        body,
	}, nil
}
