package router

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	nerrors "github.com/vango-dev/storefront/internal/errors"
)

// Catalog turns view names from a route file into ViewRefs.
type Catalog interface {
	Ref(name string, lazy bool) (ViewRef, error)
}

// CatalogFunc is a function adapter for Catalog.
type CatalogFunc func(name string, lazy bool) (ViewRef, error)

// Ref implements Catalog.
func (f CatalogFunc) Ref(name string, lazy bool) (ViewRef, error) {
	return f(name, lazy)
}

// fileRoute is the YAML shape of a Route.
//
//	routes:
//	  - path: /about
//	    name: about
//	    view: AboutView
//	    lazy: true
//	  - path: /homepage
//	    children:
//	      - path: ""
//	        views: {default: Content, header: Header}
type fileRoute struct {
	Path     string            `yaml:"path"`
	Name     string            `yaml:"name,omitempty"`
	View     string            `yaml:"view,omitempty"`
	Views    map[string]string `yaml:"views,omitempty"`
	Lazy     bool              `yaml:"lazy,omitempty"`
	Meta     map[string]any    `yaml:"meta,omitempty"`
	Redirect string            `yaml:"redirect,omitempty"`
	Props    bool              `yaml:"props,omitempty"`
	Children []fileRoute       `yaml:"children,omitempty"`
}

type routeFile struct {
	Routes []fileRoute `yaml:"routes"`
}

// DecodeYAML reads a route file and resolves its view names through c.
func DecodeYAML(r io.Reader, c Catalog) ([]Route, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f routeFile
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, nerrors.New("C002").WithDetail("route file").Wrap(err)
	}
	return convertRoutes(f.Routes, c)
}

// LoadFile reads and compiles a route file.
func LoadFile(path string, c Catalog) (*Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nerrors.New("C001").WithDetail(path).Wrap(err)
	}
	defer fh.Close()

	routes, err := DecodeYAML(fh, c)
	if err != nil {
		return nil, err
	}
	return Compile(routes)
}

func convertRoutes(in []fileRoute, c Catalog) ([]Route, error) {
	out := make([]Route, 0, len(in))
	for _, fr := range in {
		rt := Route{
			Path:     fr.Path,
			Name:     fr.Name,
			Redirect: fr.Redirect,
			Props:    fr.Props,
		}
		if len(fr.Meta) > 0 {
			rt.Meta = Meta(fr.Meta)
		}
		if fr.View != "" {
			ref, err := c.Ref(fr.View, fr.Lazy)
			if err != nil {
				return nil, fmt.Errorf("route %q: %w", fr.Path, err)
			}
			rt.View = ref
		}
		if len(fr.Views) > 0 {
			rt.Views = make(map[string]ViewRef, len(fr.Views))
			for slot, name := range fr.Views {
				ref, err := c.Ref(name, fr.Lazy)
				if err != nil {
					return nil, fmt.Errorf("route %q slot %q: %w", fr.Path, slot, err)
				}
				rt.Views[slot] = ref
			}
		}
		if len(fr.Children) > 0 {
			children, err := convertRoutes(fr.Children, c)
			if err != nil {
				return nil, err
			}
			rt.Children = children
		}
		out = append(out, rt)
	}
	return out, nil
}
