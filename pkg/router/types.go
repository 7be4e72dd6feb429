package router

import (
	"context"

	nerrors "github.com/vango-dev/storefront/internal/errors"
)

// DefaultSlot is the slot filled by a record that declares a single view.
const DefaultSlot = "default"

// MetaRequiresAuth marks a record (and all its descendants) as requiring an
// authenticated session.
const MetaRequiresAuth = "requiresAuth"

// CatchAllParam is the parameter bound by a bare "*" pattern.
const CatchAllParam = "pathMatch"

// Route table errors.
var (
	// ErrNoMatch is returned when no record matches and no catch-all is declared.
	ErrNoMatch = nerrors.New("N001")

	// ErrAmbiguous is returned by Compile for a defective table.
	ErrAmbiguous = nerrors.New("N002")

	// ErrRedirectLoop is returned when following redirects revisits a path.
	ErrRedirectLoop = nerrors.New("N005")

	// ErrUnknownRoute is returned by PathFor for an undeclared name or missing param.
	ErrUnknownRoute = nerrors.New("N008")
)

// View is a concrete view implementation handed to the rendering boundary.
type View interface {
	ViewName() string
}

// Component is the simplest View: a component identified by name.
type Component string

// ViewName implements View.
func (c Component) ViewName() string { return string(c) }

// LoaderFunc produces a deferred view implementation.
type LoaderFunc func(ctx context.Context) (View, error)

// ViewRef references a view implementation, either bound eagerly or loaded on
// first use. The zero ViewRef references nothing.
type ViewRef struct {
	name string
	view View
	load LoaderFunc
}

// Eager binds a view implementation directly.
func Eager(v View) ViewRef {
	return ViewRef{name: v.ViewName(), view: v}
}

// Deferred references a view that is loaded on demand. The name identifies the
// view across the whole table: two Deferred refs with the same name share one
// cached implementation.
func Deferred(name string, load LoaderFunc) ViewRef {
	return ViewRef{name: name, load: load}
}

// Name returns the view identifier.
func (r ViewRef) Name() string { return r.name }

// IsZero reports whether the ref references nothing.
func (r ViewRef) IsZero() bool { return r.view == nil && r.load == nil }

// IsDeferred reports whether the view must be loaded before rendering.
func (r ViewRef) IsDeferred() bool { return r.view == nil && r.load != nil }

// View returns the eagerly bound implementation, or nil for deferred refs.
func (r ViewRef) View() View { return r.view }

// Loader returns the deferred loader, or nil for eager refs.
func (r ViewRef) Loader() LoaderFunc { return r.load }

// Meta holds route metadata such as requiresAuth.
type Meta map[string]any

// Bool returns the boolean stored under key, false when absent or not a bool.
func (m Meta) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Route is one declared route record. Child paths are relative to their parent.
type Route struct {
	// Path is the pattern: literal segments, ":name" parameters, and an
	// optional trailing "*" or "*name" catch-all. "" matches an empty remainder.
	Path string

	// Name uniquely identifies the route for named navigation.
	Name string

	// View fills the default slot. Shorthand for Views[DefaultSlot].
	View ViewRef

	// Views maps slot names to views for multi-slot levels.
	Views map[string]ViewRef

	// Children are nested records, tried in order.
	Children []Route

	// Meta is arbitrary metadata inherited by guards down the chain.
	Meta Meta

	// Redirect sends matching to another absolute path.
	Redirect string

	// Props forwards captured params to the default-slot view as its input.
	Props bool
}
