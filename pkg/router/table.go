package router

import (
	"sort"
	"strings"

	"github.com/vango-dev/storefront/pkg/routepath"
)

// segment is one compiled pattern component.
type segment struct {
	// literal is the static text, empty for params and catch-alls.
	literal string

	// param is the bound name for ":name" and "*name" segments.
	param string

	isParam    bool
	isCatchAll bool
}

// Record is a compiled route record. Records live in their Table's arena and
// reference parent and children by index; they are read-only after Compile.
type Record struct {
	id       int
	parent   int
	children []int

	pattern  string
	fullPath string
	segments []segment
	catchAll bool

	name     string
	views    map[string]ViewRef
	meta     Meta
	redirect string
	props    bool
}

// ID returns the record's index in its table.
func (r *Record) ID() int { return r.id }

// Name returns the route name, or "".
func (r *Record) Name() string { return r.name }

// Pattern returns the declared (relative) path pattern.
func (r *Record) Pattern() string { return r.pattern }

// FullPath returns the absolute pattern from the root.
func (r *Record) FullPath() string { return r.fullPath }

// Meta returns the record's metadata. Callers must not modify it.
func (r *Record) Meta() Meta { return r.meta }

// Redirect returns the redirect target, or "".
func (r *Record) Redirect() string { return r.redirect }

// Props reports whether params are forwarded to the default-slot view.
func (r *Record) Props() bool { return r.props }

// IsCatchAll reports whether the record ends in a catch-all segment.
func (r *Record) IsCatchAll() bool { return r.catchAll }

// SlotNames returns the record's slot names, sorted with DefaultSlot first.
func (r *Record) SlotNames() []string {
	names := make([]string, 0, len(r.views))
	for name := range r.views {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == DefaultSlot || names[j] == DefaultSlot {
			return names[i] == DefaultSlot
		}
		return names[i] < names[j]
	})
	return names
}

// View returns the view bound to slot.
func (r *Record) View(slot string) (ViewRef, bool) {
	ref, ok := r.views[slot]
	return ref, ok
}

// renders reports whether the record can terminate a match on its own.
func (r *Record) renders() bool {
	return len(r.views) > 0 || r.redirect != ""
}

// Table is a compiled route table: an arena of records plus the ordered list
// of top-level record indices.
type Table struct {
	records []Record
	roots   []int
	byName  map[string]int
}

// Compile validates routes and builds a Table. Declaration order is preserved
// exactly; it encodes matching priority.
func Compile(routes []Route) (*Table, error) {
	t := &Table{byName: make(map[string]int)}
	roots, err := t.compileLevel(routes, -1, "", nil)
	if err != nil {
		return nil, err
	}
	t.roots = roots
	return t, nil
}

// MustCompile is Compile that panics on error, for statically known tables.
func MustCompile(routes []Route) *Table {
	t, err := Compile(routes)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) compileLevel(routes []Route, parent int, prefix string, ancestorParams map[string]string) ([]int, error) {
	ids := make([]int, 0, len(routes))
	staticSiblings := make(map[string]string)
	catchAlls := 0

	for _, rt := range routes {
		segs, err := compilePattern(rt.Path)
		if err != nil {
			return nil, err
		}

		full := joinPattern(prefix, rt.Path)
		catchAll := len(segs) > 0 && segs[len(segs)-1].isCatchAll

		if isStatic(segs) {
			key := staticKey(segs)
			if prev, dup := staticSiblings[key]; dup {
				return nil, ErrAmbiguous.WithDetailf("sibling routes %q and %q share the static path %q", prev, full, "/"+key)
			}
			staticSiblings[key] = full
		}
		if catchAll {
			catchAlls++
			if catchAlls > 1 {
				return nil, ErrAmbiguous.WithDetailf("more than one catch-all route under %q", prefixOrRoot(prefix))
			}
		}

		params := make(map[string]string, len(ancestorParams))
		for k, v := range ancestorParams {
			params[k] = v
		}
		for _, s := range segs {
			if s.param == "" {
				continue
			}
			if owner, taken := params[s.param]; taken {
				return nil, ErrAmbiguous.WithDetailf("param %q in %q collides with the one bound by %q", s.param, full, owner)
			}
			params[s.param] = full
		}

		views, err := slotMap(rt, full)
		if err != nil {
			return nil, err
		}
		if rt.Redirect != "" {
			if _, err := routepath.Parse(rt.Redirect); err != nil {
				return nil, ErrAmbiguous.WithDetailf("route %q has an invalid redirect %q", full, rt.Redirect).Wrap(err)
			}
		}
		if len(views) == 0 && rt.Redirect == "" && len(rt.Children) == 0 {
			return nil, ErrAmbiguous.WithDetailf("route %q has no view, redirect or children", full)
		}
		if catchAll && len(rt.Children) > 0 {
			return nil, ErrAmbiguous.WithDetailf("catch-all route %q cannot have children", full)
		}

		id := len(t.records)
		t.records = append(t.records, Record{
			id:       id,
			parent:   parent,
			pattern:  rt.Path,
			fullPath: full,
			segments: segs,
			catchAll: catchAll,
			name:     rt.Name,
			views:    views,
			meta:     rt.Meta,
			redirect: rt.Redirect,
			props:    rt.Props,
		})
		if rt.Name != "" {
			if _, dup := t.byName[rt.Name]; dup {
				return nil, ErrAmbiguous.WithDetailf("route name %q is declared twice", rt.Name)
			}
			t.byName[rt.Name] = id
		}

		if len(rt.Children) > 0 {
			children, err := t.compileLevel(rt.Children, id, full, params)
			if err != nil {
				return nil, err
			}
			t.records[id].children = children
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func compilePattern(pattern string) ([]segment, error) {
	raw := routepath.Split(pattern)
	segs := make([]segment, 0, len(raw))
	seen := make(map[string]bool)
	for i, s := range raw {
		var seg segment
		switch {
		case strings.HasPrefix(s, "*"):
			if i != len(raw)-1 {
				return nil, ErrAmbiguous.WithDetailf("catch-all must be the last segment in %q", pattern)
			}
			seg = segment{isCatchAll: true, param: s[1:]}
			if seg.param == "" {
				seg.param = CatchAllParam
			}
		case strings.HasPrefix(s, ":"):
			if len(s) == 1 {
				return nil, ErrAmbiguous.WithDetailf("unnamed parameter in %q", pattern)
			}
			seg = segment{isParam: true, param: s[1:]}
		default:
			seg = segment{literal: s}
		}
		if seg.param != "" {
			if seen[seg.param] {
				return nil, ErrAmbiguous.WithDetailf("param %q repeated in %q", seg.param, pattern)
			}
			seen[seg.param] = true
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// slotMap normalizes View/Views into one slot map.
func slotMap(rt Route, full string) (map[string]ViewRef, error) {
	views := make(map[string]ViewRef, len(rt.Views)+1)
	for slot, ref := range rt.Views {
		if ref.IsZero() {
			return nil, ErrAmbiguous.WithDetailf("route %q slot %q has no view", full, slot)
		}
		views[slot] = ref
	}
	if !rt.View.IsZero() {
		if _, dup := views[DefaultSlot]; dup {
			return nil, ErrAmbiguous.WithDetailf("route %q sets both View and Views[%q]", full, DefaultSlot)
		}
		views[DefaultSlot] = rt.View
	}
	return views, nil
}

func isStatic(segs []segment) bool {
	for _, s := range segs {
		if s.isParam || s.isCatchAll {
			return false
		}
	}
	return true
}

func staticKey(segs []segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.literal
	}
	return strings.Join(parts, "/")
}

func joinPattern(prefix, pattern string) string {
	rel := strings.Join(routepath.Split(pattern), "/")
	base := strings.TrimSuffix(prefix, "/")
	if rel == "" {
		return prefixOrRoot(base)
	}
	return base + "/" + rel
}

func prefixOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// Record returns the record with the given id.
func (t *Table) Record(id int) *Record {
	return &t.records[id]
}

// Named returns the record declared with name.
func (t *Table) Named(name string) (*Record, bool) {
	id, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return &t.records[id], true
}

// Len returns the number of records in the table.
func (t *Table) Len() int { return len(t.records) }

// Walk visits every record depth-first in declaration order.
func (t *Table) Walk(fn func(depth int, r *Record)) {
	var walk func(ids []int, depth int)
	walk = func(ids []int, depth int) {
		for _, id := range ids {
			fn(depth, &t.records[id])
			walk(t.records[id].children, depth+1)
		}
	}
	walk(t.roots, 0)
}

// PathFor builds the concrete path of a named route.
func (t *Table) PathFor(name string, params Params) (string, error) {
	rec, ok := t.Named(name)
	if !ok {
		return "", ErrUnknownRoute.WithDetailf("no route named %q", name)
	}

	var parts []string
	for _, s := range routepath.Split(rec.fullPath) {
		switch {
		case strings.HasPrefix(s, ":") || strings.HasPrefix(s, "*"):
			p := s[1:]
			if p == "" {
				p = CatchAllParam
			}
			v, ok := params[p]
			if !ok || v == "" {
				if strings.HasPrefix(s, "*") {
					continue
				}
				return "", ErrUnknownRoute.WithDetailf("route %q needs param %q", name, p)
			}
			if strings.HasPrefix(s, "*") {
				parts = append(parts, v)
				continue
			}
			parts = append(parts, routepath.EscapeSegment(v))
		default:
			parts = append(parts, s)
		}
	}
	return "/" + strings.Join(parts, "/"), nil
}
