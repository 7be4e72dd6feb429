package router

import (
	"net/url"
	"strings"

	"github.com/vango-dev/storefront/pkg/routepath"
)

// maxRedirectHops bounds redirect chains that never revisit a path.
const maxRedirectHops = 16

// Match is the result of matching a path against a Table.
type Match struct {
	// Path is the canonical path that matched (after redirects).
	Path string

	// Query is the query string of the navigation target.
	Query url.Values

	// Params holds the parameters bound along the whole chain.
	Params Params

	// Remaining is the part of the path consumed by a catch-all, if any.
	Remaining string

	// RedirectedFrom is the originally requested path when redirects were followed.
	RedirectedFrom string

	table *Table
	chain []int
}

// Chain returns the matched records from root to leaf.
func (m *Match) Chain() []*Record {
	out := make([]*Record, len(m.chain))
	for i, id := range m.chain {
		out[i] = &m.table.records[id]
	}
	return out
}

// Leaf returns the deepest matched record.
func (m *Match) Leaf() *Record {
	return &m.table.records[m.chain[len(m.chain)-1]]
}

// Name returns the leaf record's name.
func (m *Match) Name() string {
	return m.Leaf().name
}

// FullPath returns the navigable path including the query string.
func (m *Match) FullPath() string {
	return routepath.Join(m.Path, m.Query)
}

// Same reports whether two matches resolve to the same records, params and
// query.
func (m *Match) Same(o *Match) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.table != o.table || m.Path != o.Path || len(m.chain) != len(o.chain) || len(m.Params) != len(o.Params) {
		return false
	}
	if m.Query.Encode() != o.Query.Encode() {
		return false
	}
	for i := range m.chain {
		if m.chain[i] != o.chain[i] {
			return false
		}
	}
	for k, v := range m.Params {
		if o.Params[k] != v {
			return false
		}
	}
	return true
}

// RequiresMeta reports whether any record in the chain sets key to true.
func (m *Match) RequiresMeta(key string) bool {
	for _, id := range m.chain {
		if m.table.records[id].meta.Bool(key) {
			return true
		}
	}
	return false
}

// Match resolves target against the table, following redirects.
// It returns ErrNoMatch, ErrRedirectLoop or routepath.ErrInvalidPath.
func (t *Table) Match(target string) (*Match, error) {
	loc, err := routepath.Parse(target)
	if err != nil {
		return nil, err
	}

	requested := loc.Path
	seen := map[string]bool{}
	for hop := 0; ; hop++ {
		m, ok := t.matchLocation(loc)
		if !ok {
			return nil, ErrNoMatch.WithDetail(loc.Path)
		}

		redirect := m.Leaf().redirect
		if redirect == "" {
			if hop > 0 {
				m.RedirectedFrom = requested
			}
			return m, nil
		}

		seen[loc.Path] = true
		next, err := routepath.Parse(redirect)
		if err != nil {
			return nil, err
		}
		if seen[next.Path] || hop >= maxRedirectHops {
			return nil, ErrRedirectLoop.WithDetailf("%s -> %s", loc.Path, next.Path)
		}
		if len(next.Query) == 0 {
			next.Query = loc.Query
		}
		loc = next
	}
}

// matchState accumulates the chain and params while descending.
type matchState struct {
	chain     []int
	params    Params
	remaining string
}

func (t *Table) matchLocation(loc routepath.Location) (*Match, bool) {
	st := &matchState{params: Params{}}
	if !t.matchLevel(t.roots, loc.Segments, st) {
		return nil, false
	}
	return &Match{
		Path:      loc.Path,
		Query:     loc.Query,
		Params:    st.params,
		Remaining: st.remaining,
		table:     t,
		chain:     st.chain,
	}, true
}

// matchLevel tries each sibling in declaration order and backtracks when a
// sibling's subtree cannot consume the rest of the path. Catch-alls run last.
func (t *Table) matchLevel(ids []int, segs []string, st *matchState) bool {
	catchAll := -1
	for _, id := range ids {
		rec := &t.records[id]
		if rec.catchAll {
			if catchAll < 0 {
				catchAll = id
			}
			continue
		}

		n, bound, ok := rec.consume(segs)
		if !ok {
			continue
		}
		for k, v := range bound {
			st.params[k] = v
		}
		st.chain = append(st.chain, id)

		if t.matchTail(rec, segs[n:], st) {
			return true
		}

		st.chain = st.chain[:len(st.chain)-1]
		for k := range bound {
			delete(st.params, k)
		}
	}

	if catchAll < 0 {
		return false
	}
	rec := &t.records[catchAll]
	_, bound, ok := rec.consume(segs)
	if !ok {
		return false
	}
	for k, v := range bound {
		st.params[k] = v
	}
	st.chain = append(st.chain, catchAll)
	st.remaining = bound[rec.segments[len(rec.segments)-1].param]
	return true
}

func (t *Table) matchTail(rec *Record, rest []string, st *matchState) bool {
	if len(rec.children) > 0 {
		if t.matchLevel(rec.children, rest, st) {
			return true
		}
		return len(rest) == 0 && rec.renders()
	}
	return len(rest) == 0
}

// consume matches the record's own pattern against the front of segs.
// It returns how many segments were consumed and the params bound.
func (r *Record) consume(segs []string) (int, Params, bool) {
	var bound Params
	for i, s := range r.segments {
		if s.isCatchAll {
			if bound == nil {
				bound = Params{}
			}
			bound[s.param] = strings.Join(segs[i:], "/")
			return len(segs), bound, true
		}
		if i >= len(segs) {
			return 0, nil, false
		}
		if s.isParam {
			if segs[i] == "" {
				return 0, nil, false
			}
			if bound == nil {
				bound = Params{}
			}
			bound[s.param] = segs[i]
			continue
		}
		if s.literal != segs[i] {
			return 0, nil, false
		}
	}
	return len(r.segments), bound, true
}
