package server

import (
	"encoding/json"
	"errors"
	"net/http"

	nerrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/navigation"
	"github.com/vango-dev/storefront/pkg/router"
)

type matchJSON struct {
	Route          string            `json:"route"`
	Path           string            `json:"path"`
	FullPath       string            `json:"fullPath"`
	Params         map[string]string `json:"params,omitempty"`
	RedirectedFrom string            `json:"redirectedFrom,omitempty"`
}

type slotJSON struct {
	View  string            `json:"view"`
	Props map[string]string `json:"props,omitempty"`
}

type levelJSON struct {
	Route   string              `json:"route,omitempty"`
	Pattern string              `json:"pattern"`
	Slots   map[string]slotJSON `json:"slots"`
}

type commitJSON struct {
	Seq       uint64          `json:"seq"`
	Match     matchJSON       `json:"match"`
	Levels    []levelJSON     `json:"levels"`
	Recovered json.RawMessage `json:"recovered,omitempty"`
}

type stateJSON struct {
	Status  navigation.Status `json:"status"`
	Current *matchJSON        `json:"current,omitempty"`
	Pending *matchJSON        `json:"pending,omitempty"`
	Error   json.RawMessage   `json:"error,omitempty"`
	Commit  *commitJSON       `json:"commit,omitempty"`
}

type routeJSON struct {
	Name         string            `json:"name,omitempty"`
	Path         string            `json:"path"`
	Depth        int               `json:"depth"`
	Views        map[string]string `json:"views,omitempty"`
	Lazy         []string          `json:"lazy,omitempty"`
	Redirect     string            `json:"redirect,omitempty"`
	RequiresAuth bool              `json:"requiresAuth,omitempty"`
	Props        bool              `json:"props,omitempty"`
	CatchAll     bool              `json:"catchAll,omitempty"`
}

// envelope is a websocket message.
type envelope struct {
	Type   string          `json:"type"`
	Commit *commitJSON     `json:"commit,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// navigateRequest is the body of POST /navigate and of websocket messages.
type navigateRequest struct {
	Path   string            `json:"path,omitempty"`
	Name   string            `json:"name,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

func (r navigateRequest) target() navigation.Target {
	if r.Name != "" {
		return navigation.Named(r.Name, router.Params(r.Params))
	}
	return navigation.To(r.Path)
}

func encodeMatch(m *router.Match) *matchJSON {
	if m == nil {
		return nil
	}
	return &matchJSON{
		Route:          m.Name(),
		Path:           m.Path,
		FullPath:       m.FullPath(),
		Params:         m.Params,
		RedirectedFrom: m.RedirectedFrom,
	}
}

func encodeCommit(c *navigation.Commit) *commitJSON {
	if c == nil {
		return nil
	}
	out := &commitJSON{
		Seq:    c.Seq,
		Match:  *encodeMatch(c.Match),
		Levels: make([]levelJSON, 0, len(c.Levels)),
	}
	for _, lvl := range c.Levels {
		slots := make(map[string]slotJSON, len(lvl.Slots))
		for name, s := range lvl.Slots {
			slots[name] = slotJSON{View: s.View.ViewName(), Props: s.Props}
		}
		out.Levels = append(out.Levels, levelJSON{Route: lvl.Route, Pattern: lvl.Pattern, Slots: slots})
	}
	if c.Recovered != nil {
		out.Recovered = errorJSON(c.Recovered)
	}
	return out
}

func encodeState(st navigation.State, last *navigation.Commit) stateJSON {
	out := stateJSON{
		Status:  st.Status,
		Current: encodeMatch(st.Current),
		Pending: encodeMatch(st.Pending),
		Commit:  encodeCommit(last),
	}
	if st.Err != nil {
		out.Error = errorJSON(st.Err)
	}
	return out
}

func encodeRoutes(t *router.Table) []routeJSON {
	routes := make([]routeJSON, 0, t.Len())
	t.Walk(func(depth int, r *router.Record) {
		rt := routeJSON{
			Name:         r.Name(),
			Path:         r.FullPath(),
			Depth:        depth,
			Redirect:     r.Redirect(),
			RequiresAuth: r.Meta().Bool(router.MetaRequiresAuth),
			Props:        r.Props(),
			CatchAll:     r.IsCatchAll(),
		}
		for _, slot := range r.SlotNames() {
			ref, _ := r.View(slot)
			if rt.Views == nil {
				rt.Views = make(map[string]string)
			}
			rt.Views[slot] = ref.Name()
			if ref.IsDeferred() {
				rt.Lazy = append(rt.Lazy, slot)
			}
		}
		routes = append(routes, rt)
	})
	return routes
}

// coded returns err as a coded error for clients.
func coded(err error) *nerrors.Error {
	var e *nerrors.Error
	if errors.As(err, &e) {
		return e
	}
	return nerrors.Newf(nerrors.CategoryNavigation, "%s", err.Error())
}

func errorJSON(err error) json.RawMessage {
	return json.RawMessage(coded(err).FormatJSON())
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	switch nerrors.CodeOf(err) {
	case "N001", "N008":
		return http.StatusNotFound
	case "N003":
		return http.StatusForbidden
	case "N004":
		return http.StatusBadGateway
	case "N005":
		return http.StatusLoopDetected
	case "N006":
		return http.StatusBadRequest
	case "N007":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(errorJSON(err))
}
