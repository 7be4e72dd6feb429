package router

import (
	"net/url"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMatchProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Property: every declared static path resolves to its own record,
	// never to a sibling, the root, a param route or the catch-all.
	properties.Property("static paths are never shadowed", prop.ForAll(
		func(names []string) bool {
			seen := map[string]bool{"detail": true}
			routes := []Route{{Path: "/", Name: "root", View: view("Root")}}
			for _, n := range names {
				if seen[n] {
					continue
				}
				seen[n] = true
				routes = append(routes, Route{Path: "/" + n, Name: n, View: view(n)})
			}
			routes = append(routes,
				Route{Path: "/detail/:id", Name: "detail", View: view("Detail")},
				Route{Path: "*", Name: "not-found", View: view("NotFound")},
			)

			table, err := Compile(routes)
			if err != nil {
				return false
			}
			for n := range seen {
				if n == "detail" {
					continue
				}
				m, err := table.Match("/" + n)
				if err != nil || m.Name() != n {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.Identifier()),
	))

	// Property: a parameter captures exactly one decoded segment.
	properties.Property("param captures the segment verbatim", prop.ForAll(
		func(id string) bool {
			if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\x00") {
				return true
			}
			table := MustCompile([]Route{{Path: "/detail/:id", Name: "detail", View: view("Detail")}})
			m, err := table.Match("/detail/" + url.PathEscape(id))
			if err != nil {
				return false
			}
			return m.Name() == "detail" && m.Params["id"] == id && len(m.Params) == 1
		},
		gen.AnyString(),
	))

	// Property: repeating a match yields the same result.
	properties.Property("matching is deterministic", prop.ForAll(
		func(n int) bool {
			table := MustCompile(testRoutes())
			path := "/homepage/category/" + url.PathEscape(string(rune('a'+n%26)))
			a, errA := table.Match(path)
			b, errB := table.Match(path)
			return errA == nil && errB == nil && a.Same(b)
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
