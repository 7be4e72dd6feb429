package router

import (
	"context"
	"errors"
	"testing"

	"github.com/vango-dev/storefront/pkg/routepath"
)

// view returns an eager ref for a test component.
func view(name string) ViewRef { return Eager(Component(name)) }

// lazyView returns a deferred ref that never fails.
func lazyView(name string) ViewRef {
	return Deferred(name, func(context.Context) (View, error) { return Component(name), nil })
}

// homeSlots are the five slots of the homepage levels.
func homeSlots(content string) map[string]ViewRef {
	return map[string]ViewRef{
		DefaultSlot:   view(content),
		"header":      view("Header"),
		"asideleft":   view("AsideLeft"),
		"slides":      view("Slides"),
		"bookranking": view("BookRanking"),
	}
}

func testRoutes() []Route {
	return []Route{
		{Path: "/", Name: "home", View: view("Login")},
		{Path: "/register", Name: "register", View: lazyView("Register")},
		{
			Path: "/homepage",
			Name: "homepage",
			View: view("HomePage"),
			Children: []Route{
				{Path: "", Name: "homepage-index", Views: homeSlots("Content")},
				{Path: "category/:id", Name: "homepage-category", Views: homeSlots("CategoryContent"), Props: true},
			},
		},
		{Path: "/about", Name: "about", View: lazyView("About")},
		{Path: "/detail/:id", Name: "detail", View: view("Detail")},
		{Path: "/category/:category", Name: "category", View: view("Category"), Meta: Meta{MetaRequiresAuth: true}},
		{
			Path: "/account-settings",
			View: view("AccountSettings"),
			Meta: Meta{MetaRequiresAuth: true},
			Children: []Route{
				{Path: "", Redirect: "/account-settings/account"},
				{Path: "account", Name: "account", View: view("Accounts")},
				{Path: "security", Name: "security", View: view("Security")},
			},
		},
		{Path: "*", Name: "not-found", View: view("NotFound")},
	}
}

func mustTable(t *testing.T) *Table {
	t.Helper()
	table, err := Compile(testRoutes())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return table
}

func TestMatchStaticPaths(t *testing.T) {
	table := mustTable(t)

	tests := []struct {
		path string
		want string
	}{
		{"/", "home"},
		{"/register", "register"},
		{"/homepage", "homepage-index"},
		{"/about", "about"},
		{"/account-settings/account", "account"},
		{"/account-settings/security", "security"},
	}

	for _, tt := range tests {
		m, err := table.Match(tt.path)
		if err != nil {
			t.Errorf("Match(%q) error = %v", tt.path, err)
			continue
		}
		if got := m.Name(); got != tt.want {
			t.Errorf("Match(%q).Name() = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMatchParams(t *testing.T) {
	table := mustTable(t)

	tests := []struct {
		path       string
		wantName   string
		wantParams Params
	}{
		{"/detail/42", "detail", Params{"id": "42"}},
		{"/category/fiction", "category", Params{"category": "fiction"}},
		{"/homepage/category/7", "homepage-category", Params{"id": "7"}},
		{"/category/science%20fiction", "category", Params{"category": "science fiction"}},
	}

	for _, tt := range tests {
		m, err := table.Match(tt.path)
		if err != nil {
			t.Fatalf("Match(%q) error = %v", tt.path, err)
		}
		if m.Name() != tt.wantName {
			t.Errorf("Match(%q).Name() = %q, want %q", tt.path, m.Name(), tt.wantName)
		}
		if len(m.Params) != len(tt.wantParams) {
			t.Errorf("Match(%q).Params = %v, want %v", tt.path, m.Params, tt.wantParams)
		}
		for k, v := range tt.wantParams {
			if m.Params[k] != v {
				t.Errorf("Match(%q).Params[%q] = %q, want %q", tt.path, k, m.Params[k], v)
			}
		}
	}
}

func TestMatchChainRootToLeaf(t *testing.T) {
	table := mustTable(t)

	m, err := table.Match("/homepage/category/7")
	if err != nil {
		t.Fatal(err)
	}
	chain := m.Chain()
	if len(chain) != 2 {
		t.Fatalf("len(chain) = %d, want 2", len(chain))
	}
	if chain[0].Name() != "homepage" || chain[1].Name() != "homepage-category" {
		t.Errorf("chain = [%s %s]", chain[0].Name(), chain[1].Name())
	}
	if chain[1].FullPath() != "/homepage/category/:id" {
		t.Errorf("FullPath = %q", chain[1].FullPath())
	}
}

func TestMatchEmptyChildRedirect(t *testing.T) {
	table := mustTable(t)

	m, err := table.Match("/account-settings")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "account" {
		t.Errorf("Name() = %q, want account", m.Name())
	}
	if m.Path != "/account-settings/account" {
		t.Errorf("Path = %q", m.Path)
	}
	if m.RedirectedFrom != "/account-settings" {
		t.Errorf("RedirectedFrom = %q", m.RedirectedFrom)
	}
}

func TestMatchRedirectKeepsQuery(t *testing.T) {
	table := mustTable(t)

	m, err := table.Match("/account-settings?tab=2")
	if err != nil {
		t.Fatal(err)
	}
	if m.Query.Get("tab") != "2" {
		t.Errorf("Query = %v, want tab=2", m.Query)
	}
}

func TestMatchCatchAll(t *testing.T) {
	table := mustTable(t)

	m, err := table.Match("/no/such/page")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "not-found" {
		t.Errorf("Name() = %q, want not-found", m.Name())
	}
	if m.Remaining != "no/such/page" {
		t.Errorf("Remaining = %q", m.Remaining)
	}
	if m.Params[CatchAllParam] != "no/such/page" {
		t.Errorf("Params = %v", m.Params)
	}
}

func TestMatchCatchAllTriedLast(t *testing.T) {
	table, err := Compile([]Route{
		{Path: "*", Name: "fallback", View: view("NotFound")},
		{Path: "/about", Name: "about", View: view("About")},
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := table.Match("/about")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "about" {
		t.Errorf("Name() = %q, want about", m.Name())
	}
}

func TestMatchNoMatch(t *testing.T) {
	table, err := Compile([]Route{{Path: "/", View: view("Login")}})
	if err != nil {
		t.Fatal(err)
	}

	_, err = table.Match("/missing")
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("error = %v, want ErrNoMatch", err)
	}

	// A parameter never matches an empty segment.
	table = MustCompile([]Route{{Path: "/detail/:id", View: view("Detail")}})
	if _, err := table.Match("/detail/"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("error = %v, want ErrNoMatch", err)
	}
}

func TestMatchFirstWins(t *testing.T) {
	table := MustCompile([]Route{
		{Path: "/detail/:id", Name: "by-id", View: view("Detail")},
		{Path: "/detail/:slug", Name: "by-slug", View: view("Detail")},
	})
	m, err := table.Match("/detail/x")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "by-id" {
		t.Errorf("Name() = %q, want by-id", m.Name())
	}
}

func TestMatchBacktracksIntoLaterSibling(t *testing.T) {
	table := MustCompile([]Route{
		{
			Path: "/shop/:section",
			View: view("Section"),
			Children: []Route{
				{Path: "", Name: "section", View: view("SectionIndex")},
			},
		},
		{Path: "/shop/:section/:item", Name: "item", View: view("Item")},
	})
	m, err := table.Match("/shop/books/42")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "item" {
		t.Errorf("Name() = %q, want item", m.Name())
	}
	if m.Params["section"] != "books" || m.Params["item"] != "42" {
		t.Errorf("Params = %v", m.Params)
	}
}

func TestMatchParentWithoutIndexChild(t *testing.T) {
	table := MustCompile([]Route{
		{
			Path: "/library",
			Name: "library",
			View: view("Library"),
			Children: []Route{
				{Path: "shelf/:id", Name: "shelf", View: view("Shelf")},
			},
		},
	})
	m, err := table.Match("/library")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "library" {
		t.Errorf("Name() = %q, want library", m.Name())
	}
}

func TestMatchRedirectLoop(t *testing.T) {
	table := MustCompile([]Route{
		{Path: "/a", Redirect: "/b"},
		{Path: "/b", Redirect: "/a"},
	})
	_, err := table.Match("/a")
	if !errors.Is(err, ErrRedirectLoop) {
		t.Errorf("error = %v, want ErrRedirectLoop", err)
	}
}

func TestMatchInvalidPath(t *testing.T) {
	table := mustTable(t)
	_, err := table.Match("https://evil.example/")
	if !errors.Is(err, routepath.ErrInvalidPath) {
		t.Errorf("error = %v, want ErrInvalidPath", err)
	}
}

func TestMatchRequiresMetaInherited(t *testing.T) {
	table := mustTable(t)

	m, err := table.Match("/account-settings/security")
	if err != nil {
		t.Fatal(err)
	}
	if !m.RequiresMeta(MetaRequiresAuth) {
		t.Error("requiresAuth on the parent should apply to the child")
	}

	m, err = table.Match("/detail/1")
	if err != nil {
		t.Fatal(err)
	}
	if m.RequiresMeta(MetaRequiresAuth) {
		t.Error("/detail should not require auth")
	}
}

func TestMatchSame(t *testing.T) {
	table := mustTable(t)
	a, _ := table.Match("/detail/1")
	b, _ := table.Match("/detail/1")
	c, _ := table.Match("/detail/2")
	if !a.Same(b) {
		t.Error("identical matches should be Same")
	}
	if a.Same(c) {
		t.Error("different params should not be Same")
	}
	var nilMatch *Match
	if nilMatch.Same(a) {
		t.Error("nil should not be Same as a match")
	}
}
