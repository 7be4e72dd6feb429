package router

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const storefrontYAML = `
routes:
  - path: /
    name: home
    view: Login
  - path: /register
    name: register
    view: Register
    lazy: true
  - path: /homepage
    name: homepage
    view: HomePage
    children:
      - path: ""
        views: {default: Content, header: Header, asideleft: AsideLeft, slides: Slides, bookranking: BookRanking}
      - path: category/:id
        props: true
        views: {default: CategoryContent, header: Header, asideleft: AsideLeft, slides: Slides, bookranking: BookRanking}
  - path: /category/:category
    name: category
    view: Category
    meta: {requiresAuth: true}
  - path: /account-settings
    view: AccountSettings
    children:
      - path: ""
        redirect: /account-settings/account
      - path: account
        name: account
        view: Accounts
`

func testCatalog() Catalog {
	return CatalogFunc(func(name string, lazy bool) (ViewRef, error) {
		if name == "Broken" {
			return ViewRef{}, fmt.Errorf("unknown view %q", name)
		}
		if lazy {
			return lazyView(name), nil
		}
		return view(name), nil
	})
}

func TestDecodeYAML(t *testing.T) {
	routes, err := DecodeYAML(strings.NewReader(storefrontYAML), testCatalog())
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	table, err := Compile(routes)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	reg, ok := table.Named("register")
	if !ok {
		t.Fatal("register not declared")
	}
	if !reg.views[DefaultSlot].IsDeferred() {
		t.Error("register should be deferred")
	}

	m, err := table.Match("/category/fiction")
	if err != nil {
		t.Fatal(err)
	}
	if !m.RequiresMeta(MetaRequiresAuth) {
		t.Error("meta should survive decoding")
	}

	m, err = table.Match("/account-settings")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "account" {
		t.Errorf("Name() = %q, want account", m.Name())
	}

	m, err = table.Match("/homepage/category/3")
	if err != nil {
		t.Fatal(err)
	}
	if got := Resolve(m)[1].Slots[DefaultSlot].Props.Get("id"); got != "3" {
		t.Errorf("props id = %q, want 3", got)
	}
}

func TestDecodeYAMLErrors(t *testing.T) {
	if _, err := DecodeYAML(strings.NewReader("routes:\n  - path: /\n    bogus: 1\n"), testCatalog()); err == nil {
		t.Error("unknown fields should be rejected")
	}
	if _, err := DecodeYAML(strings.NewReader("routes:\n  - path: /\n    view: Broken\n"), testCatalog()); err == nil {
		t.Error("catalog errors should propagate")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	if err := os.WriteFile(path, []byte(storefrontYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadFile(path, testCatalog())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, ok := table.Named("homepage"); !ok {
		t.Error("homepage not loaded")
	}

	dup := filepath.Join(dir, "dup.yaml")
	if err := os.WriteFile(dup, []byte("routes:\n  - {path: /a, view: A}\n  - {path: /a, view: B}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(dup, testCatalog()); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("LoadFile(dup) error = %v, want ErrAmbiguous", err)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml"), testCatalog()); err == nil {
		t.Error("missing file should fail")
	}
}
