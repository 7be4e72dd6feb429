// Package storefront declares the bookstore's route table and views.
package storefront

import (
	"context"
	"fmt"

	"github.com/vango-dev/storefront/pkg/loader"
	"github.com/vango-dev/storefront/pkg/router"
)

// View names.
const (
	Login           = "Login"
	Register        = "Register"
	HomePage        = "HomePage"
	Header          = "Header"
	AsideLeft       = "AsideLeft"
	Slides          = "Slides"
	BookRanking     = "BookRanking"
	Content         = "Content"
	CategoryContent = "CategoryContent"
	About           = "About"
	Detail          = "Detail"
	Category        = "Category"
	AccountSettings = "AccountSettings"
	Accounts        = "Accounts"
	Security        = "Security"
	LoadError       = "LoadError"
	NotFound        = "NotFound"
)

var known = map[string]bool{
	Login: true, Register: true, HomePage: true, Header: true, AsideLeft: true,
	Slides: true, BookRanking: true, Content: true, CategoryContent: true,
	About: true, Detail: true, Category: true, AccountSettings: true,
	Accounts: true, Security: true, LoadError: true, NotFound: true,
}

// Options configures the table.
type Options struct {
	// LazyRegister defers the registration view.
	LazyRegister bool

	// Store fetches deferred views. Nil resolves them in process.
	Store loader.Store
}

// Catalog resolves view names to refs.
type Catalog struct {
	store loader.Store
}

// NewCatalog creates a catalog backed by store, which may be nil.
func NewCatalog(store loader.Store) *Catalog {
	return &Catalog{store: store}
}

// Ref implements router.Catalog.
func (c *Catalog) Ref(name string, lazy bool) (router.ViewRef, error) {
	if !known[name] {
		return router.ViewRef{}, fmt.Errorf("unknown view %q", name)
	}
	if !lazy {
		return router.Eager(router.Component(name)), nil
	}
	return router.Deferred(name, c.loaderFor(name)), nil
}

func (c *Catalog) eager(name string) router.ViewRef {
	return router.Eager(router.Component(name))
}

func (c *Catalog) deferred(name string) router.ViewRef {
	return router.Deferred(name, c.loaderFor(name))
}

func (c *Catalog) loaderFor(name string) router.LoaderFunc {
	if c.store != nil {
		return loader.Func(c.store, name)
	}
	return func(context.Context) (router.View, error) {
		return router.Component(name), nil
	}
}
