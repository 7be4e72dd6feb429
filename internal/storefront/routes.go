package storefront

import (
	"github.com/vango-dev/storefront/internal/config"
	"github.com/vango-dev/storefront/pkg/router"
)

// Routes returns the storefront route table in declaration order.
func Routes(opts Options) []router.Route {
	c := NewCatalog(opts.Store)

	register := c.eager(Register)
	if opts.LazyRegister {
		register = c.deferred(Register)
	}

	homeSlots := func(content string) map[string]router.ViewRef {
		return map[string]router.ViewRef{
			router.DefaultSlot: c.eager(content),
			"header":           c.eager(Header),
			"asideleft":        c.eager(AsideLeft),
			"slides":           c.eager(Slides),
			"bookranking":      c.eager(BookRanking),
		}
	}
	requiresAuth := router.Meta{router.MetaRequiresAuth: true}

	return []router.Route{
		{Path: "/", Name: "home", View: c.eager(Login)},
		{Path: "/register", Name: "register", View: register},
		{
			Path: "/homepage",
			Name: "homepage",
			View: c.eager(HomePage),
			Children: []router.Route{
				{Path: "", Name: "homepage-index", Views: homeSlots(Content)},
				{Path: "category/:id", Name: "homepage-category", Views: homeSlots(CategoryContent), Props: true},
			},
		},
		{Path: "/about", Name: "about", View: c.deferred(About)},
		{Path: "/detail/:id", Name: "detail", View: c.eager(Detail)},
		{Path: "/category/:category", Name: "category", View: c.eager(Category), Meta: requiresAuth},
		{
			Path: "/account-settings",
			Name: "account-settings",
			View: c.eager(AccountSettings),
			Meta: requiresAuth,
			Children: []router.Route{
				{Path: "", Redirect: "/account-settings/account"},
				{Path: "account", Name: "account", View: c.eager(Accounts)},
				{Path: "security", Name: "security", View: c.eager(Security)},
			},
		},
		{Path: "/error", Name: "error", View: c.eager(LoadError)},
		{Path: "*", Name: "not-found", View: c.eager(NotFound)},
	}
}

// Table compiles the built-in route table.
func Table(opts Options) (*router.Table, error) {
	return router.Compile(Routes(opts))
}

// LoadTable returns the table cfg points at: the YAML route file when one is
// configured, the built-in table otherwise.
func LoadTable(cfg *config.Config, opts Options) (*router.Table, error) {
	opts.LazyRegister = opts.LazyRegister || cfg.Routes.LazyRegister
	if path := cfg.RoutesPath(); path != "" {
		return router.LoadFile(path, NewCatalog(opts.Store))
	}
	return Table(opts)
}
