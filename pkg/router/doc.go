// Package router implements the storefront's route table: how a URL path is
// matched against nested route records and turned into named view slots.
//
// The router provides:
//   - A declarative route table (Route) compiled into an index-addressed arena (Table)
//   - First-match-wins path matching over static, parameter and catch-all segments
//   - Nested records whose parameters merge into one mapping
//   - Empty-path children and redirects, followed from the root before slot resolution
//   - Named view slots per level, with optional parameter forwarding (Props)
//   - Eager and deferred view references
//
// # Route Table
//
//	table, err := router.Compile([]router.Route{
//	    {Path: "/", Name: "home", View: router.Eager(views.Login)},
//	    {Path: "/detail/:id", Name: "detail", View: router.Eager(views.Detail), Props: true},
//	    {
//	        Path: "/account-settings",
//	        View: router.Eager(views.AccountSettings),
//	        Children: []router.Route{
//	            {Path: "", Redirect: "/account-settings/account"},
//	            {Path: "account", View: router.Eager(views.Accounts)},
//	        },
//	    },
//	    {Path: "*", Name: "not-found", View: router.Eager(views.NotFound)},
//	})
//
// Compile rejects ambiguous tables up front: two static siblings with the same
// path, a child parameter shadowing an ancestor's, duplicate route names.
//
// # Matching
//
//	m, err := table.Match("/detail/42")
//	// m.Params["id"] == "42"
//	// m.Leaf().Name() == "detail"
//
//	levels := router.Resolve(m)
//	// levels[0].Slots["default"].Props["id"] == "42"
//
// Sibling records are tried in declaration order and the first one whose
// subtree consumes the whole path wins. Catch-all records ("*" or "*name") are
// only tried once every other sibling has failed.
package router
