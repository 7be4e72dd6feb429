// Package loader fetches deferred view bundles for the lazy load gate.
//
// A Store resolves a view name to a Bundle. Stores classify their failures:
// a bundle that does not exist is wrapped with lazy.Fatal so the gate stops
// asking for it, anything else is transient and retried by the next
// navigation that needs the view.
//
//	store := loader.NewS3Store(client, "storefront-views", "bundles/")
//	ref := router.Deferred("About", loader.Func(store, "About"))
package loader
