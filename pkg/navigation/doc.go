// Package navigation drives a navigation request from a target path to a
// committed view composition.
//
// A Router owns the NavigationState. Each request moves through
//
//	idle -> matching -> guarding -> loading -> committed
//
// and may end in failed from any of the middle states. Guard redirects and
// failure fallbacks (not-found, error route) re-enter matching; a target that
// repeats within one request is a redirect loop and ends the request.
//
// Only one navigation is in flight at a time. A newer request supersedes the
// older one: the older request returns ErrSuperseded, its deferred loads keep
// running to fill the cache, and it never touches the state again.
//
//	nav := navigation.New(table, store,
//	    navigation.WithGuard(guard.RequireAuth("/")),
//	    navigation.WithErrorRoute("/error"),
//	)
//	commit, err := nav.Navigate(ctx, navigation.To("/homepage"))
package navigation
