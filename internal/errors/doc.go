// Package errors provides structured, coded errors for the storefront
// navigation core.
//
// Every failure the navigation pipeline can surface has a registered code:
//
//   - N001: no route matches the path and no catch-all is declared
//   - N002: the route table is ambiguous (duplicate static siblings, colliding params)
//   - N003: a guard blocked the navigation
//   - N004: a deferred view failed to load
//   - N005: a redirect or fallback target repeated
//   - N006: the path could not be canonicalized
//   - N007: the navigation was superseded by a newer one
//
// Codes compare with errors.Is, so a wrapped or enriched error still matches
// the sentinel it was created from:
//
//	err := errors.New("N001").WithDetail("no route for /nope")
//	stderrors.Is(err, router.ErrNoMatch) // true
//
// # Usage
//
//	err := errors.New("N002").
//	    WithDetail(`duplicate sibling path "account" under "/account-settings"`).
//	    WithSuggestion("Remove or rename one of the records")
//
//	fmt.Println(err.Format())
package errors
