package navigation

import (
	"fmt"
	"net/url"
	"time"

	nerrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/guard"
	"github.com/vango-dev/storefront/pkg/router"
)

var (
	// ErrRedirectLoop is returned when a request revisits a target.
	ErrRedirectLoop = router.ErrRedirectLoop

	// ErrSuperseded is returned to a request replaced by a newer one.
	ErrSuperseded = nerrors.New("N007")
)

// Status is the phase of the navigation state machine.
type Status int

const (
	Idle Status = iota
	Matching
	Guarding
	Loading
	Committed
	Failed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Matching:
		return "matching"
	case Guarding:
		return "guarding"
	case Loading:
		return "loading"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a snapshot of the NavigationState.
type State struct {
	// Current is the last committed match, nil before the first commit.
	Current *router.Match

	// Pending is the match of the in-flight request once matching succeeded.
	Pending *router.Match

	Status Status

	// Err is the failure that put the state in Failed.
	Err error
}

// Slot is one resolved slot of a committed level.
type Slot struct {
	View  router.View
	Props router.Params
}

// Level is the resolved slot mapping of one matched record.
type Level struct {
	Route   string
	Pattern string
	Slots   map[string]Slot
}

// Commit is what a successful navigation publishes for rendering.
type Commit struct {
	// Seq is the identity of the request that produced the commit.
	Seq uint64

	Match  *router.Match
	Levels []Level

	// Recovered is the failure a fallback route stood in for, if any.
	Recovered error

	At time.Time
}

// Params returns the merged route params.
func (c *Commit) Params() router.Params {
	return c.Match.Params
}

// Target is a navigation request: either a path or a named route.
type Target struct {
	Path string

	Name   string
	Params router.Params
	Query  url.Values
}

// To targets a path.
func To(path string) Target { return Target{Path: path} }

// Named targets a named route.
func Named(name string, params router.Params) Target {
	return Target{Name: name, Params: params}
}

// String formats the target for logs.
func (t Target) String() string {
	if t.Name != "" {
		return fmt.Sprintf("%s%v", t.Name, map[string]string(t.Params))
	}
	return t.Path
}

// Result is delivered by Push when a request settles.
type Result struct {
	Commit *Commit
	Err    error
}

// Outcome classifies how a request settled.
type Outcome string

const (
	OutcomeCommitted    Outcome = "committed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeFailed       Outcome = "failed"
	OutcomeSuperseded   Outcome = "superseded"
	OutcomeRedirectLoop Outcome = "redirect_loop"
)

// Observer is notified of navigation events. Implementations must be safe for
// concurrent use.
type Observer interface {
	GuardDecided(decision guard.Kind)
	NavigationSettled(outcome Outcome, elapsed time.Duration)
}
