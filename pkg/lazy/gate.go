// Package lazy loads deferred views on demand and caches them for the life of
// the process.
//
// Each deferred view name owns one cell that moves through
//
//	Unloaded -> Loading -> Loaded
//	                    -> Failed
//
// Loaded is terminal. A cell Failed by a transient error is retried by the
// next navigation needing the view; one Failed by an error wrapped with Fatal
// stays failed until Reset.
//
// Concurrent requests for the same view share one loader call.
package lazy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	nerrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/router"
)

// ErrLoadFailed wraps every loader failure surfaced by the gate.
var ErrLoadFailed = nerrors.New("N004")

// State is the load state of a deferred view.
type State int

const (
	Unloaded State = iota // never requested
	Loading               // loader in flight
	Loaded                // cached
	Failed                // last load failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Observer is notified after every loader call settles.
type Observer interface {
	ViewLoaded(name string, elapsed time.Duration, err error)
}

// cell is the shared pending/resolved slot for one view name.
type cell struct {
	state State
	view  router.View
	err   error
	fatal bool
	calls int
}

// Gate resolves ViewRefs to view implementations.
type Gate struct {
	mu    sync.Mutex
	cells map[string]*cell
	group singleflight.Group

	attempts   int
	retryDelay time.Duration
	timeout    time.Duration
	logger     *slog.Logger
	observers  []Observer
}

// Option configures a Gate.
type Option func(*Gate)

// WithAttempts sets how many times a transient failure is retried within one
// load before the navigation fails (default 1: no in-navigation retry).
func WithAttempts(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// WithRetryDelay sets the pause between in-navigation attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(g *Gate) {
		g.retryDelay = d
	}
}

// WithLoadTimeout bounds each loader call. Zero means no bound.
func WithLoadTimeout(d time.Duration) Option {
	return func(g *Gate) {
		g.timeout = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = l
	}
}

// WithObserver registers an observer for loader calls.
func WithObserver(o Observer) Option {
	return func(g *Gate) {
		g.observers = append(g.observers, o)
	}
}

// NewGate creates a Gate.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		cells:    make(map[string]*cell),
		attempts: 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// State returns the current state of the named view.
func (g *Gate) State(name string) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.cells[name]; ok {
		return c.state
	}
	return Unloaded
}

// Calls returns how many times the named view's loader has been invoked.
func (g *Gate) Calls(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.cells[name]; ok {
		return c.calls
	}
	return 0
}

// Reset forgets the named view, including a fatal failure.
func (g *Gate) Reset(name string) {
	g.mu.Lock()
	delete(g.cells, name)
	g.mu.Unlock()
}

// ResetFailed forgets every view whose last load failed, fatal or not, and
// returns how many were forgotten. Loads in flight are left alone.
func (g *Gate) ResetFailed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for name, c := range g.cells {
		if c.state == Failed {
			delete(g.cells, name)
			n++
		}
	}
	return n
}

// Load returns the implementation behind ref, loading it if deferred.
//
// Cancelling ctx releases the caller but never the loader: a load that has
// started runs to completion and its result is cached for the next request.
func (g *Gate) Load(ctx context.Context, ref router.ViewRef) (router.View, error) {
	if !ref.IsDeferred() {
		if ref.IsZero() {
			return nil, ErrLoadFailed.WithDetail("empty view reference")
		}
		return ref.View(), nil
	}

	name := ref.Name()
	g.mu.Lock()
	c := g.cellLocked(name)
	switch {
	case c.state == Loaded:
		v := c.view
		g.mu.Unlock()
		return v, nil
	case c.state == Failed && c.fatal:
		err := c.err
		g.mu.Unlock()
		return nil, ErrLoadFailed.WithDetail(name).Wrap(err)
	}
	g.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(name, func() (any, error) {
		return g.fetch(loadCtx, name, ref.Loader())
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, ErrLoadFailed.WithDetail(name).Wrap(res.Err)
		}
		return res.Val.(router.View), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LoadAll loads every ref concurrently and waits for all of them to settle.
// It returns the first failure, never a partial result.
func (g *Gate) LoadAll(ctx context.Context, refs []router.ViewRef) (map[string]router.View, error) {
	var (
		mu    sync.Mutex
		views = make(map[string]router.View, len(refs))
		eg    errgroup.Group
	)
	for _, ref := range refs {
		ref := ref
		eg.Go(func() error {
			v, err := g.Load(ctx, ref)
			if err != nil {
				return err
			}
			mu.Lock()
			views[ref.Name()] = v
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (g *Gate) cellLocked(name string) *cell {
	c, ok := g.cells[name]
	if !ok {
		c = &cell{}
		g.cells[name] = c
	}
	return c
}

// fetch runs the loader, retrying transient failures, and settles the cell.
func (g *Gate) fetch(ctx context.Context, name string, load router.LoaderFunc) (router.View, error) {
	g.mu.Lock()
	c := g.cellLocked(name)
	if c.state == Loaded {
		v := c.view
		g.mu.Unlock()
		return v, nil
	}
	c.state = Loading
	g.mu.Unlock()

	g.logger.Debug("loading view", "view", name)
	start := time.Now()

	var (
		view router.View
		err  error
	)
	for attempt := 0; attempt < g.attempts; attempt++ {
		if attempt > 0 && g.retryDelay > 0 {
			time.Sleep(g.retryDelay)
		}
		g.mu.Lock()
		c.calls++
		g.mu.Unlock()

		view, err = g.call(ctx, load)
		if err == nil || IsFatal(err) {
			break
		}
		g.logger.Debug("view load attempt failed", "view", name, "attempt", attempt+1, "err", err)
	}
	elapsed := time.Since(start)

	g.mu.Lock()
	if err != nil {
		c.state = Failed
		c.err = err
		c.fatal = IsFatal(err)
	} else {
		c.state = Loaded
		c.view = view
		c.err = nil
	}
	g.mu.Unlock()

	if err != nil {
		g.logger.Warn("view load failed", "view", name, "fatal", IsFatal(err), "err", err)
	} else {
		g.logger.Debug("view loaded", "view", name, "elapsed", elapsed)
	}
	for _, o := range g.observers {
		o.ViewLoaded(name, elapsed, err)
	}
	return view, err
}

func (g *Gate) call(ctx context.Context, load router.LoaderFunc) (view router.View, err error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = Fatal(fmt.Errorf("loader panicked: %v", r))
		}
	}()
	view, err = load(ctx)
	if err == nil && view == nil {
		err = errors.New("loader returned no view")
	}
	return view, err
}

// fatalError marks a loader error that must not be retried.
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as permanent: the view stays failed until Reset.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
