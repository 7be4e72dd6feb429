package navigation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/storefront/pkg/auth"
	"github.com/vango-dev/storefront/pkg/guard"
	"github.com/vango-dev/storefront/pkg/lazy"
	"github.com/vango-dev/storefront/pkg/routepath"
	"github.com/vango-dev/storefront/pkg/router"
)

const tracerName = "github.com/vango-dev/storefront/pkg/navigation"

// DefaultMaxRedirects bounds the targets one request may visit.
const DefaultMaxRedirects = 16

// Router owns the NavigationState and runs navigation requests.
type Router struct {
	mu      sync.Mutex
	table   *router.Table
	session auth.Session
	guard   guard.Guard
	gate    *lazy.Gate

	notFound     string
	errorRoute   string
	maxRedirects int

	seq    uint64
	cancel context.CancelCauseFunc
	state  State
	last   *Commit

	subs    map[int]func(*Commit)
	nextSub int

	pubMu     sync.Mutex
	published uint64

	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	now       func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithGuard replaces the default guard.RequireAuth(guard.DefaultLoginPath).
func WithGuard(g guard.Guard) Option {
	return func(r *Router) {
		r.guard = g
	}
}

// WithGate sets the lazy load gate. Routers sharing a gate share its cache.
func WithGate(g *lazy.Gate) Option {
	return func(r *Router) {
		r.gate = g
	}
}

// WithNotFound sets the path navigated to when nothing matches.
func WithNotFound(path string) Option {
	return func(r *Router) {
		r.notFound = path
	}
}

// WithErrorRoute sets the path navigated to when a guard blocks or a view
// fails to load.
func WithErrorRoute(path string) Option {
	return func(r *Router) {
		r.errorRoute = path
	}
}

// WithMaxRedirects bounds the targets one request may visit.
func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// WithTracer sets the tracer. Defaults to the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Router) {
		r.tracer = t
	}
}

// WithObserver registers a navigation observer.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		r.observers = append(r.observers, o)
	}
}

// New creates a Router in the idle state with no current route.
// A nil session is treated as unauthenticated.
func New(table *router.Table, session auth.Session, opts ...Option) *Router {
	if session == nil {
		session = auth.Static(false)
	}
	r := &Router{
		table:        table,
		session:      session,
		maxRedirects: DefaultMaxRedirects,
		subs:         make(map[int]func(*Commit)),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.guard == nil {
		r.guard = guard.RequireAuth(guard.DefaultLoginPath)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.gate == nil {
		r.gate = lazy.NewGate(lazy.WithLogger(r.logger))
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r
}

// =============================================================================
// Accessors
// =============================================================================

// State returns a snapshot of the navigation state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Current returns the last commit, or nil before the first one.
func (r *Router) Current() *Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Table returns the active route table.
func (r *Router) Table() *router.Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table
}

// Gate returns the lazy load gate.
func (r *Router) Gate() *lazy.Gate { return r.gate }

// SetTable swaps the route table for subsequent requests. The current commit
// is kept until the next navigation.
// Views that failed to load are forgotten, so the new table retries them.
func (r *Router) SetTable(t *router.Table) {
	r.mu.Lock()
	r.table = t
	r.mu.Unlock()
	forgotten := r.gate.ResetFailed()
	r.logger.Info("route table replaced", "routes", t.Len(), "failed_views_reset", forgotten)
}

// Subscribe registers fn to receive every commit, in request order. Commits
// overtaken by a newer one before publication are skipped. The returned
// function unsubscribes.
func (r *Router) Subscribe(fn func(*Commit)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// =============================================================================
// Requests
// =============================================================================

// request is one navigation in flight.
type request struct {
	id     uint64
	table  *router.Table
	ctx    context.Context
	cancel context.CancelCauseFunc
	target Target
	start  time.Time
}

// Navigate runs a request to completion and returns its commit.
//
// A request recovered by the not-found or error route returns that route's
// commit with Recovered set and a nil error. Terminal failures leave the last
// commit in place and the state Failed.
func (r *Router) Navigate(ctx context.Context, target Target) (*Commit, error) {
	req := r.begin(ctx, target)
	return r.finish(req)
}

// Push starts a request and returns at once. The request supersedes any
// request in flight, including ones pushed earlier. The channel receives
// exactly one Result.
func (r *Router) Push(ctx context.Context, target Target) <-chan Result {
	req := r.begin(ctx, target)
	out := make(chan Result, 1)
	go func() {
		c, err := r.finish(req)
		out <- Result{Commit: c, Err: err}
	}()
	return out
}

// begin takes the next request identity and supersedes the request in flight.
func (r *Router) begin(ctx context.Context, target Target) *request {
	ctx, cancel := context.WithCancelCause(ctx)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel(ErrSuperseded)
	}
	r.seq++
	req := &request{
		id:     r.seq,
		table:  r.table,
		ctx:    ctx,
		cancel: cancel,
		target: target,
		start:  r.now(),
	}
	r.cancel = cancel
	r.state.Pending = nil
	r.state.Status = Matching
	r.state.Err = nil
	r.mu.Unlock()
	return req
}

func (r *Router) finish(req *request) (*Commit, error) {
	defer req.cancel(nil)

	ctx, span := r.tracer.Start(req.ctx, "navigation.navigate",
		trace.WithAttributes(
			attribute.String("navigation.target", req.target.String()),
			attribute.Int64("navigation.id", int64(req.id)),
		),
	)
	defer span.End()

	commit, outcome, err := r.run(ctx, req)

	span.SetAttributes(attribute.String("navigation.outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("navigation.path", commit.Match.Path))
	}

	elapsed := r.now().Sub(req.start)
	for _, o := range r.observers {
		o.NavigationSettled(outcome, elapsed)
	}
	return commit, err
}

// run drives the state machine. Guard redirects and failure fallbacks loop
// back to matching with a new path; each path may be visited once.
func (r *Router) run(ctx context.Context, req *request) (*Commit, Outcome, error) {
	path, err := resolveTarget(req.table, req.target)
	if err != nil {
		return r.fail(req, err)
	}

	var (
		seen      = make(map[string]bool)
		recovered error
	)
	for {
		if err := ctx.Err(); err != nil {
			return r.fail(req, context.Cause(ctx))
		}

		loc, err := routepath.Parse(path)
		if err != nil {
			return r.fail(req, err)
		}
		key := loc.String()
		if seen[key] || len(seen) >= r.maxRedirects {
			loop := ErrRedirectLoop.WithDetailf("%s visited twice", key)
			if recovered != nil {
				loop = loop.Wrap(recovered)
			}
			return r.fail(req, loop)
		}
		seen[key] = true

		if !r.transition(ctx, req, Matching, nil, key) {
			return r.superseded(req)
		}
		m, err := req.table.Match(key)
		if err != nil {
			if errors.Is(err, router.ErrNoMatch) && r.notFound != "" {
				r.logger.Debug("no route matched, using not-found route", "nav_id", req.id, "path", key)
				recovered, path = err, r.notFound
				continue
			}
			return r.fail(req, err)
		}

		if !r.transition(ctx, req, Guarding, m, m.Path) {
			return r.superseded(req)
		}
		d := r.guard.Check(ctx, m, r.session)
		for _, o := range r.observers {
			o.GuardDecided(d.Kind)
		}
		switch d.Kind {
		case guard.Redirect:
			r.logger.Debug("guard redirected", "nav_id", req.id, "path", m.Path, "to", d.Path)
			path = d.Path
			continue
		case guard.Block:
			if r.errorRoute != "" {
				r.logger.Debug("guard blocked, using error route", "nav_id", req.id, "path", m.Path, "reason", d.Reason)
				recovered, path = d.Err(), r.errorRoute
				continue
			}
			return r.fail(req, d.Err())
		}

		if c, ok := r.duplicate(req, m, recovered); ok {
			return c, OutcomeDuplicate, nil
		}

		levels := router.Resolve(m)
		if !r.transition(ctx, req, Loading, m, m.Path) {
			return r.superseded(req)
		}
		views, err := r.gate.LoadAll(ctx, router.Refs(levels))
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(req, context.Cause(ctx))
			}
			if r.errorRoute != "" {
				r.logger.Warn("view load failed, using error route", "nav_id", req.id, "path", m.Path, "err", err)
				recovered, path = err, r.errorRoute
				continue
			}
			return r.fail(req, err)
		}

		return r.commit(req, m, levels, views, recovered)
	}
}

// transition moves the state to status if req is still the newest request.
func (r *Router) transition(ctx context.Context, req *request, status Status, m *router.Match, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.id != r.seq {
		return false
	}
	r.state.Status = status
	r.state.Pending = m
	trace.SpanFromContext(ctx).AddEvent(status.String(), trace.WithAttributes(attribute.String("navigation.path", path)))
	r.logger.Debug("navigation transition", "nav_id", req.id, "status", status.String(), "path", path)
	return true
}

// duplicate short-circuits a request that resolves to the current commit.
// Fallback commits are never reused: each one carries its own failure.
func (r *Router) duplicate(req *request, m *router.Match, recovered error) (*Commit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if recovered != nil || req.id != r.seq || r.last == nil || r.last.Recovered != nil || !r.last.Match.Same(m) {
		return nil, false
	}
	r.state.Status = Committed
	r.state.Pending = nil
	r.state.Current = r.last.Match
	r.logger.Debug("navigation duplicated current route", "nav_id", req.id, "path", m.Path)
	return r.last, true
}

func (r *Router) commit(req *request, m *router.Match, levels []router.Level, views map[string]router.View, recovered error) (*Commit, Outcome, error) {
	c := &Commit{
		Seq:       req.id,
		Match:     m,
		Levels:    bindViews(levels, views),
		Recovered: recovered,
		At:        r.now(),
	}

	r.mu.Lock()
	if req.id != r.seq {
		r.mu.Unlock()
		return r.superseded(req)
	}
	r.state = State{Current: m, Status: Committed}
	r.last = c
	subs := make([]func(*Commit), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	if recovered != nil {
		r.logger.Warn("navigation recovered", "nav_id", req.id, "path", m.Path, "err", recovered)
	} else {
		r.logger.Info("navigation committed", "nav_id", req.id, "path", m.Path, "route", m.Name())
	}

	r.pubMu.Lock()
	if c.Seq > r.published {
		r.published = c.Seq
		for _, fn := range subs {
			fn(c)
		}
	}
	r.pubMu.Unlock()

	return c, OutcomeCommitted, nil
}

// fail ends req. The last commit stays in place.
func (r *Router) fail(req *request, err error) (*Commit, Outcome, error) {
	if errors.Is(err, ErrSuperseded) {
		return r.superseded(req)
	}

	r.mu.Lock()
	if req.id != r.seq {
		r.mu.Unlock()
		return r.superseded(req)
	}
	r.state.Status = Failed
	r.state.Pending = nil
	r.state.Err = err
	r.mu.Unlock()

	if errors.Is(err, ErrRedirectLoop) {
		r.logger.Error("navigation redirect loop", "nav_id", req.id, "target", req.target.String(), "err", err)
		return nil, OutcomeRedirectLoop, err
	}
	r.logger.Warn("navigation failed", "nav_id", req.id, "target", req.target.String(), "err", err)
	return nil, OutcomeFailed, err
}

func (r *Router) superseded(req *request) (*Commit, Outcome, error) {
	r.logger.Debug("navigation superseded", "nav_id", req.id, "target", req.target.String())
	return nil, OutcomeSuperseded, ErrSuperseded
}

func resolveTarget(table *router.Table, t Target) (string, error) {
	if t.Name == "" {
		if len(t.Query) == 0 {
			return t.Path, nil
		}
		loc, err := routepath.Parse(t.Path)
		if err != nil {
			return "", err
		}
		return routepath.Join(loc.Path, t.Query), nil
	}
	p, err := table.PathFor(t.Name, t.Params)
	if err != nil {
		return "", err
	}
	return routepath.Join(p, t.Query), nil
}

func bindViews(levels []router.Level, views map[string]router.View) []Level {
	out := make([]Level, 0, len(levels))
	for _, lvl := range levels {
		slots := make(map[string]Slot, len(lvl.Slots))
		for name, b := range lvl.Slots {
			slots[name] = Slot{View: views[b.Ref.Name()], Props: b.Props}
		}
		out = append(out, Level{
			Route:   lvl.Record.Name(),
			Pattern: lvl.Record.FullPath(),
			Slots:   slots,
		})
	}
	return out
}
