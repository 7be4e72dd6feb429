package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/storefront/pkg/guard"
	"github.com/vango-dev/storefront/pkg/navigation"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "storefront").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "storefront",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records navigation, guard, load and HTTP metrics.
type Metrics struct {
	navigations        *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	guardDecisions     *prometheus.CounterVec
	viewLoads          *prometheus.CounterVec
	viewLoadDuration   *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	subscribers        prometheus.Gauge
}

// NewMetrics registers the metrics on the configured registry. Registering
// twice on one registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total navigation requests by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		navigationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation duration from request to settlement",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),

		guardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "guard_decisions_total",
			Help:        "Guard decisions by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"decision"}),

		viewLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "view_loads_total",
			Help:        "Deferred view loads by view and status",
			ConstLabels: config.ConstLabels,
		}, []string{"view", "status"}),

		viewLoadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "view_load_duration_seconds",
			Help:        "Deferred view load duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"view"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "HTTP bridge requests by route pattern and status code",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "code"}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers",
			Help:        "Connected commit subscribers",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// NavigationSettled implements navigation.Observer.
func (m *Metrics) NavigationSettled(outcome navigation.Outcome, elapsed time.Duration) {
	m.navigations.WithLabelValues(string(outcome)).Inc()
	m.navigationDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// GuardDecided implements navigation.Observer.
func (m *Metrics) GuardDecided(decision guard.Kind) {
	m.guardDecisions.WithLabelValues(decision.String()).Inc()
}

// ViewLoaded implements lazy.Observer.
func (m *Metrics) ViewLoaded(name string, elapsed time.Duration, err error) {
	status := "loaded"
	if err != nil {
		status = "failed"
	}
	m.viewLoads.WithLabelValues(name, status).Inc()
	m.viewLoadDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// SubscriberConnected records a new commit subscriber.
func (m *Metrics) SubscriberConnected() { m.subscribers.Inc() }

// SubscriberDisconnected records a subscriber leaving.
func (m *Metrics) SubscriberDisconnected() { m.subscribers.Dec() }

// Instrument counts requests by chi route pattern, keeping label
// cardinality bounded by the route table rather than by request paths.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.httpRequests.WithLabelValues(routePattern(r), strconv.Itoa(sw.status)).Inc()
	})
}

// routePattern returns the matched chi pattern, or "unmatched".
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Hijack supports websocket upgrades behind Instrument.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	w.wroteHeader = true
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
