package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/storefront/pkg/auth"
	"github.com/vango-dev/storefront/pkg/middleware"
	"github.com/vango-dev/storefront/pkg/navigation"
)

// Server is the HTTP bridge to a navigation router.
type Server struct {
	nav      *navigation.Router
	store    *auth.Store
	tokens   *auth.Tokens
	metrics  *middleware.Metrics
	gatherer prometheus.Gatherer
	tracing  []middleware.OTelOption
	config   *Config
	logger   *slog.Logger

	hub        *Hub
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithTokens enables POST /session with the given token codec.
func WithTokens(t *auth.Tokens) Option {
	return func(s *Server) {
		s.tokens = t
	}
}

// WithMetrics instruments requests and subscribers with m and serves g at
// the configured metrics path. A nil gatherer disables the endpoint.
func WithMetrics(m *middleware.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithTracing sets options for the request tracing middleware.
func WithTracing(opts ...middleware.OTelOption) Option {
	return func(s *Server) {
		s.tracing = append(s.tracing, opts...)
	}
}

// New creates a Server for nav. store is the session the router's guards
// read; POST and DELETE /session update it.
func New(nav *navigation.Router, store *auth.Store, config *Config, opts ...Option) *Server {
	config = config.withDefaults()
	s := &Server{
		nav:    nav,
		store:  store,
		config: config,
		logger: config.Logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(nav, config, s.metrics)
	return s
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Trace(s.tracing...))
	if s.metrics != nil {
		r.Use(s.metrics.Instrument)
	}

	r.Get("/state", s.handleState)
	r.Post("/navigate", s.handleNavigate)
	r.Get("/routes", s.handleRoutes)
	r.Post("/session", s.handleLogin)
	r.Delete("/session", s.handleLogout)
	r.Get("/ws", s.handleWebSocket)
	if s.gatherer != nil {
		r.Method(http.MethodGet, s.config.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Run starts the server and blocks until ctx is done, a shutdown signal
// arrives, or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	// Set up graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-shutdown:
		s.logger.Info("shutting down...")
	case <-ctx.Done():
		s.logger.Info("context done, shutting down...")
	}
	return s.Shutdown(context.Background())
}

// Shutdown disconnects subscribers and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.hub.Close()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
