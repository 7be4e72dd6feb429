package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/storefront/pkg/auth"
	"github.com/vango-dev/storefront/pkg/lazy"
	"github.com/vango-dev/storefront/pkg/middleware"
	"github.com/vango-dev/storefront/pkg/navigation"
	"github.com/vango-dev/storefront/pkg/server"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port  int
		host  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the navigation router over HTTP",
		Long: `Serve the navigation router over HTTP and websocket.

Clients navigate with POST /navigate or over /ws and receive every commit
on the websocket. Sessions are started with POST /session when
session.jwtSecret (STOREFRONT_SESSION_JWT_SECRET) is set.

With --watch, edits to the route file are applied without a restart.

Examples:
  storefront serve
  storefront serve --port=8080 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				a.cfg.Server.Port = port
			}
			if host != "" {
				a.cfg.Server.Host = host
			}
			if watch && a.cfg.RoutesPath() == "" {
				warn(cmd.ErrOrStderr(), "--watch ignored: routes.file is not set")
				watch = false
			}
			return runServe(cmd.Context(), a, watch)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from storefront.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from storefront.json)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the route file when it changes")

	return cmd
}

func runServe(ctx context.Context, a *app, watch bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, a.cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		// The serve context is already cancelled here.
		if err := shutdownTracing(context.Background()); err != nil {
			a.logger.Warn("trace exporter shutdown", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))

	store := auth.NewStore()
	nav := a.newRouter(store,
		[]lazy.Option{lazy.WithObserver(metrics)},
		navigation.WithObserver(metrics),
	)

	cfg := server.DefaultConfig()
	cfg.Address = a.cfg.Address()
	cfg.Logger = a.logger
	cfg.SessionTTL = a.cfg.Session.TTL.Std()
	if origins := a.cfg.Server.AllowedOrigins; len(origins) > 0 {
		cfg.CheckOrigin = server.AllowOrigins(origins...)
	}

	opts := []server.Option{}
	if a.cfg.MetricsEnabled() {
		cfg.MetricsPath = a.cfg.Server.MetricsPath
		opts = append(opts, server.WithMetrics(metrics, reg))
	} else {
		opts = append(opts, server.WithMetrics(metrics, nil))
	}
	if secret := a.cfg.Session.JWTSecret; secret != "" {
		tokens, err := auth.NewTokens(secret, a.cfg.Session.Issuer)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithTokens(tokens))
	}
	srv := server.New(nav, store, cfg, opts...)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if watch {
		g.Go(func() error {
			return a.watchRoutes(ctx, nav)
		})
	}
	return g.Wait()
}
