package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vango-dev/storefront/internal/config"
	"github.com/vango-dev/storefront/internal/storefront"
	"github.com/vango-dev/storefront/pkg/auth"
	"github.com/vango-dev/storefront/pkg/guard"
	"github.com/vango-dev/storefront/pkg/lazy"
	"github.com/vango-dev/storefront/pkg/loader"
	"github.com/vango-dev/storefront/pkg/navigation"
	"github.com/vango-dev/storefront/pkg/router"
)

// app holds the components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  loader.Store
	table  *router.Table
}

// loadConfig reads storefront.json from path, which may name the file or
// its directory. An empty path uses the working directory and falls back to
// defaults when no file exists.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case path == "":
		cfg, err = config.LoadOrDefault(".")
	case filepath.Ext(path) == ".json":
		cfg, err = config.LoadFile(path)
	default:
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newApp loads configuration, the bundle store and the route table.
func newApp(flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags.config)
	if err != nil {
		return nil, err
	}
	logger := newLogger(flags.verbose)

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	table, err := storefront.LoadTable(cfg, storefront.Options{Store: store})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store, table: table}, nil
}

// newStore returns the configured bundle store, or nil to resolve deferred
// views in process.
func newStore(cfg *config.Config) (loader.Store, error) {
	if dir := cfg.LoaderDir(); dir != "" {
		store, err := loader.NewDirStore(dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	if cfg.Loader.Bucket != "" {
		client := loader.NewS3Client(loader.S3Config{
			Region:          cfg.Loader.Region,
			Endpoint:        cfg.Loader.Endpoint,
			AccessKeyID:     cfg.Loader.AccessKeyID,
			SecretAccessKey: cfg.Loader.SecretAccessKey,
		})
		return loader.NewS3Store(client, cfg.Loader.Bucket, cfg.Loader.Prefix), nil
	}
	return nil, nil
}

// storeOptions returns the table options for the configured store.
func (a *app) storeOptions() storefront.Options {
	return storefront.Options{Store: a.store}
}

// newRouter builds the navigation router over session.
func (a *app) newRouter(session auth.Session, gateOpts []lazy.Option, opts ...navigation.Option) *navigation.Router {
	nav := a.cfg.Navigation
	gateOpts = append([]lazy.Option{
		lazy.WithLogger(a.logger),
		lazy.WithAttempts(nav.LoadAttempts),
		lazy.WithRetryDelay(nav.LoadRetryDelay.Std()),
		lazy.WithLoadTimeout(nav.LoadTimeout.Std()),
	}, gateOpts...)

	base := []navigation.Option{
		navigation.WithLogger(a.logger),
		navigation.WithGuard(guard.RequireAuth(nav.LoginPath)),
		navigation.WithGate(lazy.NewGate(gateOpts...)),
		navigation.WithMaxRedirects(nav.MaxRedirects),
	}
	if nav.NotFoundRoute != "" {
		base = append(base, navigation.WithNotFound(nav.NotFoundRoute))
	}
	if nav.ErrorRoute != "" {
		base = append(base, navigation.WithErrorRoute(nav.ErrorRoute))
	}
	return navigation.New(a.table, session, append(base, opts...)...)
}

// watchRoutes reloads the route file into nav until ctx is done.
func (a *app) watchRoutes(ctx context.Context, nav *navigation.Router) error {
	return storefront.Watch(ctx, a.cfg, a.storeOptions(), nav.SetTable, a.logger)
}
