package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/storefront/internal/config"
	"github.com/vango-dev/storefront/pkg/router"
)

// ReloadDebounce is how long the route file must be quiet before it is
// recompiled.
const ReloadDebounce = 100 * time.Millisecond

// Watch recompiles the route file cfg points at whenever it changes and
// passes each table to apply. A file that fails to compile is logged and the
// previous table stays active. Watch blocks until ctx is done.
func Watch(ctx context.Context, cfg *config.Config, opts Options, apply func(*router.Table), logger *slog.Logger) error {
	path := cfg.RoutesPath()
	if path == "" {
		return errors.New("no route file configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Editors save by renaming over the file, which drops a file watch.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	logger.Info("watching route table", "file", path)

	timer := time.NewTimer(ReloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(ReloadDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("route watcher error", "error", err)

		case <-timer.C:
			table, err := LoadTable(cfg, opts)
			if err != nil {
				logger.Error("route table reload failed", "file", path, "error", err)
				continue
			}
			apply(table)
		}
	}
}
