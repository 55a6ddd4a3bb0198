// Package app wires the item store, obfuscated store, session journal and
// backup manager into one handle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/edgemetrics/internal/backup"
	"github.com/mesh-intelligence/edgemetrics/internal/metrics"
	"github.com/mesh-intelligence/edgemetrics/internal/secure"
	"github.com/mesh-intelligence/edgemetrics/internal/sessions"
	"github.com/mesh-intelligence/edgemetrics/internal/sqlite"
	"github.com/mesh-intelligence/edgemetrics/pkg/types"
)

// Options configures Open. Logger and Metrics default to slog.Default and a
// no-op recorder.
type Options struct {
	Store   types.Config
	Backup  backup.Config
	Logger  *slog.Logger
	Metrics metrics.BusinessMetrics
	// Clock overrides the backup timestamp source.
	Clock func() time.Time
}

// App holds the opened components. Close releases the store.
type App struct {
	Items    types.Store
	Secure   *secure.Store
	Sessions *sessions.Journal
	Backups  *backup.Manager

	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// Open attaches the store, provisions the obfuscation key, migrates legacy
// plain sessions, and builds the backup manager. A failed migration is
// logged and leaves the plain value in place.
func Open(ctx context.Context, opts Options) (*App, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bm := opts.Metrics
	if bm == nil {
		bm = metrics.NewNoOpBusinessMetrics()
	}

	store := sqlite.NewBackend()
	if err := store.Attach(opts.Store); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}

	sec, err := secure.New(store, logger)
	if err != nil {
		_ = store.Detach()
		return nil, fmt.Errorf("provision key: %w", err)
	}

	if migrated, err := sec.MigrateLegacy(types.KeySessions, types.KeySessions); err != nil {
		logger.ErrorContext(ctx, "legacy sessions migration failed", "key", types.KeySessions, "error", err)
	} else if migrated {
		logger.InfoContext(ctx, "legacy sessions migrated", "key", types.KeySessions)
	}

	managerOpts := []backup.Option{backup.WithLogger(logger), backup.WithMetrics(bm)}
	if opts.Clock != nil {
		managerOpts = append(managerOpts, backup.WithClock(opts.Clock))
	}
	mgr, err := backup.NewManager(sec, store, opts.Backup, managerOpts...)
	if err != nil {
		_ = store.Detach()
		return nil, err
	}

	logger.DebugContext(ctx, "store opened", "data_dir", store.DataDir())
	return &App{
		Items:    store,
		Secure:   sec,
		Sessions: sessions.New(sec),
		Backups:  mgr,
		logger:   logger,
	}, nil
}

// Scheduler returns a backup scheduler at the configured interval.
func (a *App) Scheduler() *backup.Scheduler {
	return backup.NewScheduler(a.Backups, a.Backups.Config().Interval, a.logger)
}

// Close detaches the store. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.Items.Detach()
	})
	return a.closeErr
}
