package cli

import (
	"context"
	"errors"
	"fmt"

	"peatracker/internal/backend"
	"peatracker/internal/config"
	"peatracker/internal/core"
	"peatracker/internal/log"
	"peatracker/internal/services"
	"peatracker/internal/storage"
	"peatracker/internal/store"
)

// App is a tracker wired to its local cache, remote store and replicator.
type App struct {
	Config  *config.Config
	Local   *storage.SQLiteRepository
	Remote  store.Remote
	Tracker *services.Tracker

	closers []func() error
}

// Bootstrap opens the stores named by cfg, seeds an empty local cache,
// builds the tracker and hydrates it. A failed hydration is logged and the
// app starts from whatever state was loaded.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	app := &App{Config: cfg}

	local, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open local cache: %w", err)
	}
	app.Local = local
	app.closers = append(app.closers, local.Close)

	factory := backend.NewFactory(logger)
	remoteRes, err := factory.CreateRemote(ctx, cfg)
	if err != nil {
		app.closeAll()
		return nil, err
	}
	remote := remoteRes.Remote
	app.Remote = remote
	if remoteRes.Cleanup != nil {
		app.closers = append(app.closers, remoteRes.Cleanup)
	}

	replicatorRes, err := factory.CreateReplicator(ctx, cfg, remote)
	if err != nil {
		app.closeAll()
		return nil, err
	}
	replicator := replicatorRes.Replicator
	if replicatorRes.Cleanup != nil {
		app.closers = append(app.closers, replicatorRes.Cleanup)
	}

	if err := SeedLocal(ctx, local, cfg.Account, cfg.DCA); err != nil {
		logger.WithComponent(log.ComponentStorage).Warn("Failed to seed local cache", log.FieldError, err)
	}

	app.Tracker = services.NewTracker(local, remote, replicator, services.TrackerConfig{
		UserID:         cfg.UserID,
		Location:       cfg.Location(),
		DepositCeiling: cfg.DepositCeiling,
	})
	if replicator, ok := replicator.(*services.DirectReplicator); ok {
		if err := replicator.Start(ctx); err != nil {
			app.closeAll()
			return nil, fmt.Errorf("start replicator: %w", err)
		}
	}

	if err := app.Tracker.Hydrate(ctx); err != nil {
		logger.WithComponent(log.ComponentTracker).Warn("Hydration incomplete", log.FieldError, err)
	}

	logger.Info("Tracker ready",
		"remote_backend", cfg.RemoteBackend,
		"replication_mode", cfg.ReplicationMode,
		log.FieldUserID, cfg.UserID,
		"configured", app.Tracker.Config() != nil)
	return app, nil
}

// Close drains the replicator, then closes the stores.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Tracker != nil {
		errs = append(errs, a.Tracker.Close(ctx))
	}
	errs = append(errs, a.closeAll())
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// SeedLocal saves the configured account and schedule seeds into a cache
// that has none yet. Existing records are never overwritten.
func SeedLocal(ctx context.Context, local store.Store, account *core.AccountConfig, dca *core.DCAConfig) error {
	if account != nil {
		existing, err := local.LoadConfig(ctx)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if existing == nil {
			if err := local.SaveConfig(ctx, *account); err != nil {
				return fmt.Errorf("seed config: %w", err)
			}
		}
	}
	if dca != nil {
		existing, err := local.LoadSchedule(ctx)
		if err != nil {
			return fmt.Errorf("load schedule: %w", err)
		}
		if existing == nil {
			if err := local.SaveSchedule(ctx, *dca); err != nil {
				return fmt.Errorf("seed schedule: %w", err)
			}
		}
	}
	return nil
}
