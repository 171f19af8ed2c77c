package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"peatracker/internal/amqp"
	"peatracker/internal/core"
	"peatracker/internal/services"
	"peatracker/internal/store"
)

// LocalStore is the local cache the worker reads records from.
type LocalStore interface {
	store.Store
	store.RecordReader
}

// SyncWorker replicates the local SQLite cache to the remote store
type SyncWorker struct {
	local  LocalStore
	remote store.Remote
}

func NewSyncWorker(local LocalStore, remote store.Remote) *SyncWorker {
	return &SyncWorker{
		local:  local,
		remote: remote,
	}
}

// HandleReplication applies one replication message to the remote store of
// msg.UserID. Upserts read the current record from the local cache; a record
// that no longer exists locally is skipped since its delete follows.
//
// Errors wrapping amqp.ErrInvalidMessage must not be retried.
func (w *SyncWorker) HandleReplication(ctx context.Context, msg *amqp.ReplicationMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Processing replication message",
		"collection", msg.Collection,
		"operation", msg.Operation,
		"key", msg.Key)

	change, ok, err := w.resolve(ctx, msg)
	if err != nil {
		return err
	}
	if !ok {
		slog.InfoContext(ctx, "Record no longer in local cache, skipping",
			"collection", msg.Collection,
			"key", msg.Key)
		return nil
	}

	if err := services.ApplyChange(ctx, w.remote.ForUser(msg.UserID), change); err != nil {
		if errors.Is(err, services.ErrInvalidChange) {
			return fmt.Errorf("%w: %v", amqp.ErrInvalidMessage, err)
		}
		return fmt.Errorf("apply %s %s: %w", msg.Collection, msg.Operation, err)
	}

	slog.InfoContext(ctx, "Successfully replicated change",
		"collection", msg.Collection,
		"operation", msg.Operation,
		"key", msg.Key,
		"timestamp", msg.Timestamp)
	return nil
}

// resolve builds the change announced by msg. ok is false when the record to
// upsert is gone from the local cache.
func (w *SyncWorker) resolve(ctx context.Context, msg *amqp.ReplicationMessage) (services.Change, bool, error) {
	change := services.Change{
		Collection: msg.Collection,
		Operation:  msg.Operation,
		Key:        msg.Key,
	}
	if msg.Operation == amqp.OpDelete {
		return change, true, nil
	}

	switch msg.Collection {
	case store.CollectionConfig:
		cfg, err := w.local.LoadConfig(ctx)
		if err != nil {
			return change, false, fmt.Errorf("load config from storage: %w", err)
		}
		change.Config = cfg
		return change, cfg != nil, nil

	case store.CollectionEntries:
		date, err := core.ParseDate(msg.Key)
		if err != nil {
			return change, false, fmt.Errorf("%w: %v", amqp.ErrInvalidMessage, err)
		}
		e, err := w.local.LoadEntry(ctx, date)
		if errors.Is(err, store.ErrNotFound) {
			return change, false, nil
		}
		if err != nil {
			return change, false, fmt.Errorf("load entry from storage: %w", err)
		}
		change.Entry = &e
		return change, true, nil

	case store.CollectionDeposits:
		d, err := w.local.LoadDeposit(ctx, msg.Key)
		if errors.Is(err, store.ErrNotFound) {
			return change, false, nil
		}
		if err != nil {
			return change, false, fmt.Errorf("load deposit from storage: %w", err)
		}
		change.Deposit = &d
		return change, true, nil

	case store.CollectionSchedule:
		cfg, err := w.local.LoadSchedule(ctx)
		if err != nil {
			return change, false, fmt.Errorf("load schedule from storage: %w", err)
		}
		change.Schedule = cfg
		return change, cfg != nil, nil
	}

	return change, false, fmt.Errorf("%w: unknown collection %q", amqp.ErrInvalidMessage, msg.Collection)
}

// FullResync pushes every local record to the remote store of userID. It is
// the backup mechanism for lost upserts and runs at startup and on schedule.
// It never deletes: a cache that is empty or behind the remote must not
// erase remote data, and deletes reach the remote through replication.
func (w *SyncWorker) FullResync(ctx context.Context, userID string) error {
	if userID == "" {
		slog.InfoContext(ctx, "No user configured, skipping resync")
		return nil
	}
	remote := w.remote.ForUser(userID)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.resyncConfig(ctx, remote) })
	g.Go(func() error { return w.resyncEntries(ctx, remote) })
	g.Go(func() error { return w.resyncDeposits(ctx, remote) })
	g.Go(func() error { return w.resyncSchedule(ctx, remote) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("resync user %s: %w", userID, err)
	}

	slog.InfoContext(ctx, "Full resync completed", "user_id", userID)
	return nil
}

func (w *SyncWorker) resyncConfig(ctx context.Context, remote store.Store) error {
	cfg, err := w.local.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg == nil {
		return nil
	}
	return remote.SaveConfig(ctx, *cfg)
}

func (w *SyncWorker) resyncEntries(ctx context.Context, remote store.Store) error {
	local, err := w.local.LoadEntries(ctx)
	if err != nil {
		return fmt.Errorf("load local entries: %w", err)
	}
	for _, e := range local {
		if err := remote.UpsertEntry(ctx, e); err != nil {
			return fmt.Errorf("upsert entry %s: %w", e.Date, err)
		}
	}

	slog.DebugContext(ctx, "Entries resynced", "count", len(local))
	return nil
}

func (w *SyncWorker) resyncDeposits(ctx context.Context, remote store.Store) error {
	local, err := w.local.LoadDeposits(ctx)
	if err != nil {
		return fmt.Errorf("load local deposits: %w", err)
	}
	for _, d := range local {
		if err := remote.UpsertDeposit(ctx, d); err != nil {
			return fmt.Errorf("upsert deposit %s: %w", d.ID, err)
		}
	}

	slog.DebugContext(ctx, "Deposits resynced", "count", len(local))
	return nil
}

func (w *SyncWorker) resyncSchedule(ctx context.Context, remote store.Store) error {
	cfg, err := w.local.LoadSchedule(ctx)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	if cfg == nil {
		return nil
	}
	return remote.SaveSchedule(ctx, *cfg)
}
