// Package store declares the persistence ports of the tracker.
//
// Each logical collection (account configuration, entries, deposits and the
// DCA schedule) exposes load, upsert and delete. Local and remote stores
// implement the same ports.
package store

import (
	"context"
	"errors"

	"peatracker/internal/core"
)

// Collection names a logical collection.
type Collection string

const (
	CollectionConfig   Collection = "config"
	CollectionEntries  Collection = "entries"
	CollectionDeposits Collection = "deposits"
	CollectionSchedule Collection = "schedule"
)

// Collections lists every collection, in hydration order.
var Collections = []Collection{
	CollectionConfig,
	CollectionEntries,
	CollectionDeposits,
	CollectionSchedule,
}

func (c Collection) IsValid() bool {
	switch c {
	case CollectionConfig, CollectionEntries, CollectionDeposits, CollectionSchedule:
		return true
	}
	return false
}

// ErrNotFound is returned by single-record lookups.
var ErrNotFound = errors.New("record not found")

type (
	// ConfigStore persists the single account configuration record.
	// LoadConfig returns nil when the account is unconfigured.
	ConfigStore interface {
		LoadConfig(ctx context.Context) (*core.AccountConfig, error)
		SaveConfig(ctx context.Context, cfg core.AccountConfig) error
		DeleteConfig(ctx context.Context) error
	}

	// EntryStore persists entries keyed by date.
	EntryStore interface {
		LoadEntries(ctx context.Context) ([]core.Entry, error)
		UpsertEntry(ctx context.Context, e core.Entry) error
		DeleteEntry(ctx context.Context, date core.Date) error
	}

	// DepositStore persists deposits keyed by id.
	DepositStore interface {
		LoadDeposits(ctx context.Context) ([]core.Deposit, error)
		UpsertDeposit(ctx context.Context, d core.Deposit) error
		DeleteDeposit(ctx context.Context, id string) error
	}

	// ScheduleStore persists the single DCA schedule record.
	// LoadSchedule returns nil when none was saved.
	ScheduleStore interface {
		LoadSchedule(ctx context.Context) (*core.DCAConfig, error)
		SaveSchedule(ctx context.Context, cfg core.DCAConfig) error
	}

	Store interface {
		ConfigStore
		EntryStore
		DepositStore
		ScheduleStore
	}

	// Cache is a local store that can also be refreshed wholesale.
	Cache interface {
		Store
		ReplaceEntries(ctx context.Context, entries []core.Entry) error
		ReplaceDeposits(ctx context.Context, deposits []core.Deposit) error
	}

	// Remote hands out stores scoped to one user.
	Remote interface {
		ForUser(userID string) Store
	}

	// RecordReader looks up single records. Local caches implement it so a
	// replication message only has to carry the record key.
	RecordReader interface {
		LoadEntry(ctx context.Context, date core.Date) (core.Entry, error)
		LoadDeposit(ctx context.Context, id string) (core.Deposit, error)
	}
)
