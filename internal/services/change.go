package services

import (
	"context"
	"errors"
	"fmt"

	"peatracker/internal/amqp"
	"peatracker/internal/core"
	"peatracker/internal/store"
)

// ErrInvalidChange is returned when a change cannot be applied to any store.
var ErrInvalidChange = errors.New("invalid change")

// Change describes one mutation of a collection. Upserts carry the record,
// deletes only need the key.
type Change struct {
	Collection store.Collection
	Operation  amqp.Operation
	Key        string

	Config   *core.AccountConfig
	Entry    *core.Entry
	Deposit  *core.Deposit
	Schedule *core.DCAConfig
}

func configChange(cfg *core.AccountConfig) Change {
	if cfg == nil {
		return Change{Collection: store.CollectionConfig, Operation: amqp.OpDelete, Key: string(store.CollectionConfig)}
	}
	c := *cfg
	return Change{Collection: store.CollectionConfig, Operation: amqp.OpUpsert, Key: string(store.CollectionConfig), Config: &c}
}

func entryChange(e core.Entry) Change {
	return Change{Collection: store.CollectionEntries, Operation: amqp.OpUpsert, Key: e.Date.String(), Entry: &e}
}

func entryDelete(date core.Date) Change {
	return Change{Collection: store.CollectionEntries, Operation: amqp.OpDelete, Key: date.String()}
}

func depositChange(d core.Deposit) Change {
	return Change{Collection: store.CollectionDeposits, Operation: amqp.OpUpsert, Key: d.ID, Deposit: &d}
}

func depositDelete(id string) Change {
	return Change{Collection: store.CollectionDeposits, Operation: amqp.OpDelete, Key: id}
}

func scheduleChange(cfg core.DCAConfig) Change {
	return Change{Collection: store.CollectionSchedule, Operation: amqp.OpUpsert, Key: string(store.CollectionSchedule), Schedule: &cfg}
}

// ApplyChange writes c to st.
func ApplyChange(ctx context.Context, st store.Store, c Change) error {
	switch c.Collection {
	case store.CollectionConfig:
		if c.Operation == amqp.OpDelete {
			return st.DeleteConfig(ctx)
		}
		if c.Config == nil {
			return fmt.Errorf("%w: config upsert without record", ErrInvalidChange)
		}
		return st.SaveConfig(ctx, *c.Config)

	case store.CollectionEntries:
		if c.Operation == amqp.OpDelete {
			date, err := core.ParseDate(c.Key)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidChange, err)
			}
			return st.DeleteEntry(ctx, date)
		}
		if c.Entry == nil {
			return fmt.Errorf("%w: entry upsert without record", ErrInvalidChange)
		}
		return st.UpsertEntry(ctx, *c.Entry)

	case store.CollectionDeposits:
		if c.Operation == amqp.OpDelete {
			if c.Key == "" {
				return fmt.Errorf("%w: deposit delete without id", ErrInvalidChange)
			}
			return st.DeleteDeposit(ctx, c.Key)
		}
		if c.Deposit == nil {
			return fmt.Errorf("%w: deposit upsert without record", ErrInvalidChange)
		}
		return st.UpsertDeposit(ctx, *c.Deposit)

	case store.CollectionSchedule:
		if c.Operation == amqp.OpDelete {
			return fmt.Errorf("%w: schedule cannot be deleted", ErrInvalidChange)
		}
		if c.Schedule == nil {
			return fmt.Errorf("%w: schedule upsert without record", ErrInvalidChange)
		}
		return st.SaveSchedule(ctx, *c.Schedule)
	}

	return fmt.Errorf("%w: unknown collection %q", ErrInvalidChange, c.Collection)
}
