package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"peatracker/internal/core"
	"peatracker/internal/engine"
	"peatracker/internal/ledger"
	"peatracker/internal/log"
	"peatracker/internal/schedule"
	"peatracker/internal/store"
)

// TrackerConfig holds configuration for the tracker
type TrackerConfig struct {
	// UserID scopes the remote store. Empty means signed out: the remote
	// leg of every operation is skipped.
	UserID string

	// Location decides what "today" is (default: time.Local)
	Location *time.Location

	// DepositCeiling is the limit reported by Ceiling (default: 150000)
	DepositCeiling decimal.Decimal
}

// DefaultTrackerConfig returns sensible defaults
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Location:       time.Local,
		DepositCeiling: decimal.NewFromInt(core.DefaultDepositCeiling),
	}
}

// Tracker owns the in-memory account state and orchestrates its persistence.
//
// Memory is the source of truth. Every mutation updates memory, writes the
// local cache synchronously and hands the change to the replicator. Local
// and remote failures are logged and never undo the in-memory change.
type Tracker struct {
	local      store.Cache
	remote     store.Remote
	replicator Replicator

	mu       sync.RWMutex
	ledger   *ledger.Ledger
	cfg      *core.AccountConfig
	schedule core.DCAConfig
	userID   string
	loc      *time.Location
	ceiling  decimal.Decimal
}

// NewTracker creates an empty tracker. Call Hydrate to load persisted state.
// remote and replicator may be nil.
func NewTracker(local store.Cache, remote store.Remote, replicator Replicator, config TrackerConfig) *Tracker {
	if replicator == nil {
		replicator = NoopReplicator{}
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.DepositCeiling.IsZero() {
		config.DepositCeiling = decimal.NewFromInt(core.DefaultDepositCeiling)
	}
	return &Tracker{
		local:      local,
		remote:     remote,
		replicator: replicator,
		ledger:     ledger.New(),
		schedule:   core.DefaultDCAConfig(),
		userID:     config.UserID,
		loc:        config.Location,
		ceiling:    config.DepositCeiling,
	}
}

// UserID returns the signed-in user, empty when signed out.
func (t *Tracker) UserID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.userID
}

// SetUserID switches the session. An empty id signs out.
func (t *Tracker) SetUserID(userID string) {
	t.mu.Lock()
	t.userID = userID
	t.mu.Unlock()
}

// Today returns the current date in the tracker's location.
func (t *Tracker) Today() core.Date {
	return core.Today(t.loc)
}

// Config returns a copy of the account configuration, nil when unconfigured.
func (t *Tracker) Config() *core.AccountConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.cfg == nil {
		return nil
	}
	c := *t.cfg
	return &c
}

// SetConfig replaces the account configuration.
func (t *Tracker) SetConfig(ctx context.Context, cfg core.AccountConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	t.cfg = &cfg
	t.persist(ctx, "save_config", func(local store.Cache) error {
		return local.SaveConfig(ctx, cfg)
	})
	userID := t.userID
	t.mu.Unlock()

	t.replicator.Replicate(ctx, userID, configChange(&cfg))
	return nil
}

// ClearConfig marks the account unconfigured.
func (t *Tracker) ClearConfig(ctx context.Context) {
	t.mu.Lock()
	t.cfg = nil
	t.persist(ctx, "delete_config", func(local store.Cache) error {
		return local.DeleteConfig(ctx)
	})
	userID := t.userID
	t.mu.Unlock()

	t.replicator.Replicate(ctx, userID, configChange(nil))
}

// Entries returns every entry, ascending by date.
func (t *Tracker) Entries() []core.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Entries()
}

func (t *Tracker) Entry(date core.Date) (core.Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Entry(date)
}

// AddEntry records the capital observed on e.Date, overwriting any entry
// already recorded that day.
func (t *Tracker) AddEntry(ctx context.Context, e core.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	t.ledger.AddEntry(e)
	t.persist(ctx, "upsert_entry", func(local store.Cache) error {
		return local.UpsertEntry(ctx, e)
	})
	userID := t.userID
	t.mu.Unlock()

	t.replicator.Replicate(ctx, userID, entryChange(e))
	return nil
}

// DeleteEntry removes the entry of date. It returns false when there was none;
// a missing entry is not an error.
func (t *Tracker) DeleteEntry(ctx context.Context, date core.Date) bool {
	t.mu.Lock()
	removed := t.ledger.DeleteEntry(date)
	if removed {
		t.persist(ctx, "delete_entry", func(local store.Cache) error {
			return local.DeleteEntry(ctx, date)
		})
	}
	userID := t.userID
	t.mu.Unlock()

	if removed {
		t.replicator.Replicate(ctx, userID, entryDelete(date))
	}
	return removed
}

// Deposits returns every deposit, ascending by date.
func (t *Tracker) Deposits() []core.Deposit {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Deposits()
}

// DepositsNewestFirst returns every deposit, most recent first.
func (t *Tracker) DepositsNewestFirst() []core.Deposit {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.DepositsNewestFirst()
}

// AddDeposit records a deposit under a fresh id and returns it.
func (t *Tracker) AddDeposit(ctx context.Context, date core.Date, amount decimal.Decimal, note string) (core.Deposit, error) {
	if err := (core.Deposit{Date: date, Amount: amount, Note: note}).Validate(); err != nil {
		return core.Deposit{}, err
	}

	t.mu.Lock()
	d := t.ledger.AddDeposit(date, amount, note)
	t.persist(ctx, "upsert_deposit", func(local store.Cache) error {
		return local.UpsertDeposit(ctx, d)
	})
	userID := t.userID
	t.mu.Unlock()

	t.replicator.Replicate(ctx, userID, depositChange(d))
	return d, nil
}

// DeleteDeposit removes a deposit. Deleting an unknown id is a no-op.
func (t *Tracker) DeleteDeposit(ctx context.Context, id string) bool {
	t.mu.Lock()
	removed := t.ledger.DeleteDeposit(id)
	if removed {
		t.persist(ctx, "delete_deposit", func(local store.Cache) error {
			return local.DeleteDeposit(ctx, id)
		})
	}
	userID := t.userID
	t.mu.Unlock()

	if removed {
		t.replicator.Replicate(ctx, userID, depositDelete(id))
	}
	return removed
}

// DCA returns the current schedule configuration.
func (t *Tracker) DCA() core.DCAConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.schedule
}

// UpdateDCA merges patch into the schedule and returns the result.
func (t *Tracker) UpdateDCA(ctx context.Context, patch core.DCAPatch) (core.DCAConfig, error) {
	t.mu.Lock()
	next := t.schedule.Apply(patch)
	if err := next.Validate(); err != nil {
		t.mu.Unlock()
		return t.schedule, err
	}
	t.schedule = next
	t.persist(ctx, "save_schedule", func(local store.Cache) error {
		return local.SaveSchedule(ctx, next)
	})
	userID := t.userID
	t.mu.Unlock()

	t.replicator.Replicate(ctx, userID, scheduleChange(next))
	return next, nil
}

// Generator returns a schedule generator over the current DCA configuration.
func (t *Tracker) Generator() *schedule.Generator {
	return schedule.New(t.DCA())
}

// DCADates returns the planned contribution dates of a month.
func (t *Tracker) DCADates(year, month int) []core.Date {
	return t.Generator().DatesForMonth(year, month)
}

// Engine returns an engine over a snapshot of the current state. Later
// mutations do not affect it.
func (t *Tracker) Engine() *engine.Engine {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var cfg *core.AccountConfig
	if t.cfg != nil {
		c := *t.cfg
		cfg = &c
	}
	return engine.New(t.ledger.Clone(), cfg)
}

func (t *Tracker) DayPerformance(date core.Date) (core.DayPerformance, bool) {
	return t.Engine().DayPerformance(date)
}

func (t *Tracker) PerformancesInRange(start, end core.Date) []core.DayPerformance {
	return t.Engine().PerformancesInRange(start, end)
}

func (t *Tracker) PeriodGain(start, end core.Date) decimal.Decimal {
	return t.Engine().PeriodGain(start, end)
}

// Summary evaluates the dashboard aggregates against today.
func (t *Tracker) Summary() engine.Summary {
	return t.Engine().Summary(t.Today())
}

func (t *Tracker) Stats() core.Stats {
	return t.Engine().Stats()
}

// Ceiling reports the room left under the configured deposit ceiling.
func (t *Tracker) Ceiling() engine.Ceiling {
	return t.Engine().Ceiling(t.ceiling)
}

// persist runs a local cache write. Failures are logged and swallowed.
// Callers hold t.mu so local writes land in mutation order.
func (t *Tracker) persist(ctx context.Context, operation string, fn func(store.Cache) error) {
	if t.local == nil {
		return
	}
	if err := fn(t.local); err != nil {
		logger(ctx).ErrorContext(ctx, "Local cache write failed",
			log.FieldOperation, operation,
			log.FieldError, err)
	}
}

// snapshot is the full persisted state of one account.
type snapshot struct {
	cfg      *core.AccountConfig
	entries  []core.Entry
	deposits []core.Deposit
	schedule *core.DCAConfig
}

func (s snapshot) isEmpty() bool {
	return s.cfg == nil && s.schedule == nil && len(s.entries) == 0 && len(s.deposits) == 0
}

// loadSnapshot reads every collection of st concurrently.
func loadSnapshot(ctx context.Context, st store.Store) (snapshot, error) {
	var s snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.cfg, err = st.LoadConfig(ctx)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		s.entries, err = st.LoadEntries(ctx)
		if err != nil {
			return fmt.Errorf("load entries: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		s.deposits, err = st.LoadDeposits(ctx)
		if err != nil {
			return fmt.Errorf("load deposits: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		s.schedule, err = st.LoadSchedule(ctx)
		if err != nil {
			return fmt.Errorf("load schedule: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return s, nil
}

func (t *Tracker) apply(s snapshot) {
	t.cfg = s.cfg
	t.ledger.ReplaceEntries(s.entries)
	t.ledger.ReplaceDeposits(s.deposits)
	if s.schedule != nil {
		t.schedule = *s.schedule
	} else {
		t.schedule = core.DefaultDCAConfig()
	}
}

// Hydrate loads the local cache into memory, then, when a user is signed in,
// replaces it with the remote state and refreshes the cache.
//
// A remote without any record for the user leaves the local state in place.
// The returned error reports a failed load; the tracker keeps whatever state
// it had before the failing step.
func (t *Tracker) Hydrate(ctx context.Context) error {
	if t.local != nil {
		local, err := loadSnapshot(ctx, t.local)
		if err != nil {
			logger(ctx).ErrorContext(ctx, "Failed to load local cache",
				log.FieldOperation, log.OpHydrate,
				log.FieldError, err)
			return fmt.Errorf("hydrate from local cache: %w", err)
		}
		t.mu.Lock()
		t.apply(local)
		t.mu.Unlock()
	}

	userID := t.UserID()
	if userID == "" || t.remote == nil {
		return nil
	}

	remote, err := loadSnapshot(ctx, t.remote.ForUser(userID))
	if err != nil {
		logger(ctx).WarnContext(ctx, "Failed to load remote state, keeping local state",
			log.FieldOperation, log.OpHydrate,
			log.FieldUserID, userID,
			log.FieldError, err)
		return fmt.Errorf("hydrate from remote: %w", err)
	}
	if remote.isEmpty() {
		logger(ctx).InfoContext(ctx, "Remote has no data for user, keeping local state",
			log.FieldOperation, log.OpHydrate,
			log.FieldUserID, userID)
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.apply(remote)
	t.refreshLocal(ctx, remote)

	logger(ctx).InfoContext(ctx, "Hydrated from remote",
		log.FieldOperation, log.OpHydrate,
		log.FieldUserID, userID,
		"entries", len(remote.entries),
		"deposits", len(remote.deposits))
	return nil
}

func (t *Tracker) refreshLocal(ctx context.Context, s snapshot) {
	t.persist(ctx, "refresh_config", func(local store.Cache) error {
		if s.cfg == nil {
			return local.DeleteConfig(ctx)
		}
		return local.SaveConfig(ctx, *s.cfg)
	})
	t.persist(ctx, "refresh_entries", func(local store.Cache) error {
		return local.ReplaceEntries(ctx, s.entries)
	})
	t.persist(ctx, "refresh_deposits", func(local store.Cache) error {
		return local.ReplaceDeposits(ctx, s.deposits)
	})
	if s.schedule != nil {
		t.persist(ctx, "refresh_schedule", func(local store.Cache) error {
			return local.SaveSchedule(ctx, *s.schedule)
		})
	}
}

// Close stops the replicator when it has a lifecycle.
func (t *Tracker) Close(ctx context.Context) error {
	if r, ok := t.replicator.(interface{ Stop(context.Context) error }); ok {
		if err := r.Stop(ctx); err != nil {
			return fmt.Errorf("stop replicator: %w", err)
		}
	}
	return nil
}

func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentTracker)
}
