package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peatracker/internal/amqp"
	"peatracker/internal/core"
	"peatracker/internal/log"
	"peatracker/internal/store"
	"peatracker/internal/store/memory"
)

func date(s string) core.Date { return core.MustParseDate(s) }

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestWorker() (*SyncWorker, *memory.Store, *memory.Remote) {
	local := memory.New()
	remote := memory.NewRemote()
	return NewSyncWorker(local, remote), local, remote
}

func TestHandleReplication_UpsertReadsLocalRecord(t *testing.T) {
	ctx := context.Background()
	w, local, remote := newTestWorker()

	require.NoError(t, local.UpsertEntry(ctx, core.Entry{Date: date("2024-01-15"), Capital: amount(100)}))
	// The cache moved on since the message was published.
	require.NoError(t, local.UpsertEntry(ctx, core.Entry{Date: date("2024-01-15"), Capital: amount(120)}))

	msg := amqp.NewReplicationMessage("user-1", store.CollectionEntries, amqp.OpUpsert, "2024-01-15")
	require.NoError(t, w.HandleReplication(ctx, msg))

	got, err := remote.User("user-1").LoadEntry(ctx, date("2024-01-15"))
	require.NoError(t, err)
	assert.True(t, got.Capital.Equal(amount(120)))
}

func TestHandleReplication_Delete(t *testing.T) {
	ctx := context.Background()
	w, _, remote := newTestWorker()
	user := remote.User("user-1")
	require.NoError(t, user.UpsertDeposit(ctx, core.Deposit{ID: "dep-1", Date: date("2024-01-10"), Amount: amount(500)}))

	msg := amqp.NewReplicationMessage("user-1", store.CollectionDeposits, amqp.OpDelete, "dep-1")
	require.NoError(t, w.HandleReplication(ctx, msg))

	_, err := user.LoadDeposit(ctx, "dep-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHandleReplication_SkipsRecordGoneLocally(t *testing.T) {
	ctx := context.Background()
	w, _, remote := newTestWorker()

	msg := amqp.NewReplicationMessage("user-1", store.CollectionDeposits, amqp.OpUpsert, "gone")
	require.NoError(t, w.HandleReplication(ctx, msg))

	deposits, err := remote.User("user-1").LoadDeposits(ctx)
	require.NoError(t, err)
	assert.Empty(t, deposits)
}

func TestHandleReplication_ConfigAndSchedule(t *testing.T) {
	ctx := context.Background()
	w, local, remote := newTestWorker()

	cfg := core.AccountConfig{StartDate: date("2024-01-01"), StartCapital: amount(1000), StartDeposited: amount(1000)}
	require.NoError(t, local.SaveConfig(ctx, cfg))
	require.NoError(t, local.SaveSchedule(ctx, core.DefaultDCAConfig()))

	require.NoError(t, w.HandleReplication(ctx, amqp.NewReplicationMessage("user-1", store.CollectionConfig, amqp.OpUpsert, "")))
	require.NoError(t, w.HandleReplication(ctx, amqp.NewReplicationMessage("user-1", store.CollectionSchedule, amqp.OpUpsert, "")))

	gotCfg, err := remote.User("user-1").LoadConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, gotCfg)
	assert.Equal(t, date("2024-01-01"), gotCfg.StartDate)

	gotSchedule, err := remote.User("user-1").LoadSchedule(ctx)
	require.NoError(t, err)
	require.NotNil(t, gotSchedule)
	assert.Equal(t, 15, gotSchedule.DayOfMonth2)

	require.NoError(t, w.HandleReplication(ctx, amqp.NewReplicationMessage("user-1", store.CollectionConfig, amqp.OpDelete, "")))
	gotCfg, err = remote.User("user-1").LoadConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, gotCfg)
}

func TestHandleReplication_InvalidMessages(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newTestWorker()

	tests := []struct {
		name string
		msg  *amqp.ReplicationMessage
	}{
		{"missing user", amqp.NewReplicationMessage("", store.CollectionEntries, amqp.OpUpsert, "2024-01-15")},
		{"unknown collection", amqp.NewReplicationMessage("u", "bogus", amqp.OpUpsert, "x")},
		{"unknown operation", amqp.NewReplicationMessage("u", store.CollectionEntries, "merge", "2024-01-15")},
		{"bad entry key", amqp.NewReplicationMessage("u", store.CollectionEntries, amqp.OpUpsert, "15/01/2024")},
		{"bad entry key on delete", amqp.NewReplicationMessage("u", store.CollectionEntries, amqp.OpDelete, "15/01/2024")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.HandleReplication(ctx, tt.msg)
			assert.ErrorIs(t, err, amqp.ErrInvalidMessage)
		})
	}
}

// failingStore fails every remote write.
type failingStore struct {
	*memory.Store
}

var errRemoteDown = errors.New("remote down")

func (failingStore) UpsertEntry(context.Context, core.Entry) error { return errRemoteDown }

type fixedRemote struct{ st store.Store }

func (r fixedRemote) ForUser(string) store.Store { return r.st }

func TestHandleReplication_RemoteErrorIsRetryable(t *testing.T) {
	ctx := context.Background()
	local := memory.New()
	require.NoError(t, local.UpsertEntry(ctx, core.Entry{Date: date("2024-01-15"), Capital: amount(100)}))
	w := NewSyncWorker(local, fixedRemote{failingStore{memory.New()}})

	err := w.HandleReplication(ctx, amqp.NewReplicationMessage("u", store.CollectionEntries, amqp.OpUpsert, "2024-01-15"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errRemoteDown)
	assert.NotErrorIs(t, err, amqp.ErrInvalidMessage)
}

func TestFullResync_PushesLocalWithoutDeleting(t *testing.T) {
	ctx := context.Background()
	w, local, remote := newTestWorker()
	user := remote.User("user-1")

	require.NoError(t, local.SaveConfig(ctx, core.AccountConfig{StartDate: date("2024-01-01")}))
	require.NoError(t, local.UpsertEntry(ctx, core.Entry{Date: date("2024-01-15"), Capital: amount(100)}))
	require.NoError(t, local.UpsertDeposit(ctx, core.Deposit{ID: "local", Date: date("2024-01-10"), Amount: amount(50)}))

	require.NoError(t, user.UpsertEntry(ctx, core.Entry{Date: date("2023-12-31"), Capital: amount(1)}))
	require.NoError(t, user.UpsertDeposit(ctx, core.Deposit{ID: "remote-only", Date: date("2023-12-01"), Amount: amount(1)}))

	require.NoError(t, w.FullResync(ctx, "user-1"))

	entries, err := user.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "remote-only entries are kept")

	deposits, err := user.LoadDeposits(ctx)
	require.NoError(t, err)
	assert.Len(t, deposits, 2, "remote-only deposits are kept")

	cfg, err := user.LoadConfig(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	sched, err := user.LoadSchedule(ctx)
	require.NoError(t, err)
	assert.Nil(t, sched, "no local schedule means nothing to push")
}

func TestFullResync_EmptyLocalKeepsRemote(t *testing.T) {
	ctx := context.Background()
	w, _, remote := newTestWorker()
	user := remote.User("user-1")

	require.NoError(t, user.SaveConfig(ctx, core.AccountConfig{StartDate: date("2024-01-01"), StartCapital: amount(1000)}))
	require.NoError(t, user.UpsertEntry(ctx, core.Entry{Date: date("2024-01-15"), Capital: amount(1100)}))
	require.NoError(t, user.UpsertDeposit(ctx, core.Deposit{ID: "dep-1", Date: date("2024-01-10"), Amount: amount(50)}))

	require.NoError(t, w.FullResync(ctx, "user-1"))

	cfg, err := user.LoadConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "1000", cfg.StartCapital.String())

	entries, err := user.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	deposits, err := user.LoadDeposits(ctx)
	require.NoError(t, err)
	assert.Len(t, deposits, 1)
}

func TestFullResync_WithoutUser(t *testing.T) {
	w, _, _ := newTestWorker()
	assert.NoError(t, w.FullResync(context.Background(), ""))
}

func TestFullResync_PropagatesRemoteErrors(t *testing.T) {
	ctx := context.Background()
	local := memory.New()
	require.NoError(t, local.UpsertEntry(ctx, core.Entry{Date: date("2024-01-15"), Capital: amount(100)}))
	w := NewSyncWorker(local, fixedRemote{failingStore{memory.New()}})

	err := w.FullResync(ctx, "user-1")
	assert.ErrorIs(t, err, errRemoteDown)
}

func TestScheduler_RegisterAll(t *testing.T) {
	w, _, _ := newTestWorker()
	s := NewScheduler(context.Background(), w, "user-1", time.UTC)

	assert.NoError(t, s.RegisterAll("0 0 3 * * *", "0 0 9 * * *"))
	assert.Len(t, s.cron.Entries(), 2)
	assert.NoError(t, s.RegisterAll("", ""))
	assert.Error(t, s.RegisterAll("not a cron", ""))
}

func TestScheduler_DCAReminder(t *testing.T) {
	ctx := context.Background()
	w, local, _ := newTestWorker()
	s := NewScheduler(ctx, w, "user-1", time.UTC)
	// 2024-06-03 is the Monday after the first of June, a Saturday.
	s.now = func() time.Time { return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) }

	r, err := s.DCAReminder(ctx)
	require.NoError(t, err)
	assert.False(t, r.Due(), "no schedule saved")

	cfg := core.DefaultDCAConfig()
	cfg.Enabled = true
	require.NoError(t, local.SaveSchedule(ctx, cfg))

	r, err = s.DCAReminder(ctx)
	require.NoError(t, err)
	assert.Equal(t, date("2024-06-03"), r.Date)
	assert.True(t, r.Planned.Equal(amount(500)))
	assert.True(t, r.Due())

	require.NoError(t, local.UpsertDeposit(ctx, core.Deposit{ID: "a", Date: date("2024-06-03"), Amount: amount(500)}))
	r, err = s.DCAReminder(ctx)
	require.NoError(t, err)
	assert.False(t, r.Due())

	s.now = func() time.Time { return time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC) }
	r, err = s.DCAReminder(ctx)
	require.NoError(t, err)
	assert.True(t, r.Planned.IsZero())
}

func TestScheduler_ReminderTaskLogsDueContribution(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.NewContext(context.Background(), log.New(log.Config{Level: slog.LevelInfo, Output: &buf}))
	w, local, _ := newTestWorker()
	s := NewScheduler(ctx, w, "user-1", time.UTC)
	s.now = func() time.Time { return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) }

	cfg := core.DefaultDCAConfig()
	cfg.Enabled = true
	require.NoError(t, local.SaveSchedule(ctx, cfg))

	s.reminderTask()

	out := buf.String()
	assert.Contains(t, out, "DCA contribution due today")
	assert.Contains(t, out, "component=scheduler")
	assert.Contains(t, out, "date=2024-06-03")
	assert.Contains(t, out, "amount=500.00")
	assert.Contains(t, out, "deposited=0.00")
}
