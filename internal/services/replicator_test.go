package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"peatracker/internal/amqp"
	"peatracker/internal/core"
	"peatracker/internal/store"
	"peatracker/internal/store/memory"
)

func TestDirectReplicator_AppliesChangesInOrder(t *testing.T) {
	ctx := context.Background()
	remote := memory.NewRemote()
	repl := NewDirectReplicator(remote, DefaultDirectReplicatorConfig())
	require.NoError(t, repl.Start(ctx))

	tr := NewTracker(memory.New(), remote, repl, TrackerConfig{UserID: "user-1"})
	require.NoError(t, tr.AddEntry(ctx, core.Entry{Date: d("2024-01-15"), Capital: dec(100)}))
	require.NoError(t, tr.AddEntry(ctx, core.Entry{Date: d("2024-01-16"), Capital: dec(110)}))
	assert.True(t, tr.DeleteEntry(ctx, d("2024-01-15")))
	dep, err := tr.AddDeposit(ctx, d("2024-01-16"), dec(10), "")
	require.NoError(t, err)

	require.NoError(t, tr.Close(ctx))
	assert.False(t, repl.IsRunning())

	entries, err := remote.User("user-1").LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, d("2024-01-16"), entries[0].Date)

	got, err := remote.User("user-1").LoadDeposit(ctx, dep.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec(10)))
}

func TestDirectReplicator_RemoteFailureDoesNotAffectTracker(t *testing.T) {
	ctx := context.Background()
	remote := new(MockStore)
	remote.On("UpsertEntry", mock.Anything, mock.Anything).Return(errBoom)

	repl := NewDirectReplicator(singleRemote{remote}, DirectReplicatorConfig{QueueSize: 4, Timeout: time.Second})
	require.NoError(t, repl.Start(ctx))

	local := memory.New()
	tr := NewTracker(local, nil, repl, TrackerConfig{UserID: "user-1"})
	require.NoError(t, tr.AddEntry(ctx, core.Entry{Date: d("2024-01-15"), Capital: dec(100)}))

	require.NoError(t, repl.Stop(ctx))
	remote.AssertNumberOfCalls(t, "UpsertEntry", 1)

	assert.Len(t, tr.Entries(), 1)
	_, err := local.LoadEntry(ctx, d("2024-01-15"))
	assert.NoError(t, err)
}

func TestDirectReplicator_SignedOutSkipsRemote(t *testing.T) {
	ctx := context.Background()
	remote := new(MockStore)
	repl := NewDirectReplicator(singleRemote{remote}, DefaultDirectReplicatorConfig())
	require.NoError(t, repl.Start(ctx))

	tr := NewTracker(memory.New(), nil, repl, DefaultTrackerConfig())
	require.NoError(t, tr.AddEntry(ctx, core.Entry{Date: d("2024-01-15"), Capital: dec(100)}))

	require.NoError(t, repl.Stop(ctx))
	remote.AssertNotCalled(t, "UpsertEntry", mock.Anything, mock.Anything)
}

func TestDirectReplicator_DropsWhenQueueFull(t *testing.T) {
	ctx := context.Background()
	remote := memory.NewRemote()
	repl := NewDirectReplicator(remote, DirectReplicatorConfig{QueueSize: 1, Timeout: time.Second})

	// Not started: the first change fills the queue.
	repl.Replicate(ctx, "user-1", entryChange(core.Entry{Date: d("2024-01-15"), Capital: dec(1)}))
	repl.Replicate(ctx, "user-1", entryChange(core.Entry{Date: d("2024-01-16"), Capital: dec(2)}))

	require.NoError(t, repl.Start(ctx))
	require.NoError(t, repl.Stop(ctx))

	entries, err := remote.User("user-1").LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, d("2024-01-15"), entries[0].Date)
}

func TestDirectReplicator_StartTwice(t *testing.T) {
	ctx := context.Background()
	repl := NewDirectReplicator(memory.NewRemote(), DefaultDirectReplicatorConfig())

	require.NoError(t, repl.Start(ctx))
	assert.Error(t, repl.Start(ctx))
	require.NoError(t, repl.Stop(ctx))
	assert.NoError(t, repl.Stop(ctx), "stopping a stopped replicator is a no-op")
}

func TestAMQPReplicator_Publishes(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	pub.On("PublishReplication", mock.Anything, mock.MatchedBy(func(msg *amqp.ReplicationMessage) bool {
		return msg.UserID == "user-1" &&
			msg.Collection == store.CollectionDeposits &&
			msg.Operation == amqp.OpDelete &&
			msg.Key == "dep-1"
	})).Return(nil).Once()

	NewAMQPReplicator(pub).Replicate(ctx, "user-1", depositDelete("dep-1"))

	pub.AssertExpectations(t)
}

func TestAMQPReplicator_SwallowsErrors(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	pub.On("PublishReplication", mock.Anything, mock.Anything).Return(errBoom)

	local := memory.New()
	tr := NewTracker(local, nil, NewAMQPReplicator(pub), TrackerConfig{UserID: "user-1"})
	require.NoError(t, tr.SetConfig(ctx, core.AccountConfig{StartDate: d("2024-01-01")}))

	cfg, err := local.LoadConfig(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	pub.AssertNumberOfCalls(t, "PublishReplication", 1)
}

func TestAMQPReplicator_SignedOut(t *testing.T) {
	pub := new(MockPublisher)
	NewAMQPReplicator(pub).Replicate(context.Background(), "", entryDelete(d("2024-01-01")))
	pub.AssertNotCalled(t, "PublishReplication", mock.Anything, mock.Anything)
}

func TestApplyChange(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	require.NoError(t, ApplyChange(ctx, st, entryChange(core.Entry{Date: d("2024-01-15"), Capital: dec(100)})))
	require.NoError(t, ApplyChange(ctx, st, scheduleChange(core.DefaultDCAConfig())))
	require.NoError(t, ApplyChange(ctx, st, configChange(&core.AccountConfig{StartDate: d("2024-01-01")})))
	require.NoError(t, ApplyChange(ctx, st, configChange(nil)))

	cfg, err := st.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	tests := []struct {
		name   string
		change Change
	}{
		{"unknown collection", Change{Collection: "bogus", Operation: amqp.OpUpsert}},
		{"entry upsert without record", Change{Collection: store.CollectionEntries, Operation: amqp.OpUpsert, Key: "2024-01-15"}},
		{"entry delete with bad key", Change{Collection: store.CollectionEntries, Operation: amqp.OpDelete, Key: "15/01/2024"}},
		{"deposit delete without id", Change{Collection: store.CollectionDeposits, Operation: amqp.OpDelete}},
		{"schedule delete", Change{Collection: store.CollectionSchedule, Operation: amqp.OpDelete}},
		{"config upsert without record", Change{Collection: store.CollectionConfig, Operation: amqp.OpUpsert}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ApplyChange(ctx, st, tt.change), ErrInvalidChange)
		})
	}
}
