package services

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"peatracker/internal/amqp"
	"peatracker/internal/core"
	"peatracker/internal/store"
	"peatracker/internal/store/memory"
)

// MockStore is a mock implementation of store.Store for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) LoadConfig(ctx context.Context) (*core.AccountConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.AccountConfig), args.Error(1)
}

func (m *MockStore) SaveConfig(ctx context.Context, cfg core.AccountConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *MockStore) DeleteConfig(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) LoadEntries(ctx context.Context) ([]core.Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.Entry), args.Error(1)
}

func (m *MockStore) UpsertEntry(ctx context.Context, e core.Entry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockStore) DeleteEntry(ctx context.Context, date core.Date) error {
	return m.Called(ctx, date).Error(0)
}

func (m *MockStore) LoadDeposits(ctx context.Context) ([]core.Deposit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]core.Deposit), args.Error(1)
}

func (m *MockStore) UpsertDeposit(ctx context.Context, d core.Deposit) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockStore) DeleteDeposit(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) LoadSchedule(ctx context.Context) (*core.DCAConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.DCAConfig), args.Error(1)
}

func (m *MockStore) SaveSchedule(ctx context.Context, cfg core.DCAConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

// singleRemote hands out the same store for every user.
type singleRemote struct {
	st store.Store
}

func (r singleRemote) ForUser(string) store.Store { return r.st }

// MockPublisher is a mock implementation of Publisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishReplication(ctx context.Context, msg *amqp.ReplicationMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type replicated struct {
	userID string
	change Change
}

// recordingReplicator keeps every change it is handed.
type recordingReplicator struct {
	mu      sync.Mutex
	changes []replicated
}

func (r *recordingReplicator) Replicate(_ context.Context, userID string, c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, replicated{userID: userID, change: c})
}

func (r *recordingReplicator) all() []replicated {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]replicated(nil), r.changes...)
}

var errBoom = errors.New("boom")

// brokenCache fails every write.
type brokenCache struct {
	*memory.Store
}

func (brokenCache) SaveConfig(context.Context, core.AccountConfig) error {
	return errBoom
}

func (brokenCache) UpsertEntry(context.Context, core.Entry) error {
	return errBoom
}

func (brokenCache) UpsertDeposit(context.Context, core.Deposit) error {
	return errBoom
}

func (brokenCache) SaveSchedule(context.Context, core.DCAConfig) error {
	return errBoom
}

