//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peatracker/internal/core"
)

func getDSN() string {
	if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
		return dsn
	}
	return "host=localhost port=5432 user=postgres password=postgres dbname=peatracker_test sslmode=disable"
}

func newTestRemote(t *testing.T) (*Remote, string) {
	t.Helper()
	db, err := NewDB(getDSN())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return NewRemote(db), "test-" + uuid.NewString()
}

func TestUserStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	remote, user := newTestRemote(t)
	s := remote.ForUser(user)

	cfg := core.AccountConfig{StartDate: core.NewDate(2024, 1, 1), StartCapital: decimal.NewFromInt(10000)}
	require.NoError(t, s.SaveConfig(ctx, cfg))
	got, err := s.LoadConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.StartDate.Equal(cfg.StartDate))

	require.NoError(t, s.UpsertEntry(ctx, core.Entry{Date: core.NewDate(2024, 1, 10), Capital: decimal.NewFromInt(10500)}))
	entries, err := s.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-01-10", entries[0].Date.String())

	dep := core.Deposit{ID: uuid.NewString(), Date: core.NewDate(2024, 1, 5), Amount: decimal.NewFromInt(1000)}
	require.NoError(t, s.UpsertDeposit(ctx, dep))
	deposits, err := s.LoadDeposits(ctx)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, dep.ID, deposits[0].ID)

	dca := core.DefaultDCAConfig()
	dca.DayOfMonth2 = 0
	require.NoError(t, s.SaveSchedule(ctx, dca))
	gotDCA, err := s.LoadSchedule(ctx)
	require.NoError(t, err)
	require.NotNil(t, gotDCA)
	assert.False(t, gotDCA.HasSecondDay())

	other, err := remote.ForUser("someone-else").LoadEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.DeleteDeposit(ctx, dep.ID))
	require.NoError(t, s.DeleteEntry(ctx, core.NewDate(2024, 1, 10)))
	require.NoError(t, s.DeleteConfig(ctx))
}

func TestUserStoreKeepsSubCentAmounts(t *testing.T) {
	ctx := context.Background()
	remote, user := newTestRemote(t)
	s := remote.ForUser(user)
	t.Cleanup(func() {
		s.DeleteConfig(ctx)
		s.DeleteEntry(ctx, core.NewDate(2024, 3, 1))
	})

	capital := decimal.RequireFromString("10234.5678")
	require.NoError(t, s.SaveConfig(ctx, core.AccountConfig{StartDate: core.NewDate(2024, 1, 1), StartCapital: capital, StartDeposited: decimal.RequireFromString("0.005")}))
	got, err := s.LoadConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, capital.Equal(got.StartCapital), "got %s", got.StartCapital)
	assert.Equal(t, "0.005", got.StartDeposited.String())

	require.NoError(t, s.UpsertEntry(ctx, core.Entry{Date: core.NewDate(2024, 3, 1), Capital: decimal.RequireFromString("10500.333")}))
	entries, err := s.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "10500.333", entries[0].Capital.String())
}
