package schedule

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peatracker/internal/core"
)

func enabled(day1, day2 int, adjust core.WeekendAdjustment) core.DCAConfig {
	return core.DCAConfig{
		Enabled:           true,
		Amount:            decimal.NewFromInt(500),
		DayOfMonth1:       day1,
		DayOfMonth2:       day2,
		WeekendAdjustment: adjust,
	}
}

func TestDatesForMonth(t *testing.T) {
	tests := []struct {
		name  string
		cfg   core.DCAConfig
		year  int
		month int
		want  []string
	}{
		{
			name:  "disabled schedule has no dates",
			cfg:   core.DefaultDCAConfig(),
			year:  2024,
			month: 6,
			want:  nil,
		},
		{
			name:  "day 31 clamps to 30 in a 30-day month",
			cfg:   enabled(31, 0, core.AdjustNone),
			year:  2024,
			month: 4,
			want:  []string{"2024-04-30"},
		},
		{
			name:  "day 31 clamps to 29 in leap february",
			cfg:   enabled(31, 0, core.AdjustNone),
			year:  2024,
			month: 2,
			want:  []string{"2024-02-29"},
		},
		{
			name:  "after policy shifts saturday by two days",
			cfg:   enabled(1, 15, core.AdjustAfter),
			year:  2024,
			month: 6,
			want:  []string{"2024-06-03", "2024-06-17"},
		},
		{
			name:  "after policy shifts sunday by one day",
			cfg:   enabled(1, 0, core.AdjustAfter),
			year:  2024,
			month: 9,
			want:  []string{"2024-09-02"},
		},
		{
			name:  "before policy moves weekend to friday",
			cfg:   enabled(1, 0, core.AdjustBefore),
			year:  2024,
			month: 9,
			want:  []string{"2024-08-30"},
		},
		{
			name:  "none policy keeps weekend dates",
			cfg:   enabled(1, 15, core.AdjustNone),
			year:  2024,
			month: 6,
			want:  []string{"2024-06-01", "2024-06-15"},
		},
		{
			name:  "emission order is day 1 then day 2",
			cfg:   enabled(31, 1, core.AdjustNone),
			year:  2024,
			month: 3,
			want:  []string{"2024-03-31", "2024-03-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.cfg).DatesForMonth(tt.year, tt.month)
			var gotStr []string
			for _, d := range got {
				gotStr = append(gotStr, d.String())
			}
			assert.Equal(t, tt.want, gotStr)
		})
	}
}

func TestAmountForDate(t *testing.T) {
	g := New(enabled(1, 15, core.AdjustAfter))

	assert.True(t, g.AmountForDate(core.NewDate(2024, 6, 3)).Equal(decimal.NewFromInt(500)))
	assert.True(t, g.AmountForDate(core.NewDate(2024, 6, 1)).IsZero(), "weekend date was moved")
	assert.True(t, g.AmountForDate(core.NewDate(2024, 6, 10)).IsZero())

	disabled := New(core.DefaultDCAConfig())
	assert.False(t, disabled.IsScheduled(core.NewDate(2024, 1, 1)))
	assert.True(t, disabled.AmountForDate(core.NewDate(2024, 1, 1)).IsZero())
}

func TestDatesBetween(t *testing.T) {
	g := New(enabled(1, 15, core.AdjustAfter))

	got := g.DatesBetween(core.NewDate(2024, 5, 10), core.NewDate(2024, 6, 30))
	require.Len(t, got, 3)
	assert.Equal(t, "2024-05-15", got[0].String())
	assert.Equal(t, "2024-06-03", got[1].String())
	assert.Equal(t, "2024-06-17", got[2].String())

	assert.True(t, g.PlannedTotal(core.NewDate(2024, 5, 10), core.NewDate(2024, 6, 30)).Equal(decimal.NewFromInt(1500)))
	assert.Empty(t, g.DatesBetween(core.NewDate(2024, 6, 30), core.NewDate(2024, 6, 1)))
}

func TestDatesBetweenKeepsSpilledDates(t *testing.T) {
	// 2024-09-01 is a Sunday: with "before" it belongs to August 30.
	g := New(enabled(1, 0, core.AdjustBefore))

	got := g.DatesBetween(core.NewDate(2024, 8, 20), core.NewDate(2024, 8, 31))
	require.Len(t, got, 1)
	assert.Equal(t, "2024-08-30", got[0].String())
}

func TestGetAdjuster(t *testing.T) {
	_, err := GetAdjuster("sideways")
	assert.ErrorIs(t, err, core.ErrInvalidAdjustment)

	a, err := GetAdjuster(core.AdjustAfter)
	require.NoError(t, err)
	assert.Equal(t, "2024-11-04", a.Adjust(core.NewDate(2024, 11, 2)).String())
}
