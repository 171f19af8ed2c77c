// Package schedule generates the planned DCA contribution dates.
//
// Weekend handling follows a strategy pattern: each WeekendAdjustment policy
// has its own Adjuster, looked up from a registry.
package schedule

import (
	"fmt"
	"time"

	"peatracker/internal/core"
)

// Adjuster moves a planned date according to a weekend policy.
type Adjuster interface {
	Adjust(d core.Date) core.Date
}

// BeforeAdjuster moves weekend dates to the preceding Friday.
type BeforeAdjuster struct{}

func (BeforeAdjuster) Adjust(d core.Date) core.Date {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(-1)
	case time.Sunday:
		return d.AddDays(-2)
	}
	return d
}

// AfterAdjuster moves weekend dates to the following Monday.
type AfterAdjuster struct{}

func (AfterAdjuster) Adjust(d core.Date) core.Date {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(2)
	case time.Sunday:
		return d.AddDays(1)
	}
	return d
}

// NoAdjuster keeps dates unchanged.
type NoAdjuster struct{}

func (NoAdjuster) Adjust(d core.Date) core.Date { return d }

var adjusters = map[core.WeekendAdjustment]Adjuster{
	core.AdjustBefore: BeforeAdjuster{},
	core.AdjustAfter:  AfterAdjuster{},
	core.AdjustNone:   NoAdjuster{},
}

// GetAdjuster returns the adjuster for a policy.
func GetAdjuster(policy core.WeekendAdjustment) (Adjuster, error) {
	a, ok := adjusters[policy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidAdjustment, policy)
	}
	return a, nil
}
