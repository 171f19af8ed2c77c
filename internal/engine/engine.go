// Package engine computes gains and performance from a ledger view and the
// account configuration.
//
// Every function is a pure computation over the data it is given. Missing
// data is never an error: it yields a zero amount or an absent result.
package engine

import (
	"github.com/shopspring/decimal"

	"peatracker/internal/core"
)

var hundred = decimal.NewFromInt(100)

// LedgerView is the read side of the ledger the engine needs.
type LedgerView interface {
	Entry(date core.Date) (core.Entry, bool)
	PreviousEntry(date core.Date) (core.Entry, bool)
	Entries() []core.Entry
	EntriesBetween(start, end core.Date) []core.Entry
	LatestEntry() (core.Entry, bool)
	DepositsInRange(start, end core.Date) decimal.Decimal
	TotalDeposited() decimal.Decimal
}

// Engine evaluates queries against one snapshot of ledger and configuration.
// A nil configuration means the account is unconfigured.
type Engine struct {
	ledger LedgerView
	cfg    *core.AccountConfig
}

func New(l LedgerView, cfg *core.AccountConfig) *Engine {
	return &Engine{ledger: l, cfg: cfg}
}

// IsConfigured reports whether an account configuration is set.
func (e *Engine) IsConfigured() bool {
	return e.cfg != nil
}

// ReferenceCapital returns the capital a gain on date is measured from: the
// closest earlier entry, else the starting capital when date is on or after
// the start date, else zero.
func (e *Engine) ReferenceCapital(date core.Date) decimal.Decimal {
	if prev, ok := e.ledger.PreviousEntry(date); ok {
		return prev.Capital
	}
	if e.cfg != nil && !date.Before(e.cfg.StartDate) {
		return e.cfg.StartCapital
	}
	return decimal.Zero
}

// referenceDate is the day the reference capital was observed.
func (e *Engine) referenceDate(date core.Date) core.Date {
	if prev, ok := e.ledger.PreviousEntry(date); ok {
		return prev.Date
	}
	if e.cfg != nil {
		return e.cfg.StartDate
	}
	return date
}

// DayPerformance returns the performance of the entry recorded on date.
//
// Deposits are counted over (reference date, date]: a deposit made on the
// reference date is already part of the reference capital.
func (e *Engine) DayPerformance(date core.Date) (core.DayPerformance, bool) {
	entry, ok := e.ledger.Entry(date)
	if !ok {
		return core.DayPerformance{}, false
	}

	previous := e.ReferenceCapital(date)
	deposits := e.ledger.DepositsInRange(e.referenceDate(date).AddDays(1), date)
	base := previous.Add(deposits)
	gain := entry.Capital.Sub(base)

	percent := decimal.Zero
	if base.IsPositive() {
		percent = gain.Div(base).Mul(hundred)
	}

	return core.DayPerformance{
		Date:            date,
		Capital:         entry.Capital,
		PreviousCapital: previous,
		DepositsOfDay:   deposits,
		GainAmount:      gain,
		GainPercent:     percent,
	}, true
}

// PerformancesInRange returns the day performances of every entry in
// [start, end], ascending by date.
func (e *Engine) PerformancesInRange(start, end core.Date) []core.DayPerformance {
	var out []core.DayPerformance
	for _, entry := range e.ledger.EntriesBetween(start, end) {
		if p, ok := e.DayPerformance(entry.Date); ok {
			out = append(out, p)
		}
	}
	return out
}

// PeriodGain returns the net growth between the reference of the first entry
// in [start, end] and the last entry in it.
//
// Deposits are counted over [start, last entry date]. Unlike DayPerformance
// the window opens on the period boundary, not after the reference date.
func (e *Engine) PeriodGain(start, end core.Date) decimal.Decimal {
	entries := e.ledger.EntriesBetween(start, end)
	if len(entries) == 0 {
		return decimal.Zero
	}
	first := entries[0]
	last := entries[len(entries)-1]

	baseline := e.ReferenceCapital(first.Date)
	deposits := e.ledger.DepositsInRange(start, last.Date)
	return last.Capital.Sub(baseline).Sub(deposits)
}

// Gain returns the gain over a period.
func (e *Engine) Gain(p core.Period) decimal.Decimal {
	return e.PeriodGain(p.Start, p.End)
}

// Today returns the performance of today's entry, if one was recorded.
func (e *Engine) Today(today core.Date) (core.DayPerformance, bool) {
	return e.DayPerformance(today)
}

// TodayGain is the gain amount of today's entry, zero without one.
func (e *Engine) TodayGain(today core.Date) decimal.Decimal {
	if p, ok := e.DayPerformance(today); ok {
		return p.GainAmount
	}
	return decimal.Zero
}

// WeekGain covers the Monday-to-Sunday week containing today.
func (e *Engine) WeekGain(today core.Date) decimal.Decimal {
	return e.Gain(core.WeekOf(today))
}

func (e *Engine) LastWeekGain(today core.Date) decimal.Decimal {
	return e.Gain(core.PreviousWeek(today))
}

func (e *Engine) MonthGain(today core.Date) decimal.Decimal {
	return e.Gain(core.MonthOf(today))
}

func (e *Engine) LastMonthGain(today core.Date) decimal.Decimal {
	return e.Gain(core.PreviousMonth(today))
}

func (e *Engine) YearGain(today core.Date) decimal.Decimal {
	return e.Gain(core.YearOf(today))
}

// LatestEntry returns the most recent entry.
func (e *Engine) LatestEntry() (core.Entry, bool) {
	return e.ledger.LatestEntry()
}

// CurrentCapital is the latest entry's capital, else the starting capital,
// else zero.
func (e *Engine) CurrentCapital() decimal.Decimal {
	if latest, ok := e.ledger.LatestEntry(); ok {
		return latest.Capital
	}
	if e.cfg != nil {
		return e.cfg.StartCapital
	}
	return decimal.Zero
}

// TotalDeposited adds the amount deposited before tracking to the ledger total.
func (e *Engine) TotalDeposited() decimal.Decimal {
	total := e.ledger.TotalDeposited()
	if e.cfg != nil {
		total = total.Add(e.cfg.StartDeposited)
	}
	return total
}

// TotalGain is the all-time gain: current capital minus everything deposited.
// It is zero for an unconfigured account without entries.
func (e *Engine) TotalGain() decimal.Decimal {
	if e.cfg == nil && len(e.ledger.Entries()) == 0 {
		return decimal.Zero
	}
	return e.CurrentCapital().Sub(e.TotalDeposited())
}

// TotalPerformance is the all-time gain as a percentage of what was deposited,
// zero when nothing was deposited.
func (e *Engine) TotalPerformance() decimal.Decimal {
	return Performance(e.TotalDeposited(), e.CurrentCapital())
}

// Performance returns (current - deposited) / deposited * 100, or zero when
// deposited is zero.
func Performance(deposited, current decimal.Decimal) decimal.Decimal {
	if deposited.IsZero() {
		return decimal.Zero
	}
	return current.Sub(deposited).Div(deposited).Mul(hundred)
}
