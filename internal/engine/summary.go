package engine

import (
	"github.com/shopspring/decimal"

	"peatracker/internal/core"
)

// Summary bundles the dashboard aggregates evaluated against one day.
type Summary struct {
	Date             core.Date            `json:"date"`
	Configured       bool                 `json:"configured"`
	Today            *core.DayPerformance `json:"today"`
	TodayGain        decimal.Decimal      `json:"todayGain"`
	WeekGain         decimal.Decimal      `json:"weekGain"`
	LastWeekGain     decimal.Decimal      `json:"lastWeekGain"`
	MonthGain        decimal.Decimal      `json:"monthGain"`
	LastMonthGain    decimal.Decimal      `json:"lastMonthGain"`
	YearGain         decimal.Decimal      `json:"yearGain"`
	TotalGain        decimal.Decimal      `json:"totalGain"`
	CurrentCapital   decimal.Decimal      `json:"currentCapital"`
	TotalDeposited   decimal.Decimal      `json:"totalDeposited"`
	TotalPerformance decimal.Decimal      `json:"totalPerformance"`
	LatestEntry      *core.Entry          `json:"latestEntry"`
}

func (e *Engine) Summary(today core.Date) Summary {
	s := Summary{
		Date:             today,
		Configured:       e.IsConfigured(),
		TodayGain:        e.TodayGain(today),
		WeekGain:         e.WeekGain(today),
		LastWeekGain:     e.LastWeekGain(today),
		MonthGain:        e.MonthGain(today),
		LastMonthGain:    e.LastMonthGain(today),
		YearGain:         e.YearGain(today),
		TotalGain:        e.TotalGain(),
		CurrentCapital:   e.CurrentCapital(),
		TotalDeposited:   e.TotalDeposited(),
		TotalPerformance: e.TotalPerformance(),
	}
	if p, ok := e.Today(today); ok {
		s.Today = &p
	}
	if latest, ok := e.LatestEntry(); ok {
		s.LatestEntry = &latest
	}
	return s
}

// Stats aggregates the performance of every entry. Best and worst days keep
// the first occurrence on ties.
func (e *Engine) Stats() core.Stats {
	var perfs []core.DayPerformance
	for _, entry := range e.ledger.Entries() {
		if p, ok := e.DayPerformance(entry.Date); ok {
			perfs = append(perfs, p)
		}
	}

	stats := core.Stats{AveragePerformance: decimal.Zero}
	if len(perfs) == 0 {
		return stats
	}

	best, worst := perfs[0], perfs[0]
	total := decimal.Zero
	for _, p := range perfs {
		if p.GainPercent.GreaterThan(best.GainPercent) {
			best = p
		}
		if p.GainPercent.LessThan(worst.GainPercent) {
			worst = p
		}
		switch p.GainPercent.Sign() {
		case 1:
			stats.PositiveDays++
		case -1:
			stats.NegativeDays++
		}
		total = total.Add(p.GainPercent)
	}

	stats.BestDay = &best
	stats.WorstDay = &worst
	stats.AveragePerformance = total.Div(decimal.NewFromInt(int64(len(perfs))))
	return stats
}

// Ceiling describes how much room is left under a deposit ceiling.
type Ceiling struct {
	Limit     decimal.Decimal `json:"limit"`
	Deposited decimal.Decimal `json:"deposited"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   decimal.Decimal `json:"percent"`
}

// Ceiling compares the ledger deposits with limit. Only threshold arithmetic
// is done; exceeding the limit is not an error.
func (e *Engine) Ceiling(limit decimal.Decimal) Ceiling {
	deposited := e.ledger.TotalDeposited()
	c := Ceiling{
		Limit:     limit,
		Deposited: deposited,
		Remaining: decimal.Max(decimal.Zero, limit.Sub(deposited)),
		Percent:   decimal.Zero,
	}
	if limit.IsPositive() {
		c.Percent = decimal.Min(hundred, deposited.Div(limit).Mul(hundred))
	}
	return c
}
