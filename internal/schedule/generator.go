package schedule

import (
	"github.com/shopspring/decimal"

	"peatracker/internal/core"
)

// Generator computes planned contribution dates from a DCA configuration.
// It never creates deposits.
type Generator struct {
	cfg      core.DCAConfig
	adjuster Adjuster
}

// New returns a generator for cfg. An unknown weekend policy behaves like none.
func New(cfg core.DCAConfig) *Generator {
	a, err := GetAdjuster(cfg.WeekendAdjustment)
	if err != nil {
		a = NoAdjuster{}
	}
	return &Generator{cfg: cfg, adjuster: a}
}

// Config returns the configuration the generator was built from.
func (g *Generator) Config() core.DCAConfig {
	return g.cfg
}

// DatesForMonth returns the planned dates of the given month.
//
// Day 1 is always emitted before day 2, even when weekend adjustment makes
// day 2 fall earlier. An adjusted date may land in a neighbouring month.
func (g *Generator) DatesForMonth(year, month int) []core.Date {
	if !g.cfg.Enabled {
		return nil
	}
	dates := []core.Date{g.dateFor(year, month, g.cfg.DayOfMonth1)}
	if g.cfg.HasSecondDay() {
		dates = append(dates, g.dateFor(year, month, g.cfg.DayOfMonth2))
	}
	return dates
}

func (g *Generator) dateFor(year, month, day int) core.Date {
	last := core.DaysInMonth(year, month)
	if day > last {
		day = last
	}
	return g.adjuster.Adjust(core.NewDate(year, month, day))
}

// IsScheduled reports whether d is one of the planned dates of d's month.
func (g *Generator) IsScheduled(d core.Date) bool {
	for _, planned := range g.DatesForMonth(d.Year(), d.Month()) {
		if planned.Equal(d) {
			return true
		}
	}
	return false
}

// AmountForDate returns the planned amount for d, or zero when nothing is
// planned that day.
func (g *Generator) AmountForDate(d core.Date) decimal.Decimal {
	if g.IsScheduled(d) {
		return g.cfg.Amount
	}
	return decimal.Zero
}

// DatesBetween lists the planned dates inside [start, end], month by month,
// keeping the per-month emission order. Neighbouring months are generated too
// so dates adjusted across a month boundary are not lost.
func (g *Generator) DatesBetween(start, end core.Date) []core.Date {
	if !g.cfg.Enabled || end.Before(start) {
		return nil
	}
	var out []core.Date
	cursor := core.StartOfMonth(start).AddDays(-1)
	cursor = core.StartOfMonth(cursor)
	last := core.EndOfMonth(end).AddDays(1)
	for !cursor.After(last) {
		for _, d := range g.DatesForMonth(cursor.Year(), cursor.Month()) {
			if !d.Before(start) && !d.After(end) {
				out = append(out, d)
			}
		}
		cursor = core.NewDate(cursor.Year(), cursor.Month()+1, 1)
	}
	return out
}

// PlannedTotal sums the planned amounts inside [start, end].
func (g *Generator) PlannedTotal(start, end core.Date) decimal.Decimal {
	n := len(g.DatesBetween(start, end))
	return g.cfg.Amount.Mul(decimal.NewFromInt(int64(n)))
}
