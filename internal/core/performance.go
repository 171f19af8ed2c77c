package core

import "github.com/shopspring/decimal"

// DayPerformance is derived from an Entry, the ledger and the account
// configuration. It is never persisted.
type DayPerformance struct {
	Date            Date            `json:"date"`
	Capital         decimal.Decimal `json:"capital"`
	PreviousCapital decimal.Decimal `json:"previousCapital"`
	DepositsOfDay   decimal.Decimal `json:"depositsOfDay"`
	GainAmount      decimal.Decimal `json:"gainAmount"`
	GainPercent     decimal.Decimal `json:"gainPercent"`
}

// Stats aggregates the day performances of every entry.
// BestDay and WorstDay are nil when there are no entries.
type Stats struct {
	BestDay            *DayPerformance `json:"bestDay"`
	WorstDay           *DayPerformance `json:"worstDay"`
	PositiveDays       int             `json:"positiveDays"`
	NegativeDays       int             `json:"negativeDays"`
	AveragePerformance decimal.Decimal `json:"averagePerformance"`
}
