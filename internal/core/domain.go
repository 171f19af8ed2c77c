package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	AdjustBefore WeekendAdjustment = "before"
	AdjustAfter  WeekendAdjustment = "after"
	AdjustNone   WeekendAdjustment = "none"
)

// DefaultDepositCeiling is the PEA contribution ceiling.
const DefaultDepositCeiling = 150000

const maxNoteLength = 500

type (
	// WeekendAdjustment tells where a planned date falling on a weekend moves.
	WeekendAdjustment string

	// AccountConfig is the account state immediately before tracking began.
	// It is replaced wholesale, never patched.
	AccountConfig struct {
		StartDate      Date            `json:"startDate" yaml:"start_date"`
		StartCapital   decimal.Decimal `json:"startCapital" yaml:"start_capital"`
		StartDeposited decimal.Decimal `json:"startDeposited" yaml:"start_deposited"`
	}

	// Deposit is a cash contribution. Deposits are never updated in place.
	Deposit struct {
		ID     string          `json:"id"`
		Date   Date            `json:"date"`
		Amount decimal.Decimal `json:"amount"`
		Note   string          `json:"note,omitempty"`
	}

	// Entry is an observed account value for one day. Entries are keyed by date.
	Entry struct {
		Date    Date            `json:"date"`
		Capital decimal.Decimal `json:"capital"`
		Note    string          `json:"note,omitempty"`
	}

	// DCAConfig describes the expected recurring contribution.
	// DayOfMonth2 is zero when only one day is planned.
	DCAConfig struct {
		Enabled           bool              `json:"enabled" yaml:"enabled"`
		Amount            decimal.Decimal   `json:"amount" yaml:"amount"`
		DayOfMonth1       int               `json:"dayOfMonth1" yaml:"day_of_month_1"`
		DayOfMonth2       int               `json:"dayOfMonth2,omitempty" yaml:"day_of_month_2"`
		WeekendAdjustment WeekendAdjustment `json:"adjustWeekend" yaml:"adjust_weekend"`
	}

	// DCAPatch is a partial update of DCAConfig; nil fields are left unchanged.
	DCAPatch struct {
		Enabled           *bool              `json:"enabled,omitempty"`
		Amount            *decimal.Decimal   `json:"amount,omitempty"`
		DayOfMonth1       *int               `json:"dayOfMonth1,omitempty"`
		DayOfMonth2       *int               `json:"dayOfMonth2,omitempty"`
		WeekendAdjustment *WeekendAdjustment `json:"adjustWeekend,omitempty"`
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidDay        = errors.New("invalid day of month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidAdjustment = errors.New("invalid weekend adjustment")
	ErrNoteTooLong       = fmt.Errorf("note too long (max %d characters)", maxNoteLength)
)

// IsValid returns true if the adjustment is one of before, after or none.
func (w WeekendAdjustment) IsValid() bool {
	switch w {
	case AdjustBefore, AdjustAfter, AdjustNone:
		return true
	default:
		return false
	}
}

// ParseWeekendAdjustment normalizes user input.
func ParseWeekendAdjustment(s string) (WeekendAdjustment, error) {
	w := WeekendAdjustment(strings.ToLower(strings.TrimSpace(s)))
	if !w.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAdjustment, s)
	}
	return w, nil
}

func (c AccountConfig) Validate() error {
	if c.StartDate.IsZero() {
		return fmt.Errorf("start date: %w", ErrInvalidDate)
	}
	return nil
}

func (d Deposit) Validate() error {
	if d.Date.IsZero() {
		return fmt.Errorf("deposit date: %w", ErrInvalidDate)
	}
	return validateNote(d.Note)
}

func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("entry date: %w", ErrInvalidDate)
	}
	return validateNote(e.Note)
}

func validateNote(note string) error {
	if len(note) > maxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// DefaultDCAConfig returns the schedule used before the user configures one.
func DefaultDCAConfig() DCAConfig {
	return DCAConfig{
		Enabled:           false,
		Amount:            decimal.NewFromInt(500),
		DayOfMonth1:       1,
		DayOfMonth2:       15,
		WeekendAdjustment: AdjustAfter,
	}
}

// HasSecondDay reports whether a second monthly contribution is planned.
func (c DCAConfig) HasSecondDay() bool {
	return c.DayOfMonth2 != 0
}

func (c DCAConfig) Validate() error {
	if c.DayOfMonth1 < 1 || c.DayOfMonth1 > 31 {
		return fmt.Errorf("day of month 1 = %d: %w", c.DayOfMonth1, ErrInvalidDay)
	}
	if c.DayOfMonth2 < 0 || c.DayOfMonth2 > 31 {
		return fmt.Errorf("day of month 2 = %d: %w", c.DayOfMonth2, ErrInvalidDay)
	}
	if c.Amount.IsNegative() {
		return fmt.Errorf("dca amount: %w", ErrInvalidAmount)
	}
	if !c.WeekendAdjustment.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAdjustment, c.WeekendAdjustment)
	}
	return nil
}

// Apply returns a copy of c with the non-nil fields of p applied.
// A DayOfMonth2 of zero in the patch removes the second day.
func (c DCAConfig) Apply(p DCAPatch) DCAConfig {
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.Amount != nil {
		c.Amount = *p.Amount
	}
	if p.DayOfMonth1 != nil {
		c.DayOfMonth1 = *p.DayOfMonth1
	}
	if p.DayOfMonth2 != nil {
		c.DayOfMonth2 = *p.DayOfMonth2
	}
	if p.WeekendAdjustment != nil {
		c.WeekendAdjustment = *p.WeekendAdjustment
	}
	return c
}

// IsEmpty returns true if no field is set.
func (p DCAPatch) IsEmpty() bool {
	return p.Enabled == nil && p.Amount == nil && p.DayOfMonth1 == nil &&
		p.DayOfMonth2 == nil && p.WeekendAdjustment == nil
}
