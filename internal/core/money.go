// Package core provides amount parsing utilities.
//
// Amounts are decimal currency values. They are computed in full precision
// and only rounded to two decimals for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an
// optional sign, and ignores blanks used as thousands separators
// ("1 234,56"). Returns ErrInvalidAmount for anything else.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("-50")      -> -50, nil
//	ParseAmount("1 234,56") -> 1234.56, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return v, nil
}

// Round2 rounds an amount to cents for display and persistence of derived values.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
