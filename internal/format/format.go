// Package format renders amounts and percentages for display (fr-FR, EUR).
package format

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"peatracker/internal/core"
)

const (
	narrowNBSP = "\u202f"
	nbsp       = "\u00a0"
)

// euro follows the fr-FR convention: narrow no-break space between
// thousands, no-break space before the symbol.
var euro = money.NewFormatter(2, ",", narrowNBSP, "€", "1"+nbsp+"$")

var hundred = decimal.NewFromInt(100)

// Currency formats v as euros with two decimals.
func Currency(v decimal.Decimal) string {
	minor := v.Shift(2).Round(0).IntPart()
	return euro.Format(minor)
}

// SignedCurrency is Currency with a leading "+" for positive values.
func SignedCurrency(v decimal.Decimal) string {
	if v.IsPositive() {
		return "+" + Currency(v)
	}
	return Currency(v)
}

// Percent formats v with two decimals and a "%" suffix, signed when positive.
func Percent(v decimal.Decimal) string {
	sign := ""
	if v.IsPositive() {
		sign = "+"
	}
	return sign + v.StringFixed(2) + "%"
}

// Gain returns the amount a percent performance represents on capital.
func Gain(capital, percent decimal.Decimal) decimal.Decimal {
	return capital.Mul(percent.Div(hundred))
}

// Date formats a calendar date as dd/mm/yyyy.
func Date(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}
