package format

import (
	"testing"

	"github.com/shopspring/decimal"

	"peatracker/internal/core"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0,00\u00a0€"},
		{"5", "5,00\u00a0€"},
		{"1234.56", "1\u202f234,56\u00a0€"},
		{"1234567.891", "1\u202f234\u202f567,89\u00a0€"},
		{"-250.5", "-250,50\u00a0€"},
		{"0.005", "0,01\u00a0€"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Currency(decimal.RequireFromString(tt.in))
			if got != tt.want {
				t.Errorf("Currency(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSignedCurrency(t *testing.T) {
	if got := SignedCurrency(decimal.NewFromInt(500)); got != "+500,00\u00a0€" {
		t.Errorf("positive: %q", got)
	}
	if got := SignedCurrency(decimal.NewFromInt(-500)); got != "-500,00\u00a0€" {
		t.Errorf("negative: %q", got)
	}
	if got := SignedCurrency(decimal.Zero); got != "0,00\u00a0€" {
		t.Errorf("zero: %q", got)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"5", "+5.00%"},
		{"4.54545", "+4.55%"},
		{"-1.818", "-1.82%"},
		{"0", "0.00%"},
	}

	for _, tt := range tests {
		if got := Percent(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("Percent(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGain(t *testing.T) {
	got := Gain(decimal.NewFromInt(10000), decimal.RequireFromString("2.5"))
	if !got.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Gain = %s, want 250", got)
	}
}

func TestDate(t *testing.T) {
	if got := Date(core.NewDate(2024, 1, 5)); got != "05/01/2024" {
		t.Errorf("Date = %q", got)
	}
}
