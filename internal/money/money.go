// Package money formats and parses euro amounts the way the storefront shows
// them: two decimals, a comma as decimal separator and the currency symbol
// appended after a non-breaking space ("4,50 €").
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Symbol = "€"

	nbsp = "\u00a0"
)

// Format renders amount rounded half away from zero to two decimals.
func Format(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	return strings.Replace(s, ".", ",", 1) + nbsp + Symbol
}

// Parse accepts the output of Format (and the same value typed with a plain
// space or without the symbol).
func Parse(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSuffix(v, Symbol)
	v = strings.TrimRight(v, " "+nbsp)
	v = strings.Replace(v, ",", ".", 1)

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Cents converts to integer cents, used for storage.
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
