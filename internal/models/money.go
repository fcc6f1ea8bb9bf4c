package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in US cents. All ledger arithmetic is integer-only;
// decimal math is used only at the edges (parsing, fee percentages).
type Money int64

// Cents creates a Money value from a count of cents.
func Cents(c int64) Money { return Money(c) }

// Dollars creates a Money value from whole dollars and cents, e.g. Dollars(33, 34).
func Dollars(dollars, cents int64) Money {
	if dollars < 0 {
		return Money(dollars*100 - cents)
	}
	return Money(dollars*100 + cents)
}

// ParseMoney parses a dollar string such as "33.34", "$40", or "-$35.00".
// Amounts with more than two decimal places are rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	raw := strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(raw, "-") {
		negative = true
		raw = strings.TrimPrefix(raw, "-")
	}
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more than two decimal places", s)
	}

	m := Money(cents.IntPart())
	if negative {
		m = -m
	}
	return m, nil
}

// FromDecimal converts a dollar decimal to Money, rounding half away from zero
// to the nearest cent.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(2).Round(0).IntPart())
}

// Decimal returns the amount in dollars as a decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats the amount as dollars, e.g. "$33.34" or "-$35.00".
func (m Money) String() string {
	if m < 0 {
		return "-$" + (-m).Decimal().StringFixed(2)
	}
	return "$" + m.Decimal().StringFixed(2)
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m > 0 }

// Min returns the smaller of two amounts.
func (m Money) Min(other Money) Money {
	if m < other {
		return m
	}
	return other
}
