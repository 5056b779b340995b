package domain

import (
	"github.com/shopspring/decimal" // Exact decimal arithmetic at the API boundary
)

// Money is an amount of currency in integer cents.
// All arithmetic and SQL comparisons happen on the integer value;
// decimal.Decimal is only used to parse and render "12.34" strings.
type Money int64

// MoneyFromDecimal converts a decimal amount (e.g. "12.34") to cents.
// Fractions below one cent are truncated.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(2).IntPart()) // Shift two places: dollars -> cents
}

// MoneyFromDecimalExact converts a decimal amount to cents, reporting false
// when the value carries sub-cent precision ("12.345"). Callers at the API
// boundary reject such amounts instead of silently truncating them.
func MoneyFromDecimalExact(d decimal.Decimal) (Money, bool) {
	if !d.Equal(d.Truncate(2)) {
		return 0, false
	}
	return MoneyFromDecimal(d), true
}

// Decimal returns the amount as a two-decimal-place value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String renders the amount with two decimal places (e.g. "12.34").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
