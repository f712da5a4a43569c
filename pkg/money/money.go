package money

import (
	"github.com/shopspring/decimal"
)

// Amounts cross the wire as plain decimal numbers with two fractional
// digits. Every aggregation in the client follows the same discipline:
// round the target total once, round a sum once, then subtract. Rounding
// each addend before summing is what reintroduces cent-level drift.

// Round2 rounds to two fractional digits, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SumRounded sums the values first and rounds the result exactly once.
func SumRounded(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return Round2(sum)
}

// FromFloat converts a binary float into an exact decimal.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Cents returns the amount as integer cents after rounding to 2dp.
func Cents(d decimal.Decimal) int64 {
	return Round2(d).Shift(2).IntPart()
}

// FromCents converts integer cents back into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// Format renders the amount with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return Round2(d).StringFixed(2)
}
