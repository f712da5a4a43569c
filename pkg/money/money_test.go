package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"29.999999", "30.00"},
		{"3.333333", "3.33"},
		{"0", "0.00"},
	}
	for _, tt := range tests {
		got := Round2(decimal.RequireFromString(tt.in))
		assert.Equal(t, tt.want, got.StringFixed(2), "round2(%s)", tt.in)
	}
}

func TestSumRoundedRoundsOnce(t *testing.T) {
	// Three thirds of ten: individually they round to 3.33 each (9.99),
	// but the sum rounds to 10.00. The sum-then-round order is the contract.
	third := decimal.RequireFromString("10").Div(decimal.NewFromInt(3))
	got := SumRounded([]decimal.Decimal{third, third, third})
	assert.Equal(t, "10.00", got.StringFixed(2))
}

func TestSumRoundedOrderIndependentForTwoDecimalInputs(t *testing.T) {
	a := decimal.RequireFromString("3.34")
	b := decimal.RequireFromString("3.33")
	c := decimal.RequireFromString("3.33")

	forward := SumRounded([]decimal.Decimal{a, b, c})
	backward := SumRounded([]decimal.Decimal{c, b, a})
	require.True(t, forward.Equal(backward))
	assert.Equal(t, "10.00", forward.StringFixed(2))
}

func TestCentsRoundTrip(t *testing.T) {
	d := FromFloat(19.9)
	require.EqualValues(t, 1990, Cents(d))
	assert.Equal(t, "19.90", Format(FromCents(1990)))
}

func TestFromFloatKeepsNoiseOutAfterRounding(t *testing.T) {
	noisy := FromFloat(29.999999)
	assert.Equal(t, "30.00", Format(noisy))
}
