package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdvlabs/balcao/pkg/enums"
	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
	"github.com/pdvlabs/balcao/pkg/money"
)

func openCalculator(t *testing.T, total string) *Calculator {
	t.Helper()
	calc := NewCalculator()
	require.NoError(t, calc.Open(decimal.RequireFromString(total)))
	return calc
}

func TestOpenRoundsTotalOnceAndSeedsCashEntry(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()
	require.NoError(t, calc.Open(money.FromFloat(29.999999)))

	assert.Equal(t, "30.00", money.Format(calc.TotalToPay()))

	entries := calc.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, enums.PaymentMethodCash, entries[0].Method)
	assert.Equal(t, "30.00", money.Format(entries[0].Amount))
	assert.Equal(t, "0.00", money.Format(calc.Remaining()))
	assert.Equal(t, "0.00", money.Format(calc.Change()))
}

func TestOpenRejectsNonPositiveTotal(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()
	err := calc.Open(decimal.Zero)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestOpenTwiceIsAStateConflict(t *testing.T) {
	t.Parallel()

	calc := openCalculator(t, "30.00")
	err := calc.Open(decimal.RequireFromString("10.00"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestSecondEntryThenRemovingFirstRecomputesRemaining(t *testing.T) {
	t.Parallel()

	calc := openCalculator(t, "30.00")

	require.NoError(t, calc.AddEntry())
	require.NoError(t, calc.EditEntry(1, enums.PaymentMethodCash, decimal.RequireFromString("10.00")))
	require.NoError(t, calc.RemoveEntry(0))

	require.Len(t, calc.Entries(), 1)
	assert.Equal(t, "10.00", money.Format(calc.TotalPaid()))
	assert.Equal(t, "20.00", money.Format(calc.Remaining()))
	assert.Equal(t, "0.00", money.Format(calc.Change()))
}

func TestAddEntryPrefillsRemaining(t *testing.T) {
	t.Parallel()

	calc := openCalculator(t, "30.00")
	require.NoError(t, calc.EditEntry(0, enums.PaymentMethodCash, decimal.RequireFromString("12.50")))
	require.NoError(t, calc.AddEntry())

	entries := calc.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, enums.PaymentMethodCreditCard, entries[1].Method)
	assert.Equal(t, "17.50", money.Format(entries[1].Amount))
}

func TestAddEntryWhenOverpaidPrefillsZero(t *testing.T) {
	t.Parallel()

	calc := openCalculator(t, "30.00")
	require.NoError(t, calc.EditEntry(0, enums.PaymentMethodCash, decimal.RequireFromString("50.00")))
	require.NoError(t, calc.AddEntry())

	entries := calc.Entries()
	assert.Equal(t, "0.00", money.Format(entries[1].Amount))
	assert.Equal(t, "20.00", money.Format(calc.Change()))
}

func TestRemoveLastEntryIsRefused(t *testing.T) {
	t.Parallel()

	calc := openCalculator(t, "30.00")
	err := calc.RemoveEntry(0)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Len(t, calc.Entries(), 1)
}

func TestEditEntryValidation(t *testing.T) {
	t.Parallel()

	calc := openCalculator(t, "30.00")

	assert.Error(t, calc.EditEntry(5, enums.PaymentMethodCash, decimal.Zero))
	assert.Error(t, calc.EditEntry(0, "cheque", decimal.Zero))
	assert.Error(t, calc.EditEntry(0, enums.PaymentMethodCash, decimal.RequireFromString("-1")))
}

func TestSplitEvenlyFirstShareAbsorbsRemainder(t *testing.T) {
	t.Parallel()

	calc := openCalculator(t, "10.00")
	require.NoError(t, calc.SplitEvenly(3))

	entries := calc.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "3.34", money.Format(entries[0].Amount))
	assert.Equal(t, "3.33", money.Format(entries[1].Amount))
	assert.Equal(t, "3.33", money.Format(entries[2].Amount))
	assert.Equal(t, "10.00", money.Format(calc.TotalPaid()))
	assert.Equal(t, "0.00", money.Format(calc.Remaining()))
}

func TestSplitEvenlyReconstitutesTotalExactly(t *testing.T) {
	t.Parallel()

	totals := []string{"10.00", "100.01", "0.05", "33.33", "99.99", "7.77"}
	for _, total := range totals {
		for n := 2; n <= 8; n++ {
			calc := NewCalculator()
			require.NoError(t, calc.Open(decimal.RequireFromString(total)))
			require.NoError(t, calc.SplitEvenly(n))

			sum := decimal.Zero
			for _, e := range calc.Entries() {
				sum = sum.Add(e.Amount)
			}
			assert.True(t, sum.Equal(calc.TotalToPay()),
				"split %s by %d: sum %s != total %s", total, n, sum, calc.TotalToPay())
		}
	}
}

func TestSplitEvenlyRequiresAtLeastTwo(t *testing.T) {
	t.Parallel()

	calc := openCalculator(t, "10.00")
	err := calc.SplitEvenly(1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestTotalPaidRoundsSumOnceNotEachEntry(t *testing.T) {
	t.Parallel()

	// Entry values carrying sub-cent noise must be summed before the
	// single rounding step.
	calc := openCalculator(t, "10.00")
	third := decimal.RequireFromString("10").Div(decimal.NewFromInt(3))

	require.NoError(t, calc.EditEntry(0, enums.PaymentMethodCash, third))
	// EditEntry itself normalizes to 2dp; feed the raw values through the
	// money helper to assert the aggregation law directly.
	sum := money.SumRounded([]decimal.Decimal{third, third, third})
	assert.Equal(t, "10.00", money.Format(sum))
}

func TestCloseDestroysState(t *testing.T) {
	t.Parallel()

	calc := openCalculator(t, "30.00")
	calc.Close()

	assert.False(t, calc.IsOpen())
	assert.Empty(t, calc.Entries())

	err := calc.AddEntry()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}
