package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
	"github.com/pdvlabs/balcao/pkg/enums"
	"github.com/pdvlabs/balcao/pkg/money"
)

// Entry is one payment tuple of a settlement attempt.
type Entry struct {
	Method enums.PaymentMethod
	Amount decimal.Decimal
}

// Calculator holds the derived settlement state for one checkout dialog.
// The target total is rounded exactly once when the dialog opens and is
// fixed thereafter; every edit recomputes the paid/remaining/change trio
// from scratch. State lives from Open until Confirm or Close.
type Calculator struct {
	totalToPay decimal.Decimal
	entries    []Entry
	open       bool
	submitting bool
}

// epsilon tolerates residual binary-float noise carried in by callers
// that computed their totals outside decimal arithmetic.
var epsilon = decimal.New(1, -3)

// NewCalculator returns a closed calculator; call Open to start a
// settlement attempt.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Open seeds the dialog with a single cash entry covering the whole
// total. The total is rounded to 2dp here and never again.
func (c *Calculator) Open(totalAmount decimal.Decimal) error {
	if c.open {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "a settlement is already open")
	}
	total := money.Round2(totalAmount)
	if total.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale total must be positive")
	}
	c.totalToPay = total
	c.entries = []Entry{{Method: enums.PaymentMethodCash, Amount: total}}
	c.open = true
	return nil
}

// Close discards the settlement state (dialog dismissed).
func (c *Calculator) Close() {
	c.totalToPay = decimal.Zero
	c.entries = nil
	c.open = false
	c.submitting = false
}

// IsOpen reports whether a settlement attempt is in progress.
func (c *Calculator) IsOpen() bool { return c.open }

// TotalToPay is the fixed, rounded-once settlement target.
func (c *Calculator) TotalToPay() decimal.Decimal { return c.totalToPay }

// TotalPaid sums the entries and rounds the sum exactly once. Rounding
// each entry before summing is what caused the triple-charge display
// defect in an earlier payment dialog; the order here is a contract.
func (c *Calculator) TotalPaid() decimal.Decimal {
	amounts := make([]decimal.Decimal, 0, len(c.entries))
	for _, e := range c.entries {
		amounts = append(amounts, e.Amount)
	}
	return money.SumRounded(amounts)
}

// Remaining is what is still owed; negative when overpaid.
func (c *Calculator) Remaining() decimal.Decimal {
	return money.Round2(c.totalToPay.Sub(c.TotalPaid()))
}

// Change is the overpayment to hand back, zero when not overpaid.
func (c *Calculator) Change() decimal.Decimal {
	paid := c.TotalPaid()
	if paid.GreaterThan(c.totalToPay) {
		return money.Round2(paid.Sub(c.totalToPay))
	}
	return decimal.Zero
}

// Entries returns a copy of the current payment list.
func (c *Calculator) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// EditEntry replaces the entry at index with the given method and amount.
func (c *Calculator) EditEntry(index int, method enums.PaymentMethod, amount decimal.Decimal) error {
	if err := c.requireOpen(); err != nil {
		return err
	}
	if index < 0 || index >= len(c.entries) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no payment entry at index %d", index))
	}
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", method))
	}
	if amount.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount cannot be negative")
	}
	c.entries[index] = Entry{Method: method, Amount: money.Round2(amount)}
	return nil
}

// AddEntry appends a card entry prefilled with what is still owed.
func (c *Calculator) AddEntry() error {
	if err := c.requireOpen(); err != nil {
		return err
	}
	amount := c.Remaining()
	if amount.Sign() < 0 {
		amount = decimal.Zero
	}
	c.entries = append(c.entries, Entry{Method: enums.PaymentMethodCreditCard, Amount: amount})
	return nil
}

// RemoveEntry deletes the entry at index. At least one payment line must
// always exist.
func (c *Calculator) RemoveEntry(index int) error {
	if err := c.requireOpen(); err != nil {
		return err
	}
	if len(c.entries) <= 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one payment entry is required")
	}
	if index < 0 || index >= len(c.entries) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no payment entry at index %d", index))
	}
	c.entries = append(c.entries[:index], c.entries[index+1:]...)
	return nil
}

// SplitEvenly replaces the entries with n cash shares. The first share
// absorbs the rounding remainder so the shares reconstitute the total
// exactly, cent for cent.
func (c *Calculator) SplitEvenly(n int) error {
	if err := c.requireOpen(); err != nil {
		return err
	}
	if n < 2 {
		return pkgerrors.New(pkgerrors.CodeValidation, "split requires at least 2 people")
	}

	perPerson := money.Round2(c.totalToPay.Div(decimal.NewFromInt(int64(n))))
	first := c.totalToPay.Sub(perPerson.Mul(decimal.NewFromInt(int64(n - 1))))

	entries := make([]Entry, n)
	entries[0] = Entry{Method: enums.PaymentMethodCash, Amount: first}
	for i := 1; i < n; i++ {
		entries[i] = Entry{Method: enums.PaymentMethodCash, Amount: perPerson}
	}
	c.entries = entries
	return nil
}

func (c *Calculator) requireOpen() error {
	if !c.open {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no settlement is open")
	}
	if c.submitting {
		return pkgerrors.New(pkgerrors.CodeBusy, "settlement submission is in flight")
	}
	return nil
}
