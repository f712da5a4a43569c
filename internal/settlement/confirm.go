package settlement

import (
	"context"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
	"github.com/pdvlabs/balcao/pkg/money"
	"github.com/pdvlabs/balcao/pkg/posapi"
)

type salesAPI interface {
	CreateSale(ctx context.Context, payload posapi.CreateSaleRequest) (*posapi.Sale, error)
	PayItems(ctx context.Context, orderID int64, payload posapi.PartialPaymentRequest) (*posapi.Order, error)
}

// Submitter turns a calculator's state into backend settlement calls.
type Submitter struct {
	api  salesAPI
	calc *Calculator
}

// NewSubmitter couples a calculator to the backend.
func NewSubmitter(api salesAPI, calc *Calculator) (*Submitter, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sales api required")
	}
	if calc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "calculator required")
	}
	return &Submitter{api: api, calc: calc}, nil
}

// Result reports a completed settlement.
type Result struct {
	SaleID int64
	Change decimal.Decimal
}

// Confirm validates sufficiency and submits the full-settlement payload.
// Entries with non-positive amounts are dropped first; the final paid
// total is the sum of the survivors, rounded once. On backend rejection
// the entries are preserved so the operator can retry.
func (s *Submitter) Confirm(ctx context.Context, items []posapi.SaleItem, customerID *int64, orderID *int64) (*Result, error) {
	calc := s.calc
	if !calc.open {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no settlement is open")
	}
	if calc.submitting {
		return nil, pkgerrors.New(pkgerrors.CodeBusy, "settlement submission is in flight")
	}

	final, finalPaid, err := s.finalEntries()
	if err != nil {
		return nil, err
	}

	calc.submitting = true
	defer func() { calc.submitting = false }()

	payload := posapi.CreateSaleRequest{
		Items:       items,
		Payments:    toWire(final),
		CustomerID:  customerID,
		TotalAmount: floatAmount(calc.totalToPay),
		OrderID:     orderID,
	}

	sale, err := s.api.CreateSale(ctx, payload)
	if err != nil {
		// Entries stay intact for a retry or cancel.
		return nil, err
	}

	change := money.Round2(finalPaid.Sub(calc.totalToPay))
	if change.Sign() < 0 {
		change = decimal.Zero
	}
	result := &Result{SaleID: sale.ID, Change: change}
	calc.Close()
	return result, nil
}

// ConfirmPartial settles only the named order lines through the
// partial-payment endpoint, under the same sufficiency rules.
func (s *Submitter) ConfirmPartial(ctx context.Context, orderID int64, itemsToPay []posapi.PartialPaymentItem, customerID *int64) (*Result, error) {
	calc := s.calc
	if !calc.open {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no settlement is open")
	}
	if calc.submitting {
		return nil, pkgerrors.New(pkgerrors.CodeBusy, "settlement submission is in flight")
	}
	if len(itemsToPay) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select at least one item to pay")
	}

	final, finalPaid, err := s.finalEntries()
	if err != nil {
		return nil, err
	}

	calc.submitting = true
	defer func() { calc.submitting = false }()

	payload := posapi.PartialPaymentRequest{
		ItemsToPay: itemsToPay,
		Payments:   toWire(final),
		CustomerID: customerID,
	}

	if _, err := s.api.PayItems(ctx, orderID, payload); err != nil {
		return nil, err
	}

	change := money.Round2(finalPaid.Sub(calc.totalToPay))
	if change.Sign() < 0 {
		change = decimal.Zero
	}
	result := &Result{Change: change}
	calc.Close()
	return result, nil
}

// QuickConfirm is the keyboard-shortcut path: it refuses without a
// network call while a submission is in flight or while the visible
// paid total has not reached the target.
func (s *Submitter) QuickConfirm(ctx context.Context, items []posapi.SaleItem, customerID *int64, orderID *int64) (*Result, error) {
	calc := s.calc
	if calc.submitting {
		return nil, pkgerrors.New(pkgerrors.CodeBusy, "settlement submission is in flight")
	}
	if calc.TotalPaid().LessThan(calc.totalToPay) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientPayment, "paid amount is not enough to finish the sale")
	}
	return s.Confirm(ctx, items, customerID, orderID)
}

// finalEntries drops non-positive entries and checks sufficiency against
// the fixed target, within the float-noise epsilon.
func (s *Submitter) finalEntries() ([]Entry, decimal.Decimal, error) {
	calc := s.calc

	final := make([]Entry, 0, len(calc.entries))
	for _, e := range calc.entries {
		if e.Amount.Sign() > 0 {
			final = append(final, e)
		}
	}

	amounts := make([]decimal.Decimal, 0, len(final))
	for _, e := range final {
		amounts = append(amounts, e.Amount)
	}
	finalPaid := money.SumRounded(amounts)

	if finalPaid.LessThan(calc.totalToPay.Sub(epsilon)) {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeInsufficientPayment,
			"paid amount is less than the sale total").WithDetails(map[string]string{
			"total_to_pay": money.Format(calc.totalToPay),
			"total_paid":   money.Format(finalPaid),
		})
	}
	return final, finalPaid, nil
}

func toWire(entries []Entry) []posapi.PaymentEntry {
	out := make([]posapi.PaymentEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, posapi.PaymentEntry{
			PaymentMethod: e.Method,
			Amount:        floatAmount(e.Amount),
		})
	}
	return out
}

// floatAmount renders an already-rounded decimal as the wire number.
func floatAmount(d decimal.Decimal) float64 {
	f, _ := money.Round2(d).Float64()
	return f
}
