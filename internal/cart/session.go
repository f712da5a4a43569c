package cart

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
	"github.com/pdvlabs/balcao/pkg/enums"
	"github.com/pdvlabs/balcao/pkg/logger"
	"github.com/pdvlabs/balcao/pkg/money"
	"github.com/pdvlabs/balcao/pkg/posapi"
)

// Line mirrors one item of the server-side order. UnitPrice is fixed at
// the moment the line was added; it is never re-fetched.
type Line struct {
	ProductID   int64
	OrderItemID int64
	Name        string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Total is the line extension at the captured unit price.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type ordersAPI interface {
	CreateOrder(ctx context.Context, payload posapi.CreateOrderRequest) (*posapi.Order, error)
	GetActiveOrder(ctx context.Context) (*posapi.Order, error)
	AddItem(ctx context.Context, orderID int64, item posapi.NewOrderItem, expectedVersion int64) (*posapi.Order, error)
	UpdateItemQuantity(ctx context.Context, orderID, itemID int64, quantity int, expectedVersion int64) (*posapi.Order, error)
	RemoveItem(ctx context.Context, orderID, itemID int64, expectedVersion int64) (*posapi.Order, error)
	CancelOrder(ctx context.Context, orderID int64) error
	HoldOrder(ctx context.Context, orderID int64) error
	ResumeOrder(ctx context.Context, orderID int64) (*posapi.Order, error)
}

// Session keeps the local cart consistent with the backend's
// authoritative order: one round-trip per mutation, and on success the
// whole cart is replaced with the server's items. Local state is a cache,
// never merged.
type Session struct {
	api    ordersAPI
	logger *logger.Logger

	state     State
	orderID   int64
	version   int64
	lines     []Line
	lastAdded *Line
	customer  *posapi.Customer

	syncing atomic.Bool
}

// NewSession builds an idle cart session.
func NewSession(api ordersAPI, logg *logger.Logger) (*Session, error) {
	if api == nil {
		return nil, fmt.Errorf("orders api required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Session{api: api, logger: logg, state: StateNone}, nil
}

// State reports the lifecycle state the session is in.
func (s *Session) State() State { return s.state }

// OrderID returns the tracked order id, zero when none.
func (s *Session) OrderID() int64 { return s.orderID }

// Version returns the optimistic concurrency token of the last
// authoritative payload.
func (s *Session) Version() int64 { return s.version }

// Syncing reports whether a mutation is in flight; callers disable the
// relevant controls while true.
func (s *Session) Syncing() bool { return s.syncing.Load() }

// Lines returns a copy of the mirrored cart.
func (s *Session) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// LastAdded returns the most recently added line, for operator feedback.
func (s *Session) LastAdded() *Line {
	if s.lastAdded == nil {
		return nil
	}
	line := *s.lastAdded
	return &line
}

// Customer returns the customer attached to the sale, if any.
func (s *Session) Customer() *posapi.Customer {
	if s.customer == nil {
		return nil
	}
	c := *s.customer
	return &c
}

// CustomerID returns the selected customer's id, or nil.
func (s *Session) CustomerID() *int64 {
	if s.customer == nil {
		return nil
	}
	id := s.customer.ID
	return &id
}

// SelectCustomer attaches a customer to the in-progress sale.
func (s *Session) SelectCustomer(customer posapi.Customer) {
	c := customer
	s.customer = &c
}

// ClearCustomer detaches the customer from the sale.
func (s *Session) ClearCustomer() {
	s.customer = nil
}

// Subtotal is sum(unitPrice × quantity) over the mirrored lines.
func (s *Session) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Total())
	}
	return total
}

// ItemCount is the number of units across all lines.
func (s *Session) ItemCount() int {
	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// AddProduct adds quantity units of the product, creating the order on
// the first add. On failure the prior cart is left untouched.
func (s *Session) AddProduct(ctx context.Context, product posapi.Product, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	if err := s.state.allows(transitionAdd); err != nil {
		return err
	}
	release, err := s.beginSync()
	if err != nil {
		return err
	}
	defer release()

	var order *posapi.Order
	if s.state == StateNone {
		order, err = s.api.CreateOrder(ctx, posapi.CreateOrderRequest{
			OrderType:  enums.OrderTypeTakeout,
			CustomerID: s.CustomerID(),
			Items:      []posapi.NewOrderItem{{ProductID: product.ID, Quantity: quantity}},
		})
	} else {
		order, err = s.api.AddItem(ctx, s.orderID, posapi.NewOrderItem{ProductID: product.ID, Quantity: quantity}, s.version)
	}
	if err != nil {
		s.logger.Error(ctx, "add item failed", err)
		return err
	}

	s.applyOrder(order)
	s.markLastAdded(product.ID)
	s.logger.Info(s.logger.WithOrderID(ctx, s.orderID), fmt.Sprintf("added %dx %s", quantity, product.Name))
	return nil
}

// ChangeQuantity applies a delta to a line. A resulting quantity of zero
// or less removes the line; otherwise the absolute new quantity is sent,
// never the delta and never a negative number.
func (s *Session) ChangeQuantity(ctx context.Context, productID int64, delta int) error {
	if err := s.state.allows(transitionMutate); err != nil {
		return err
	}
	line, ok := s.findByProduct(productID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	}
	release, err := s.beginSync()
	if err != nil {
		return err
	}
	defer release()

	newQty := line.Quantity + delta

	var order *posapi.Order
	if newQty <= 0 {
		order, err = s.api.RemoveItem(ctx, s.orderID, line.OrderItemID, s.version)
	} else {
		order, err = s.api.UpdateItemQuantity(ctx, s.orderID, line.OrderItemID, newQty, s.version)
	}
	if err != nil {
		s.logger.Error(ctx, "update quantity failed", err)
		return err
	}

	s.applyOrder(order)
	return nil
}

// RemoveLine deletes the line outright, regardless of quantity.
func (s *Session) RemoveLine(ctx context.Context, orderItemID int64) error {
	if err := s.state.allows(transitionMutate); err != nil {
		return err
	}
	release, err := s.beginSync()
	if err != nil {
		return err
	}
	defer release()

	order, err := s.api.RemoveItem(ctx, s.orderID, orderItemID, s.version)
	if err != nil {
		s.logger.Error(ctx, "remove item failed", err)
		return err
	}
	s.applyOrder(order)
	return nil
}

// Cancel voids the tracked order and resets every piece of local state.
func (s *Session) Cancel(ctx context.Context) error {
	if err := s.state.allows(transitionCancel); err != nil {
		return err
	}
	release, err := s.beginSync()
	if err != nil {
		return err
	}
	defer release()

	if err := s.api.CancelOrder(ctx, s.orderID); err != nil {
		s.logger.Error(ctx, "cancel order failed", err)
		return err
	}
	s.reset()
	s.logger.Info(ctx, "sale cancelled")
	return nil
}

// Hold parks the tracked order server-side; the session stays bound to
// it until Resume or Cancel.
func (s *Session) Hold(ctx context.Context) error {
	if err := s.state.allows(transitionHold); err != nil {
		return err
	}
	release, err := s.beginSync()
	if err != nil {
		return err
	}
	defer release()

	if err := s.api.HoldOrder(ctx, s.orderID); err != nil {
		s.logger.Error(ctx, "hold order failed", err)
		return err
	}
	s.state = StateHeld
	s.logger.Info(s.logger.WithOrderID(ctx, s.orderID), "order held")
	return nil
}

// Resume re-activates a held order, swapping the tracked order id and
// replacing the cart with the server's state.
func (s *Session) Resume(ctx context.Context, orderID int64) error {
	if err := s.state.allows(transitionResume); err != nil {
		return err
	}
	release, err := s.beginSync()
	if err != nil {
		return err
	}
	defer release()

	order, err := s.api.ResumeOrder(ctx, orderID)
	if err != nil {
		s.logger.Error(ctx, "resume order failed", err)
		return err
	}
	if order.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order %d is already %s", order.ID, order.Status))
	}
	s.applyOrder(order)
	if order.Customer != nil {
		s.SelectCustomer(*order.Customer)
	}
	s.logger.Info(s.logger.WithOrderID(ctx, s.orderID), "order resumed")
	return nil
}

// Restore recovers the terminal's active order at startup, if one
// survived a crash or page reload. Returns true when a sale was restored.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.state != StateNone {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "restore requires an idle session")
	}
	order, err := s.api.GetActiveOrder(ctx)
	if err != nil {
		return false, err
	}
	if order == nil || order.Status.IsTerminal() {
		return false, nil
	}
	s.applyOrder(order)
	if order.Customer != nil {
		s.SelectCustomer(*order.Customer)
	}
	s.logger.Info(s.logger.WithOrderID(ctx, s.orderID), "previous sale restored")
	return true, nil
}

// AllowsSettlement reports whether the session may settle right now.
// Callers must check this before submitting a sale; a held or idle
// session must never reach the backend.
func (s *Session) AllowsSettlement() error {
	return s.state.allows(transitionSettle)
}

// CompleteSettlement resets local state after a successful checkout. The
// settlement calculator owns the submission; the session only forgets
// the order once it is settled.
func (s *Session) CompleteSettlement() error {
	if err := s.state.allows(transitionSettle); err != nil {
		return err
	}
	s.reset()
	return nil
}

func (s *Session) beginSync() (func(), error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return nil, pkgerrors.New(pkgerrors.CodeBusy, "a cart mutation is already in flight")
	}
	return func() { s.syncing.Store(false) }, nil
}

// applyOrder replaces the local mirror with the authoritative payload.
// Always a full replace; merge logic is how carts drift.
func (s *Session) applyOrder(order *posapi.Order) {
	// A terminal status means the order is gone; mirroring it would let
	// the operator keep editing a dead order.
	if order.Status.IsTerminal() {
		s.reset()
		return
	}

	s.orderID = order.ID
	s.version = order.Version
	switch order.Status {
	case enums.OrderStatusOnHold:
		s.state = StateHeld
	default:
		s.state = StateOpen
	}

	lines := make([]Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, Line{
			ProductID:   item.ProductID,
			OrderItemID: item.ID,
			Name:        itemName(item),
			UnitPrice:   money.Round2(money.FromFloat(item.UnitPrice())),
			Quantity:    item.Quantity,
		})
	}
	s.lines = lines

	if s.lastAdded != nil {
		s.markLastAdded(s.lastAdded.ProductID)
	}
}

func (s *Session) markLastAdded(productID int64) {
	if line, ok := s.findByProduct(productID); ok {
		l := line
		s.lastAdded = &l
		return
	}
	s.lastAdded = nil
}

func (s *Session) findByProduct(productID int64) (Line, bool) {
	for _, line := range s.lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return Line{}, false
}

// reset clears cart, last-added pointer, customer, and the tracked order,
// in that order, leaving no partial state behind.
func (s *Session) reset() {
	s.lines = nil
	s.lastAdded = nil
	s.customer = nil
	s.orderID = 0
	s.version = 0
	s.state = StateNone
}

func itemName(item posapi.OrderItem) string {
	if item.Product != nil {
		return item.Product.Name
	}
	return fmt.Sprintf("#%d", item.ProductID)
}
