package posapi

import (
	"context"
	"fmt"
	"net/http"
)

// CreateOrder opens a new order with its first item(s). The backend owns
// the order id; the client never constructs one.
func (c *Client) CreateOrder(ctx context.Context, payload CreateOrderRequest) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/orders",
		body:           payload,
		idempotencyKey: c.NewIdempotencyKey("order.create"),
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetActiveOrder fetches the terminal's in-progress order, or nil when
// the register has none.
func (c *Client) GetActiveOrder(ctx context.Context) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       "/orders/pos/active",
		idempotent: true,
	}, &order)
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

// GetHeldOrders lists orders parked with HoldOrder.
func (c *Client) GetHeldOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       "/orders/pos/held",
		idempotent: true,
	}, &orders)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// AddItem appends a line to the order and returns the full updated order.
func (c *Client) AddItem(ctx context.Context, orderID int64, item NewOrderItem, expectedVersion int64) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method:          http.MethodPost,
		path:            fmt.Sprintf("/orders/%d/items", orderID),
		body:            item,
		idempotencyKey:  c.NewIdempotencyKey("order.item.add"),
		expectedVersion: expectedVersion,
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateItemQuantity sets the absolute quantity of a line. The backend
// contract takes the new value, never a delta.
func (c *Client) UpdateItemQuantity(ctx context.Context, orderID, itemID int64, quantity int, expectedVersion int64) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method:          http.MethodPut,
		path:            fmt.Sprintf("/orders/%d/items/%d", orderID, itemID),
		body:            map[string]int{"quantity": quantity},
		idempotencyKey:  c.NewIdempotencyKey("order.item.update"),
		expectedVersion: expectedVersion,
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// RemoveItem deletes a line and returns the full updated order.
func (c *Client) RemoveItem(ctx context.Context, orderID, itemID int64, expectedVersion int64) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method:          http.MethodDelete,
		path:            fmt.Sprintf("/orders/%d/items/%d", orderID, itemID),
		idempotencyKey:  c.NewIdempotencyKey("order.item.remove"),
		expectedVersion: expectedVersion,
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder voids the order server-side.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	return c.transition(ctx, orderID, "cancel")
}

// HoldOrder parks the order so another sale can start.
func (c *Client) HoldOrder(ctx context.Context, orderID int64) error {
	return c.transition(ctx, orderID, "hold")
}

// ResumeOrder re-activates a held order and returns its current state.
func (c *Client) ResumeOrder(ctx context.Context, orderID int64) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method:         http.MethodPatch,
		path:           fmt.Sprintf("/orders/%d/resume", orderID),
		idempotencyKey: c.NewIdempotencyKey("order.resume"),
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CloseOrder marks the order closed after settlement.
func (c *Client) CloseOrder(ctx context.Context, orderID int64) error {
	return c.transition(ctx, orderID, "close")
}

func (c *Client) transition(ctx context.Context, orderID int64, action string) error {
	return c.do(ctx, request{
		method:         http.MethodPatch,
		path:           fmt.Sprintf("/orders/%d/%s", orderID, action),
		idempotencyKey: c.NewIdempotencyKey("order." + action),
	}, nil)
}

// PayItems settles a subset of an order's lines (partial payment).
func (c *Client) PayItems(ctx context.Context, orderID int64, payload PartialPaymentRequest) (*Order, error) {
	var order Order
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           fmt.Sprintf("/orders/%d/pay", orderID),
		body:           payload,
		idempotencyKey: c.NewIdempotencyKey("order.pay"),
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateSale records a fully settled sale, closing the linked order when
// order_id is present.
func (c *Client) CreateSale(ctx context.Context, payload CreateSaleRequest) (*Sale, error) {
	var sale Sale
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/sales",
		body:           payload,
		idempotencyKey: c.NewIdempotencyKey("sale.create"),
	}, &sale)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}
