package posapi

import (
	"context"
	"net/http"

	"github.com/pdvlabs/balcao/pkg/validate"
)

// SearchCustomers lists customers matching the given term.
func (c *Client) SearchCustomers(ctx context.Context, term string) ([]Customer, error) {
	query := map[string]string{}
	if term != "" {
		query["search"] = term
	}
	var customers []Customer
	err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       "/customers",
		query:      query,
		idempotent: true,
	}, &customers)
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// CreateCustomer registers a walk-in customer from the terminal.
func (c *Client) CreateCustomer(ctx context.Context, payload CreateCustomerRequest) (*Customer, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, err
	}
	var customer Customer
	err := c.do(ctx, request{
		method:         http.MethodPost,
		path:           "/customers",
		body:           payload,
		idempotencyKey: c.NewIdempotencyKey("customer.create"),
	}, &customer)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// CashRegisterStatus reports whether a till session is open for this
// terminal. The POS refuses to start selling against a closed till.
func (c *Client) CashRegisterStatus(ctx context.Context) (*CashRegisterStatus, error) {
	var status CashRegisterStatus
	err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       "/cash-registers/status",
		idempotent: true,
	}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}
