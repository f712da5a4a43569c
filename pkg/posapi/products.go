package posapi

import (
	"context"
	"net/http"
	"strconv"
)

// LookupProducts resolves a barcode or free-text term to candidate
// products via the dedicated lookup endpoint.
func (c *Client) LookupProducts(ctx context.Context, term string) ([]Product, error) {
	var products []Product
	err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       "/products/lookup",
		query:      map[string]string{"q": term},
		idempotent: true,
	}, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// SearchProducts runs the paged free-text search used by autocomplete.
func (c *Client) SearchProducts(ctx context.Context, term string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 10
	}
	var products []Product
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/products",
		query: map[string]string{
			"search": term,
			"limit":  strconv.Itoa(limit),
		},
		idempotent: true,
	}, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}
