package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdvlabs/balcao/internal/cart"
	"github.com/pdvlabs/balcao/internal/products"
	"github.com/pdvlabs/balcao/internal/settlement"
	"github.com/pdvlabs/balcao/pkg/config"
	"github.com/pdvlabs/balcao/pkg/enums"
	"github.com/pdvlabs/balcao/pkg/logger"
	"github.com/pdvlabs/balcao/pkg/posapi"
)

type fakeBackend struct {
	router    *chi.Mux
	saleCalls int32
}

func newFakeBackend() *fakeBackend {
	fb := &fakeBackend{router: chi.NewRouter()}

	order := posapi.Order{
		ID:     7,
		Status: enums.OrderStatusOpen,
		Items: []posapi.OrderItem{
			{ID: 21, ProductID: 3, Quantity: 1, PriceAtOrder: 30.00, Product: &posapi.Product{ID: 3, Name: "Picanha"}},
		},
		Version: 1,
	}

	fb.router.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(order)
	})
	fb.router.Patch("/orders/{orderID}/hold", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	fb.router.Post("/sales", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fb.saleCalls, 1)
		json.NewEncoder(w).Encode(posapi.Sale{ID: 901, TotalAmount: 30.00})
	})
	return fb
}

func (fb *fakeBackend) sales() int32 { return atomic.LoadInt32(&fb.saleCalls) }

func newTestTerminal(t *testing.T, fb *fakeBackend) (*terminal, *cart.Session) {
	t.Helper()

	server := httptest.NewServer(fb.router)
	t.Cleanup(server.Close)

	logg := logger.New(logger.Options{ServiceName: "pos-test"})
	cfg := config.BackendConfig{
		BaseURL:          server.URL,
		Timeout:          5 * time.Second,
		RetryMaxAttempts: 1,
		RetryBaseDelay:   time.Millisecond,
	}
	client, err := posapi.NewClient(context.Background(), cfg, "caixa-1", logg)
	require.NoError(t, err)

	lookup, err := products.NewLookup(client, 2, 10)
	require.NoError(t, err)

	session, err := cart.NewSession(client, logg)
	require.NoError(t, err)

	calc := settlement.NewCalculator()
	submitter, err := settlement.NewSubmitter(client, calc)
	require.NoError(t, err)

	return newTerminal(session, lookup, calc, submitter, nil, client, logg), session
}

func TestConfirmRefusedAfterHoldWithoutReachingBackend(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	term, session := newTestTerminal(t, fb)
	ctx := context.Background()

	require.NoError(t, session.AddProduct(ctx, posapi.Product{ID: 3, Name: "Picanha", Price: 30.00}, 1))

	var out bytes.Buffer
	term.dispatch(ctx, &out, "pay")
	term.dispatch(ctx, &out, "hold")
	term.dispatch(ctx, &out, "confirm")

	// The held order was never settled: no sale on the backend, and the
	// cart is intact so the operator can resume it later.
	assert.Zero(t, fb.sales())
	assert.Contains(t, out.String(), "error:")
	assert.Equal(t, cart.StateHeld, session.State())
	assert.Len(t, session.Lines(), 1)
}

func TestQuickpayRefusedAfterHold(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	term, session := newTestTerminal(t, fb)
	ctx := context.Background()

	require.NoError(t, session.AddProduct(ctx, posapi.Product{ID: 3, Name: "Picanha", Price: 30.00}, 1))

	var out bytes.Buffer
	term.dispatch(ctx, &out, "pay")
	term.dispatch(ctx, &out, "hold")
	term.dispatch(ctx, &out, "quickpay")

	assert.Zero(t, fb.sales())
	assert.Equal(t, cart.StateHeld, session.State())
}

func TestConfirmSettlesOpenOrderAndResetsSession(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	term, session := newTestTerminal(t, fb)
	ctx := context.Background()

	require.NoError(t, session.AddProduct(ctx, posapi.Product{ID: 3, Name: "Picanha", Price: 30.00}, 1))

	var out bytes.Buffer
	term.dispatch(ctx, &out, "pay")
	term.dispatch(ctx, &out, "confirm")

	assert.EqualValues(t, 1, fb.sales())
	assert.Contains(t, out.String(), "sale 901 done")
	assert.Equal(t, cart.StateNone, session.State())
	assert.Empty(t, session.Lines())
}
