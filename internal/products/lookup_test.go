package products

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
	"github.com/pdvlabs/balcao/pkg/posapi"
)

type stubLookupAPI struct {
	lookupResults []posapi.Product
	lookupErr     error
	searchResults []posapi.Product
	lookupCalls   int
	searchCalls   int
	lastTerm      string
}

func (s *stubLookupAPI) LookupProducts(ctx context.Context, term string) ([]posapi.Product, error) {
	s.lookupCalls++
	s.lastTerm = term
	return s.lookupResults, s.lookupErr
}

func (s *stubLookupAPI) SearchProducts(ctx context.Context, term string, limit int) ([]posapi.Product, error) {
	s.searchCalls++
	s.lastTerm = term
	return s.searchResults, nil
}

func TestParseQuantityPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		entry   string
		wantQty int
		want    string
		wantOK  bool
	}{
		{"coca", 1, "coca", true},
		{"3*coca", 3, "coca", true},
		{"10x789123", 10, "789123", true},
		{"2X agua", 2, "agua", true},
		{"3*", 0, "", false},
		{"12x", 0, "", false},
		{"", 0, "", false},
		{"  5*pao  ", 5, "pao", true},
	}

	for _, tt := range tests {
		qty, term, ok := ParseQuantityPrefix(tt.entry)
		assert.Equal(t, tt.wantOK, ok, "entry %q", tt.entry)
		if tt.wantOK {
			assert.Equal(t, tt.wantQty, qty, "entry %q", tt.entry)
			assert.Equal(t, tt.want, term, "entry %q", tt.entry)
		}
	}
}

func TestResolveExactPrefersBarcodeThenName(t *testing.T) {
	t.Parallel()

	candidates := []posapi.Product{
		{ID: 1, Name: "Coca-Cola 2L", Barcode: "111"},
		{ID: 2, Name: "coca", Barcode: "789"},
		{ID: 3, Name: "Coca Zero", Barcode: "333"},
	}

	byBarcode, ok := ResolveExact("789", candidates)
	require.True(t, ok)
	assert.EqualValues(t, 2, byBarcode.ID)

	byName, ok := ResolveExact("COCA", candidates)
	require.True(t, ok)
	assert.EqualValues(t, 2, byName.ID)

	first, ok := ResolveExact("co", candidates)
	require.True(t, ok)
	assert.EqualValues(t, 1, first.ID)

	_, ok = ResolveExact("anything", nil)
	assert.False(t, ok)
}

func TestScanAppliesMultiplier(t *testing.T) {
	t.Parallel()

	api := &stubLookupAPI{lookupResults: []posapi.Product{{ID: 9, Name: "Pão Francês", Barcode: "555"}}}
	lookup, err := NewLookup(api, 2, 10)
	require.NoError(t, err)

	product, qty, err := lookup.Scan(context.Background(), "6*555")
	require.NoError(t, err)
	assert.EqualValues(t, 9, product.ID)
	assert.Equal(t, 6, qty)
	assert.Equal(t, "555", api.lastTerm)
}

func TestScanRejectsIncompleteEntry(t *testing.T) {
	t.Parallel()

	api := &stubLookupAPI{}
	lookup, err := NewLookup(api, 2, 10)
	require.NoError(t, err)

	_, _, scanErr := lookup.Scan(context.Background(), "4*")
	typed := pkgerrors.As(scanErr)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Zero(t, api.lookupCalls)
}

func TestScanNotFound(t *testing.T) {
	t.Parallel()

	api := &stubLookupAPI{lookupResults: nil}
	lookup, err := NewLookup(api, 2, 10)
	require.NoError(t, err)

	_, _, scanErr := lookup.Scan(context.Background(), "999999")
	typed := pkgerrors.As(scanErr)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSuggestHonorsMinLength(t *testing.T) {
	t.Parallel()

	api := &stubLookupAPI{searchResults: []posapi.Product{{ID: 1}}}
	lookup, err := NewLookup(api, 2, 10)
	require.NoError(t, err)

	results, err := lookup.Suggest(context.Background(), "c")
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Zero(t, api.searchCalls)

	results, err = lookup.Suggest(context.Background(), "3*co")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "co", api.lastTerm)
}
