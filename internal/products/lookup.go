package products

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
	"github.com/pdvlabs/balcao/pkg/posapi"
)

// multiplierPattern captures the "N*term" / "Nxterm" barcode prefix
// cashiers type to add several units in one scan.
var multiplierPattern = regexp.MustCompile(`(?i)^(\d+)[x*](.+)$`)

// bareMultiplierPattern matches an incomplete entry like "3*" where the
// cashier has not typed the term yet.
var bareMultiplierPattern = regexp.MustCompile(`^\d+[x*]$`)

type lookupAPI interface {
	LookupProducts(ctx context.Context, term string) ([]posapi.Product, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]posapi.Product, error)
}

// Lookup resolves search-field input into products.
type Lookup struct {
	api       lookupAPI
	minLength int
	limit     int
}

// NewLookup builds the product resolver used by the POS search field.
func NewLookup(api lookupAPI, minLength, limit int) (*Lookup, error) {
	if api == nil {
		return nil, fmt.Errorf("lookup api required")
	}
	if minLength <= 0 {
		minLength = 2
	}
	if limit <= 0 {
		limit = 10
	}
	return &Lookup{api: api, minLength: minLength, limit: limit}, nil
}

// ParseQuantityPrefix splits a multiplier prefix off a search entry.
// "3*coca" yields (3, "coca"); input without a prefix yields (1, input).
// An incomplete entry like "3*" yields ok=false: no lookup should run.
func ParseQuantityPrefix(entry string) (quantity int, term string, ok bool) {
	trimmed := strings.TrimSpace(entry)
	if trimmed == "" || bareMultiplierPattern.MatchString(trimmed) {
		return 0, "", false
	}
	match := multiplierPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return 1, trimmed, true
	}
	qty, err := strconv.Atoi(match[1])
	if err != nil || qty <= 0 {
		return 1, trimmed, true
	}
	return qty, strings.TrimSpace(match[2]), true
}

// ResolveExact picks the product a scanned entry refers to: exact barcode
// match first, then exact name match ignoring case, then the first
// candidate returned by the backend.
func ResolveExact(term string, candidates []posapi.Product) (posapi.Product, bool) {
	if len(candidates) == 0 {
		return posapi.Product{}, false
	}
	for _, p := range candidates {
		if p.Barcode != "" && p.Barcode == term {
			return p, true
		}
	}
	for _, p := range candidates {
		if strings.EqualFold(p.Name, term) {
			return p, true
		}
	}
	return candidates[0], true
}

// Suggest returns autocomplete candidates for a partially typed term.
// Terms below the minimum length return nothing without a network call.
func (l *Lookup) Suggest(ctx context.Context, entry string) ([]posapi.Product, error) {
	_, term, ok := ParseQuantityPrefix(entry)
	if !ok || len(term) < l.minLength {
		return nil, nil
	}
	return l.api.SearchProducts(ctx, term, l.limit)
}

// Scan resolves a committed entry (Enter key / barcode scanner suffix)
// to a single product plus the parsed quantity multiplier.
func (l *Lookup) Scan(ctx context.Context, entry string) (posapi.Product, int, error) {
	qty, term, ok := ParseQuantityPrefix(entry)
	if !ok {
		return posapi.Product{}, 0, pkgerrors.New(pkgerrors.CodeValidation, "incomplete entry")
	}

	candidates, err := l.api.LookupProducts(ctx, term)
	if err != nil {
		return posapi.Product{}, 0, err
	}

	product, found := ResolveExact(term, candidates)
	if !found {
		return posapi.Product{}, 0, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no product matches %q", term))
	}
	return product, qty, nil
}
