// Package local implements an in-process billing gateway with fixed
// per-event prices. It is used for development runs and tests; production
// runs meter against the platform gateway over HTTP.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// DefaultPrices mirrors the published per-event pricing in USD.
var DefaultPrices = map[string]float64{
	harvest.EventSearchPage:       0.002,
	harvest.EventFullProfile:      0.008,
	harvest.EventProfileWithEmail: 0.012,
}

// Gateway meters charges against a fixed ceiling. The charged total is
// monotonically non-decreasing and never exceeds the ceiling.
type Gateway struct {
	mu      sync.Mutex
	ceiling float64
	prices  map[string]float64
	total   float64
}

// New constructs a Gateway with the given ceiling. A nil price table falls
// back to DefaultPrices.
func New(ceilingUSD float64, prices map[string]float64) *Gateway {
	if prices == nil {
		prices = DefaultPrices
	}
	return &Gateway{ceiling: ceilingUSD, prices: prices}
}

// Charge applies one unit of the named event. A charge that would push the
// total past the ceiling is refused with LimitReached set; a charge that
// lands exactly on the ceiling is applied and also reports LimitReached.
func (g *Gateway) Charge(_ context.Context, event string) (harvest.ChargeResult, error) {
	price, ok := g.prices[event]
	if !ok {
		return harvest.ChargeResult{}, fmt.Errorf("unknown charge event %q", event)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.total+price > g.ceiling {
		return harvest.ChargeResult{LimitReached: true}, nil
	}
	g.total += price
	return harvest.ChargeResult{
		Charged:      true,
		LimitReached: g.ceiling-g.total < g.minPrice(),
	}, nil
}

// Ceiling returns the configured spending ceiling.
func (g *Gateway) Ceiling(_ context.Context) (float64, error) {
	return g.ceiling, nil
}

// Total returns the amount charged so far.
func (g *Gateway) Total() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.total
}

func (g *Gateway) minPrice() float64 {
	min := -1.0
	for _, p := range g.prices {
		if min < 0 || p < min {
			min = p
		}
	}
	return min
}
