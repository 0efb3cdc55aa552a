// Package budget implements the spending governor that gates all metered work.
package budget

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// MinimumCeilingUSD is the smallest ceiling that can pay for any useful
// amount of scraping. Runs configured below it are refused up front.
const MinimumCeilingUSD = 0.10

// ErrCeilingTooLow is returned by Preflight when the configured ceiling
// cannot cover the minimum viable cost.
var ErrCeilingTooLow = errors.New("charge ceiling below minimum viable cost")

// Governor wraps the billing gateway and latches once the ceiling is
// reached so no further charges are attempted.
type Governor struct {
	gateway harvest.BillingGateway
	logger  *zap.Logger

	mu        sync.Mutex
	exhausted bool
	counts    map[string]int
}

// NewGovernor constructs a Governor over the given gateway.
func NewGovernor(gateway harvest.BillingGateway, logger *zap.Logger) *Governor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Governor{
		gateway: gateway,
		logger:  logger,
		counts:  make(map[string]int),
	}
}

// Preflight verifies the ceiling can pay for at least a minimal run. It is
// called once before any work starts, separate from event-time checks.
func (g *Governor) Preflight(ctx context.Context) error {
	ceiling, err := g.gateway.Ceiling(ctx)
	if err != nil {
		return fmt.Errorf("read charge ceiling: %w", err)
	}
	if ceiling < MinimumCeilingUSD {
		g.logger.Warn("Charge ceiling too low to scrape anything",
			zap.Float64("ceiling_usd", ceiling),
			zap.Float64("minimum_usd", MinimumCeilingUSD),
		)
		return ErrCeilingTooLow
	}
	return nil
}

// Charge records one metered unit of the named event. Once the gateway
// reports the ceiling reached, the governor latches and every later call
// returns LimitReached without contacting the gateway.
func (g *Governor) Charge(ctx context.Context, event string) (harvest.ChargeResult, error) {
	g.mu.Lock()
	if g.exhausted {
		g.mu.Unlock()
		return harvest.ChargeResult{LimitReached: true}, nil
	}
	g.mu.Unlock()

	res, err := g.gateway.Charge(ctx, event)
	if err != nil {
		return harvest.ChargeResult{}, fmt.Errorf("charge %s: %w", event, err)
	}

	g.mu.Lock()
	if res.Charged {
		g.counts[event]++
	}
	if res.LimitReached {
		g.exhausted = true
	}
	g.mu.Unlock()

	if res.LimitReached {
		g.logger.Warn("Charge ceiling reached; stopping billable work", zap.String("event", event))
	}
	return res, nil
}

// Exhausted reports whether the ceiling has been reached.
func (g *Governor) Exhausted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.exhausted
}

// Counts returns a copy of the per-event charge counts recorded so far.
func (g *Governor) Counts() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.counts))
	for k, v := range g.counts {
		out[k] = v
	}
	return out
}
