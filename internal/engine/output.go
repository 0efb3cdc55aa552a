package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/budget"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/metrics"
)

// EmitResult reports what the output pipeline did with one item.
type EmitResult struct {
	Written      bool
	LimitReached bool
}

// Output applies the per-item billing classification and writes to the sink.
type Output struct {
	sink     harvest.Sink
	governor *budget.Governor
	mode     harvest.ScraperMode
	logger   *zap.Logger
}

// NewOutput constructs an Output.
func NewOutput(sink harvest.Sink, governor *budget.Governor, mode harvest.ScraperMode, logger *zap.Logger) *Output {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Output{sink: sink, governor: governor, mode: mode, logger: logger}
}

// Emit charges the item's billing class and writes it to the sink. Skip
// markers and failures pass through silently. An item is only written when
// its charge was applied; a charge that lands on the ceiling still delivers
// the item it paid for.
func (o *Output) Emit(ctx context.Context, routed Routed, pagination *harvest.Pagination) (EmitResult, error) {
	if routed.Skipped || routed.Failed {
		return EmitResult{}, nil
	}

	item := harvest.Item{
		Hit:     routed.Hit,
		Profile: routed.Profile,
		Meta:    harvest.ItemMeta{Pagination: pagination},
	}

	if o.mode == harvest.ModeShort {
		if err := o.sink.Write(ctx, item, ""); err != nil {
			return EmitResult{}, fmt.Errorf("write item: %w", err)
		}
		metrics.ObserveItem("")
		o.logItem(item)
		return EmitResult{Written: true}, nil
	}

	event := enrichmentEvent(o.mode, routed.Payments)
	charge, err := o.governor.Charge(ctx, event)
	if err != nil {
		return EmitResult{}, err
	}
	if !charge.Charged {
		return EmitResult{LimitReached: charge.LimitReached}, nil
	}
	metrics.ObserveCharge(event)

	if err := o.sink.Write(ctx, item, event); err != nil {
		return EmitResult{LimitReached: charge.LimitReached}, fmt.Errorf("write item: %w", err)
	}
	metrics.ObserveItem(event)
	o.logItem(item)
	return EmitResult{Written: true, LimitReached: charge.LimitReached}, nil
}

func (o *Output) logItem(item harvest.Item) {
	ref := ""
	switch {
	case item.Profile != nil && item.Profile.LinkedinURL != "":
		ref = item.Profile.LinkedinURL
	case item.Profile != nil:
		ref = item.Profile.ID
	case item.Hit != nil && item.Hit.LinkedinURL != "":
		ref = item.Hit.LinkedinURL
	case item.Hit != nil:
		ref = item.Hit.ID
	}
	o.logger.Info("Scraped profile", zap.String("profile", ref))
}
