package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/budget"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/dedup"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/metrics"
)

// Routed is the router's verdict for one raw search hit.
type Routed struct {
	// Skipped marks an item that must not be charged or written.
	Skipped    bool
	SkipReason string
	// Failed marks a recoverable single-item failure (fetch error, empty
	// enrichment). Not billable, not written, does not abort the run.
	Failed bool

	Hit      *harvest.SearchHit
	Profile  *harvest.Profile
	Payments []string

	// LimitReached is set when a charge issued while routing (for work
	// already consumed by a concurrent run) hit the ceiling.
	LimitReached bool
}

// Router decides, per raw hit, whether to skip, return the cheap
// projection, or perform the full enrichment fetch.
type Router struct {
	source   harvest.DataSource
	dedup    *dedup.Coordinator
	governor *budget.Governor
	mode     harvest.ScraperMode
	logger   *zap.Logger
}

// NewRouter constructs a Router.
func NewRouter(
	source harvest.DataSource,
	coordinator *dedup.Coordinator,
	governor *budget.Governor,
	mode harvest.ScraperMode,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Router{
		source:   source,
		dedup:    coordinator,
		governor: governor,
		mode:     mode,
		logger:   logger,
	}
}

// Route runs one hit through dedup and, in full/email modes, the
// enrichment fetch. The returned error is reserved for billing gateway
// failures; everything item-scoped degrades into the Routed verdict.
func (r *Router) Route(ctx context.Context, hit harvest.SearchHit) (Routed, error) {
	if hit.ID == "" {
		metrics.ObserveSkip("no_id")
		return Routed{Skipped: true, SkipReason: "no_id"}, nil
	}

	if r.dedup.Resolve(ctx, hit.ID) == dedup.Skip {
		metrics.ObserveSkip("dedup")
		return Routed{Skipped: true, SkipReason: "dedup"}, nil
	}

	if r.mode == harvest.ModeShort {
		return Routed{Hit: &hit}, nil
	}

	metrics.IncInFlight()
	res, err := r.source.FetchProfile(ctx, hit, r.mode == harvest.ModeEmail)
	metrics.DecInFlight()
	if err != nil {
		r.logger.Warn("Profile fetch failed",
			zap.String("source_id", hit.ID), zap.Error(err))
		return Routed{Failed: true}, nil
	}
	if res.Profile == nil || res.Profile.ID == "" {
		r.logger.Warn("Profile fetch returned no entity",
			zap.String("source_id", hit.ID), zap.Int("status", res.Status))
		return Routed{Failed: true}, nil
	}
	profile := res.Profile
	profile.OpenProfile = profile.OpenProfile || hit.OpenProfile

	if r.dedup.ResolveEnriched(ctx, profile.ID) == dedup.Skip {
		// The fetch already happened and its cost was incurred upstream;
		// account for the consumed enrichment class even though the item
		// is not emitted.
		event := enrichmentEvent(r.mode, res.Payments)
		charge, err := r.governor.Charge(ctx, event)
		if err != nil {
			return Routed{}, err
		}
		if charge.Charged {
			metrics.ObserveCharge(event)
		}
		r.dedup.Commit(ctx, hit.ID, profile.ID, profile)
		metrics.ObserveSkip("dedup_enriched")
		return Routed{
			Skipped:      true,
			SkipReason:   "dedup_enriched",
			LimitReached: charge.LimitReached,
		}, nil
	}

	r.dedup.Commit(ctx, hit.ID, profile.ID, profile)
	return Routed{Profile: profile, Payments: res.Payments}, nil
}

// enrichmentEvent maps a mode plus the payments actually consumed to the
// charge event. The email tier is only charged when the source reports the
// email payment, so the higher tier is never billed without the result.
func enrichmentEvent(mode harvest.ScraperMode, payments []string) string {
	if mode == harvest.ModeEmail {
		for _, p := range payments {
			if p == harvest.PaymentProfileWithEmail {
				return harvest.EventProfileWithEmail
			}
		}
	}
	return harvest.EventFullProfile
}
