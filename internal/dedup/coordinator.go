// Package dedup implements the cross-run deduplication protocol over the
// shared claim store.
//
// The store's unique index on the source identifier is the only
// synchronization primitive between concurrent runs: a duplicate-key
// violation on insert means another run claimed the entity first and is
// always mapped to Skip, never to an error. Any other store failure
// degrades to Proceed — availability of the harvest takes priority over
// perfect dedup bookkeeping.
package dedup

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Decision is the coordinator's verdict for one entity.
type Decision int

// Verdicts returned by Resolve.
const (
	Proceed Decision = iota
	Skip
)

// String returns the verdict name for logs.
func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "proceed"
}

// Coordinator decides, per entity identifier, whether work was already done
// elsewhere, and records new work idempotently under concurrent writers.
type Coordinator struct {
	store  harvest.DedupStore
	mode   harvest.DedupMode
	logger *zap.Logger
}

// NewCoordinator constructs a Coordinator. A nil store is only legal with
// mode off.
func NewCoordinator(store harvest.DedupStore, mode harvest.DedupMode, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{store: store, mode: mode, logger: logger}
}

// Mode returns the configured dedup mode.
func (c *Coordinator) Mode() harvest.DedupMode {
	return c.mode
}

// Resolve decides whether the entity identified by sourceID should be
// processed. In writing modes a successful claim record is inserted before
// Proceed is returned; losing the insert race is a Skip.
func (c *Coordinator) Resolve(ctx context.Context, sourceID string) Decision {
	if c.mode == harvest.DedupOff {
		return Proceed
	}

	rec, err := c.store.FindBySourceID(ctx, sourceID)
	switch {
	case err != nil && !errors.Is(err, harvest.ErrNotFound):
		c.logger.Error("Dedup lookup failed; proceeding without dedup",
			zap.String("source_id", sourceID), zap.Error(err))
		return Proceed
	case rec != nil && rec.EnrichedID != "":
		c.logger.Info("Skipping profile already present in the database",
			zap.String("source_id", sourceID))
		return Skip
	}

	if c.mode == harvest.DedupReadOnly {
		return Proceed
	}

	err = c.store.Insert(ctx, harvest.EntityRecord{SourceID: sourceID})
	switch {
	case errors.Is(err, harvest.ErrDuplicate):
		// Another run inserted the claim meanwhile.
		c.logger.Info("Skipping profile claimed by a concurrent run",
			zap.String("source_id", sourceID))
		return Skip
	case err != nil:
		c.logger.Error("Dedup claim insert failed; proceeding without dedup",
			zap.String("source_id", sourceID), zap.Error(err))
	}
	return Proceed
}

// ResolveEnriched checks whether a logically equivalent entity, reached via
// a different source identifier, was already fully enriched.
func (c *Coordinator) ResolveEnriched(ctx context.Context, enrichedID string) Decision {
	if c.mode == harvest.DedupOff {
		return Proceed
	}

	rec, err := c.store.FindByEnrichedID(ctx, enrichedID)
	if err != nil && !errors.Is(err, harvest.ErrNotFound) {
		c.logger.Error("Dedup enriched lookup failed; proceeding without dedup",
			zap.String("enriched_id", enrichedID), zap.Error(err))
		return Proceed
	}
	if rec != nil && rec.EnrichedID != "" {
		c.logger.Info("Skipping full profile already present in the database",
			zap.String("enriched_id", enrichedID))
		return Skip
	}
	return Proceed
}

// Commit marks the claim for sourceID as fully enriched. The payload is
// stored only in insert_profiles mode. Failures are logged and swallowed;
// the item has already been paid for and must still be emitted.
func (c *Coordinator) Commit(ctx context.Context, sourceID, enrichedID string, profile *harvest.Profile) {
	if c.mode == harvest.DedupOff || c.mode == harvest.DedupReadOnly {
		return
	}

	var payload *harvest.Profile
	if c.mode == harvest.DedupInsertProfiles {
		payload = profile
	}
	if err := c.store.Update(ctx, sourceID, enrichedID, payload); err != nil {
		c.logger.Error("Dedup commit failed",
			zap.String("source_id", sourceID),
			zap.String("enriched_id", enrichedID),
			zap.Error(err))
	}
}
