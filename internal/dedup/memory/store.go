// Package memory provides an in-memory dedup store for development/testing.
package memory

import (
	"context"
	"sync"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Store implements harvest.DedupStore with the same uniqueness semantics as
// the real document store: inserts are rejected with ErrDuplicate when the
// source identifier already exists.
type Store struct {
	mu      sync.Mutex
	records map[string]*harvest.EntityRecord
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]*harvest.EntityRecord)}
}

// FindBySourceID looks a record up by its source identifier.
func (s *Store) FindBySourceID(_ context.Context, sourceID string) (*harvest.EntityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sourceID]
	if !ok {
		return nil, harvest.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// FindByEnrichedID scans for a record carrying the enriched identifier.
func (s *Store) FindByEnrichedID(_ context.Context, enrichedID string) (*harvest.EntityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.EnrichedID == enrichedID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, harvest.ErrNotFound
}

// Insert stores a new claim, enforcing uniqueness on the source identifier.
func (s *Store) Insert(_ context.Context, rec harvest.EntityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.SourceID]; exists {
		return harvest.ErrDuplicate
	}
	cp := rec
	s.records[rec.SourceID] = &cp
	return nil
}

// Update sets the enriched identifier (and optionally the payload) on an
// existing claim.
func (s *Store) Update(_ context.Context, sourceID, enrichedID string, profile *harvest.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sourceID]
	if !ok {
		return harvest.ErrNotFound
	}
	rec.EnrichedID = enrichedID
	if profile != nil {
		cp := *profile
		rec.Profile = &cp
	}
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
