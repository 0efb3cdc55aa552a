// Package memory provides an in-memory sink for development/testing.
package memory

import (
	"context"
	"sync"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Written is one captured sink write.
type Written struct {
	Item     harvest.Item
	Category string
}

// Sink records writes in order.
type Sink struct {
	mu     sync.Mutex
	writes []Written
}

// NewSink constructs an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Write appends the item.
func (s *Sink) Write(_ context.Context, item harvest.Item, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, Written{Item: item, Category: category})
	return nil
}

// Writes returns a copy of everything written so far.
func (s *Sink) Writes() []Written {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Written, len(s.writes))
	copy(out, s.writes)
	return out
}

// Len returns the number of writes.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}
