// Package memory provides an in-memory state store for development/testing.
package memory

import (
	"context"
	"sync"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Store keeps key-value pairs in a map.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, harvest.ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Set stores value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.values[key] = cp
	return nil
}
