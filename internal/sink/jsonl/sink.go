// Package jsonl writes harvested items to a newline-delimited JSON file.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Sink appends one JSON object per item to a file.
type Sink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewSink opens (or creates) the output file in append mode.
func NewSink(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &Sink{file: f, enc: json.NewEncoder(f)}, nil
}

type line struct {
	harvest.Item
	Category string `json:"_category,omitempty"`
}

// Write appends the item as one JSON line.
func (s *Sink) Write(_ context.Context, item harvest.Item, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(line{Item: item, Category: category}); err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	return nil
}

// Close flushes and closes the output file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
