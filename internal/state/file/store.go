// Package file persists run state as JSON files under a local directory.
// It is the default state store for single-host runs; the redis provider
// covers deployments where the process can be rescheduled across hosts.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

var validKey = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Store writes one file per key under a base directory.
type Store struct {
	dir string
}

// NewStore creates the base directory if needed and returns a Store.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Get reads the value stored under key, or ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, harvest.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", key, err)
	}
	return data, nil
}

// Set writes value under key atomically via a rename.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("write state %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit state %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid state key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}
