// Package redis persists run state in Redis, keyed per run, for
// deployments where the process can be migrated between hosts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Store implements harvest.StateStore on a Redis connection.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Config controls the Redis connection and key layout.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces keys, typically the run id.
	Prefix string
	// TTL bounds how long stale run state lingers; zero means no expiry.
	TTL time.Duration
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, harvest.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	return data, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}
