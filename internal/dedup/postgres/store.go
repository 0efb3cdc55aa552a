// Package postgres implements the shared dedup store on PostgreSQL for
// deployments without a MongoDB. A unique constraint on sales_nav_id plays
// the same arbitration role as the document store's unique index.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// uniqueViolation is the Postgres SQLSTATE for unique-constraint failures.
const uniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements harvest.DedupStore over the linkedin_profiles table.
type Store struct {
	pool querier
}

const schema = `
CREATE TABLE IF NOT EXISTS linkedin_profiles (
    sales_nav_id TEXT PRIMARY KEY,
    profile_id   TEXT UNIQUE,
    profile      JSONB
)`

// Connect opens a pool against the DSN and ensures the claim table exists.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: pool}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure claim table: %w", err)
	}
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool querier) *Store {
	return &Store{pool: pool}
}

// FindBySourceID looks a claim up by its search-side identifier.
func (s *Store) FindBySourceID(ctx context.Context, sourceID string) (*harvest.EntityRecord, error) {
	return s.findOne(ctx,
		`SELECT sales_nav_id, COALESCE(profile_id, ''), profile FROM linkedin_profiles WHERE sales_nav_id = $1`,
		sourceID)
}

// FindByEnrichedID looks a claim up by its enriched identifier.
func (s *Store) FindByEnrichedID(ctx context.Context, enrichedID string) (*harvest.EntityRecord, error) {
	return s.findOne(ctx,
		`SELECT sales_nav_id, COALESCE(profile_id, ''), profile FROM linkedin_profiles WHERE profile_id = $1`,
		enrichedID)
}

func (s *Store) findOne(ctx context.Context, query, arg string) (*harvest.EntityRecord, error) {
	var rec harvest.EntityRecord
	var payload []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&rec.SourceID, &rec.EnrichedID, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, harvest.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find claim: %w", err)
	}
	if len(payload) > 0 {
		var profile harvest.Profile
		if err := json.Unmarshal(payload, &profile); err != nil {
			return nil, fmt.Errorf("decode claim payload: %w", err)
		}
		rec.Profile = &profile
	}
	return &rec, nil
}

// Insert creates a new claim; a unique violation maps to ErrDuplicate.
func (s *Store) Insert(ctx context.Context, rec harvest.EntityRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO linkedin_profiles (sales_nav_id) VALUES ($1)`,
		rec.SourceID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return harvest.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// Update sets the enriched identifier, and the payload when provided, on
// the claim for sourceID.
func (s *Store) Update(ctx context.Context, sourceID, enrichedID string, profile *harvest.Profile) error {
	var payload []byte
	if profile != nil {
		var err error
		payload, err = json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("encode claim payload: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE linkedin_profiles SET profile_id = $2, profile = COALESCE($3, profile) WHERE sales_nav_id = $1`,
		sourceID, enrichedID, payload)
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	s.pool.Close()
}
