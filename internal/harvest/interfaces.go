package harvest

import (
	"context"
	"errors"
)

// Sentinel errors shared by store implementations.
var (
	// ErrNotFound is returned by lookups that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned by DedupStore.Insert when the uniqueness
	// constraint on the source identifier rejected the write.
	ErrDuplicate = errors.New("duplicate key")
)

// DataSource provides paginated search plus per-entity enrichment.
type DataSource interface {
	SearchPage(ctx context.Context, query Query, page int) (SearchPage, error)
	FetchProfile(ctx context.Context, hit SearchHit, findEmail bool) (EntityResult, error)
}

// StateStore persists small run-scoped values under fixed keys.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// DedupStore is the shared claim store. Insert must surface the store's
// unique-index violation on SourceID as ErrDuplicate; that violation is the
// only cross-run synchronization primitive.
type DedupStore interface {
	FindBySourceID(ctx context.Context, sourceID string) (*EntityRecord, error)
	FindByEnrichedID(ctx context.Context, enrichedID string) (*EntityRecord, error)
	Insert(ctx context.Context, rec EntityRecord) error
	Update(ctx context.Context, sourceID string, enrichedID string, profile *Profile) error
}

// BillingGateway meters spend against the run's ceiling.
type BillingGateway interface {
	Charge(ctx context.Context, event string) (ChargeResult, error)
	Ceiling(ctx context.Context) (float64, error)
}

// Sink receives final items, optionally tagged with a billing category.
type Sink interface {
	Write(ctx context.Context, item Item, category string) error
}
