// Package mongo implements the shared dedup store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Database and collection the claim records live in. Shared by every run
// pointed at the same connection string.
const (
	DatabaseName   = "harvestapi"
	CollectionName = "linkedin_profiles"
)

// Store implements harvest.DedupStore over a MongoDB collection with
// unique indexes on salesNavId and profileId.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials MongoDB, pings it, and ensures the two unique indexes the
// dedup protocol depends on.
func Connect(ctx context.Context, connectionString string) (*Store, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{
		client:     client,
		collection: client.Database(DatabaseName).Collection(CollectionName),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "salesNavId", Value: 1}},
			Options: options.Index().SetName("sales_nav_id_idx").SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "profileId", Value: 1}},
			Options: options.Index().SetName("profile_id_idx").SetUnique(true).SetSparse(true),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(idxCtx, models); err != nil {
		return err
	}
	return nil
}

// FindBySourceID looks a claim up by its search-side identifier.
func (s *Store) FindBySourceID(ctx context.Context, sourceID string) (*harvest.EntityRecord, error) {
	return s.findOne(ctx, bson.M{"salesNavId": sourceID})
}

// FindByEnrichedID looks a claim up by its enriched identifier.
func (s *Store) FindByEnrichedID(ctx context.Context, enrichedID string) (*harvest.EntityRecord, error) {
	return s.findOne(ctx, bson.M{"profileId": enrichedID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*harvest.EntityRecord, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec harvest.EntityRecord
	err := s.collection.FindOne(opCtx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, harvest.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find claim: %w", err)
	}
	return &rec, nil
}

// Insert creates a new claim. The unique index on salesNavId arbitrates
// races between concurrent runs; losing is reported as ErrDuplicate.
func (s *Store) Insert(ctx context.Context, rec harvest.EntityRecord) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.collection.InsertOne(opCtx, rec)
	if mongo.IsDuplicateKeyError(err) {
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
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"profileId": enrichedID}
	if profile != nil {
		set["profile"] = profile
	}
	_, err := s.collection.UpdateOne(opCtx,
		bson.M{"salesNavId": sourceID},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(opCtx)
}
