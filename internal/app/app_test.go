// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/app"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/config"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.State.Provider = "memory"
	cfg.Sink.Provider = "memory"
	cfg.Dedup.Provider = "memory"
	return cfg
}

func TestNewAppMemoryProviders(t *testing.T) {
	ctx := context.Background()
	a, err := app.NewApp(ctx, memoryConfig(t))
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.NotNil(t, a.Logger())
	assert.NotNil(t, a.Source())
	assert.NotNil(t, a.States())
	assert.NotNil(t, a.Sink())
	assert.NotNil(t, a.Gateway())
	assert.NotEmpty(t, a.RunID())
	assert.Nil(t, a.Dedup(), "dedup off leaves the claim store unset")
}

func TestNewAppDedupMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	cfg.Dedup.Mode = string(harvest.DedupInsertIDs)

	a, err := app.NewApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.NotNil(t, a.Dedup())
}

// A dedup mode that needs a real store but has no connection string leaves
// the store unset rather than failing initialization; the command layer
// reports the condition as a terminal status.
func TestNewAppDedupWithoutConnectionString(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	cfg.Dedup.Mode = string(harvest.DedupInsertIDs)
	cfg.Dedup.Provider = "mongo"

	a, err := app.NewApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.Nil(t, a.Dedup())
}

func TestNewAppFileStateAndJSONLSink(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	dir := t.TempDir()
	cfg.State.Provider = "file"
	cfg.State.Dir = filepath.Join(dir, "state")
	cfg.Sink.Provider = "jsonl"
	cfg.Sink.Path = filepath.Join(dir, "items.jsonl")

	a, err := app.NewApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	require.NoError(t, a.States().Set(ctx, harvest.StateKey, []byte(`{"scrapedPageNumber":1}`)))
	got, err := a.States().Get(ctx, harvest.StateKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"scrapedPageNumber":1}`, string(got))
}
