package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, harvest.ModeFull, cfg.ScraperMode())
	assert.Equal(t, 1_000_000, cfg.Scraper.MaxItems)
	assert.Equal(t, 1, cfg.Scraper.StartPage)
	assert.Equal(t, 100, cfg.Scraper.TakePages)
	assert.Equal(t, harvest.DedupOff, cfg.DedupMode())
	assert.Equal(t, "file", cfg.State.Provider)
	assert.Equal(t, "jsonl", cfg.Sink.Provider)
	assert.Equal(t, "local", cfg.Billing.Provider)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
scraper:
  mode: "Full + email search ($12 per 1k)"
  max_items: 50
query:
  search: "golang engineer"
  current_companies: ["acme corp"]
dedup:
  mode: insert_ids
  provider: memory
billing:
  ceiling_usd: 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, harvest.ModeEmail, cfg.ScraperMode())
	assert.Equal(t, 50, cfg.Scraper.MaxItems)
	assert.Equal(t, "golang engineer", cfg.Query.Search)
	assert.Equal(t, []string{"acme corp"}, cfg.Query.CurrentCompanies)
	assert.Equal(t, harvest.DedupInsertIDs, cfg.DedupMode())
	assert.InDelta(t, 2.5, cfg.Billing.CeilingUSD, 1e-9)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad dedup mode", func(c *Config) { c.Dedup.Mode = "sometimes" }},
		{"bad dedup provider", func(c *Config) { c.Dedup.Provider = "dynamo" }},
		{"bad state provider", func(c *Config) { c.State.Provider = "etcd" }},
		{"bad sink provider", func(c *Config) { c.Sink.Provider = "kafka" }},
		{"bad billing provider", func(c *Config) { c.Billing.Provider = "stripe" }},
		{"missing base url", func(c *Config) { c.Source.BaseURL = "" }},
		{"redis state without addr", func(c *Config) { c.State.Provider = "redis" }},
		{"pubsub sink without topic", func(c *Config) { c.Sink.Provider = "pubsub" }},
		{"http billing without base url", func(c *Config) { c.Billing.Provider = "http" }},
		{"negative ceiling", func(c *Config) { c.Billing.CeilingUSD = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HARVESTER_SCRAPER_MODE", "short")
	t.Setenv("HARVESTER_DEDUP_MODE", "read_only")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, harvest.ModeShort, cfg.ScraperMode())
	assert.Equal(t, harvest.DedupReadOnly, cfg.DedupMode())
}
