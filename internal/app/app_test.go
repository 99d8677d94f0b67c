package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaykas/booth-beacon-app-sub000/internal/config"
)

func memoryConfig() config.Config {
	return config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Fetch:   config.FetchConfig{Mode: config.FetchModeLocal},
		Crawler: config.CrawlerConfig{BudgetSeconds: 60, SafetyMarginSeconds: 5, PageLimit: 2},
		Cache:   config.CacheConfig{Provider: config.CacheMemory},
		Snapshots: config.SnapshotConfig{
			Provider: config.SnapshotMemory,
		},
		Sources: []config.SourceSeed{
			{ID: "photobooth-net", Name: "photobooth.net", URL: "https://photobooth.net/map", ExtractorType: "directory", Enabled: true, Priority: 10},
			{ID: "city-guide", Name: "cityguide.example", URL: "https://cityguide.example/booths", ExtractorType: "cityguide", Enabled: true},
		},
	}
}

func TestNewWiresMemoryBackends(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close(ctx)) }()

	assert.NotNil(t, a.Pipeline())
	assert.NotNil(t, a.Sources())
	assert.NotNil(t, a.Booths())
	assert.NotNil(t, a.Logger())
}

func TestSeedSources(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig())
	require.NoError(t, err)
	defer func() { _ = a.Close(ctx) }()

	n, err := a.SeedSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	listed, err := a.Sources().ListEnabled(ctx, "")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	// Priority order.
	assert.Equal(t, "photobooth.net", listed[0].Name)

	// Re-seeding is idempotent for configuration rows.
	_, err = a.SeedSources(ctx)
	require.NoError(t, err)
	listed, err = a.Sources().ListEnabled(ctx, "")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestNewRejectsUnknownFetchMode(t *testing.T) {
	cfg := memoryConfig()
	cfg.Fetch.Mode = "carrier-pigeon"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
