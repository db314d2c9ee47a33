package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DETAIL_CACHE_BACKEND", "")
	t.Setenv("SESSION_TTL_SECONDS", "")

	cfg := Load()
	assert.Equal(t, CacheBackendMemory, cfg.DetailCacheBackend)
	assert.Equal(t, "X-User-Email", cfg.SessionHeader)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
}

func TestLoadNormalizesCacheBackend(t *testing.T) {
	t.Setenv("DETAIL_CACHE_BACKEND", " Redis ")
	assert.Equal(t, CacheBackendRedis, Load().DetailCacheBackend)

	t.Setenv("DETAIL_CACHE_BACKEND", "memcached")
	assert.Equal(t, CacheBackendMemory, Load().DetailCacheBackend)
}

func TestGetenvBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SEED_DEMO_DATA", "maybe")
	assert.False(t, Load().SeedDemoData)

	t.Setenv("SEED_DEMO_DATA", "on")
	assert.True(t, Load().SeedDemoData)
}

func TestAggregationConfigHolderDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewAggregationConfigHolder()
	require.NoError(t, err)
	assert.Equal(t, DefaultAggregationConfig(), holder.Get())
}

func TestStaticAggregationConfigHolderFillsZeroValues(t *testing.T) {
	holder := NewStaticAggregationConfigHolder(AggregationConfig{MaxConcurrency: 2})
	cfg := holder.Get()
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)

	var nilHolder *AggregationConfigHolder
	assert.Equal(t, DefaultAggregationConfig(), nilHolder.Get())
}

func TestOtelEnabledFollowsEndpoint(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTLP_ENDPOINT", "")
	assert.False(t, Load().OTELEnabled)

	t.Setenv("OTLP_ENDPOINT", "collector:4317")
	cfg := Load()
	assert.True(t, cfg.OTELEnabled)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)

	t.Setenv("OTEL_ENABLED", "false")
	assert.False(t, Load().OTELEnabled)
}
