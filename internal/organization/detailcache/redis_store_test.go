package detailcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	detail := domain.OrganizationDetail{
		OrganizationName: "Acme",
		Members: []domain.Member{
			{Email: "a@x.io", Notes: []domain.NoteSummary{
				{ID: 7, Title: "hello", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			}},
		},
		LoadedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(ctx, "a@x.io", "Acme", detail))

	got, ok, err := store.Get(ctx, "a@x.io", "Acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, detail.OrganizationName, got.OrganizationName)
	assert.Equal(t, detail.Members[0].Notes[0].ID, got.Members[0].Notes[0].ID)
	assert.True(t, detail.LoadedAt.Equal(got.LoadedAt))

	assert.Equal(t, time.Hour, s.TTL("notewall:detail:a@x.io"))
}

func TestRedisStoreMissing(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, ok, err := store.Get(context.Background(), "a@x.io", "Acme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreDeleteAndClear(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a@x.io", "Acme", domain.OrganizationDetail{OrganizationName: "Acme"}))
	require.NoError(t, store.Put(ctx, "a@x.io", "Globex", domain.OrganizationDetail{OrganizationName: "Globex"}))

	require.NoError(t, store.Delete(ctx, "a@x.io", "Acme"))
	_, ok, err := store.Get(ctx, "a@x.io", "Acme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx, "a@x.io"))
	_, ok, err = store.Get(ctx, "a@x.io", "Globex")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreExpiresWithSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a@x.io", "Acme", domain.OrganizationDetail{OrganizationName: "Acme"}))
	s.FastForward(2 * time.Hour)

	_, ok, err := store.Get(ctx, "a@x.io", "Acme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheOverRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	loader := &countingLoader{}
	cache := newTestCache(t, loader, store)
	ctx := context.Background()

	first := cache.Get(ctx, "Acme")
	second := cache.Get(ctx, "Acme")

	assert.Equal(t, first.OrganizationName, second.OrganizationName)
	assert.Equal(t, int64(1), loader.calls.Load())
}

func TestRedisStoreReadsExtendSessionLifetime(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a@x.io", "Acme", domain.OrganizationDetail{OrganizationName: "Acme"}))
	s.FastForward(40 * time.Minute)

	_, ok, err := store.Get(ctx, "a@x.io", "Acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Hour, s.TTL("notewall:detail:a@x.io"))
}

func TestCacheOverRedisStoreKeepsReadDetails(t *testing.T) {
	store, s := setupTestRedis(t)
	loader := &countingLoader{}
	cache := newTestCache(t, loader, store)
	ctx := context.Background()

	cache.Get(ctx, "Acme")
	s.FastForward(40 * time.Minute)
	cache.Get(ctx, "Acme")
	s.FastForward(40 * time.Minute)
	detail := cache.Get(ctx, "Acme")

	assert.Equal(t, "Acme", detail.OrganizationName)
	assert.Equal(t, int64(1), loader.calls.Load())
}
