package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkpro/desk/internal/domain"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisCatalogCache, *RedisRevocationList, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCatalogCache(client, ttl), NewRedisRevocationList(client), mr
}

func TestRedisCatalogCacheRoundTrip(t *testing.T) {
	catalogCache, _, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	_, err := catalogCache.GetProducts(ctx, "t1")
	require.ErrorIs(t, err, ErrCacheMiss)

	products := []domain.Product{{ID: "P1", Name: "Sparkler", Price: 100, StockAvailable: 5, Active: true}}
	require.NoError(t, catalogCache.SetProducts(ctx, "t1", products))
	require.True(t, mr.Exists("catalog:t1:products"))

	got, err := catalogCache.GetProducts(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, products, got)

	boxes := []domain.GiftBox{{ID: "G1", Name: "Diwali Box", GrandTotal: 500, StockAvailable: 2, Active: true}}
	require.NoError(t, catalogCache.SetGiftBoxes(ctx, "t1", boxes))

	mr.FastForward(2 * time.Minute)
	_, err = catalogCache.GetGiftBoxes(ctx, "t1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCatalogCacheInvalidate(t *testing.T) {
	catalogCache, _, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, catalogCache.SetProducts(ctx, "t1", []domain.Product{{ID: "P1"}}))
	require.NoError(t, catalogCache.SetGiftBoxes(ctx, "t1", []domain.GiftBox{{ID: "G1"}}))
	require.NoError(t, catalogCache.Invalidate(ctx, "t1"))

	assert.False(t, mr.Exists("catalog:t1:products"))
	assert.False(t, mr.Exists("catalog:t1:giftboxes"))
}

func TestRedisCatalogCacheDisabledWithoutTTL(t *testing.T) {
	catalogCache, _, mr := setupTestRedis(t, 0)

	require.NoError(t, catalogCache.SetProducts(context.Background(), "t1", []domain.Product{{ID: "P1"}}))
	assert.False(t, mr.Exists("catalog:t1:products"))
}

func TestRedisRevocationListStoresDigestOnly(t *testing.T) {
	_, revocations, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, revocations.Revoke(ctx, "raw-token", time.Now().Add(time.Hour)))

	revoked, err := revocations.IsRevoked(ctx, "raw-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "raw-token")
	}

	revoked, err = revocations.IsRevoked(ctx, "other-token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocationListExpires(t *testing.T) {
	list := NewMemoryRevocationList()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	list.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "tok", now.Add(time.Minute)))
	revoked, _ := list.IsRevoked(ctx, "tok")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = list.IsRevoked(ctx, "tok")
	assert.False(t, revoked)
}
