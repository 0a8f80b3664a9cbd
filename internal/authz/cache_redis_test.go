// AngelaMos | 2026
// cache_redis_test.go

package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(
	t *testing.T,
	resolver Resolver,
) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client, resolver, time.Minute), mr
}

func TestRedisCacheGetResolvesOnMissOnly(t *testing.T) {
	resolver := newCountingResolver(map[string]string{"user-1": "org-1"})
	cache, _ := newTestRedisCache(t, resolver)
	ctx := context.Background()

	first, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", first.OrganizationID)

	second, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, first.Permissions, second.Permissions)

	assert.Equal(t, 1, resolver.calls["user-1"])
}

func TestRedisCacheInvalidate(t *testing.T) {
	resolver := newCountingResolver(map[string]string{"user-1": "org-1"})
	cache, _ := newTestRedisCache(t, resolver)
	ctx := context.Background()

	_, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx, "user-1"))

	_, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.calls["user-1"])
}

func TestRedisCacheInvalidateOrganization(t *testing.T) {
	resolver := newCountingResolver(map[string]string{
		"user-1": "org-1",
		"user-2": "org-1",
		"user-3": "org-2",
	})
	cache, _ := newTestRedisCache(t, resolver)
	ctx := context.Background()

	for _, id := range []string{"user-1", "user-2", "user-3"} {
		_, err := cache.Get(ctx, id)
		require.NoError(t, err)
	}

	require.NoError(t, cache.InvalidateOrganization(ctx, "org-1"))

	_, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	_, err = cache.Get(ctx, "user-2")
	require.NoError(t, err)
	_, err = cache.Get(ctx, "user-3")
	require.NoError(t, err)

	assert.Equal(t, 2, resolver.calls["user-1"])
	assert.Equal(t, 2, resolver.calls["user-2"])
	assert.Equal(t, 1, resolver.calls["user-3"])
}

func TestRedisCacheCorruptEntryReresolves(t *testing.T) {
	resolver := newCountingResolver(map[string]string{"user-1": "org-1"})
	cache, mr := newTestRedisCache(t, resolver)
	ctx := context.Background()

	require.NoError(t, mr.Set(ctxKeyPrefix+"user-1", "not-json"))

	actx, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", actx.UserID)
	assert.Equal(t, 1, resolver.calls["user-1"])
}

func TestRedisCacheEntryExpiresViaTTL(t *testing.T) {
	resolver := newCountingResolver(map[string]string{"user-1": "org-1"})
	cache, mr := newTestRedisCache(t, resolver)
	ctx := context.Background()

	_, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.calls["user-1"])
}
