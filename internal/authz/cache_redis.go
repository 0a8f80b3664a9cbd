// AngelaMos | 2026
// cache_redis.go

package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ctxKeyPrefix = "authz:ctx:"
	orgKeyPrefix = "authz:org:"
)

// RedisCache is the shared implementation of ContextCache. Contexts are
// stored as JSON with a redis TTL; an org -> user-id set index makes
// organization-wide invalidation a single round trip. Because the store
// is shared, an invalidation on one instance is observed by all.
type RedisCache struct {
	client   *redis.Client
	resolver Resolver
	ttl      time.Duration
}

func NewRedisCache(
	client *redis.Client,
	resolver Resolver,
	ttl time.Duration,
) *RedisCache {
	return &RedisCache{client: client, resolver: resolver, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, userID string) (*Context, error) {
	raw, err := c.client.Get(ctx, ctxKeyPrefix+userID).Bytes()
	if err == nil {
		var cached Context
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return &cached, nil
		}
		// Corrupt entry: drop it and fall through to a fresh resolve.
		//nolint:errcheck // best-effort cleanup
		_ = c.client.Del(ctx, ctxKeyPrefix+userID).Err()
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("authz cache get: %w", err)
	}

	resolved, err := c.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, resolved); err != nil {
		return nil, err
	}

	return resolved, nil
}

func (c *RedisCache) store(ctx context.Context, resolved *Context) error {
	raw, err := json.Marshal(resolved)
	if err != nil {
		return fmt.Errorf("authz cache encode: %w", err)
	}

	orgKey := orgKeyPrefix + resolved.OrganizationID

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, ctxKeyPrefix+resolved.UserID, raw, c.ttl)
	pipe.SAdd(ctx, orgKey, resolved.UserID)
	pipe.Expire(ctx, orgKey, c.ttl*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("authz cache set: %w", err)
	}

	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, ctxKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("authz cache invalidate: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateOrganization(
	ctx context.Context,
	organizationID string,
) error {
	orgKey := orgKeyPrefix + organizationID

	userIDs, err := c.client.SMembers(ctx, orgKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("authz cache org members: %w", err)
	}

	keys := make([]string, 0, len(userIDs)+1)
	for _, id := range userIDs {
		keys = append(keys, ctxKeyPrefix+id)
	}
	keys = append(keys, orgKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("authz cache invalidate org: %w", err)
	}

	return nil
}

// Sweep is a no-op for redis: entries expire server-side via TTL.
func (c *RedisCache) Sweep(_ context.Context) (int, error) {
	return 0, nil
}
