// AngelaMos | 2026
// cache.go

package authz

import (
	"context"
	"sync"
	"time"
)

// ContextCache serves authorization contexts with a fixed TTL. Get must
// resolve on miss; Invalidate and InvalidateOrganization must complete
// synchronously so the next request observes updated authorization.
// Sweep removes expired entries to bound memory growth.
type ContextCache interface {
	Get(ctx context.Context, userID string) (*Context, error)
	Invalidate(ctx context.Context, userID string) error
	InvalidateOrganization(ctx context.Context, organizationID string) error
	Sweep(ctx context.Context) (int, error)
}

type cacheEntry struct {
	context   *Context
	expiresAt time.Time
}

// MemoryCache is the single-process implementation: a map keyed by user
// id behind an RWMutex. Two concurrent misses for the same user may both
// resolve (a stampede); the rebuild is idempotent, so correctness is
// unaffected. Note the limitation: invalidation is not visible to other
// instances, which serve stale contexts until their local TTL expires.
// Use RedisCache when running more than one process.
type MemoryCache struct {
	resolver Resolver
	ttl      time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewMemoryCache(resolver Resolver, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		resolver: resolver,
		ttl:      ttl,
		entries:  make(map[string]cacheEntry),
	}
}

func (c *MemoryCache) Get(
	ctx context.Context,
	userID string,
) (*Context, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.context, nil
	}

	// Resolve outside the lock; the fetch must never block readers of
	// other keys.
	resolved, err := c.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[userID] = cacheEntry{
		context:   resolved,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	return resolved, nil
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) InvalidateOrganization(
	_ context.Context,
	organizationID string,
) error {
	c.mu.Lock()
	for userID, entry := range c.entries {
		if entry.context.OrganizationID == organizationID {
			delete(c.entries, userID)
		}
	}
	c.mu.Unlock()
	return nil
}

// Sweep removes expired entries regardless of access patterns. It only
// touches the in-memory map and never performs I/O under the lock.
func (c *MemoryCache) Sweep(_ context.Context) (int, error) {
	now := time.Now()
	removed := 0

	c.mu.Lock()
	for userID, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, userID)
			removed++
		}
	}
	c.mu.Unlock()

	return removed, nil
}

// Len reports the number of cached entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
