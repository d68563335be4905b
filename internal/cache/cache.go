// Package cache provides a two-tier TTL cache for external provider
// responses: a hot in-process map backed by the store's persistent
// cache, so responses survive restarts when PostgreSQL is configured.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/internal/store"
)

const maxRawKeyLen = 200

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	backing store.CacheStore // nil = memory-only

	mu      sync.RWMutex
	entries map[string]entry
}

// New creates a cache. backing may be nil for a purely in-process cache.
func New(backing store.CacheStore) *Cache {
	return &Cache{
		backing: backing,
		entries: make(map[string]entry),
	}
}

// Key builds a stable cache key from a provider name and its request
// parameters. Long keys are digested so they stay index-friendly.
func Key(provider string, parts ...string) string {
	raw := provider + ":" + strings.Join(parts, ":")
	if len(raw) <= maxRawKeyLen {
		return raw
	}
	sum := md5.Sum([]byte(raw))
	return provider + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached value for key, falling back to the persistent
// tier on a hot-tier miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Now().Before(e.expiresAt) {
		return e.value, true
	}

	if c.backing == nil {
		return nil, false
	}
	value, err := c.backing.GetCacheEntry(ctx, key)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Put stores the value in both tiers.
func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	if c.backing != nil {
		if err := c.backing.PutCacheEntry(ctx, key, value, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to persist cache entry")
		}
	}
}

// Prune drops expired hot-tier entries and asks the persistent tier to
// do the same. Returns the number of hot-tier entries removed.
func (c *Cache) Prune(ctx context.Context) int {
	now := time.Now()

	c.mu.Lock()
	var pruned int
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			pruned++
		}
	}
	c.mu.Unlock()

	if c.backing != nil {
		if _, err := c.backing.PruneCache(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to prune persistent cache")
		}
	}
	return pruned
}
