package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"attendtrack/internal/metrics"
)

// Cache stores rendered report payloads in redis for a short TTL.
// Reports are rebuilt from scratch on every request otherwise, and the
// common case is the same viewer re-sorting the same filtered page.
// A nil *Cache is valid and disables caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a cache; returns nil when the client is absent so callers
// can stay nil-safe.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

// Key derives a stable cache key from the viewer and request identity.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "report:" + hex.EncodeToString(sum[:16])
}

// Get returns a cached payload, or nil. Redis failures count as misses;
// staleness handling stays with the TTL, never with an error path.
func (c *Cache) Get(ctx context.Context, key string) []byte {
	if c == nil {
		return nil
	}
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return b
}

// Set stores a payload, best effort.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) {
	if c == nil {
		return
	}
	c.client.Set(ctx, key, payload, c.ttl)
}
