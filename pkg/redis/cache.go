package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creatorhub/hub/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a namespaced JSON cache over Redis. Values are stored as raw JSON
// produced by the caller; the cache itself does not marshal.
type Cache struct {
	client *redis.Client
	name   string
	ttl    time.Duration
}

// NewCache creates a cache. name becomes both the key prefix and the label on
// the hub_cache_hits_total metric.
func NewCache(client *redis.Client, name string, ttl time.Duration) *Cache {
	return &Cache{client: client, name: name, ttl: ttl}
}

func (c *Cache) key(k string) string {
	return fmt.Sprintf("cache:%s:%s", c.name, k)
}

// Get returns the cached JSON for key, or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		metrics.CacheHits.WithLabelValues(c.name, "miss").Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	metrics.CacheHits.WithLabelValues(c.name, "hit").Inc()
	return val, nil
}

// Set stores JSON under key with the cache's TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Invalidate removes every key under the given prefix. Used on writes to drop
// a tenant's cached reads in one sweep.
func (c *Cache) Invalidate(ctx context.Context, prefix string) error {
	pattern := c.key(prefix) + "*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache invalidate: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	return nil
}

// SetNX sets key only if absent and reports whether it was set. Webhook
// handlers use it to deduplicate provider message IDs.
func SetNX(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (bool, error) {
	ok, err := client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	return ok, nil
}
