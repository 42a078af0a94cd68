// Package cache wraps redis for read-side caching of hot lookups. The
// scheduling engine itself never reads through the cache; only GET handlers
// do, and every write path invalidates.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache is a thin JSON-blob cache over redis.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// New connects to redis and verifies connectivity.
func New(ctx context.Context, redisURL string, ttl time.Duration, log zerolog.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{rdb: rdb, ttl: ttl, log: log}, nil
}

// Get returns the cached value for key, or nil on a miss or error. Cache
// errors are logged and swallowed; the caller falls through to storage.
func (c *Cache) Get(ctx context.Context, key string) []byte {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return nil
	}
	return val
}

// Set stores val under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, val []byte) {
	if err := c.rdb.Set(ctx, key, val, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes keys. Used by write paths to invalidate.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Strs("keys", keys).Msg("cache delete failed")
	}
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
