// Package cache provides the advisory Redis-backed query cache for the
// catalogue.
//
// The cache is strictly best-effort: every operation is failable and every
// failure is swallowed after logging (fail-open). A broken or absent cache
// degrades latency, never correctness, so no cache error may ever reach a
// client.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/geobim/geobim/internal/logger"
)

// KeyPrefix namespaces catalogue query entries. Invalidation removes the
// whole namespace.
const KeyPrefix = "buildings:"

// Config contains query-cache configuration.
type Config struct {
	// Enabled turns the cache on. Default: false (the cache is optional).
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// TTL is the entry lifetime. Default: 300s, matching the HTTP
	// max-age on catalogue responses.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.TTL == 0 {
		c.TTL = 300 * time.Second
	}
}

// QueryCache is a cache-aside store for serialized catalogue responses.
// A nil *QueryCache is valid and disables caching at every call site.
type QueryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps a Redis client as a query cache. Returns nil (cache disabled)
// when cfg.Enabled is false or rdb is nil.
func New(rdb *redis.Client, cfg *Config) *QueryCache {
	if cfg == nil || !cfg.Enabled || rdb == nil {
		return nil
	}
	cfg.ApplyDefaults()
	return &QueryCache{rdb: rdb, ttl: cfg.TTL}
}

// Get returns the cached body for key, or nil on miss or error.
func (c *QueryCache) Get(ctx context.Context, key string) []byte {
	if c == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, KeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Debug("query cache read failed", logger.KeyError, err)
		}
		return nil
	}
	return data
}

// Set stores body under key. Errors are logged and dropped.
func (c *QueryCache) Set(ctx context.Context, key string, body []byte) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, KeyPrefix+key, body, c.ttl).Err(); err != nil {
		logger.Debug("query cache write failed", logger.KeyError, err)
	}
}

// Invalidate drops every entry in the namespace. Called on any building
// mutation; a partial scan failure leaves stale entries that expire by TTL.
func (c *QueryCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}

	iter := c.rdb.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Debug("query cache scan failed", logger.KeyError, err)
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Debug("query cache invalidation failed", logger.KeyError, err)
	}
}
