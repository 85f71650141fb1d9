// Package cache provides a Redis-backed query cache for serialized search
// responses, with singleflight suppression of concurrent identical queries.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/newa-nlp/newasearch/pkg/config"
	pkgredis "github.com/newa-nlp/newasearch/pkg/redis"
)

const keyPrefix = "search:"

// QueryCache stores serialized query responses in Redis keyed by a hash of
// the query parameters.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached payload for the given query parameters, if present.
func (c *QueryCache) Get(ctx context.Context, kind, query, op string, limit int) ([]byte, bool) {
	key := c.buildKey(kind, query, op, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "kind", kind, "query", query)
	return []byte(data), true
}

// Set stores a payload with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, kind, query, op string, limit int, payload []byte) {
	key := c.buildKey(kind, query, op, limit)
	if err := c.client.Set(ctx, key, payload, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached payload or computes, stores, and returns
// it. Concurrent identical queries share one computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	kind, query, op string,
	limit int,
	computeFn func() ([]byte, error),
) (payload []byte, cached bool, err error) {
	if data, ok := c.Get(ctx, kind, query, op, limit); ok {
		return data, true, nil
	}
	key := c.buildKey(kind, query, op, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if data, ok := c.Get(ctx, kind, query, op, limit); ok {
			return data, nil
		}
		data, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, kind, query, op, limit, data)
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// Invalidate removes every cached query response, used after an index
// reload.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return err
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

// Counters returns the running hit and miss counts.
func (c *QueryCache) Counters() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(kind, query, op string, limit int) string {
	raw := fmt.Sprintf("%s:%s:op=%s:limit=%d", kind, query, op, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
