// Package cache is a pass-through Redis cache for read-heavy article
// endpoints. Every failure degrades to a direct database read; callers never
// see a cache error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTTL = 60 * time.Second

// Cache wraps a Redis client. A nil *Cache is valid and disables caching,
// so callers do not have to branch on configuration.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// New returns a cache backed by the Redis server at addr, or nil when addr
// is empty.
func New(addr string, log *zap.Logger) *Cache {
	if addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 500 * time.Millisecond,
	})

	return &Cache{rdb: rdb, ttl: defaultTTL, log: log}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// GetJSON loads key into v, reporting whether it was a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) bool {
	if c == nil {
		return false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		c.log.Debug("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores v under key with the cache TTL, best-effort.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	if c == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.log.Debug("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes keys, best-effort.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Debug("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// InvalidateLists drops every cached article list page.
func (c *Cache) InvalidateLists(ctx context.Context) {
	if c == nil {
		return
	}

	iter := c.rdb.Scan(ctx, 0, "articles:list:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Debug("cache scan failed", zap.Error(err))
		return
	}
	c.Invalidate(ctx, keys...)
}

// ArticleKey is the cache key for a single article.
func ArticleKey(id int64) string {
	return fmt.Sprintf("articles:id:%d", id)
}

// ListKey is the cache key for a page of the published article list.
func ListKey(page, perPage int) string {
	return fmt.Sprintf("articles:list:%d:%d", page, perPage)
}
