package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// IQueryCache caches rendered query pages. Invalidate drops every cached page
// at once by moving to a new generation; stale generations expire by TTL.
//
// Get resolves key against the current generation and returns that slot
// whether or not it hit. A miss is filled by passing the same slot to Set, so
// a page computed before an Invalidate lands in the old generation and is
// never served.
type IQueryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (slot string, hit bool, err error)
	Set(ctx context.Context, slot string, value interface{}) error
	Invalidate(ctx context.Context) error
}

type redisQueryCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewQueryCache returns a Redis backed cache namespaced under prefix.
func NewQueryCache(rdb *redis.Client, prefix string, ttl time.Duration) IQueryCache {
	return &redisQueryCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *redisQueryCache) genKey() string {
	return c.prefix + ":gen"
}

func (c *redisQueryCache) pageKey(ctx context.Context, key string) (string, error) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read cache generation: %w", err)
	}
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key), nil
}

func (c *redisQueryCache) Get(ctx context.Context, key string, dest interface{}) (string, bool, error) {
	slot, err := c.pageKey(ctx, key)
	if err != nil {
		return "", false, err
	}
	data, err := c.rdb.Get(ctx, slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return slot, false, nil
	}
	if err != nil {
		return slot, false, fmt.Errorf("failed to read cached page: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return slot, false, fmt.Errorf("failed to decode cached page: %w", err)
	}
	return slot, true, nil
}

func (c *redisQueryCache) Set(ctx context.Context, slot string, value interface{}) error {
	if !strings.HasPrefix(slot, c.prefix+":") {
		return fmt.Errorf("cache slot %q is outside prefix %q", slot, c.prefix)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode page for cache: %w", err)
	}
	if err := c.rdb.Set(ctx, slot, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

func (c *redisQueryCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, c.genKey()).Err(); err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return nil
}
