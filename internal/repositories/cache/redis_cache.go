package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/redis/go-redis/v9"
)

// RedisDashboardCache stores dashboard payloads as JSON strings.
type RedisDashboardCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewRedisDashboardCache wraps rdb. Keys are namespaced under prefix.
func NewRedisDashboardCache(rdb *redis.Client, prefix string) *RedisDashboardCache {
	return &RedisDashboardCache{rdb: rdb, prefix: prefix}
}

var _ portsrepo.DashboardCache = (*RedisDashboardCache)(nil)

func (c *RedisDashboardCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisDashboardCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisDashboardCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s for cache: %w", key, err)
	}
	if err := c.rdb.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisDashboardCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
