package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const deleteRetryTimeout = 2 * time.Second

// RedisCache stores JSON-encoded values in Redis so several server
// processes share one view of the household data.
type RedisCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

func NewRedisCache[T any](client *redis.Client, prefix string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache[T]) key(k string) string {
	return c.prefix + ":" + k
}

func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "Redis get failed", "key", key, "error", err)
		}
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.WarnContext(ctx, "Discarding undecodable cache entry", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.WarnContext(ctx, "Cache value not encodable", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis set failed", "key", key, "error", err)
	}
}

// Delete retries once on a context detached from the caller, since a
// cancelled request must not leave a stale entry behind.
func (c *RedisCache[T]) Delete(ctx context.Context, key string) {
	err := c.client.Del(ctx, c.key(key)).Err()
	if err == nil {
		return
	}
	slog.WarnContext(ctx, "Redis delete failed, retrying", "key", key, "error", err)

	retryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteRetryTimeout)
	defer cancel()
	if err := c.client.Del(retryCtx, c.key(key)).Err(); err != nil {
		slog.ErrorContext(ctx, "Redis delete failed, entry expires with its TTL", "key", key, "ttl", c.ttl, "error", err)
	}
}
