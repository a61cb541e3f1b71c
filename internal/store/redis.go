// internal/store/redis.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores keys in Redis under a per-profile prefix, so several
// headless clients (bots, soak tests) can share one Redis.
type RedisBackend struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(rdb *redis.Client, profile string) *RedisBackend {
	return &RedisBackend{rdb: rdb, prefix: "uno:" + profile + ":"}
}

// ConnectRedisBackend dials addr/db and pings it before returning.
func ConnectRedisBackend(addr string, db int, profile string) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewRedisBackend(rdb, profile), nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}

// Close releases the underlying client.
func (r *RedisBackend) Close() error {
	return r.rdb.Close()
}
