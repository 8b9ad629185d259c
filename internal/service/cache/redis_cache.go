package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a BytesCache on a shared Redis client. Keys are namespaced
// with ns so DeletePrefix never touches other tenants of the database.
type RedisCache struct {
	cli *redis.Client
	ns  string
}

var _ BytesCache = (*RedisCache)(nil)

func NewRedisCache(cli *redis.Client, namespace string) *RedisCache {
	if namespace == "" {
		namespace = "stockcast:cache"
	}
	return &RedisCache{cli: cli, ns: namespace}
}

func (r *RedisCache) Name() string { return "redis" }

func (r *RedisCache) key(k string) string { return r.ns + ":" + k }

func (r *RedisCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.cli.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.cli.Set(ctx, r.key(key), value, ttl).Err()
}

// DeletePrefix walks matching keys with SCAN and deletes them in batches.
func (r *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.cli.Scan(ctx, 0, r.key(prefix)+"*", 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.cli.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := r.cli.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}
