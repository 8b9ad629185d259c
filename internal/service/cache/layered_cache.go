package cache

import (
	"context"
	"time"
)

// LayeredCache keeps a short-lived in-process copy (L1) in front of a shared
// cache (L2). Writes go to L2 first so other instances see them.
type LayeredCache struct {
	l1    BytesCache
	l2    BytesCache
	l1TTL time.Duration
}

var _ BytesCache = (*LayeredCache)(nil)

// NewLayeredCache builds a two-level cache. Entries live in l1 for at most
// l1TTL; a non-positive l1TTL keeps the caller's ttl.
func NewLayeredCache(l1, l2 BytesCache, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2, l1TTL: l1TTL}
}

func (c *LayeredCache) Name() string { return "layered" }

func (c *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, err := c.l1.GetBytes(ctx, key); err == nil && ok {
		return b, true, nil
	}
	b, ok, err := c.l2.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.l1.SetBytes(ctx, key, b, c.l1TTL)
	return b, true, nil
}

func (c *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.l1.SetBytes(ctx, key, value, c.localTTL(ttl))
}

func (c *LayeredCache) DeletePrefix(ctx context.Context, prefix string) error {
	if err := c.l2.DeletePrefix(ctx, prefix); err != nil {
		return err
	}
	return c.l1.DeletePrefix(ctx, prefix)
}

func (c *LayeredCache) localTTL(ttl time.Duration) time.Duration {
	if c.l1TTL <= 0 || (ttl > 0 && ttl < c.l1TTL) {
		return ttl
	}
	return c.l1TTL
}
