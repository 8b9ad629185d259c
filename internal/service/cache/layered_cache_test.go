package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayeredCachePromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l1, l2 := NewTTLCache(), NewTTLCache()
	c := NewLayeredCache(l1, l2, time.Minute)

	require.NoError(t, l2.SetBytes(ctx, "predictions:7:1", []byte("shared"), time.Hour))

	b, ok, err := c.GetBytes(ctx, "predictions:7:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "shared", string(b))

	_, ok, _ = l1.GetBytes(ctx, "predictions:7:1")
	assert.True(t, ok, "L2 hit is copied into L1")
}

func TestLayeredCacheWriteAndPurge(t *testing.T) {
	ctx := context.Background()
	l1, l2 := NewTTLCache(), NewTTLCache()
	c := NewLayeredCache(l1, l2, time.Minute)

	require.NoError(t, c.SetBytes(ctx, "predictions:7:1", []byte("v"), time.Hour))
	_, ok, _ := l2.GetBytes(ctx, "predictions:7:1")
	assert.True(t, ok)

	require.NoError(t, c.DeletePrefix(ctx, "predictions:"))
	_, ok, _ = c.GetBytes(ctx, "predictions:7:1")
	assert.False(t, ok)
}

func TestLayeredCacheLocalTTL(t *testing.T) {
	c := NewLayeredCache(NewTTLCache(), NewTTLCache(), time.Minute)
	assert.Equal(t, time.Minute, c.localTTL(time.Hour))
	assert.Equal(t, 10*time.Second, c.localTTL(10*time.Second))
	assert.Equal(t, time.Minute, c.localTTL(0))
}
