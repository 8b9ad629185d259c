package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "predictions:7:1", []byte("a"), time.Minute))
	require.NoError(t, c.SetBytes(ctx, "forever", []byte("b"), 0))

	b, ok, err := c.GetBytes(ctx, "predictions:7:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", string(b))

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.GetBytes(ctx, "predictions:7:1")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "forever")
	assert.True(t, ok)
}

func TestTTLCacheDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache()
	_ = c.SetBytes(ctx, "predictions:7:1", []byte("a"), 0)
	_ = c.SetBytes(ctx, "predictions:14:1", []byte("b"), 0)
	_ = c.SetBytes(ctx, "other", []byte("c"), 0)

	require.NoError(t, c.DeletePrefix(ctx, "predictions:"))

	_, ok, _ := c.GetBytes(ctx, "predictions:7:1")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "predictions:14:1")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "other")
	assert.True(t, ok)
}
