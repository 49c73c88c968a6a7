package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, 0)

	v, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "short", 1, time.Second)
	c.Set(ctx, "forever", 2, 0)

	now = now.Add(2 * time.Second)

	_, ok := c.Get(ctx, "short")
	assert.False(t, ok, "entry past its ttl must not be returned")

	v, ok := c.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	c.DeleteExpired()
	assert.Equal(t, 1, c.Len())
}

func TestCache_Delete(t *testing.T) {
	c := New[int, string](0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, 1, "x", 0)
	c.Delete(ctx, 1)

	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New[string, int](10 * time.Millisecond)
	c.Close()
	c.Close()
}
