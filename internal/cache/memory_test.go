package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "pagehash:src:1", "abc123", 0))
	val, ok, err := c.Get(ctx, "pagehash:src:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", val)

	require.NoError(t, c.Delete(ctx, "pagehash:src:1"))
	_, ok, err = c.Get(ctx, "pagehash:src:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	require.NoError(t, c.Set(ctx, "k", "v", time.Hour))

	now = now.Add(30 * time.Minute)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(31 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
