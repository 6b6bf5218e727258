package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name string `json:"name"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(2)
	require.NoError(t, err)

	var got entry
	assert.ErrorIs(t, c.Get(ctx, "a", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "a", entry{Name: "Jane"}, time.Minute))
	require.NoError(t, c.Get(ctx, "a", &got))
	assert.Equal(t, "Jane", got.Name)

	ok, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "a"))
	assert.ErrorIs(t, c.Get(ctx, "a", &got), ErrCacheMiss)

	t.Run("expired entries miss", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "b", entry{Name: "John"}, -time.Second))
		assert.ErrorIs(t, c.Get(ctx, "b", &got), ErrCacheMiss)
		ok, err := c.Exists(ctx, "b")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "x", entry{}, time.Minute))
		require.NoError(t, c.Set(ctx, "y", entry{}, time.Minute))
		require.NoError(t, c.Set(ctx, "z", entry{}, time.Minute))
		assert.ErrorIs(t, c.Get(ctx, "x", &got), ErrCacheMiss)
	})
}
