package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateRepository_Cart(t *testing.T) {
	repo := NewMemoryStateRepository(time.Hour)
	ctx := context.Background()

	t.Run("AddRemoveToEmpty", func(t *testing.T) {
		item := cartItem("only", "A", "B")
		require.NoError(t, repo.AddCartItem(ctx, "tara", item, 0))

		items, err := repo.ListCartItems(ctx, "tara")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "A", items[0].From)
		assert.Equal(t, 2, items[0].Adults)

		removed, err := repo.RemoveCartItem(ctx, "tara", "only")
		require.NoError(t, err)
		assert.True(t, removed)

		items, err = repo.ListCartItems(ctx, "tara")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("RemoveMiddleKeepsOthers", func(t *testing.T) {
		for _, k := range []string{"a", "b", "c"} {
			require.NoError(t, repo.AddCartItem(ctx, "ravi", cartItem(k, "X", k), 0))
		}
		removed, err := repo.RemoveCartItem(ctx, "ravi", "b")
		require.NoError(t, err)
		assert.True(t, removed)

		items, err := repo.ListCartItems(ctx, "ravi")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "a", items[0].Key)
		assert.Equal(t, "c", items[1].Key)

		got, err := repo.GetCartItem(ctx, "ravi", "c")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "c", got.To)
	})

	t.Run("Expiry", func(t *testing.T) {
		now := time.Now()
		repo.now = func() time.Time { return now }
		require.NoError(t, repo.AddCartItem(ctx, "mia", cartItem("m", "A", "B"), 0))

		repo.now = func() time.Time { return now.Add(2 * time.Hour) }
		items, err := repo.ListCartItems(ctx, "mia")
		require.NoError(t, err)
		assert.Empty(t, items)
		repo.now = time.Now
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, repo.ClearCart(ctx, "ravi"))
		items, err := repo.ListCartItems(ctx, "ravi")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestMemoryStateRepository_Sessions(t *testing.T) {
	repo := NewMemoryStateRepository(time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.RevokeToken(ctx, "jti", time.Minute))
	revoked, err := repo.IsTokenRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	now := time.Now()
	repo.now = func() time.Time { return now.Add(2 * time.Minute) }
	revoked, err = repo.IsTokenRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	limit := 2
	allowed, _ := repo.CheckRateLimit(ctx, "k", limit, time.Minute)
	assert.True(t, allowed)
	allowed, _ = repo.CheckRateLimit(ctx, "k", limit, time.Minute)
	assert.True(t, allowed)
	allowed, _ = repo.CheckRateLimit(ctx, "k", limit, time.Minute)
	assert.False(t, allowed)
}
