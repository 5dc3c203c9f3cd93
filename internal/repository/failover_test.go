package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"travelbook/internal/domain"
	"travelbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) AddCartItem(ctx context.Context, username string, item *models.CartItem, limit int) error {
	args := m.Called(ctx, username, item, limit)
	return args.Error(0)
}

func (m *mockRepo) GetCartItem(ctx context.Context, username, key string) (*models.CartItem, error) {
	args := m.Called(ctx, username, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartItem), args.Error(1)
}

func (m *mockRepo) RemoveCartItem(ctx context.Context, username, key string) (bool, error) {
	args := m.Called(ctx, username, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) ListCartItems(ctx context.Context, username string) ([]models.CartItem, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CartItem), args.Error(1)
}

func (m *mockRepo) ClearCart(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *mockRepo) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	args := m.Called(ctx, jti, ttl)
	return args.Error(0)
}

func (m *mockRepo) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverStateRepository(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		items := []models.CartItem{{Key: "a"}}
		primary.On("ListCartItems", ctx, "tara").Return(items, nil).Once()

		got, err := repo.ListCartItems(ctx, "tara")
		assert.NoError(t, err)
		assert.Equal(t, items, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		items := []models.CartItem{{Key: "b"}}
		primary.On("ListCartItems", ctx, "ravi").Return(nil, errors.New("fail")).Once()
		fallback.On("ListCartItems", ctx, "ravi").Return(items, nil).Once()

		got, err := repo.ListCartItems(ctx, "ravi")
		assert.NoError(t, err)
		assert.Equal(t, items, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDownSkipsPrimary", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().UnixNano())
		item := &models.CartItem{Key: "c"}
		fallback.On("AddCartItem", ctx, "tara", item, 0).Return(nil).Once()

		assert.NoError(t, repo.AddCartItem(ctx, "tara", item, 0))
		fallback.AssertExpectations(t)
		primary.AssertNotCalled(t, "AddCartItem", ctx, "tara", item, 0)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("RemoveCartItem", ctx, "tara", "c").Return(true, nil).Once()

		removed, err := repo.RemoveCartItem(ctx, "tara", "c")
		assert.NoError(t, err)
		assert.True(t, removed)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("GetCartItem", ctx, "tara", "x").Return(nil, errors.New("still fail")).Once()
		fallback.On("GetCartItem", ctx, "tara", "x").Return(nil, nil).Once()

		got, err := repo.GetCartItem(ctx, "tara", "x")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("ClearCartFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("ClearCart", ctx, "tara").Return(errors.New("fail")).Once()
		fallback.On("ClearCart", ctx, "tara").Return(nil).Once()

		assert.NoError(t, repo.ClearCart(ctx, "tara"))
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SessionCallsFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("RevokeToken", ctx, "jti-1", time.Hour).Return(errors.New("fail")).Once()
		fallback.On("RevokeToken", ctx, "jti-1", time.Hour).Return(nil).Once()
		fallback.On("IsTokenRevoked", ctx, "jti-1").Return(true, nil).Once()

		assert.NoError(t, repo.RevokeToken(ctx, "jti-1", time.Hour))
		revoked, err := repo.IsTokenRevoked(ctx, "jti-1")
		assert.NoError(t, err)
		assert.True(t, revoked)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("CheckRateLimitSuccess", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("CheckRateLimit", ctx, "login:tara", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "login:tara", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		primary.AssertExpectations(t)
	})

	t.Run("CartFullKeepsPrimary", func(t *testing.T) {
		repo.isDown.Store(false)
		item := &models.CartItem{Key: "full"}
		primary.On("AddCartItem", ctx, "tara", item, 3).Return(domain.ErrCartFull).Once()

		err := repo.AddCartItem(ctx, "tara", item, 3)
		assert.ErrorIs(t, err, domain.ErrCartFull)
		assert.False(t, repo.isDown.Load())
		fallback.AssertNotCalled(t, "AddCartItem", ctx, "tara", item, 3)
		primary.AssertExpectations(t)
	})
}
