package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"travelbook/internal/domain"
	"travelbook/internal/models"

	"github.com/rs/zerolog"
)

// recoveryInterval is how long the primary stays bypassed after a failure.
const recoveryInterval = time.Minute

// FailoverStateRepository routes calls to the primary store and switches to
// the fallback when the primary errors. The primary is retried after
// recoveryInterval.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverStateRepository) shouldTryPrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func withFailover[T any](r *FailoverStateRepository, call func(domain.StateRepository) (T, error)) (T, error) {
	if r.shouldTryPrimary() {
		wasDown := r.isDown.Load()
		res, err := call(r.primary)
		if errors.Is(err, domain.ErrCartFull) {
			// отказ по бизнес-правилу, хранилище исправно
			return res, err
		}
		if err == nil {
			if wasDown {
				r.isDown.Store(false)
				r.logger.Info().Msg("Primary state repository recovered")
			}
			return res, nil
		}
		r.markDown(err)
	}
	return call(r.fallback)
}

func (r *FailoverStateRepository) AddCartItem(ctx context.Context, username string, item *models.CartItem, limit int) error {
	_, err := withFailover(r, func(repo domain.StateRepository) (struct{}, error) {
		return struct{}{}, repo.AddCartItem(ctx, username, item, limit)
	})
	return err
}

func (r *FailoverStateRepository) GetCartItem(ctx context.Context, username, key string) (*models.CartItem, error) {
	return withFailover(r, func(repo domain.StateRepository) (*models.CartItem, error) {
		return repo.GetCartItem(ctx, username, key)
	})
}

func (r *FailoverStateRepository) RemoveCartItem(ctx context.Context, username, key string) (bool, error) {
	return withFailover(r, func(repo domain.StateRepository) (bool, error) {
		return repo.RemoveCartItem(ctx, username, key)
	})
}

func (r *FailoverStateRepository) ListCartItems(ctx context.Context, username string) ([]models.CartItem, error) {
	return withFailover(r, func(repo domain.StateRepository) ([]models.CartItem, error) {
		return repo.ListCartItems(ctx, username)
	})
}

func (r *FailoverStateRepository) ClearCart(ctx context.Context, username string) error {
	_, err := withFailover(r, func(repo domain.StateRepository) (struct{}, error) {
		return struct{}{}, repo.ClearCart(ctx, username)
	})
	return err
}

func (r *FailoverStateRepository) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	_, err := withFailover(r, func(repo domain.StateRepository) (struct{}, error) {
		return struct{}{}, repo.RevokeToken(ctx, jti, ttl)
	})
	return err
}

func (r *FailoverStateRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return withFailover(r, func(repo domain.StateRepository) (bool, error) {
		return repo.IsTokenRevoked(ctx, jti)
	})
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return withFailover(r, func(repo domain.StateRepository) (bool, error) {
		return repo.CheckRateLimit(ctx, key, limit, window)
	})
}
