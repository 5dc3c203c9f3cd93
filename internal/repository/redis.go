package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"travelbook/internal/config"
	"travelbook/internal/domain"
	"travelbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStateRepository stores carts as Redis lists of JSON items so order is
// preserved, plus revoked-token markers and rate-limit counters.
type RedisStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStateRepository(client *redis.Client, ttl time.Duration) *RedisStateRepository {
	return &RedisStateRepository{
		client: client,
		ttl:    ttl,
	}
}

func cartKey(username string) string { return "cart:" + username }

// cartTxRetries bounds optimistic retries when the cart changes under WATCH.
const cartTxRetries = 5

func (r *RedisStateRepository) AddCartItem(ctx context.Context, username string, item *models.CartItem, limit int) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal cart item: %w", err)
	}

	key := cartKey(username)
	// длина проверяется под WATCH, иначе два параллельных запроса превысят лимит
	txf := func(tx *redis.Tx) error {
		if limit > 0 {
			n, err := tx.LLen(ctx, key).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if n >= int64(limit) {
				return domain.ErrCartFull
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, data)
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < cartTxRetries; i++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrCartFull):
		return err
	default:
		return fmt.Errorf("failed to add cart item in redis: %w", err)
	}
}

func (r *RedisStateRepository) ListCartItems(ctx context.Context, username string) ([]models.CartItem, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	raw, err := r.client.LRange(ctx, cartKey(username), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart from redis: %w", err)
	}

	items := make([]models.CartItem, 0, len(raw))
	for _, val := range raw {
		var item models.CartItem
		if err := json.Unmarshal([]byte(val), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *RedisStateRepository) GetCartItem(ctx context.Context, username, itemKey string) (*models.CartItem, error) {
	items, err := r.ListCartItems(ctx, username)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Key == itemKey {
			return &items[i], nil
		}
	}
	return nil, nil
}

func (r *RedisStateRepository) RemoveCartItem(ctx context.Context, username, itemKey string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := cartKey(username)
	raw, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return false, fmt.Errorf("failed to get cart from redis: %w", err)
	}

	for _, val := range raw {
		var item models.CartItem
		if err := json.Unmarshal([]byte(val), &item); err != nil {
			continue
		}
		if item.Key != itemKey {
			continue
		}
		removed, err := r.client.LRem(ctx, key, 1, val).Result()
		if err != nil {
			return false, fmt.Errorf("failed to remove cart item from redis: %w", err)
		}
		return removed > 0, nil
	}
	return false, nil
}

func (r *RedisStateRepository) ClearCart(ctx context.Context, username string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, cartKey(username)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart from redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, "revoked:"+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token in redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	n, err := r.client.Exists(ctx, "revoked:"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rlKey := "rate_limit:" + key
	count, err := r.client.Incr(ctx, rlKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, rlKey, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
