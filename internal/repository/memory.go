package repository

import (
	"context"
	"sync"
	"time"

	"travelbook/internal/domain"
	"travelbook/internal/models"
)

type memoryCart struct {
	items     []models.CartItem
	expiresAt time.Time
}

// MemoryStateRepository is the in-process fallback for Redis.
type MemoryStateRepository struct {
	mu         sync.Mutex
	carts      map[string]*memoryCart
	revoked    sync.Map
	rateLimits sync.Map
	ttl        time.Duration
	now        func() time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		carts: make(map[string]*memoryCart),
		ttl:   ttl,
		now:   time.Now,
	}
}

// cart returns the live cart for username, dropping it if expired. Caller holds mu.
func (r *MemoryStateRepository) cart(username string) *memoryCart {
	c, ok := r.carts[username]
	if !ok {
		return nil
	}
	if r.ttl > 0 && r.now().After(c.expiresAt) {
		delete(r.carts, username)
		return nil
	}
	return c
}

func (r *MemoryStateRepository) AddCartItem(_ context.Context, username string, item *models.CartItem, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.cart(username)
	if c == nil {
		c = &memoryCart{}
		r.carts[username] = c
	}
	if limit > 0 && len(c.items) >= limit {
		return domain.ErrCartFull
	}
	c.items = append(c.items, *item)
	c.expiresAt = r.now().Add(r.ttl)
	return nil
}

func (r *MemoryStateRepository) GetCartItem(_ context.Context, username, key string) (*models.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.cart(username)
	if c == nil {
		return nil, nil
	}
	for i := range c.items {
		if c.items[i].Key == key {
			item := c.items[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (r *MemoryStateRepository) RemoveCartItem(_ context.Context, username, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.cart(username)
	if c == nil {
		return false, nil
	}
	for i := range c.items {
		if c.items[i].Key == key {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			if len(c.items) == 0 {
				delete(r.carts, username)
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryStateRepository) ListCartItems(_ context.Context, username string) ([]models.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.cart(username)
	if c == nil {
		return []models.CartItem{}, nil
	}
	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out, nil
}

func (r *MemoryStateRepository) ClearCart(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, username)
	return nil
}

func (r *MemoryStateRepository) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.revoked.Store(jti, r.now().Add(ttl))
	return nil
}

func (r *MemoryStateRepository) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	val, ok := r.revoked.Load(jti)
	if !ok {
		return false, nil
	}
	if r.now().After(val.(time.Time)) {
		r.revoked.Delete(jti)
		return false, nil
	}
	return true, nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
