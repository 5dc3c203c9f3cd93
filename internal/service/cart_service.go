package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"travelbook/internal/domain"
	"travelbook/internal/metrics"
	"travelbook/internal/models"
	"travelbook/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartService manages the per-user list of prospective trips.
type CartService struct {
	carts    domain.CartRepository
	repo     domain.Repository
	maxItems int
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewCartService(carts domain.CartRepository, repo domain.Repository, maxItems int, logger *zerolog.Logger) *CartService {
	if maxItems <= 0 {
		maxItems = 20
	}
	return &CartService{
		carts:    carts,
		repo:     repo,
		maxItems: maxItems,
		logger:   logger,
		now:      time.Now,
	}
}

// Add validates the item, assigns it a fresh key and appends it to the cart.
// When PlaceID is set the place must exist and fills in empty from/to.
func (s *CartService) Add(ctx context.Context, username string, item models.CartItem) (*models.CartItem, error) {
	if username == "" {
		return nil, ErrUnauthorized
	}

	item.PlaceID = strings.TrimSpace(item.PlaceID)
	item.From = strings.TrimSpace(item.From)
	item.To = strings.TrimSpace(item.To)
	item.Depart = strings.TrimSpace(item.Depart)
	item.Arrival = strings.TrimSpace(item.Arrival)

	if item.PlaceID != "" {
		place, err := s.repo.GetPlace(ctx, item.PlaceID)
		if err != nil {
			return nil, fmt.Errorf("place %s: %w", item.PlaceID, err)
		}
		if item.From == "" {
			item.From = place.From
		}
		if item.To == "" {
			item.To = place.To
		}
	}

	if err := validateCartItem(&item); err != nil {
		return nil, err
	}

	item.Key = uuid.NewString()
	item.AddedAt = s.now().UTC()
	if err := s.carts.AddCartItem(ctx, username, &item, s.maxItems); err != nil {
		if errors.Is(err, ErrCartFull) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to add cart item")
		return nil, err
	}

	metrics.IncCart("add")
	return &item, nil
}

// Remove drops exactly the item with key; other items keep their keys and order.
func (s *CartService) Remove(ctx context.Context, username, key string) error {
	removed, err := s.carts.RemoveCartItem(ctx, username, key)
	if err != nil {
		return err
	}
	if !removed {
		return ErrCartItemNotFound
	}
	metrics.IncCart("remove")
	return nil
}

func (s *CartService) List(ctx context.Context, username string) ([]models.CartItem, error) {
	items, err := s.carts.ListCartItems(ctx, username)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

func (s *CartService) Get(ctx context.Context, username, key string) (*models.CartItem, error) {
	item, err := s.carts.GetCartItem(ctx, username, key)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	return item, nil
}

func (s *CartService) Clear(ctx context.Context, username string) error {
	if err := s.carts.ClearCart(ctx, username); err != nil {
		return err
	}
	metrics.IncCart("clear")
	return nil
}

func validateCartItem(item *models.CartItem) error {
	switch {
	case item.From == "":
		return invalid("from", "origin is required")
	case item.To == "":
		return invalid("to", "destination is required")
	case item.Adults < 1:
		return invalid("adult", "at least one adult is required")
	case item.Children < 0:
		return invalid("child", "children must not be negative")
	case item.Adults > validation.MaxTravellers:
		return invalid("adult", fmt.Sprintf("at most %d travellers per trip", validation.MaxTravellers))
	case item.Children > validation.MaxTravellers || item.Adults+item.Children > validation.MaxTravellers:
		return invalid("child", fmt.Sprintf("at most %d travellers per trip", validation.MaxTravellers))
	}
	return validation.TripDates(item.Depart, item.Arrival)
}
