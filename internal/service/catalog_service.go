package service

import (
	"context"
	"fmt"
	"strings"

	"travelbook/internal/auth"
	"travelbook/internal/domain"
	"travelbook/internal/events"
	"travelbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const placePhotoPrefix = "place"

type CatalogService struct {
	repo     domain.Repository
	photos   domain.PhotoStore
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewCatalogService(repo domain.Repository, photos domain.PhotoStore, eventBus domain.EventPublisher, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		photos:   photos,
		eventBus: eventBus,
		logger:   logger,
	}
}

// ListByCategory returns every place for "all" and the matching places for a
// known category. Unknown categories yield an empty list.
func (s *CatalogService) ListByCategory(ctx context.Context, token string) ([]models.Place, error) {
	category := strings.ToLower(strings.TrimSpace(token))
	if category == models.CategoryAll {
		return s.repo.ListPlaces(ctx)
	}
	if !models.IsCategory(category) {
		return []models.Place{}, nil
	}
	return s.repo.ListPlacesByCategory(ctx, category)
}

func (s *CatalogService) GetPlace(ctx context.Context, id string) (*models.Place, error) {
	return s.repo.GetPlace(ctx, id)
}

// CreatePlace stores a new place with a server generated id. Any id sent by
// the client is ignored.
func (s *CatalogService) CreatePlace(ctx context.Context, actor *auth.Claims, input models.PlaceInput, photo []byte) (*models.Place, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	place, err := placeFromInput(input)
	if err != nil {
		return nil, err
	}
	place.ID = uuid.NewString()
	place.CreatedBy = actor.Username

	if len(photo) > 0 {
		if place.Photo, err = s.savePhoto(ctx, photo); err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreatePlace(ctx, place); err != nil {
		s.deletePhoto(ctx, place.Photo)
		return nil, err
	}

	s.logger.Info().Str("place_id", place.ID).Str("category", place.Category).Str("actor", actor.Username).Msg("place created")
	s.publish(events.EventPlaceCreated, place, actor.Username)
	return place, nil
}

// UpdatePlace replaces the editable fields. The old photo is dropped only
// after the new row is stored.
func (s *CatalogService) UpdatePlace(ctx context.Context, actor *auth.Claims, id string, input models.PlaceInput, photo []byte) (*models.Place, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetPlace(ctx, id)
	if err != nil {
		return nil, err
	}

	place, err := placeFromInput(input)
	if err != nil {
		return nil, err
	}
	place.ID = existing.ID
	place.CreatedBy = existing.CreatedBy
	place.CreatedAt = existing.CreatedAt
	place.Photo = existing.Photo

	if len(photo) > 0 {
		if place.Photo, err = s.savePhoto(ctx, photo); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdatePlace(ctx, place); err != nil {
		if place.Photo != existing.Photo {
			s.deletePhoto(ctx, place.Photo)
		}
		return nil, err
	}
	if place.Photo != existing.Photo {
		s.deletePhoto(ctx, existing.Photo)
	}

	s.publish(events.EventPlaceUpdated, place, actor.Username)
	return place, nil
}

func (s *CatalogService) DeletePlace(ctx context.Context, actor *auth.Claims, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	place, err := s.repo.GetPlace(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePlace(ctx, id); err != nil {
		return err
	}
	s.deletePhoto(ctx, place.Photo)

	s.logger.Info().Str("place_id", id).Str("actor", actor.Username).Msg("place deleted")
	s.publish(events.EventPlaceDeleted, place, actor.Username)
	return nil
}

func placeFromInput(input models.PlaceInput) (*models.Place, error) {
	place := &models.Place{
		From:     strings.TrimSpace(input.From),
		To:       strings.TrimSpace(input.To),
		Details:  strings.TrimSpace(input.Details),
		Category: strings.ToLower(strings.TrimSpace(input.Category)),
		BusType:  strings.TrimSpace(input.BusType),
		Days:     strings.TrimSpace(input.Days),
	}

	switch {
	case place.From == "":
		return nil, invalid("from", "origin is required")
	case place.To == "":
		return nil, invalid("to", "destination is required")
	case !models.IsCategory(place.Category):
		return nil, invalid("category", fmt.Sprintf("unknown category %q", input.Category))
	case place.BusType != "" && !models.IsBusType(place.BusType):
		return nil, invalid("busType", fmt.Sprintf("unknown bus type %q", place.BusType))
	case place.Days != "" && !models.IsTripDays(place.Days):
		return nil, invalid("days", fmt.Sprintf("unknown trip length %q", place.Days))
	}

	// цена в форме необязательна
	price := strings.TrimSpace(input.Price)
	if price == "" {
		place.Price = decimal.Zero
		return place, nil
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, invalid("price", "price must be a number")
	}
	if p.IsNegative() {
		return nil, invalid("price", "price must not be negative")
	}
	place.Price = p.Round(2)
	return place, nil
}

func (s *CatalogService) savePhoto(ctx context.Context, data []byte) (string, error) {
	if s.photos == nil {
		return "", nil
	}
	name, err := s.photos.SaveImage(ctx, placePhotoPrefix, data)
	if err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	return name, nil
}

func (s *CatalogService) deletePhoto(ctx context.Context, name string) {
	if s.photos == nil || name == "" {
		return
	}
	if err := s.photos.Delete(ctx, name); err != nil {
		s.logger.Warn().Err(err).Str("photo", name).Msg("failed to delete photo")
	}
}

func (s *CatalogService) publish(eventType string, place *models.Place, actor string) {
	if s.eventBus == nil {
		return
	}

	payload := events.PlaceEventPayload{
		PlaceID:  place.ID,
		From:     place.From,
		To:       place.To,
		Category: place.Category,
		Price:    place.Price.StringFixed(2),
		Actor:    actor,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("place_id", place.ID).Msg("publish event error")
	}
}
