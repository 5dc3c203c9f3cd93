package database

import (
	"context"
	"fmt"
	"time"

	"travelbook/internal/models"
)

const placeColumns = `id, origin, destination, price, details, category, bus_type, days, photo, created_by, created_at, updated_at`

func (db *DB) CreatePlace(ctx context.Context, place *models.Place) error {
	query := db.Rebind(`INSERT INTO places (` + placeColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, query,
		place.ID,
		place.From,
		place.To,
		place.Price,
		place.Details,
		place.Category,
		place.BusType,
		place.Days,
		place.Photo,
		place.CreatedBy,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create place: %w", err)
	}
	place.CreatedAt = now
	place.UpdatedAt = now
	return nil
}

func (db *DB) GetPlace(ctx context.Context, id string) (*models.Place, error) {
	var place models.Place
	err := db.GetContext(ctx, &place, db.Rebind(`SELECT `+placeColumns+` FROM places WHERE id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get place %s: %w", id, notFound(err))
	}
	return &place, nil
}

// ListPlaces returns the whole catalog in creation order.
func (db *DB) ListPlaces(ctx context.Context) ([]models.Place, error) {
	places := []models.Place{}
	err := db.SelectContext(ctx, &places, `SELECT `+placeColumns+` FROM places ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	return places, nil
}

func (db *DB) ListPlacesByCategory(ctx context.Context, category string) ([]models.Place, error) {
	places := []models.Place{}
	err := db.SelectContext(ctx, &places,
		db.Rebind(`SELECT `+placeColumns+` FROM places WHERE category = ? ORDER BY created_at, id`), category)
	if err != nil {
		return nil, fmt.Errorf("failed to list places by category: %w", err)
	}
	return places, nil
}

func (db *DB) CountPlaces(ctx context.Context) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM places`); err != nil {
		return 0, fmt.Errorf("failed to count places: %w", err)
	}
	return count, nil
}

func (db *DB) UpdatePlace(ctx context.Context, place *models.Place) error {
	query := db.Rebind(`UPDATE places SET origin = ?, destination = ?, price = ?, details = ?,
              category = ?, bus_type = ?, days = ?, photo = ?, updated_at = ? WHERE id = ?`)
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, query,
		place.From,
		place.To,
		place.Price,
		place.Details,
		place.Category,
		place.BusType,
		place.Days,
		place.Photo,
		now,
		place.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	place.UpdatedAt = now
	return nil
}

func (db *DB) DeletePlace(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM places WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}
	return expectAffected(res)
}
