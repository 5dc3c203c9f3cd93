package database

import (
	"context"
	"fmt"
	"time"

	"travelbook/internal/models"
)

func (db *DB) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO feedback (id, username, message, created_at) VALUES (?, ?, ?, ?)`),
		fb.ID, fb.Username, fb.Message, now)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	fb.CreatedAt = now
	return nil
}

func (db *DB) GetFeedback(ctx context.Context, id string) (*models.Feedback, error) {
	var fb models.Feedback
	err := db.GetContext(ctx, &fb, db.Rebind(`SELECT id, username, message, created_at FROM feedback WHERE id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", notFound(err))
	}
	return &fb, nil
}

func (db *DB) ListFeedback(ctx context.Context) ([]models.Feedback, error) {
	list := []models.Feedback{}
	err := db.SelectContext(ctx, &list, `SELECT id, username, message, created_at FROM feedback ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return list, nil
}

func (db *DB) DeleteFeedback(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM feedback WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return expectAffected(res)
}
