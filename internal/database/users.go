package database

import (
	"context"
	"fmt"
	"time"

	"travelbook/internal/models"
)

const userColumns = `id, username, name, email, password_hash, gender, phone, role, photo, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := db.Rebind(`INSERT INTO users (` + userColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Gender,
		user.Phone,
		user.Role,
		user.Photo,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (db *DB) queryUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := db.GetContext(ctx, &user, db.Rebind(query), arg); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound(err))
	}
	return &user, nil
}

func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUserProfile rewrites the editable contact fields.
func (db *DB) UpdateUserProfile(ctx context.Context, user *models.User) error {
	query := db.Rebind(`UPDATE users SET name = ?, email = ?, gender = ?, phone = ?, updated_at = ? WHERE username = ?`)
	res, err := db.ExecContext(ctx, query, user.Name, user.Email, user.Gender, user.Phone, time.Now().UTC(), user.Username)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return expectAffected(res)
}

func (db *DB) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	res, err := db.ExecContext(ctx, db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE username = ?`),
		passwordHash, time.Now().UTC(), username)
	if err != nil {
		return fmt.Errorf("failed to update user password: %w", err)
	}
	return expectAffected(res)
}

func (db *DB) UpdateUserPhoto(ctx context.Context, username, photo string) error {
	res, err := db.ExecContext(ctx, db.Rebind(`UPDATE users SET photo = ?, updated_at = ? WHERE username = ?`),
		photo, time.Now().UTC(), username)
	if err != nil {
		return fmt.Errorf("failed to update user photo: %w", err)
	}
	return expectAffected(res)
}

// DeleteUser removes the account and its feedback. Bookings and payments are
// kept as financial records.
func (db *DB) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var user models.User
	if err := tx.GetContext(ctx, &user, tx.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound(err))
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM feedback WHERE username = ?`), user.Username); err != nil {
		return nil, fmt.Errorf("failed to delete user feedback: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user delete: %w", err)
	}
	return &user, nil
}

func (db *DB) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(`SELECT COUNT(*) FROM users WHERE role = ?`), models.RoleAdmin); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}
