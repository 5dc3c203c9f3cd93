package database

import (
	"context"
	"fmt"
	"time"

	"travelbook/internal/models"
)

const bookingColumns = `id, username, place_id, origin, destination, adults, children, depart_date, arrival_date, amount, status, created_at`

const paymentColumns = `id, booking_id, username, card_holder, card_last4, card_brand, exp_month, exp_year, amount, created_at`

// CreateBookingWithPayment stores the booking and its payment in one
// transaction. Either both rows exist afterwards or neither does.
func (db *DB) CreateBookingWithPayment(ctx context.Context, booking *models.Booking, payment *models.Payment) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Place must still exist
	var exists int
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM places WHERE id = ?`), booking.PlaceID); err != nil {
		return fmt.Errorf("failed to check place in tx: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("place %s: %w", booking.PlaceID, ErrNotFound)
	}

	now := time.Now().UTC()

	// 2. Booking
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO bookings (`+bookingColumns+`)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		booking.ID,
		booking.Username,
		booking.PlaceID,
		booking.From,
		booking.To,
		booking.Adults,
		booking.Children,
		booking.Depart,
		booking.Arrival,
		booking.Amount,
		booking.Status,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	// 3. Payment
	payment.BookingID = booking.ID
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO payments (`+paymentColumns+`)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		payment.ID,
		payment.BookingID,
		payment.Username,
		payment.CardHolder,
		payment.CardLast4,
		payment.CardBrand,
		payment.ExpMonth,
		payment.ExpYear,
		payment.Amount,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert payment in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	booking.CreatedAt = now
	payment.CreatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := db.GetContext(ctx, &booking, db.Rebind(`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", id, notFound(err))
	}
	return &booking, nil
}

// DeleteBooking removes a booking together with its payment and returns the
// removed booking.
func (db *DB) DeleteBooking(ctx context.Context, id string) (*models.Booking, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var booking models.Booking
	if err := tx.GetContext(ctx, &booking, tx.Rebind(`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", id, notFound(err))
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM payments WHERE booking_id = ?`), id); err != nil {
		return nil, fmt.Errorf("failed to delete payment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bookings WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking delete: %w", err)
	}
	return &booking, nil
}

func (db *DB) GetPaymentByBooking(ctx context.Context, bookingID string) (*models.Payment, error) {
	var payment models.Payment
	err := db.GetContext(ctx, &payment, db.Rebind(`SELECT `+paymentColumns+` FROM payments WHERE booking_id = ?`), bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment for booking %s: %w", bookingID, notFound(err))
	}
	return &payment, nil
}

// GetUserBookings returns the user's bookings, newest first.
func (db *DB) GetUserBookings(ctx context.Context, username string) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := db.SelectContext(ctx, &bookings,
		db.Rebind(`SELECT `+bookingColumns+` FROM bookings WHERE username = ? ORDER BY created_at DESC, id`), username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) GetUserTransactions(ctx context.Context, username string) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	query := `SELECT b.id AS booking_id, p.id AS payment_id, b.username, b.origin, b.destination,
                     b.depart_date, p.card_holder, p.card_last4, p.amount, b.status, p.created_at
              FROM payments p JOIN bookings b ON b.id = p.booking_id
              WHERE p.username = ? ORDER BY p.created_at DESC, p.id`
	if err := db.SelectContext(ctx, &txs, db.Rebind(query), username); err != nil {
		return nil, fmt.Errorf("failed to get user transactions: %w", err)
	}
	return txs, nil
}

// GetBookingsByDateRange returns bookings created within [start, end).
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := db.SelectContext(ctx, &bookings,
		db.Rebind(`SELECT `+bookingColumns+` FROM bookings WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id`),
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	return bookings, nil
}

func (db *DB) CountBookings(ctx context.Context) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings`); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (db *DB) CountPayments(ctx context.Context) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM payments`); err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}
