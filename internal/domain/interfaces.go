package domain

import (
	"context"
	"time"

	"travelbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Repository is the persistent store behind the services.
type Repository interface {
	CreatePlace(ctx context.Context, place *models.Place) error
	GetPlace(ctx context.Context, id string) (*models.Place, error)
	ListPlaces(ctx context.Context) ([]models.Place, error)
	ListPlacesByCategory(ctx context.Context, category string) ([]models.Place, error)
	UpdatePlace(ctx context.Context, place *models.Place) error
	DeletePlace(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	UpdateUserPassword(ctx context.Context, username, passwordHash string) error
	UpdateUserPhoto(ctx context.Context, username, photo string) error
	DeleteUser(ctx context.Context, id string) (*models.User, error)
	CountAdmins(ctx context.Context) (int, error)

	CreateFeedback(ctx context.Context, fb *models.Feedback) error
	GetFeedback(ctx context.Context, id string) (*models.Feedback, error)
	ListFeedback(ctx context.Context) ([]models.Feedback, error)
	DeleteFeedback(ctx context.Context, id string) error

	CreateBookingWithPayment(ctx context.Context, booking *models.Booking, payment *models.Payment) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id string) (*models.Booking, error)
	GetPaymentByBooking(ctx context.Context, bookingID string) (*models.Payment, error)
	GetUserBookings(ctx context.Context, username string) ([]models.Booking, error)
	GetUserTransactions(ctx context.Context, username string) ([]models.Transaction, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error)
}

// CartRepository keeps each user's cart in insertion order.
type CartRepository interface {
	// AddCartItem appends item unless the cart already holds limit items
	// (ErrCartFull). A limit <= 0 disables the check.
	AddCartItem(ctx context.Context, username string, item *models.CartItem, limit int) error
	GetCartItem(ctx context.Context, username, key string) (*models.CartItem, error)
	RemoveCartItem(ctx context.Context, username, key string) (bool, error)
	ListCartItems(ctx context.Context, username string) ([]models.CartItem, error)
	ClearCart(ctx context.Context, username string) error
}

// SessionRepository tracks revoked tokens and rate-limit counters.
type SessionRepository interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StateRepository is the short-lived state store (Redis or memory).
type StateRepository interface {
	CartRepository
	SessionRepository
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	DeleteBookingRow(ctx context.Context, bookingID string) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error
}

type PhotoStore interface {
	SaveImage(ctx context.Context, prefix string, data []byte) (string, error)
	Delete(ctx context.Context, name string) error
}

// ReceiptRenderer turns a paid booking into a printable document.
type ReceiptRenderer interface {
	Render(booking *models.Booking, payment *models.Payment) ([]byte, error)
}
