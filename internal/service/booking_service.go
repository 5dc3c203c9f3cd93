package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"travelbook/internal/auth"
	"travelbook/internal/domain"
	"travelbook/internal/events"
	"travelbook/internal/metrics"
	"travelbook/internal/models"
	"travelbook/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CheckoutRequest is the payment form. The trip comes either from the cart
// item named by CartKey or from the inline fields.
type CheckoutRequest struct {
	PlaceID  string `json:"-"`
	Username string `json:"username"`
	validation.Card
	CartKey  string `json:"cart_key,omitempty"`
	Adults   int    `json:"adult,omitempty"`
	Children int    `json:"child,omitempty"`
	Depart   string `json:"depart,omitempty"`
	Arrival  string `json:"arrival,omitempty"`
}

// Ledger task types understood by the sheets worker.
const (
	syncUpsert = "upsert"
	syncDelete = "delete"
)

type BookingService struct {
	repo         domain.Repository
	carts        domain.CartRepository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	receipts     domain.ReceiptRenderer
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewBookingService(
	repo domain.Repository,
	carts domain.CartRepository,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	receipts domain.ReceiptRenderer,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		repo:         repo,
		carts:        carts,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		receipts:     receipts,
		logger:       logger,
		now:          time.Now,
	}
}

// Checkout validates the card, prices the trip and writes the booking and
// its payment atomically. The purchased cart item is removed afterwards.
func (s *BookingService) Checkout(ctx context.Context, actor *auth.Claims, req CheckoutRequest) (*models.Booking, *models.Payment, error) {
	if actor == nil {
		return nil, nil, ErrUnauthorized
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = actor.Username
	}
	if err := requireOwner(actor, username); err != nil {
		return nil, nil, err
	}

	now := s.now()
	month, year, err := req.Card.Validate(now)
	if err != nil {
		metrics.IncBooking("invalid")
		return nil, nil, err
	}

	place, err := s.repo.GetPlace(ctx, req.PlaceID)
	if err != nil {
		return nil, nil, fmt.Errorf("place %s: %w", req.PlaceID, err)
	}

	trip, err := s.resolveTrip(ctx, username, place, req)
	if err != nil {
		metrics.IncBooking("invalid")
		return nil, nil, err
	}

	travellers := decimal.NewFromInt(int64(trip.Adults + trip.Children))
	amount := place.Price.Mul(travellers).Round(2)
	if !amount.IsPositive() {
		metrics.IncBooking("invalid")
		return nil, nil, invalid("price", "place has no price and cannot be booked")
	}

	booking := &models.Booking{
		ID:       uuid.NewString(),
		Username: username,
		PlaceID:  place.ID,
		From:     trip.From,
		To:       trip.To,
		Adults:   trip.Adults,
		Children: trip.Children,
		Depart:   trip.Depart,
		Arrival:  trip.Arrival,
		Amount:   amount,
		Status:   models.StatusConfirmed,
	}
	payment := &models.Payment{
		ID:         uuid.NewString(),
		BookingID:  booking.ID,
		Username:   username,
		CardHolder: strings.TrimSpace(req.Holder),
		CardLast4:  req.Card.Last4(),
		CardBrand:  req.Card.Brand(),
		ExpMonth:   month,
		ExpYear:    year,
		Amount:     amount,
	}

	if err := s.repo.CreateBookingWithPayment(ctx, booking, payment); err != nil {
		metrics.IncBooking("failed")
		s.logger.Error().Err(err).Str("username", username).Str("place_id", place.ID).Msg("checkout failed")
		return nil, nil, err
	}
	metrics.IncBooking("success")

	if req.CartKey != "" && s.carts != nil {
		if _, err := s.carts.RemoveCartItem(ctx, username, req.CartKey); err != nil {
			// заказ уже оплачен, корзину чистим по возможности
			s.logger.Warn().Err(err).Str("username", username).Str("cart_key", req.CartKey).Msg("failed to remove purchased cart item")
		}
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("username", username).
		Str("amount", amount.StringFixed(2)).
		Msg("booking created")

	s.publishEvent(events.EventBookingCreated, booking, payment)
	s.enqueueSync(ctx, booking, syncUpsert)

	return booking, payment, nil
}

func (s *BookingService) resolveTrip(ctx context.Context, username string, place *models.Place, req CheckoutRequest) (*models.CartItem, error) {
	var trip models.CartItem

	if req.CartKey != "" {
		if s.carts == nil {
			return nil, ErrCartItemNotFound
		}
		item, err := s.carts.GetCartItem(ctx, username, req.CartKey)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, ErrCartItemNotFound
		}
		if item.PlaceID != "" && item.PlaceID != place.ID {
			return nil, invalid("cart_key", "cart item belongs to another place")
		}
		trip = *item
	} else {
		trip = models.CartItem{
			Adults:   req.Adults,
			Children: req.Children,
			Depart:   strings.TrimSpace(req.Depart),
			Arrival:  strings.TrimSpace(req.Arrival),
		}
		if trip.Adults == 0 && trip.Children == 0 {
			trip.Adults = 1
		}
	}

	if trip.From == "" {
		trip.From = place.From
	}
	if trip.To == "" {
		trip.To = place.To
	}
	if err := validateCartItem(&trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (s *BookingService) MyBookings(ctx context.Context, actor *auth.Claims, username string) ([]models.Booking, error) {
	if err := requireOwner(actor, username); err != nil {
		return nil, err
	}
	return s.repo.GetUserBookings(ctx, username)
}

func (s *BookingService) Transactions(ctx context.Context, actor *auth.Claims, username string) ([]models.Transaction, error) {
	if err := requireOwner(actor, username); err != nil {
		return nil, err
	}
	return s.repo.GetUserTransactions(ctx, username)
}

func (s *BookingService) GetBooking(ctx context.Context, actor *auth.Claims, id string) (*models.Booking, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(actor, booking.Username); err != nil {
		return nil, err
	}
	return booking, nil
}

// Receipt renders the PDF receipt of a booking for its owner or an admin.
func (s *BookingService) Receipt(ctx context.Context, actor *auth.Claims, id string) ([]byte, error) {
	if s.receipts == nil {
		return nil, errors.New("receipts are not configured")
	}
	booking, err := s.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	payment, err := s.repo.GetPaymentByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	return s.receipts.Render(booking, payment)
}

// DeleteBooking cancels a booking for admins: the booking and its payment are
// removed and the ledger row is queued for deletion.
func (s *BookingService) DeleteBooking(ctx context.Context, actor *auth.Claims, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	booking, err := s.repo.DeleteBooking(ctx, id)
	if err != nil {
		return err
	}

	s.logger.Info().Str("booking_id", booking.ID).Str("username", booking.Username).Str("actor", actor.Username).Msg("booking deleted")

	s.publishEvent(events.EventBookingDeleted, booking, nil)
	s.enqueueSync(ctx, booking, syncDelete)
	return nil
}

// BookingsBetween lists bookings created in [start, end) for admin reports.
func (s *BookingService) BookingsBetween(ctx context.Context, actor *auth.Claims, start, end time.Time) ([]models.Booking, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, invalid("to", "end date must be after start date")
	}
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, payment *models.Payment) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		Username:  booking.Username,
		PlaceID:   booking.PlaceID,
		From:      booking.From,
		To:        booking.To,
		Adults:    booking.Adults,
		Children:  booking.Children,
		Depart:    booking.Depart,
		Amount:    booking.Amount.StringFixed(2),
	}
	if payment != nil {
		payload.PaymentID = payment.ID
		payload.CardLast4 = payment.CardLast4
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
