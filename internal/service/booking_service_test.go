package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"travelbook/internal/auth"
	"travelbook/internal/database"
	"travelbook/internal/events"
	"travelbook/internal/models"
	"travelbook/internal/repository"
	"travelbook/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// failingRepo fails the booking write after the place check.
type failingRepo struct {
	*database.DB
}

func (r failingRepo) CreateBookingWithPayment(context.Context, *models.Booking, *models.Payment) error {
	return errors.New("payment insert failed")
}

type fakeReceipts struct{}

func (fakeReceipts) Render(b *models.Booking, p *models.Payment) ([]byte, error) {
	return []byte("%PDF " + b.ID + " " + p.CardLast4), nil
}

type bookingFixture struct {
	svc    *BookingService
	db     *database.DB
	carts  *repository.MemoryStateRepository
	bus    *mockEventBus
	worker *mockWorker
	place  *models.Place
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	db := setupRepo(t)
	carts := repository.NewMemoryStateRepository(time.Hour)
	bus := new(mockEventBus)
	worker := new(mockWorker)

	in := placeInput("beach")
	in.Price = "1500.50"
	place, err := NewCatalogService(db, nil, nil, testLogger()).CreatePlace(context.Background(), adminActor(), in, nil)
	require.NoError(t, err)

	svc := NewBookingService(db, carts, bus, worker, fakeReceipts{}, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }

	return &bookingFixture{svc: svc, db: db, carts: carts, bus: bus, worker: worker, place: place}
}

func validCard() validation.Card {
	return validation.Card{
		Number:   "4111 1111 1111 1111",
		Holder:   "Alice Smith",
		ExpMonth: "08",
		ExpYear:  "28",
		CVV:      "123",
	}
}

func TestBookingService_CheckoutFromCart(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	item := &models.CartItem{Key: "k1", PlaceID: f.place.ID, From: "Chennai", To: "Goa", Adults: 2, Children: 1, Depart: "2026-02-01"}
	require.NoError(t, f.carts.AddCartItem(ctx, "alice", item, 0))

	f.bus.On("PublishJSON", events.EventBookingCreated, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.Username == "alice" && p.Amount == "4501.50" && p.CardLast4 == "1111"
	})).Return(nil).Once()
	f.worker.On("EnqueueTask", mock.Anything, "upsert", mock.AnythingOfType("*models.Booking")).Return(nil).Once()

	booking, payment, err := f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{
		PlaceID: f.place.ID,
		Card:    validCard(),
		CartKey: "k1",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", booking.Username)
	assert.Equal(t, "4501.5", booking.Amount.String())
	assert.Equal(t, 2, booking.Adults)
	assert.Equal(t, 1, booking.Children)
	assert.Equal(t, "2026-02-01", booking.Depart)
	assert.Equal(t, models.StatusConfirmed, booking.Status)

	assert.Equal(t, booking.ID, payment.BookingID)
	assert.Equal(t, "1111", payment.CardLast4)
	assert.Equal(t, "visa", payment.CardBrand)
	assert.Equal(t, 8, payment.ExpMonth)
	assert.Equal(t, 2028, payment.ExpYear)

	bookings, err := f.db.CountBookings(ctx)
	require.NoError(t, err)
	payments, err := f.db.CountPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, bookings)
	assert.Equal(t, 1, payments)

	left, err := f.carts.ListCartItems(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, left)

	f.bus.AssertExpectations(t)
	f.worker.AssertExpectations(t)
}

func TestBookingService_CheckoutInline(t *testing.T) {
	f := newBookingFixture(t)
	f.bus.On("PublishJSON", events.EventBookingCreated, mock.Anything).Return(nil)
	f.worker.On("EnqueueTask", mock.Anything, "upsert", mock.Anything).Return(nil)

	booking, _, err := f.svc.Checkout(context.Background(), userActor("alice"), CheckoutRequest{
		PlaceID: f.place.ID,
		Card:    validCard(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, booking.Adults)
	assert.Equal(t, "Chennai", booking.From)
	assert.Equal(t, "1500.5", booking.Amount.String())
}

func TestBookingService_CheckoutInvalidCard(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		edit  func(*validation.Card)
		field string
	}{
		{"missing number", func(c *validation.Card) { c.Number = "" }, "number"},
		{"letters in number", func(c *validation.Card) { c.Number = "4111-abcd-1111-1111" }, "number"},
		{"missing holder", func(c *validation.Card) { c.Holder = "" }, "name"},
		{"month out of range", func(c *validation.Card) { c.ExpMonth = "13" }, "expmonth"},
		{"three digit year", func(c *validation.Card) { c.ExpYear = "202" }, "expyear"},
		{"expired", func(c *validation.Card) { c.ExpMonth = "12"; c.ExpYear = "2025" }, "expyear"},
		{"short cvv", func(c *validation.Card) { c.CVV = "12" }, "cvv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard()
			tt.edit(&card)
			_, _, err := f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{PlaceID: f.place.ID, Card: card})
			var verr *validation.Error
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	count, err := f.db.CountBookings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestBookingService_DeleteBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.bus.On("PublishJSON", events.EventBookingCreated, mock.Anything).Return(nil)
	f.worker.On("EnqueueTask", mock.Anything, "upsert", mock.Anything).Return(nil)

	booking, _, err := f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{PlaceID: f.place.ID, Card: validCard()})
	require.NoError(t, err)

	err = f.svc.DeleteBooking(ctx, userActor("alice"), booking.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteBooking(ctx, nil, booking.ID), ErrUnauthorized)

	f.bus.On("PublishJSON", events.EventBookingDeleted, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.BookingID == booking.ID && p.Username == "alice" && p.PaymentID == ""
	})).Return(nil).Once()
	f.worker.On("EnqueueTask", mock.Anything, "delete", mock.MatchedBy(func(b *models.Booking) bool {
		return b.ID == booking.ID
	})).Return(nil).Once()

	require.NoError(t, f.svc.DeleteBooking(ctx, adminActor(), booking.ID))

	_, err = f.db.GetBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	payments, err := f.db.CountPayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, payments)

	err = f.svc.DeleteBooking(ctx, adminActor(), booking.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	f.bus.AssertExpectations(t)
	f.worker.AssertExpectations(t)
	f.worker.AssertNumberOfCalls(t, "EnqueueTask", 2)
}

func TestBookingService_CheckoutRejectsBadAmounts(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	t.Run("traveller overflow", func(t *testing.T) {
		_, _, err := f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{
			PlaceID:  f.place.ID,
			Card:     validCard(),
			Adults:   math.MaxInt,
			Children: 1,
		})
		var verr *validation.Error
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Equal(t, "adult", verr.Field)
	})

	t.Run("place without price", func(t *testing.T) {
		in := placeInput("desert")
		in.Price = ""
		free, err := NewCatalogService(f.db, nil, nil, testLogger()).CreatePlace(ctx, adminActor(), in, nil)
		require.NoError(t, err)

		_, _, err = f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{PlaceID: free.ID, Card: validCard()})
		var verr *validation.Error
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Equal(t, "price", verr.Field)
	})

	bookings, err := f.db.CountBookings(ctx)
	require.NoError(t, err)
	payments, err := f.db.CountPayments(ctx)
	require.NoError(t, err)
	assert.Zero(t, bookings)
	assert.Zero(t, payments)
	f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestBookingService_CheckoutFailureKeepsCart(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.svc.repo = failingRepo{DB: f.db}

	item := &models.CartItem{Key: "k1", From: "Chennai", To: "Goa", Adults: 1}
	require.NoError(t, f.carts.AddCartItem(ctx, "alice", item, 0))

	_, _, err := f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{PlaceID: f.place.ID, Card: validCard(), CartKey: "k1"})
	require.Error(t, err)

	left, err := f.carts.ListCartItems(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, left, 1)

	bookings, _ := f.db.CountBookings(ctx)
	payments, _ := f.db.CountPayments(ctx)
	assert.Zero(t, bookings)
	assert.Zero(t, payments)
	f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	f.worker.AssertNotCalled(t, "EnqueueTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CheckoutRejected(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Checkout(ctx, nil, CheckoutRequest{PlaceID: f.place.ID, Card: validCard()})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{PlaceID: f.place.ID, Username: "bob", Card: validCard()})
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{PlaceID: "missing", Card: validCard()})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, _, err = f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{PlaceID: f.place.ID, Card: validCard(), CartKey: "nope"})
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestBookingService_ReadAccess(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)
	f.worker.On("EnqueueTask", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	booking, _, err := f.svc.Checkout(ctx, userActor("alice"), CheckoutRequest{PlaceID: f.place.ID, Card: validCard()})
	require.NoError(t, err)

	mine, err := f.svc.MyBookings(ctx, userActor("alice"), "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.svc.MyBookings(ctx, userActor("bob"), "alice")
	assert.ErrorIs(t, err, ErrForbidden)

	txs, err := f.svc.Transactions(ctx, adminActor(), "alice")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "1111", txs[0].CardLast4)

	pdf, err := f.svc.Receipt(ctx, userActor("alice"), booking.ID)
	require.NoError(t, err)
	assert.Contains(t, string(pdf), booking.ID)

	_, err = f.svc.Receipt(ctx, userActor("bob"), booking.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	start := time.Now().Add(-time.Hour)
	ranged, err := f.svc.BookingsBetween(ctx, adminActor(), start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, ranged, 1)

	_, err = f.svc.BookingsBetween(ctx, &auth.Claims{Username: "alice"}, start, start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrForbidden)
}
