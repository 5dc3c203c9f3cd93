package service

import (
	"errors"
	"strings"
	"testing"

	"travelbook/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func TestNotificationService_BookingCreated(t *testing.T) {
	sender := new(mockTelegramSender)
	svc := NewNotificationService(sender, 42, testLogger())
	bus := events.NewEventBus(testLogger())
	svc.Attach(bus, false)

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 42 &&
			strings.Contains(msg.Text, "New booking b-1") &&
			strings.Contains(msg.Text, "Chennai -> Goa") &&
			strings.Contains(msg.Text, "Amount: 3000.00")
	})).Return(tgbotapi.Message{}, nil).Once()

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{
		BookingID: "b-1",
		Username:  "alice",
		From:      "Chennai",
		To:        "Goa",
		Adults:    2,
		Amount:    "3000.00",
	}))

	sender.AssertExpectations(t)
}

func TestNotificationService_Events(t *testing.T) {
	sender := new(mockTelegramSender)
	svc := NewNotificationService(sender, 7, testLogger())

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg := c.(tgbotapi.MessageConfig)
		return msg.Text == "Place removed by root: A -> B (desert)"
	})).Return(tgbotapi.Message{}, nil).Once()

	event, err := events.NewJSONEvent(events.EventPlaceDeleted, events.PlaceEventPayload{From: "A", To: "B", Category: "desert", Actor: "root"})
	require.NoError(t, err)
	require.NoError(t, svc.HandleEvent(&event))

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg := c.(tgbotapi.MessageConfig)
		return msg.Text == "Booking b-3 cancelled: alice, Chennai -> Goa, 1500.50"
	})).Return(tgbotapi.Message{}, nil).Once()

	cancelled, err := events.NewJSONEvent(events.EventBookingDeleted, events.BookingEventPayload{
		BookingID: "b-3", Username: "alice", From: "Chennai", To: "Goa", Amount: "1500.50",
	})
	require.NoError(t, err)
	require.NoError(t, svc.HandleEvent(&cancelled))

	// неинтересные события молча пропускаются
	skipped, err := events.NewJSONEvent(events.EventUserDeleted, events.UserEventPayload{Username: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.HandleEvent(&skipped))

	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("telegram down")).Once()
	registered, err := events.NewJSONEvent(events.EventUserRegistered, events.UserEventPayload{Username: "bob", Role: "user"})
	require.NoError(t, err)
	assert.Error(t, svc.HandleEvent(&registered))

	sender.AssertExpectations(t)
}
