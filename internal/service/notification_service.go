package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"travelbook/internal/domain"
	"travelbook/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// NotificationService forwards domain events to the admin Telegram chat.
type NotificationService struct {
	bot    domain.TelegramSender
	chatID int64
	logger *zerolog.Logger
}

func NewNotificationService(bot domain.TelegramSender, chatID int64, logger *zerolog.Logger) *NotificationService {
	return &NotificationService{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}
}

func (s *NotificationService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	return s.bot.Send(msg)
}

// Attach subscribes the notifier to the events admins care about. With async
// the Telegram call leaves the publisher's goroutine.
func (s *NotificationService) Attach(bus *events.EventBus, async bool) {
	handler := events.EventHandler(s.HandleEvent)
	if async {
		handler = events.Async(handler, s.logger)
	}
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingDeleted,
		events.EventUserRegistered,
		events.EventPlaceCreated,
		events.EventPlaceDeleted,
	} {
		bus.Subscribe(eventType, handler)
	}
}

func (s *NotificationService) HandleEvent(event *events.Event) error {
	text, err := formatEvent(event)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	if _, err := s.SendMessage(s.chatID, text); err != nil {
		return fmt.Errorf("telegram send %s: %w", event.Type, err)
	}
	s.logger.Debug().Str("event_type", event.Type).Str("event_id", event.ID).Msg("admin notified")
	return nil
}

func formatEvent(event *events.Event) (string, error) {
	var b strings.Builder

	switch event.Type {
	case events.EventBookingCreated:
		var p events.BookingEventPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "New booking %s\n", p.BookingID)
		fmt.Fprintf(&b, "User: %s\n", p.Username)
		fmt.Fprintf(&b, "Trip: %s -> %s\n", p.From, p.To)
		fmt.Fprintf(&b, "Travellers: %d adult(s), %d child(ren)\n", p.Adults, p.Children)
		if p.Depart != "" {
			fmt.Fprintf(&b, "Departure: %s\n", p.Depart)
		}
		fmt.Fprintf(&b, "Amount: %s", p.Amount)
	case events.EventBookingDeleted:
		var p events.BookingEventPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Booking %s cancelled: %s, %s -> %s, %s", p.BookingID, p.Username, p.From, p.To, p.Amount)
	case events.EventUserRegistered:
		var p events.UserEventPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "New %s account: %s", p.Role, p.Username)
	case events.EventPlaceCreated, events.EventPlaceDeleted:
		var p events.PlaceEventPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return "", err
		}
		action := "added"
		if event.Type == events.EventPlaceDeleted {
			action = "removed"
		}
		fmt.Fprintf(&b, "Place %s by %s: %s -> %s (%s)", action, p.Actor, p.From, p.To, p.Category)
	}

	return b.String(), nil
}
