package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventBookingCreated = "booking_created"
	EventBookingDeleted = "booking_deleted"
	EventPlaceCreated   = "place_created"
	EventPlaceUpdated   = "place_updated"
	EventPlaceDeleted   = "place_deleted"
	EventUserRegistered = "user_registered"
	EventUserDeleted    = "user_deleted"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID string `json:"booking_id"`
	PaymentID string `json:"payment_id,omitempty"`
	Username  string `json:"username"`
	PlaceID   string `json:"place_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Adults    int    `json:"adult"`
	Children  int    `json:"child"`
	Depart    string `json:"depart,omitempty"`
	Amount    string `json:"amount"`
	CardLast4 string `json:"card_last4,omitempty"`
}

// PlaceEventPayload is published on catalog changes.
type PlaceEventPayload struct {
	PlaceID  string `json:"place_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Category string `json:"category"`
	Price    string `json:"price,omitempty"`
	Actor    string `json:"actor"`
}

// UserEventPayload is published on account changes.
type UserEventPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Actor    string `json:"actor,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	wildcard    []EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged when logger is set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Str("event_id", event.ID).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

// Async runs handler in its own goroutine. Failures are only logged.
func Async(handler EventHandler, logger *zerolog.Logger) EventHandler {
	return func(event *Event) error {
		go func() {
			if err := handler(event); err != nil && logger != nil {
				logger.Warn().Err(err).Str("event", event.Type).Str("event_id", event.ID).Msg("async event handler failed")
			}
		}()
		return nil
	}
}
