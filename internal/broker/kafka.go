package broker

import (
	"context"
	"fmt"
	"time"

	"travelbook/internal/config"
	"travelbook/internal/events"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards bus events to a Kafka topic keyed by event type.
type KafkaSink struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
}

func NewKafkaSink(writer MessageWriter, logger *zerolog.Logger) *KafkaSink {
	return &KafkaSink{writer: writer, timeout: 10 * time.Second, logger: logger}
}

// Handle is an events.EventHandler.
func (s *KafkaSink) Handle(event *events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.Type),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event %s to kafka: %w", event.Type, err)
	}
	s.logger.Debug().Str("event", event.Type).Str("event_id", event.ID).Msg("event sent to kafka")
	return nil
}

// Attach subscribes the sink to every event on the bus. With async the
// broker write does not block the publisher.
func (s *KafkaSink) Attach(bus *events.EventBus, async bool) {
	handler := events.EventHandler(s.Handle)
	if async {
		handler = events.Async(handler, s.logger)
	}
	bus.SubscribeAll(handler)
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
