package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"evo-store/internal/config"
	"evo-store/internal/model"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Event types published on the order topic.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the message value. The message key is the order number so
// every event for one order lands on the same partition.
type OrderEvent struct {
	Type        string            `json:"type"`
	OrderID     string            `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	Status      model.OrderStatus `json:"status"`
	Previous    model.OrderStatus `json:"previousStatus,omitempty"`
	Total       decimal.Decimal   `json:"total"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// NewOrderEvent builds an event for the order's current state.
func NewOrderEvent(eventType string, order *model.Order, previous model.OrderStatus) OrderEvent {
	return OrderEvent{
		Type:        eventType,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Previous:    previous,
		Total:       order.Total,
		OccurredAt:  time.Now().UTC(),
	}
}

// Publisher emits order events.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewPublisher returns a Kafka-backed publisher, or a no-op one when Kafka
// is disabled.
func NewPublisher(cfg config.KafkaConfig, logger zerolog.Logger) Publisher {
	logger = logger.With().Str("component", "events").Logger()
	if !cfg.Enabled {
		logger.Info().Msg("kafka disabled, order events will not be published")
		return NopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}

	logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka publisher configured")

	return &kafkaPublisher{writer: writer, logger: logger}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: value,
		Time:  event.OccurredAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().
			Err(err).
			Str("type", event.Type).
			Str("order_number", event.OrderNumber).
			Msg("failed to publish event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().Str("type", event.Type).Str("order_number", event.OrderNumber).Msg("event published")
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }
