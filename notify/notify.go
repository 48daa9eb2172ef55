// Package notify announces new orders so an operator can verify the claimed payment.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/models"
)

// EventOrderCreated is the type of the event published for every new order
const EventOrderCreated = "order.created"

// OrderCreatedEvent is the message body published for a new order
type OrderCreatedEvent struct {
	EventID        string               `json:"event_id"`
	Type           string               `json:"type"`
	OrderID        int64                `json:"order_id"`
	StorePackageID int64                `json:"store_package_id"`
	ItemID         *int64               `json:"item_id,omitempty"`
	Quantity       int                  `json:"quantity"`
	Amount         decimal.Decimal      `json:"amount"`
	Currency       models.Currency      `json:"currency"`
	Method         models.PaymentMethod `json:"method"`
	Reference      string               `json:"reference"`
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	CustomerID     string               `json:"customer_id"`
	SpecialCode    string               `json:"special_code,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// NewOrderCreatedEvent builds the event for order
func NewOrderCreatedEvent(order *models.Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		EventID:        uuid.NewString(),
		Type:           EventOrderCreated,
		OrderID:        order.ID,
		StorePackageID: order.StorePackageID,
		ItemID:         order.ItemID,
		Quantity:       order.Quantity,
		Amount:         order.Amount,
		Currency:       order.Currency,
		Method:         order.Method,
		Reference:      order.Reference,
		Name:           order.Name,
		Email:          order.Email,
		CustomerID:     order.CustomerID,
		SpecialCode:    order.SpecialCode,
		CreatedAt:      order.CreatedAt,
	}
}

// Notifier is told about every order created
type Notifier interface {
	OrderCreated(ctx context.Context, order *models.Order) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the notifier uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes order events to a Kafka topic, keyed by order id
type KafkaNotifier struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaNotifier creates a notifier writing to topic on brokers
func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaNotifier(w, topic, logger)
}

func newKafkaNotifier(w messageWriter, topic string, logger *zap.Logger) *KafkaNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaNotifier{writer: w, topic: topic, logger: logger}
}

// OrderCreated publishes an order.created event
func (n *KafkaNotifier) OrderCreated(ctx context.Context, order *models.Order) error {
	event := NewOrderCreatedEvent(order)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(order.ID, 10)),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderCreated)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish order event to %s: %w", n.topic, err)
	}
	n.logger.Debug("order event published", zap.Int64("order_id", order.ID), zap.String("event_id", event.EventID))
	return nil
}

// Close flushes and closes the writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// LogNotifier writes order events to the log, used when no broker is configured
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderCreated(_ context.Context, order *models.Order) error {
	n.logger.Info("new order awaiting verification",
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.String("amount", order.Amount.String()),
		zap.String("currency", string(order.Currency)),
		zap.String("method", string(order.Method)),
		zap.String("email", order.Email))
	return nil
}

func (n *LogNotifier) Close() error { return nil }
