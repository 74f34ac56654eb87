// Package events publishes order and table lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderPaid          = "order.paid"
	TypeTableStatusChanged = "table.status_changed"
)

// Envelope is embedded in every event.
type Envelope struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

func newEnvelope(eventType string) Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
}

type OrderCreated struct {
	Envelope
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	OrderType   string      `json:"order_type"`
	TotalAmount string      `json:"total_amount"`
	Items       []OrderItem `json:"items"`
}

type OrderStatusChanged struct {
	Envelope
	OrderID uuid.UUID `json:"order_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Role    string    `json:"role"`
}

type OrderPaid struct {
	Envelope
	OrderID       uuid.UUID `json:"order_id"`
	PaymentMethod string    `json:"payment_method"`
	Amount        string    `json:"amount"`
}

type TableStatusChanged struct {
	Envelope
	TableID     uuid.UUID `json:"table_id"`
	TableNumber int32     `json:"table_number"`
	From        string    `json:"from"`
	To          string    `json:"to"`
}

// Publisher emits domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	OrderCreated(ctx context.Context, e OrderCreated) error
	OrderStatusChanged(ctx context.Context, e OrderStatusChanged) error
	OrderPaid(ctx context.Context, e OrderPaid) error
	TableStatusChanged(ctx context.Context, e TableStatusChanged) error
}

// KafkaPublisher writes events through a Producer, keyed by aggregate ID.
type KafkaPublisher struct {
	producer *Producer
}

func NewKafkaPublisher(producer *Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) OrderCreated(ctx context.Context, e OrderCreated) error {
	e.Envelope = newEnvelope(TypeOrderCreated)
	return p.producer.Publish(ctx, "order-"+e.OrderID.String(), e)
}

func (p *KafkaPublisher) OrderStatusChanged(ctx context.Context, e OrderStatusChanged) error {
	e.Envelope = newEnvelope(TypeOrderStatusChanged)
	return p.producer.Publish(ctx, "order-"+e.OrderID.String(), e)
}

func (p *KafkaPublisher) OrderPaid(ctx context.Context, e OrderPaid) error {
	e.Envelope = newEnvelope(TypeOrderPaid)
	return p.producer.Publish(ctx, "order-"+e.OrderID.String(), e)
}

func (p *KafkaPublisher) TableStatusChanged(ctx context.Context, e TableStatusChanged) error {
	e.Envelope = newEnvelope(TypeTableStatusChanged)
	return p.producer.Publish(ctx, "table-"+e.TableID.String(), e)
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) OrderCreated(context.Context, OrderCreated) error             { return nil }
func (NopPublisher) OrderStatusChanged(context.Context, OrderStatusChanged) error { return nil }
func (NopPublisher) OrderPaid(context.Context, OrderPaid) error                   { return nil }
func (NopPublisher) TableStatusChanged(context.Context, TableStatusChanged) error { return nil }

// DecodeType reads only the envelope of a raw event.
func DecodeType(raw []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	return env.EventType, nil
}
