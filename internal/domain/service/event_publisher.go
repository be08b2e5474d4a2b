package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Order lifecycle event types published to downstream consumers.
const (
	OrderEventCreated  = "order.created"
	OrderEventCanceled = "order.canceled"
	OrderEventFinished = "order.finished"
)

// OrderEvent represents an order lifecycle change to be processed downstream,
// e.g. by a fulfillment worker.
type OrderEvent struct {
	RequestID  string    `json:"request_id,omitempty"` // For distributed tracing
	EventType  string    `json:"event_type"`
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	Status     string    `json:"status"`
	Price      float64   `json:"price"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue.
type EventPublisher interface {
	// PublishOrderEvent publishes an order lifecycle event for async processing.
	PublishOrderEvent(ctx context.Context, event *OrderEvent) error

	// Close releases any resources held by the publisher.
	Close() error
}
