package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Backed by Go channels or NATS depending on configuration.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// Topics published by the analysis pipeline.
const (
	TopicTransactionAnalyzed = "kestrel.transaction.analyzed"
	TopicFraudAlert          = "kestrel.fraud.alert"
)

// AnalyzedEvent is the payload published after every analysis.
type AnalyzedEvent struct {
	TransactionID string      `json:"transactionId"`
	UserID        string      `json:"userId"`
	Amount        string      `json:"amount"`
	FraudStatus   FraudStatus `json:"fraudStatus"`
	FraudScore    float64     `json:"fraudScore"`
	FraudReason   string      `json:"fraudReason,omitempty"`
}
