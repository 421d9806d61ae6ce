// Package alert consumes analyzed-transaction events and raises fraud
// alerts for suspicious and fraudulent outcomes.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/metrics"
)

// Notifier subscribes to analyzed-transaction events and republishes the
// flagged ones on the fraud alert topic.
type Notifier struct {
	bus domain.EventBus
	sub domain.Subscription
}

// NewNotifier creates an alert notifier on the given bus.
func NewNotifier(bus domain.EventBus) *Notifier {
	return &Notifier{bus: bus}
}

// Start begins consuming analyzed events until Stop is called or ctx ends.
func (n *Notifier) Start(ctx context.Context) error {
	sub, err := n.bus.Subscribe(ctx, domain.TopicTransactionAnalyzed, n.handle)
	if err != nil {
		return fmt.Errorf("subscribe to analyzed events: %w", err)
	}
	n.sub = sub
	return nil
}

// Stop unsubscribes from the analyzed event stream.
func (n *Notifier) Stop() error {
	if n.sub == nil {
		return nil
	}
	return n.sub.Unsubscribe()
}

func (n *Notifier) handle(ctx context.Context, msg *domain.Message) error {
	var event domain.AnalyzedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode analyzed event: %w", err)
	}

	if event.FraudStatus != domain.StatusSuspicious && event.FraudStatus != domain.StatusFraudulent {
		return nil
	}

	metrics.AlertsRaised.WithLabelValues(string(event.FraudStatus)).Inc()

	slog.Warn("fraud alert",
		"transaction_id", event.TransactionID,
		"user_id", event.UserID,
		"amount", event.Amount,
		"fraud_status", event.FraudStatus,
		"fraud_score", event.FraudScore,
		"fraud_reason", event.FraudReason)

	if err := n.bus.Publish(ctx, domain.TopicFraudAlert, msg.Payload); err != nil {
		return fmt.Errorf("publish fraud alert: %w", err)
	}
	return nil
}
