// Package intake drives the transaction lifecycle: validate, persist,
// analyze, persist the outcome, publish the result.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/metrics"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// Service implements the transaction intake pipeline.
type Service struct {
	repo   domain.Repository
	scorer *scoring.Engine
	bus    domain.EventBus
	now    func() time.Time
}

// NewService creates an intake service.
func NewService(repo domain.Repository, scorer *scoring.Engine, bus domain.EventBus) *Service {
	return &Service{
		repo:   repo,
		scorer: scorer,
		bus:    bus,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateAndAnalyze validates the request, persists a pending transaction
// and runs analysis on it. The pending row is written before analysis
// starts, so a crash mid-analysis leaves a recoverable PENDING record.
func (s *Service) CreateAndAnalyze(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// The user must exist before anything is written.
	if _, err := s.repo.GetUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	tx := req.ToTransaction(s.now())
	tx.ID = uuid.New().String()

	if err := s.repo.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.analyze(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// Reanalyze loads a stored transaction and runs analysis again, replacing
// the previous outcome. Concurrent reanalysis is last-writer-wins.
func (s *Service) Reanalyze(ctx context.Context, txID string) (*domain.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	if err := s.analyze(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) analyze(ctx context.Context, tx *domain.Transaction) error {
	start := time.Now()

	outcome, err := s.scorer.Analyze(ctx, tx)
	if err != nil {
		return fmt.Errorf("analyze transaction %s: %w", tx.ID, err)
	}

	tx.ApplyAnalysis(outcome.Score, outcome.Status, outcome.Reason())

	if err := s.repo.UpdateTransactionAnalysis(ctx, tx); err != nil {
		return fmt.Errorf("persist analysis for %s: %w", tx.ID, err)
	}

	metrics.TransactionsAnalyzed.WithLabelValues(string(outcome.Status)).Inc()
	metrics.FraudScore.Observe(outcome.Score)
	metrics.AnalysisDuration.Observe(float64(time.Since(start).Milliseconds()))
	for _, f := range outcome.Findings {
		metrics.ChecksTriggered.WithLabelValues(f.Check).Inc()
	}

	s.publishAnalyzed(ctx, tx)

	slog.Info("transaction analyzed",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"fraud_score", tx.FraudScore,
		"fraud_status", tx.FraudStatus,
		"checks_triggered", len(outcome.Findings),
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

// publishAnalyzed emits the analyzed event. Publishing is best effort;
// the analysis result is already durable at this point.
func (s *Service) publishAnalyzed(ctx context.Context, tx *domain.Transaction) {
	if s.bus == nil {
		return
	}

	payload, err := json.Marshal(domain.AnalyzedEvent{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Amount:        tx.Amount.String(),
		FraudStatus:   tx.FraudStatus,
		FraudScore:    tx.FraudScore,
		FraudReason:   tx.FraudReason,
	})
	if err != nil {
		slog.Error("failed to encode analyzed event", "transaction_id", tx.ID, "error", err)
		return
	}

	if err := s.bus.Publish(ctx, domain.TopicTransactionAnalyzed, payload); err != nil {
		slog.Error("failed to publish analyzed event", "transaction_id", tx.ID, "error", err)
	}
}
