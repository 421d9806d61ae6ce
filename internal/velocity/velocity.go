// Package velocity provides transaction velocity calculation.
package velocity

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Service calculates transaction velocity for users.
type Service struct {
	repo domain.Repository
}

// NewService creates a new velocity service.
func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

// CountInWindow returns the number of transactions a user made in the
// window ending at ref. Bounds are inclusive, so when ref is a persisted
// transaction's own timestamp that transaction is counted.
func (s *Service) CountInWindow(ctx context.Context, userID string, window time.Duration, ref time.Time) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("userID is required")
	}

	count, err := s.repo.CountTransactionsInWindow(ctx, userID, ref.Add(-window), ref)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// TotalInWindow returns the summed transaction amount for a user in the
// window ending at ref.
func (s *Service) TotalInWindow(ctx context.Context, userID string, window time.Duration, ref time.Time) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Decimal{}, fmt.Errorf("userID is required")
	}

	total, err := s.repo.SumAmountInWindow(ctx, userID, ref.Add(-window), ref)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}

// Counter returns a counting function suitable for the rule packages.
func (s *Service) Counter() func(ctx context.Context, userID string, window time.Duration, ref time.Time) (int64, error) {
	return s.CountInWindow
}
