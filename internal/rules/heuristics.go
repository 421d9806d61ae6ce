// Package rules implements the fraud checks applied to transactions:
// a fixed set of built-in heuristics plus operator-managed stored rules.
package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Weights contributed by the built-in heuristics.
const (
	WeightHighAmount    = 30.0
	WeightVelocity      = 40.0
	WeightRiskyMerchant = 25.0
	WeightUnusualTime   = 20.0
)

// Check names reported in findings.
const (
	CheckHighAmount    = "HIGH_AMOUNT"
	CheckVelocity      = "HIGH_VELOCITY"
	CheckRiskyMerchant = "HIGH_RISK_MERCHANT"
	CheckUnusualTime   = "UNUSUAL_TIME"
)

// Unusual-hour window, inclusive on both ends.
const (
	unusualHourStart = 2
	unusualHourEnd   = 5
)

// highRiskCategories is matched case-insensitively against the
// transaction's merchant category.
var highRiskCategories = map[string]struct{}{
	"GAMBLING":       {},
	"ADULT":          {},
	"CRYPTOCURRENCY": {},
	"CASH_ADVANCE":   {},
}

// Finding is a single triggered check with its score contribution.
type Finding struct {
	Check  string
	Weight float64
	Reason string
}

// CountTransactions returns the number of transactions a user made in the
// window ending at ref.
type CountTransactions func(ctx context.Context, userID string, window time.Duration, ref time.Time) (int64, error)

// Heuristics applies the built-in fraud checks.
type Heuristics struct {
	amountThreshold decimal.Decimal
	velocityWindow  time.Duration
	maxPerWindow    int64
	count           CountTransactions
}

// NewHeuristics builds the heuristic checks from detection settings.
func NewHeuristics(cfg domain.DetectionConfig, count CountTransactions) (*Heuristics, error) {
	threshold, err := cfg.AmountThreshold()
	if err != nil {
		return nil, err
	}
	return &Heuristics{
		amountThreshold: threshold,
		velocityWindow:  time.Duration(cfg.VelocityWindowMinutes) * time.Minute,
		maxPerWindow:    int64(cfg.MaxTransactionsPerWindow),
		count:           count,
	}, nil
}

// Evaluate runs every heuristic against the transaction. A velocity store
// failure aborts the run; the remaining checks cannot fail.
func (h *Heuristics) Evaluate(ctx context.Context, tx *domain.Transaction) ([]Finding, error) {
	var findings []Finding

	if tx.Amount.GreaterThan(h.amountThreshold) {
		findings = append(findings, Finding{
			Check:  CheckHighAmount,
			Weight: WeightHighAmount,
			Reason: fmt.Sprintf("High transaction amount: %s", tx.Amount),
		})
	}

	count, err := h.count(ctx, tx.UserID, h.velocityWindow, tx.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("velocity check: %w", err)
	}
	if count >= h.maxPerWindow {
		findings = append(findings, Finding{
			Check:  CheckVelocity,
			Weight: WeightVelocity,
			Reason: fmt.Sprintf("High transaction frequency: %d transactions in %d minutes", count, int(h.velocityWindow.Minutes())),
		})
	}

	if category := strings.ToUpper(tx.MerchantCategory); category != "" {
		if _, risky := highRiskCategories[category]; risky {
			findings = append(findings, Finding{
				Check:  CheckRiskyMerchant,
				Weight: WeightRiskyMerchant,
				Reason: fmt.Sprintf("High-risk merchant category: %s", tx.MerchantCategory),
			})
		}
	}

	if UnusualHour(tx.OccurredAt) {
		findings = append(findings, Finding{
			Check:  CheckUnusualTime,
			Weight: WeightUnusualTime,
			Reason: fmt.Sprintf("Transaction at unusual hour: %02d:00", tx.OccurredAt.Hour()),
		})
	}

	return findings, nil
}

// UnusualHour reports whether t falls in the night-time window that the
// time-based checks flag.
func UnusualHour(t time.Time) bool {
	hour := t.Hour()
	return hour >= unusualHourStart && hour <= unusualHourEnd
}
