// Package scoring aggregates check findings into a fraud score and a
// final classification for a transaction.
package scoring

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/rules"
)

// Classification thresholds. Checked in order, highest tier first.
const (
	FraudulentThreshold = 80.0
	SuspiciousThreshold = 50.0
	MaxScore            = 100.0
)

var tracer = otel.Tracer("kestrel-scoring")

// Outcome is the result of analyzing one transaction.
type Outcome struct {
	Score    float64
	Status   domain.FraudStatus
	Findings []rules.Finding
	Reasons  []string
}

// Reason joins the triggered explanations into the stored reason string.
func (o *Outcome) Reason() string {
	return strings.Join(o.Reasons, "; ")
}

// Engine runs the full analysis: built-in heuristics, stored rules, and
// aggregation. It is a pure function of the transaction, the active rule
// set and the user's transaction history.
type Engine struct {
	heuristics *rules.Heuristics
	evaluator  *rules.Evaluator
	ruleSource domain.RuleSource
}

// NewEngine creates a scoring engine.
func NewEngine(heuristics *rules.Heuristics, evaluator *rules.Evaluator, ruleSource domain.RuleSource) *Engine {
	return &Engine{
		heuristics: heuristics,
		evaluator:  evaluator,
		ruleSource: ruleSource,
	}
}

// Analyze scores a transaction against the built-in heuristics and the
// currently active stored rules.
func (e *Engine) Analyze(ctx context.Context, tx *domain.Transaction) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "scoring.Analyze", trace.WithAttributes(
		attribute.String("transaction.id", tx.ID),
		attribute.String("user.id", tx.UserID),
	))
	defer span.End()

	findings, err := e.heuristics.Evaluate(ctx, tx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("heuristics: %w", err)
	}

	activeRules, err := e.ruleSource.ActiveRules(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load active rules: %w", err)
	}
	findings = append(findings, e.evaluator.Evaluate(ctx, tx, activeRules)...)

	outcome := Aggregate(findings)

	span.SetAttributes(
		attribute.Float64("fraud.score", outcome.Score),
		attribute.String("fraud.status", string(outcome.Status)),
		attribute.Int("checks.triggered", len(outcome.Findings)),
	)

	return outcome, nil
}

// Aggregate folds triggered findings into the final score and status.
// No findings means an exact zero score, not a rounded one.
func Aggregate(findings []rules.Finding) *Outcome {
	outcome := &Outcome{Findings: findings}

	if len(findings) == 0 {
		outcome.Score = 0.0
		outcome.Status = domain.StatusLegitimate
		return outcome
	}

	raw := 0.0
	for _, f := range findings {
		raw += f.Weight
		if f.Reason != "" {
			outcome.Reasons = append(outcome.Reasons, f.Reason)
		}
	}

	score := raw
	if score > MaxScore {
		score = MaxScore
	}
	outcome.Score = score

	switch {
	case score >= FraudulentThreshold:
		outcome.Status = domain.StatusFraudulent
		outcome.Reasons = append(outcome.Reasons, fmt.Sprintf("High fraud score: %v", score))
	case score >= SuspiciousThreshold:
		outcome.Status = domain.StatusSuspicious
		outcome.Reasons = append(outcome.Reasons, fmt.Sprintf("Moderate fraud score: %v", score))
	default:
		outcome.Status = domain.StatusLegitimate
	}

	return outcome
}
