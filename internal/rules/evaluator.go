package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Evaluator applies operator-managed stored rules to transactions.
// Each rule compiles into a typed check carrying only the fields its
// rule type consults; evaluation is a single dispatch over that check.
type Evaluator struct {
	env   *cel.Env
	count CountTransactions
}

// NewEvaluator creates a stored-rule evaluator.
func NewEvaluator(count CountTransactions) (*Evaluator, error) {
	env, err := newCELEnv()
	if err != nil {
		return nil, err
	}
	return &Evaluator{env: env, count: count}, nil
}

// check is one compiled rule ready to run against a transaction.
// It reports whether the rule fired and why.
type check interface {
	eval(ctx context.Context, tx *domain.Transaction) (bool, string, error)
}

// Evaluate runs every active rule against the transaction. A rule that
// cannot be compiled or that fails at evaluation never triggers; the
// fault is logged and the remaining rules still run.
func (e *Evaluator) Evaluate(ctx context.Context, tx *domain.Transaction, rules []*domain.FraudRule) []Finding {
	var findings []Finding

	for _, rule := range rules {
		if !rule.Active {
			continue
		}

		chk := e.compile(rule)
		if chk == nil {
			continue
		}

		triggered, reason, err := chk.eval(ctx, tx)
		if err != nil {
			slog.Warn("rule evaluation failed",
				"rule_id", rule.ID,
				"rule_name", rule.RuleName,
				"error", err)
			continue
		}
		if triggered {
			findings = append(findings, Finding{
				Check:  rule.RuleName,
				Weight: rule.RiskScore,
				Reason: reason,
			})
		}
	}

	return findings
}

// compile turns a stored rule into its typed check. Rules whose required
// fields are missing, and rule types with no behavior, compile to nil.
func (e *Evaluator) compile(rule *domain.FraudRule) check {
	switch rule.RuleType {
	case domain.RuleAmountThreshold:
		if rule.ThresholdAmount == nil {
			return nil
		}
		return &amountCheck{name: rule.RuleName, threshold: *rule.ThresholdAmount}

	case domain.RuleVelocityCheck:
		if rule.TimeWindowMinutes == nil || rule.MaxOccurrences == nil {
			return nil
		}
		return &velocityCheck{
			name:   rule.RuleName,
			window: time.Duration(*rule.TimeWindowMinutes) * time.Minute,
			max:    int64(*rule.MaxOccurrences),
			count:  e.count,
		}

	case domain.RuleMerchantCategory:
		if rule.MerchantCategory == "" {
			return nil
		}
		return &merchantCheck{name: rule.RuleName, category: rule.MerchantCategory}

	case domain.RuleLocationBased:
		if rule.LocationRestriction == "" {
			return nil
		}
		return &locationCheck{name: rule.RuleName, restriction: rule.LocationRestriction}

	case domain.RuleTimeBased:
		return &timeCheck{name: rule.RuleName}

	case domain.RuleExpression:
		if rule.Expression == "" {
			return nil
		}
		return &exprCheck{
			name:   rule.RuleName,
			source: rule.Expression,
			window: expressionWindow(rule),
			env:    e.env,
			count:  e.count,
		}

	case domain.RuleIPBased:
		// No IP reputation source is wired up, so these rules never fire.
		return nil
	}

	// Unknown rule types fail open.
	return nil
}

// amountCheck fires when the transaction amount exceeds the threshold.
type amountCheck struct {
	name      string
	threshold decimal.Decimal
}

func (c *amountCheck) eval(_ context.Context, tx *domain.Transaction) (bool, string, error) {
	if tx.Amount.GreaterThan(c.threshold) {
		return true, fmt.Sprintf("Rule triggered: %s", c.name), nil
	}
	return false, "", nil
}

// velocityCheck fires when the user's transaction count in the trailing
// window reaches the configured maximum.
type velocityCheck struct {
	name   string
	window time.Duration
	max    int64
	count  CountTransactions
}

func (c *velocityCheck) eval(ctx context.Context, tx *domain.Transaction) (bool, string, error) {
	count, err := c.count(ctx, tx.UserID, c.window, tx.OccurredAt)
	if err != nil {
		return false, "", err
	}
	if count >= c.max {
		return true, fmt.Sprintf("Rule triggered: %s", c.name), nil
	}
	return false, "", nil
}

// merchantCheck fires on a case-insensitive merchant category match.
type merchantCheck struct {
	name     string
	category string
}

func (c *merchantCheck) eval(_ context.Context, tx *domain.Transaction) (bool, string, error) {
	if tx.MerchantCategory != "" && strings.EqualFold(tx.MerchantCategory, c.category) {
		return true, fmt.Sprintf("Rule triggered: %s", c.name), nil
	}
	return false, "", nil
}

// locationCheck fires when the restricted location appears in the
// transaction location, case-insensitively.
type locationCheck struct {
	name        string
	restriction string
}

func (c *locationCheck) eval(_ context.Context, tx *domain.Transaction) (bool, string, error) {
	if tx.Location == "" {
		return false, "", nil
	}
	if strings.Contains(strings.ToLower(tx.Location), strings.ToLower(c.restriction)) {
		return true, fmt.Sprintf("Rule triggered: %s", c.name), nil
	}
	return false, "", nil
}

// timeCheck fires when the transaction falls in the unusual-hour window.
type timeCheck struct {
	name string
}

func (c *timeCheck) eval(_ context.Context, tx *domain.Transaction) (bool, string, error) {
	if UnusualHour(tx.OccurredAt) {
		return true, fmt.Sprintf("Rule triggered: %s", c.name), nil
	}
	return false, "", nil
}
