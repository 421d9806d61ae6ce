package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType selects which evaluation strategy a stored rule uses.
type RuleType string

const (
	RuleAmountThreshold  RuleType = "AMOUNT_THRESHOLD"
	RuleVelocityCheck    RuleType = "VELOCITY_CHECK"
	RuleLocationBased    RuleType = "LOCATION_BASED"
	RuleMerchantCategory RuleType = "MERCHANT_CATEGORY"
	RuleTimeBased        RuleType = "TIME_BASED"
	RuleIPBased          RuleType = "IP_BASED"

	// RuleExpression evaluates a CEL expression against the transaction.
	RuleExpression RuleType = "EXPRESSION"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleAmountThreshold, RuleVelocityCheck, RuleLocationBased,
		RuleMerchantCategory, RuleTimeBased, RuleIPBased, RuleExpression:
		return true
	}
	return false
}

// FraudRule is an operator-managed detection rule. Only the fields
// relevant to its RuleType are consulted at evaluation; the rest are
// ignored, never rejected.
type FraudRule struct {
	ID          string   `json:"id"`
	RuleName    string   `json:"ruleName"`
	Description string   `json:"description,omitempty"`
	RuleType    RuleType `json:"ruleType"`

	// AMOUNT_THRESHOLD
	ThresholdAmount *decimal.Decimal `json:"thresholdAmount,omitempty"`

	// VELOCITY_CHECK
	TimeWindowMinutes *int `json:"timeWindowMinutes,omitempty"`
	MaxOccurrences    *int `json:"maxTransactions,omitempty"`

	// MERCHANT_CATEGORY
	MerchantCategory string `json:"merchantCategory,omitempty"`

	// LOCATION_BASED
	LocationRestriction string `json:"locationRestriction,omitempty"`

	// EXPRESSION
	Expression string `json:"expression,omitempty"`

	// RiskScore is the weight added to the fraud score when the rule fires.
	RiskScore float64 `json:"riskScore"`
	Active    bool    `json:"active"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks rule fields on create and update.
func (r *FraudRule) Validate() error {
	if strings.TrimSpace(r.RuleName) == "" {
		return fmt.Errorf("%w: ruleName is required", ErrValidation)
	}
	if r.RuleType == "" {
		return fmt.Errorf("%w: ruleType is required", ErrValidation)
	}
	if !r.RuleType.Valid() {
		return fmt.Errorf("%w: unknown ruleType %q", ErrValidation, r.RuleType)
	}
	if r.RiskScore < 0 {
		return fmt.Errorf("%w: riskScore must not be negative", ErrValidation)
	}
	if r.ThresholdAmount != nil && r.ThresholdAmount.IsNegative() {
		return fmt.Errorf("%w: thresholdAmount must not be negative", ErrValidation)
	}
	if r.TimeWindowMinutes != nil && *r.TimeWindowMinutes <= 0 {
		return fmt.Errorf("%w: timeWindowMinutes must be positive", ErrValidation)
	}
	if r.MaxOccurrences != nil && *r.MaxOccurrences <= 0 {
		return fmt.Errorf("%w: maxTransactions must be positive", ErrValidation)
	}
	return nil
}

// RuleSource provides the active rule set for an analysis run.
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]*FraudRule, error)
}

// RuleSourceFunc adapts a function to the RuleSource interface.
type RuleSourceFunc func(ctx context.Context) ([]*FraudRule, error)

func (f RuleSourceFunc) ActiveRules(ctx context.Context) ([]*FraudRule, error) {
	return f(ctx)
}
