// Package seed populates an empty store with sample users and a default
// fraud rule set so a fresh install detects something out of the box.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Run inserts the default users and rules. Each set is only written when
// its table is empty, so restarts never duplicate data.
func Run(ctx context.Context, repo domain.Repository) error {
	if err := seedUsers(ctx, repo); err != nil {
		return err
	}
	return seedRules(ctx, repo)
}

func seedUsers(ctx context.Context, repo domain.Repository) error {
	count, err := repo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	users := []*domain.User{
		{Username: "john_doe", Email: "john.doe@example.com", FullName: "John Doe", PhoneNumber: "+1-555-0101"},
		{Username: "jane_smith", Email: "jane.smith@example.com", FullName: "Jane Smith", PhoneNumber: "+1-555-0102"},
		{Username: "bob_wilson", Email: "bob.wilson@example.com", FullName: "Bob Wilson", PhoneNumber: "+1-555-0103"},
		{Username: "alice_brown", Email: "alice.brown@example.com", FullName: "Alice Brown", PhoneNumber: "+1-555-0104"},
	}

	now := time.Now().UTC()
	for _, user := range users {
		user.ID = uuid.New().String()
		user.CreatedAt = now
		if err := repo.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", user.Username, err)
		}
	}

	slog.Info("seeded sample users", "count", len(users))
	return nil
}

func seedRules(ctx context.Context, repo domain.Repository) error {
	count, err := repo.CountRules(ctx)
	if err != nil {
		return fmt.Errorf("count rules: %w", err)
	}
	if count > 0 {
		return nil
	}

	rules := defaultRules()

	now := time.Now().UTC()
	for _, rule := range rules {
		rule.ID = uuid.New().String()
		rule.Active = true
		rule.CreatedAt = now
		rule.UpdatedAt = now
		if err := repo.SaveRule(ctx, rule); err != nil {
			return fmt.Errorf("seed rule %s: %w", rule.RuleName, err)
		}
	}

	slog.Info("seeded default fraud rules", "count", len(rules))
	return nil
}

// defaultRules is the rule set installed on first start.
func defaultRules() []*domain.FraudRule {
	return []*domain.FraudRule{
		{
			RuleName:        "High Amount Transaction",
			Description:     "Flags transactions above $10,000",
			RuleType:        domain.RuleAmountThreshold,
			ThresholdAmount: decimalPtr("10000.00"),
			RiskScore:       40.0,
		},
		{
			RuleName:        "Very High Amount Transaction",
			Description:     "Flags transactions above $50,000",
			RuleType:        domain.RuleAmountThreshold,
			ThresholdAmount: decimalPtr("50000.00"),
			RiskScore:       60.0,
		},
		{
			RuleName:          "Transaction Velocity Check",
			Description:       "Flags more than 5 transactions within an hour",
			RuleType:          domain.RuleVelocityCheck,
			TimeWindowMinutes: intPtr(60),
			MaxOccurrences:    intPtr(5),
			RiskScore:         50.0,
		},
		{
			RuleName:          "Rapid Transaction Velocity",
			Description:       "Flags more than 3 transactions within 10 minutes",
			RuleType:          domain.RuleVelocityCheck,
			TimeWindowMinutes: intPtr(10),
			MaxOccurrences:    intPtr(3),
			RiskScore:         70.0,
		},
		{
			RuleName:         "Gambling Merchant",
			Description:      "Flags gambling merchant transactions",
			RuleType:         domain.RuleMerchantCategory,
			MerchantCategory: "GAMBLING",
			RiskScore:        30.0,
		},
		{
			RuleName:         "Cryptocurrency Merchant",
			Description:      "Flags cryptocurrency merchant transactions",
			RuleType:         domain.RuleMerchantCategory,
			MerchantCategory: "CRYPTOCURRENCY",
			RiskScore:        35.0,
		},
		{
			RuleName:         "Cash Advance",
			Description:      "Flags cash advance transactions",
			RuleType:         domain.RuleMerchantCategory,
			MerchantCategory: "CASH_ADVANCE",
			RiskScore:        25.0,
		},
		{
			RuleName:    "Unusual Transaction Time",
			Description: "Flags transactions between 2 AM and 5 AM",
			RuleType:    domain.RuleTimeBased,
			RiskScore:   20.0,
		},
	}
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(v int) *int {
	return &v
}
