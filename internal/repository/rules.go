package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/domain"
)

const ruleColumns = `id, rule_name, description, rule_type,
	   threshold_amount, time_window_minutes, max_occurrences,
	   merchant_category, location_restriction, expression,
	   risk_score, active, created_at, updated_at`

// SaveRule stores a fraud rule, updating it in place when the ID exists.
func (r *SQLRepository) SaveRule(ctx context.Context, rule *domain.FraudRule) error {
	var threshold sql.NullString
	if rule.ThresholdAmount != nil {
		threshold = sql.NullString{String: rule.ThresholdAmount.String(), Valid: true}
	}

	active := 0
	if rule.Active {
		active = 1
	}

	query := `
		INSERT INTO fraud_rules (
			id, rule_name, description, rule_type,
			threshold_amount, time_window_minutes, max_occurrences,
			merchant_category, location_restriction, expression,
			risk_score, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rule_name = excluded.rule_name,
			description = excluded.description,
			rule_type = excluded.rule_type,
			threshold_amount = excluded.threshold_amount,
			time_window_minutes = excluded.time_window_minutes,
			max_occurrences = excluded.max_occurrences,
			merchant_category = excluded.merchant_category,
			location_restriction = excluded.location_restriction,
			expression = excluded.expression,
			risk_score = excluded.risk_score,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.RuleName, rule.Description, string(rule.RuleType),
		threshold, nullableInt(rule.TimeWindowMinutes), nullableInt(rule.MaxOccurrences),
		rule.MerchantCategory, rule.LocationRestriction, rule.Expression,
		rule.RiskScore, active, rule.CreatedAt, rule.UpdatedAt,
	)
	return err
}

// GetRule retrieves a fraud rule by ID.
func (r *SQLRepository) GetRule(ctx context.Context, ruleID string) (*domain.FraudRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM fraud_rules WHERE id = ?`

	rule, err := r.scanRule(r.db.QueryRowContext(ctx, r.rebind(query), ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rule %s", domain.ErrNotFound, ruleID)
	}
	return rule, err
}

// ListRules retrieves all fraud rules ordered by name.
func (r *SQLRepository) ListRules(ctx context.Context) ([]*domain.FraudRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM fraud_rules ORDER BY rule_name`
	return r.queryRules(ctx, query)
}

// ListActiveRules retrieves only active fraud rules ordered by name.
func (r *SQLRepository) ListActiveRules(ctx context.Context) ([]*domain.FraudRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM fraud_rules WHERE active = 1 ORDER BY rule_name`
	return r.queryRules(ctx, query)
}

// DeleteRule removes a fraud rule by ID.
func (r *SQLRepository) DeleteRule(ctx context.Context, ruleID string) error {
	query := `DELETE FROM fraud_rules WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: rule %s", domain.ErrNotFound, ruleID)
	}

	return nil
}

// CountRules returns the total number of fraud rules.
func (r *SQLRepository) CountRules(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fraud_rules`).Scan(&count)
	return count, err
}

func (r *SQLRepository) scanRule(row rowScanner) (*domain.FraudRule, error) {
	var rule domain.FraudRule
	var ruleType string
	var threshold sql.NullString
	var window, occurrences sql.NullInt64
	var active int

	err := row.Scan(
		&rule.ID, &rule.RuleName, &rule.Description, &ruleType,
		&threshold, &window, &occurrences,
		&rule.MerchantCategory, &rule.LocationRestriction, &rule.Expression,
		&rule.RiskScore, &active, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.RuleType = domain.RuleType(ruleType)
	rule.Active = active == 1

	if threshold.Valid {
		amount, err := decimal.NewFromString(threshold.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt threshold amount %q: %w", threshold.String, err)
		}
		rule.ThresholdAmount = &amount
	}
	if window.Valid {
		minutes := int(window.Int64)
		rule.TimeWindowMinutes = &minutes
	}
	if occurrences.Valid {
		max := int(occurrences.Int64)
		rule.MaxOccurrences = &max
	}

	return &rule, nil
}

func (r *SQLRepository) queryRules(ctx context.Context, query string, args ...any) ([]*domain.FraudRule, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.FraudRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
