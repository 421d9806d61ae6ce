package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// defaultExpressionWindow is used for velocity_count when an expression
// rule does not set its own window.
const defaultExpressionWindow = 60 * time.Minute

// newCELEnv creates the CEL environment with transaction variables
// available to expression rules.
func newCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("tx_type", cel.StringType),
		cel.Variable("merchant_name", cel.StringType),
		cel.Variable("merchant_category", cel.StringType),
		cel.Variable("location", cel.StringType),
		cel.Variable("ip_address", cel.StringType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("velocity_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// ValidateExpression compiles an expression and checks it yields a bool.
// Used at rule creation so broken expressions are rejected up front.
func (e *Evaluator) ValidateExpression(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("%w: expression is required", domain.ErrValidation)
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("%w: expression must return bool, got %s", domain.ErrValidation, ast.OutputType())
	}
	return nil
}

// exprCheck evaluates a CEL expression against the transaction.
// The expression is compiled on each evaluation so edits to the stored
// rule take effect immediately.
type exprCheck struct {
	name   string
	source string
	window time.Duration
	env    *cel.Env
	count  CountTransactions
}

func (c *exprCheck) eval(ctx context.Context, tx *domain.Transaction) (bool, string, error) {
	ast, issues := c.env.Compile(c.source)
	if issues != nil && issues.Err() != nil {
		return false, "", fmt.Errorf("compile expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return false, "", fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	program, err := c.env.Program(ast)
	if err != nil {
		return false, "", fmt.Errorf("build program: %w", err)
	}

	amount, _ := tx.Amount.Float64()
	activation := map[string]any{
		"amount":            amount,
		"tx_type":           string(tx.TransactionType),
		"merchant_name":     tx.MerchantName,
		"merchant_category": tx.MerchantCategory,
		"location":          tx.Location,
		"ip_address":        tx.IPAddress,
		"hour":              int64(tx.OccurredAt.Hour()),
		"velocity_count":    int64(0),
	}

	// The velocity count costs a store round trip, so only fetch it when
	// the expression actually uses it.
	if strings.Contains(c.source, "velocity_count") {
		count, err := c.count(ctx, tx.UserID, c.window, tx.OccurredAt)
		if err != nil {
			return false, "", fmt.Errorf("velocity count: %w", err)
		}
		activation["velocity_count"] = count
	}

	out, _, err := program.Eval(activation)
	if err != nil {
		return false, "", fmt.Errorf("evaluate expression: %w", err)
	}

	result, ok := out.(types.Bool)
	if !ok {
		return false, "", fmt.Errorf("expression yielded %T, want bool", out)
	}
	if bool(result) {
		return true, fmt.Sprintf("Rule triggered: %s", c.name), nil
	}
	return false, "", nil
}

// expressionWindow picks the velocity window for an expression rule.
func expressionWindow(rule *domain.FraudRule) time.Duration {
	if rule.TimeWindowMinutes != nil {
		return time.Duration(*rule.TimeWindowMinutes) * time.Minute
	}
	return defaultExpressionWindow
}
