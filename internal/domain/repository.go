// Package domain defines the core entities and interfaces for Kestrel.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// User operations
	SaveUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	DeleteUser(ctx context.Context, userID string) error
	CountUsers(ctx context.Context) (int64, error)

	// Transaction operations
	SaveTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)
	UpdateTransactionAnalysis(ctx context.Context, tx *Transaction) error
	UpdateTransactionStatus(ctx context.Context, txID string, status FraudStatus) error
	ListTransactionsByStatus(ctx context.Context, status FraudStatus) ([]*Transaction, error)
	ListRecentTransactionsByUser(ctx context.Context, userID string, since time.Time) ([]*Transaction, error)
	CountTransactionsInWindow(ctx context.Context, userID string, from, to time.Time) (int64, error)
	SumAmountInWindow(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, error)

	// Fraud rule operations
	SaveRule(ctx context.Context, rule *FraudRule) error
	GetRule(ctx context.Context, ruleID string) (*FraudRule, error)
	ListRules(ctx context.Context) ([]*FraudRule, error)
	ListActiveRules(ctx context.Context) ([]*FraudRule, error)
	DeleteRule(ctx context.Context, ruleID string) error
	CountRules(ctx context.Context) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}
