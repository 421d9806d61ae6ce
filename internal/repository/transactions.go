package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// transactionColumns is the column list shared by all transaction queries.
const transactionColumns = `id, user_id, amount, transaction_type,
	   merchant_name, merchant_category, location,
	   card_number_masked, ip_address,
	   occurred_at, created_at,
	   fraud_status, fraud_score, fraud_reason`

// SaveTransaction stores a new transaction.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, user_id, amount, transaction_type,
			merchant_name, merchant_category, location,
			card_number_masked, ip_address,
			occurred_at, created_at,
			fraud_status, fraud_score, fraud_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tx.UserID, tx.Amount.String(), string(tx.TransactionType),
		tx.MerchantName, tx.MerchantCategory, tx.Location,
		tx.CardNumberMasked, tx.IPAddress,
		tx.OccurredAt, tx.CreatedAt,
		string(tx.FraudStatus), tx.FraudScore, tx.FraudReason,
	)
	return err
}

// GetTransaction retrieves a transaction by ID.
func (r *SQLRepository) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	tx, err := r.scanTransaction(r.db.QueryRowContext(ctx, r.rebind(query), txID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, txID)
	}
	return tx, err
}

// UpdateTransactionAnalysis persists the analysis outcome of a transaction.
// Score, status and reason are written as one unit.
func (r *SQLRepository) UpdateTransactionAnalysis(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET fraud_status = ?, fraud_score = ?, fraud_reason = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		string(tx.FraudStatus), tx.FraudScore, tx.FraudReason, tx.ID,
	)
	if err != nil {
		return err
	}
	return r.expectRow(result, tx.ID)
}

// UpdateTransactionStatus overrides only the fraud status of a transaction.
func (r *SQLRepository) UpdateTransactionStatus(ctx context.Context, txID string, status domain.FraudStatus) error {
	query := `UPDATE transactions SET fraud_status = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), string(status), txID)
	if err != nil {
		return err
	}
	return r.expectRow(result, txID)
}

// ListTransactionsByStatus retrieves transactions with the given fraud status,
// most recent first.
func (r *SQLRepository) ListTransactionsByStatus(ctx context.Context, status domain.FraudStatus) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE fraud_status = ?
		ORDER BY created_at DESC`

	return r.queryTransactions(ctx, query, string(status))
}

// ListRecentTransactionsByUser retrieves a user's transactions since a point
// in time, most recent first.
func (r *SQLRepository) ListRecentTransactionsByUser(ctx context.Context, userID string, since time.Time) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = ? AND occurred_at >= ?
		ORDER BY occurred_at DESC`

	return r.queryTransactions(ctx, query, userID, since)
}

// CountTransactionsInWindow counts a user's transactions with occurred_at in
// [from, to]. The bounds are inclusive, so a window anchored at a
// transaction's own timestamp counts that transaction.
func (r *SQLRepository) CountTransactionsInWindow(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), userID, from, to).Scan(&count)
	return count, err
}

// SumAmountInWindow sums a user's transaction amounts with occurred_at in
// [from, to]. Amounts are summed in Go so the result stays exact.
func (r *SQLRepository) SumAmountInWindow(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT amount FROM transactions
		WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID, from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Decimal{}, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("corrupt amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}

	return total, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amount, txType, status string
	var reason sql.NullString

	err := row.Scan(
		&tx.ID, &tx.UserID, &amount, &txType,
		&tx.MerchantName, &tx.MerchantCategory, &tx.Location,
		&tx.CardNumberMasked, &tx.IPAddress,
		&tx.OccurredAt, &tx.CreatedAt,
		&status, &tx.FraudScore, &reason,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	tx.TransactionType = domain.TransactionType(txType)
	tx.FraudStatus = domain.FraudStatus(status)
	tx.FraudReason = reason.String

	return &tx, nil
}

func (r *SQLRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// expectRow converts a zero-row update into ErrNotFound.
func (r *SQLRepository) expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return nil
}
