package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// SaveUser stores a new user.
func (r *SQLRepository) SaveUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, full_name, phone_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		user.ID, user.Username, user.Email,
		user.FullName, user.PhoneNumber, user.CreatedAt,
	)
	return err
}

// GetUser retrieves a user by ID.
func (r *SQLRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT id, username, email, full_name, phone_number, created_at
		FROM users
		WHERE id = ?
	`

	var user domain.User
	err := r.db.QueryRowContext(ctx, r.rebind(query), userID).Scan(
		&user.ID, &user.Username, &user.Email,
		&user.FullName, &user.PhoneNumber, &user.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// ListUsers retrieves all users ordered by username.
func (r *SQLRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT id, username, email, full_name, phone_number, created_at
		FROM users
		ORDER BY username
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID, &user.Username, &user.Email,
			&user.FullName, &user.PhoneNumber, &user.CreatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// DeleteUser removes a user by ID.
func (r *SQLRepository) DeleteUser(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}

	return nil
}

// CountUsers returns the total number of users.
func (r *SQLRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
