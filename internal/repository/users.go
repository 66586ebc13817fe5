// Package repository provides PostgreSQL persistence for users, envelopes,
// categorization rules, and transactions.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ivlasov/envelope/internal/models"
)

// PostgresUserRepository implements user persistence against PostgreSQL.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the
// given database connection.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

const userColumns = `id, auth_subject, email, name, bank_access_token, bank_item_id, feed_cursor, interval_type, interval_start_date`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.AuthSubject, &u.Email, &u.Name,
		&u.BankAccessToken, &u.BankItemID, &u.FeedCursor,
		&u.IntervalType, &u.IntervalStartDate,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user row. A duplicate email or auth subject
// surfaces as a unique-constraint violation.
func (s *PostgresUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (id, auth_subject, email, name, interval_type, interval_start_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.AuthSubject, u.Email, u.Name, u.IntervalType, u.IntervalStartDate)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetBySubject fetches the user owning the given identity-provider subject id.
// Returns sql.ErrNoRows if no such user exists.
func (s *PostgresUserRepository) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE auth_subject = $1`, subject)
	return scanUser(row)
}

// GetByID fetches a user by id. Returns sql.ErrNoRows if no such user exists.
func (s *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpdateSettings updates the budgeting interval settings. Nil fields keep
// their current values.
func (s *PostgresUserRepository) UpdateSettings(ctx context.Context, userID string, intervalType *models.IntervalType, startDate *time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE users
		   SET interval_type = COALESCE($1, interval_type),
		       interval_start_date = COALESCE($2, interval_start_date),
		       updated_at = now()
		 WHERE id = $3
	`, intervalType, startDate, userID)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// SetBankLink stores a new bank-link credential and resets the feed cursor.
// The cursor is only meaningful relative to the feed session it was issued
// under, so a credential change always invalidates it.
func (s *PostgresUserRepository) SetBankLink(ctx context.Context, userID, accessToken, itemID string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE users
		   SET bank_access_token = $1,
		       bank_item_id = $2,
		       feed_cursor = NULL,
		       updated_at = now()
		 WHERE id = $3
	`, accessToken, itemID, userID)
	if err != nil {
		return fmt.Errorf("set bank link: %w", err)
	}
	return nil
}

// SetFeedCursor persists the feed cursor after a successful feed read.
func (s *PostgresUserRepository) SetFeedCursor(ctx context.Context, userID, cursor string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET feed_cursor = $1, updated_at = now() WHERE id = $2`,
		cursor, userID)
	if err != nil {
		return fmt.Errorf("set feed cursor: %w", err)
	}
	return nil
}
