package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ivlasov/envelope/internal/models"
)

// PostgresEnvelopeRepository implements envelope persistence against PostgreSQL.
type PostgresEnvelopeRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresEnvelopeRepository creates a new PostgresEnvelopeRepository
// using the provided *sql.DB.
func NewPostgresEnvelopeRepository(db *sql.DB) *PostgresEnvelopeRepository {
	return &PostgresEnvelopeRepository{DB: db}
}

// ListByUser fetches all envelopes for the user, each with its current
// balance derived as the signed sum of linked transactions (income adds,
// expense subtracts).
func (s *PostgresEnvelopeRepository) ListByUser(ctx context.Context, userID string) ([]models.Envelope, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT e.id, e.user_id, e.name, e.amount_type, e.amount, e.refresh_type, e.created_at,
		       COALESCE(SUM(CASE WHEN t.type = 'EXPENSE' THEN -t.amount WHEN t.type = 'INCOME' THEN t.amount ELSE 0 END), 0) AS current_balance
		  FROM envelopes e
		  LEFT JOIN transactions t ON e.id = t.envelope_id
		 WHERE e.user_id = $1
		 GROUP BY e.id
		 ORDER BY e.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []models.Envelope
	for rows.Next() {
		var e models.Envelope
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.AmountType, &e.Amount, &e.RefreshType, &e.CreatedAt, &e.CurrentBalance); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		envelopes = append(envelopes, e)
	}
	return envelopes, rows.Err()
}

// GetByID fetches a single envelope scoped to the owning user. Returns
// sql.ErrNoRows if the envelope does not exist or belongs to another user.
func (s *PostgresEnvelopeRepository) GetByID(ctx context.Context, userID, id string) (*models.Envelope, error) {
	var e models.Envelope
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, name, amount_type, amount, refresh_type, created_at
		  FROM envelopes WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&e.ID, &e.UserID, &e.Name, &e.AmountType, &e.Amount, &e.RefreshType, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an envelope together with its initial rules in one
// database transaction.
func (s *PostgresEnvelopeRepository) Create(ctx context.Context, e *models.Envelope, rules []models.EnvelopeRule) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO envelopes (id, user_id, name, amount_type, amount, refresh_type)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.UserID, e.Name, e.AmountType, e.Amount, e.RefreshType)
	if err != nil {
		return fmt.Errorf("insert envelope: %w", err)
	}

	for _, r := range rules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO envelope_rules (id, envelope_id, category, merchant_pattern)
			VALUES ($1, $2, $3, $4)
		`, r.ID, e.ID, r.Category, r.MerchantPattern)
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Update applies a partial update to an envelope. Nil fields keep their
// current values.
func (s *PostgresEnvelopeRepository) Update(ctx context.Context, id string, name *string, amountType *models.AmountType, amount *decimal.Decimal, refreshType *models.RefreshType) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE envelopes
		   SET name = COALESCE($1, name),
		       amount_type = COALESCE($2, amount_type),
		       amount = COALESCE($3, amount),
		       refresh_type = COALESCE($4, refresh_type),
		       updated_at = now()
		 WHERE id = $5
	`, name, amountType, amount, refreshType, id)
	if err != nil {
		return fmt.Errorf("update envelope: %w", err)
	}
	return nil
}

// Delete removes an envelope, its rules, and the links from its
// transactions, all in one database transaction. The transactions
// themselves are retained with envelope_id set to NULL.
func (s *PostgresEnvelopeRepository) Delete(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET envelope_id = NULL WHERE envelope_id = $1`, id); err != nil {
		return fmt.Errorf("unlink transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM envelope_rules WHERE envelope_id = $1`, id); err != nil {
		return fmt.Errorf("delete rules: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM envelopes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete envelope: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
