package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ivlasov/envelope/internal/models"
)

// TransactionFilter narrows transaction listings. Nil/zero fields are
// ignored.
type TransactionFilter struct {
	// EnvelopeID restricts results to one envelope.
	EnvelopeID *string
	// UncategorizedOnly restricts results to transactions without an envelope.
	UncategorizedOnly bool
	// StartDate is an inclusive lower bound on the transaction datetime.
	StartDate *time.Time
	// EndDate is an inclusive upper bound on the transaction datetime.
	EndDate *time.Time
}

// PostgresTransactionRepository implements transaction persistence against
// PostgreSQL.
type PostgresTransactionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresTransactionRepository creates a new
// PostgresTransactionRepository using the provided *sql.DB.
func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{DB: db}
}

// List fetches the user's transactions newest first, joined with the
// linked envelope name, optionally narrowed by filter.
func (s *PostgresTransactionRepository) List(ctx context.Context, userID string, filter TransactionFilter) ([]models.Transaction, error) {
	query := `
		SELECT t.id, t.user_id, t.envelope_id, e.name, t.feed_transaction_id, t.datetime,
		       t.amount, t.type, t.description, t.merchant_name, t.category,
		       t.is_categorized, t.categorization_source
		  FROM transactions t
		  LEFT JOIN envelopes e ON t.envelope_id = e.id
		 WHERE t.user_id = $1`
	args := []any{userID}

	if filter.EnvelopeID != nil {
		args = append(args, *filter.EnvelopeID)
		query += fmt.Sprintf(" AND t.envelope_id = $%d", len(args))
	}
	if filter.UncategorizedOnly {
		query += " AND t.is_categorized = false"
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND t.datetime >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND t.datetime <= $%d", len(args))
	}
	query += " ORDER BY t.datetime DESC"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(
			&t.ID, &t.UserID, &t.EnvelopeID, &t.EnvelopeName, &t.FeedTransactionID,
			&t.Datetime, &t.Amount, &t.Type, &t.Description, &t.MerchantName,
			&t.Category, &t.Categorized, &t.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// GetByID fetches a single transaction scoped to the owning user. Returns
// sql.ErrNoRows if it does not exist or belongs to another user.
func (s *PostgresTransactionRepository) GetByID(ctx context.Context, userID, id string) (*models.Transaction, error) {
	var t models.Transaction
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, envelope_id, feed_transaction_id, datetime, amount, type,
		       description, merchant_name, category, is_categorized, categorization_source
		  FROM transactions WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&t.ID, &t.UserID, &t.EnvelopeID, &t.FeedTransactionID, &t.Datetime,
		&t.Amount, &t.Type, &t.Description, &t.MerchantName, &t.Category,
		&t.Categorized, &t.Source,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a manually entered transaction.
func (s *PostgresTransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, envelope_id, datetime, amount, type,
		                          description, merchant_name, is_categorized, categorization_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.UserID, t.EnvelopeID, t.Datetime, t.Amount, t.Type,
		t.Description, t.MerchantName, t.Categorized, t.Source)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// InsertFromFeed inserts a transaction keyed by its feed identifier. A
// duplicate feed id is a silent no-op so re-syncing the same page is
// idempotent.
func (s *PostgresTransactionRepository) InsertFromFeed(ctx context.Context, t *models.Transaction) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, envelope_id, feed_transaction_id, datetime, amount,
		                          type, description, merchant_name, category, is_categorized, categorization_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (feed_transaction_id) DO NOTHING
	`, t.ID, t.UserID, t.EnvelopeID, t.FeedTransactionID, t.Datetime, t.Amount,
		t.Type, t.Description, t.MerchantName, t.Category, t.Categorized, t.Source)
	if err != nil {
		return fmt.Errorf("insert from feed: %w", err)
	}
	return nil
}

// UpdateFromFeed updates the mutable fields of the transaction identified
// by the given feed id. Categorization fields are left untouched.
func (s *PostgresTransactionRepository) UpdateFromFeed(ctx context.Context, t *models.Transaction) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE transactions
		   SET datetime = $1, amount = $2, type = $3, description = $4,
		       merchant_name = $5, category = $6
		 WHERE feed_transaction_id = $7
	`, t.Datetime, t.Amount, t.Type, t.Description, t.MerchantName, t.Category, t.FeedTransactionID)
	if err != nil {
		return fmt.Errorf("update from feed: %w", err)
	}
	return nil
}

// DeleteByFeedIDs removes the transactions matching the given feed ids,
// if present.
func (s *PostgresTransactionRepository) DeleteByFeedIDs(ctx context.Context, ids []string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM transactions WHERE feed_transaction_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete by feed ids: %w", err)
	}
	return nil
}

// SetEnvelope assigns a transaction to an envelope and records the
// categorization source.
func (s *PostgresTransactionRepository) SetEnvelope(ctx context.Context, id, envelopeID string, source models.CategorizationSource) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE transactions
		   SET envelope_id = $1, is_categorized = true, categorization_source = $2
		 WHERE id = $3
	`, envelopeID, source, id)
	if err != nil {
		return fmt.Errorf("set envelope: %w", err)
	}
	return nil
}

// Reallocate moves a transaction to a different envelope without touching
// its categorization fields.
func (s *PostgresTransactionRepository) Reallocate(ctx context.Context, id, envelopeID string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE transactions SET envelope_id = $1 WHERE id = $2`, envelopeID, id)
	if err != nil {
		return fmt.Errorf("reallocate: %w", err)
	}
	return nil
}
