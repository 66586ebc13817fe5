package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ivlasov/envelope/internal/models"
)

// PostgresRuleRepository implements categorization-rule persistence against
// PostgreSQL.
type PostgresRuleRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresRuleRepository creates a new PostgresRuleRepository using the
// provided *sql.DB.
func NewPostgresRuleRepository(db *sql.DB) *PostgresRuleRepository {
	return &PostgresRuleRepository{DB: db}
}

// ListByEnvelope fetches all rules belonging to the given envelope.
func (s *PostgresRuleRepository) ListByEnvelope(ctx context.Context, envelopeID string) ([]models.EnvelopeRule, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, envelope_id, category, merchant_pattern, created_at
		  FROM envelope_rules
		 WHERE envelope_id = $1
		 ORDER BY created_at, id
	`, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListByUser fetches the user's full rule set across all envelopes, in a
// stable order (creation order, id as tiebreaker) so first-match
// evaluation is deterministic.
func (s *PostgresRuleRepository) ListByUser(ctx context.Context, userID string) ([]models.EnvelopeRule, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT er.id, er.envelope_id, er.category, er.merchant_pattern, er.created_at
		  FROM envelope_rules er
		  JOIN envelopes e ON er.envelope_id = e.id
		 WHERE e.user_id = $1
		 ORDER BY er.created_at, er.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// Insert adds a rule. A duplicate (envelope, category, pattern) triple
// surfaces as a unique-constraint violation.
func (s *PostgresRuleRepository) Insert(ctx context.Context, r *models.EnvelopeRule) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO envelope_rules (id, envelope_id, category, merchant_pattern)
		VALUES ($1, $2, $3, $4)
	`, r.ID, r.EnvelopeID, r.Category, r.MerchantPattern)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

// InsertIgnoreDuplicate adds a rule, treating a duplicate triple as a
// silent no-op. Used by the "apply rule" categorization path, which may
// legitimately re-derive an existing rule.
func (s *PostgresRuleRepository) InsertIgnoreDuplicate(ctx context.Context, r *models.EnvelopeRule) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO envelope_rules (id, envelope_id, category, merchant_pattern)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (envelope_id, category, merchant_pattern) DO NOTHING
	`, r.ID, r.EnvelopeID, r.Category, r.MerchantPattern)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func scanRules(rows *sql.Rows) ([]models.EnvelopeRule, error) {
	var rules []models.EnvelopeRule
	for rows.Next() {
		var r models.EnvelopeRule
		if err := rows.Scan(&r.ID, &r.EnvelopeID, &r.Category, &r.MerchantPattern, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
