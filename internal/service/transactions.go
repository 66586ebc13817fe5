package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivlasov/envelope/internal/models"
	"github.com/ivlasov/envelope/internal/repository"
)

// TransactionRepository defines the persistence operations required by
// the TransactionService.
type TransactionRepository interface {
	// List fetches the user's transactions, optionally filtered.
	List(ctx context.Context, userID string, filter repository.TransactionFilter) ([]models.Transaction, error)
	// GetByID fetches a transaction scoped to the owning user.
	GetByID(ctx context.Context, userID, id string) (*models.Transaction, error)
	// Create inserts a manually entered transaction.
	Create(ctx context.Context, t *models.Transaction) error
	// SetEnvelope assigns an envelope and records the categorization source.
	SetEnvelope(ctx context.Context, id, envelopeID string, source models.CategorizationSource) error
	// Reallocate moves a transaction to another envelope without touching
	// categorization fields.
	Reallocate(ctx context.Context, id, envelopeID string) error
}

// EnvelopeLookup checks envelope ownership for categorization targets.
type EnvelopeLookup interface {
	// GetByID fetches an envelope scoped to the owning user.
	GetByID(ctx context.Context, userID, id string) (*models.Envelope, error)
}

// RuleWriter persists rules derived from manual categorization.
type RuleWriter interface {
	// InsertIgnoreDuplicate adds a rule, ignoring duplicate triples.
	InsertIgnoreDuplicate(ctx context.Context, r *models.EnvelopeRule) error
}

// CreateTransactionInput carries the fields for manual transaction entry.
type CreateTransactionInput struct {
	Amount       *decimal.Decimal       `json:"amount"`
	Type         models.TransactionType `json:"type"`
	Datetime     *time.Time             `json:"datetime"`
	Description  *string                `json:"description"`
	MerchantName *string                `json:"merchant_name"`
	EnvelopeID   *string                `json:"envelope_id"`
}

// TransactionService implements transaction listing, manual entry,
// categorization, and reallocation.
type TransactionService struct {
	txs       TransactionRepository
	envelopes EnvelopeLookup
	rules     RuleWriter
}

// NewTransactionService constructs a TransactionService with the given
// repositories.
func NewTransactionService(txs TransactionRepository, envelopes EnvelopeLookup, rules RuleWriter) *TransactionService {
	return &TransactionService{txs: txs, envelopes: envelopes, rules: rules}
}

// List returns the user's transactions newest first, optionally filtered.
func (s *TransactionService) List(ctx context.Context, userID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	return s.txs.List(ctx, userID, filter)
}

// Create validates and inserts a manually entered transaction. Supplying
// an envelope marks the transaction categorized with source MANUAL.
func (s *TransactionService) Create(ctx context.Context, userID string, in CreateTransactionInput) (*models.Transaction, error) {
	if in.Amount == nil || in.Type == "" || in.Datetime == nil {
		return nil, fmt.Errorf("%w: amount, type, and datetime are required", ErrValidation)
	}
	if in.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: type must be INCOME or EXPENSE", ErrValidation)
	}

	t := &models.Transaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Datetime:     *in.Datetime,
		Amount:       *in.Amount,
		Type:         in.Type,
		Description:  in.Description,
		MerchantName: in.MerchantName,
	}
	if in.EnvelopeID != nil {
		if _, err := s.ownedEnvelope(ctx, userID, *in.EnvelopeID); err != nil {
			return nil, err
		}
		source := models.SourceManual
		t.EnvelopeID = in.EnvelopeID
		t.Categorized = true
		t.Source = &source
	}

	if err := s.txs.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Categorize assigns a transaction to an envelope with source MANUAL.
// When applyRule is set and the transaction carries a merchant name, a
// matching rule is persisted so future syncs categorize the merchant
// automatically; re-deriving an existing rule is a no-op.
func (s *TransactionService) Categorize(ctx context.Context, userID, txID, envelopeID string, applyRule bool) (*models.Transaction, error) {
	tx, err := s.ownedTransaction(ctx, userID, txID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedEnvelope(ctx, userID, envelopeID); err != nil {
		return nil, err
	}

	if err := s.txs.SetEnvelope(ctx, txID, envelopeID, models.SourceManual); err != nil {
		return nil, err
	}

	if applyRule && tx.MerchantName != nil {
		rule := &models.EnvelopeRule{
			ID:              uuid.NewString(),
			EnvelopeID:      envelopeID,
			Category:        tx.Category,
			MerchantPattern: tx.MerchantName,
		}
		if err := s.rules.InsertIgnoreDuplicate(ctx, rule); err != nil {
			return nil, err
		}
	}

	return s.txs.GetByID(ctx, userID, txID)
}

// Reallocate moves an INCOME transaction to a different envelope.
// EXPENSE transactions are recategorized instead; reallocating one is a
// validation error.
func (s *TransactionService) Reallocate(ctx context.Context, userID, txID, envelopeID string) (*models.Transaction, error) {
	tx, err := s.ownedTransaction(ctx, userID, txID)
	if err != nil {
		return nil, err
	}
	if tx.Type != models.TypeIncome {
		return nil, fmt.Errorf("%w: only income transactions can be reallocated", ErrValidation)
	}
	if _, err := s.ownedEnvelope(ctx, userID, envelopeID); err != nil {
		return nil, err
	}

	if err := s.txs.Reallocate(ctx, txID, envelopeID); err != nil {
		return nil, err
	}
	return s.txs.GetByID(ctx, userID, txID)
}

func (s *TransactionService) ownedTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	tx, err := s.txs.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction", ErrNotFound)
		}
		return nil, err
	}
	return tx, nil
}

func (s *TransactionService) ownedEnvelope(ctx context.Context, userID, id string) (*models.Envelope, error) {
	envelope, err := s.envelopes.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: envelope", ErrNotFound)
		}
		return nil, err
	}
	return envelope, nil
}
