package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivlasov/envelope/internal/models"
	"github.com/ivlasov/envelope/internal/repository"
)

// EnvelopeRepository defines the persistence operations required by the
// EnvelopeService.
type EnvelopeRepository interface {
	// ListByUser fetches the user's envelopes with derived balances.
	ListByUser(ctx context.Context, userID string) ([]models.Envelope, error)
	// GetByID fetches an envelope scoped to the owning user.
	GetByID(ctx context.Context, userID, id string) (*models.Envelope, error)
	// Create inserts an envelope with its initial rules.
	Create(ctx context.Context, e *models.Envelope, rules []models.EnvelopeRule) error
	// Update applies a partial update to an envelope.
	Update(ctx context.Context, id string, name *string, amountType *models.AmountType, amount *decimal.Decimal, refreshType *models.RefreshType) error
	// Delete removes an envelope, unlinking its transactions.
	Delete(ctx context.Context, id string) error
}

// EnvelopeRuleRepository defines the rule persistence operations required
// by the EnvelopeService.
type EnvelopeRuleRepository interface {
	// ListByEnvelope fetches all rules for an envelope.
	ListByEnvelope(ctx context.Context, envelopeID string) ([]models.EnvelopeRule, error)
	// Insert adds a rule; duplicates surface as unique violations.
	Insert(ctx context.Context, r *models.EnvelopeRule) error
}

// RuleInput describes one categorization rule supplied on envelope or
// rule creation.
type RuleInput struct {
	Category        *string `json:"category"`
	MerchantPattern *string `json:"merchant_pattern"`
}

// CreateEnvelopeInput carries the fields for envelope creation.
type CreateEnvelopeInput struct {
	Name        string             `json:"name"`
	AmountType  models.AmountType  `json:"amount_type"`
	Amount      *decimal.Decimal   `json:"amount"`
	RefreshType models.RefreshType `json:"refresh_type"`
	Rules       []RuleInput        `json:"rules"`
}

// UpdateEnvelopeInput carries the optional fields for a partial envelope
// update.
type UpdateEnvelopeInput struct {
	Name        *string             `json:"name"`
	AmountType  *models.AmountType  `json:"amount_type"`
	Amount      *decimal.Decimal    `json:"amount"`
	RefreshType *models.RefreshType `json:"refresh_type"`
}

// EnvelopeService implements envelope and rule management.
type EnvelopeService struct {
	envelopes EnvelopeRepository
	rules     EnvelopeRuleRepository
}

// NewEnvelopeService constructs an EnvelopeService with the given
// repositories.
func NewEnvelopeService(envelopes EnvelopeRepository, rules EnvelopeRuleRepository) *EnvelopeService {
	return &EnvelopeService{envelopes: envelopes, rules: rules}
}

// List returns the user's envelopes with derived current balances.
func (s *EnvelopeService) List(ctx context.Context, userID string) ([]models.Envelope, error) {
	return s.envelopes.ListByUser(ctx, userID)
}

// Create validates and inserts a new envelope with its optional initial
// rules.
func (s *EnvelopeService) Create(ctx context.Context, userID string, in CreateEnvelopeInput) (*models.Envelope, error) {
	if in.Name == "" || in.AmountType == "" || in.Amount == nil || in.RefreshType == "" {
		return nil, fmt.Errorf("%w: name, amount_type, amount, and refresh_type are required", ErrValidation)
	}
	if !in.AmountType.Valid() {
		return nil, fmt.Errorf("%w: invalid amount_type", ErrValidation)
	}
	if !in.RefreshType.Valid() {
		return nil, fmt.Errorf("%w: invalid refresh_type", ErrValidation)
	}

	envelope := &models.Envelope{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		AmountType:  in.AmountType,
		Amount:      *in.Amount,
		RefreshType: in.RefreshType,
	}

	rules := make([]models.EnvelopeRule, 0, len(in.Rules))
	for _, r := range in.Rules {
		rules = append(rules, models.EnvelopeRule{
			ID:              uuid.NewString(),
			EnvelopeID:      envelope.ID,
			Category:        r.Category,
			MerchantPattern: r.MerchantPattern,
		})
	}

	if err := s.envelopes.Create(ctx, envelope, rules); err != nil {
		return nil, err
	}
	return envelope, nil
}

// Update applies a partial update to an envelope owned by the user.
func (s *EnvelopeService) Update(ctx context.Context, userID, id string, in UpdateEnvelopeInput) (*models.Envelope, error) {
	if in.AmountType != nil && !in.AmountType.Valid() {
		return nil, fmt.Errorf("%w: invalid amount_type", ErrValidation)
	}
	if in.RefreshType != nil && !in.RefreshType.Valid() {
		return nil, fmt.Errorf("%w: invalid refresh_type", ErrValidation)
	}

	if _, err := s.getOwned(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.envelopes.Update(ctx, id, in.Name, in.AmountType, in.Amount, in.RefreshType); err != nil {
		return nil, err
	}
	return s.getOwned(ctx, userID, id)
}

// Delete removes an envelope owned by the user. Linked transactions are
// retained with their envelope link cleared.
func (s *EnvelopeService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.getOwned(ctx, userID, id); err != nil {
		return err
	}
	return s.envelopes.Delete(ctx, id)
}

// ListRules returns the rules of an envelope owned by the user.
func (s *EnvelopeService) ListRules(ctx context.Context, userID, envelopeID string) ([]models.EnvelopeRule, error) {
	if _, err := s.getOwned(ctx, userID, envelopeID); err != nil {
		return nil, err
	}
	return s.rules.ListByEnvelope(ctx, envelopeID)
}

// AddRule adds a categorization rule to an envelope owned by the user.
// At least one of category or merchant pattern must be supplied; a
// duplicate (category, pattern) pair under the same envelope is a conflict.
func (s *EnvelopeService) AddRule(ctx context.Context, userID, envelopeID string, in RuleInput) (*models.EnvelopeRule, error) {
	if in.Category == nil && in.MerchantPattern == nil {
		return nil, fmt.Errorf("%w: category or merchant_pattern is required", ErrValidation)
	}
	if _, err := s.getOwned(ctx, userID, envelopeID); err != nil {
		return nil, err
	}

	rule := &models.EnvelopeRule{
		ID:              uuid.NewString(),
		EnvelopeID:      envelopeID,
		Category:        in.Category,
		MerchantPattern: in.MerchantPattern,
	}
	if err := s.rules.Insert(ctx, rule); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: rule", ErrConflict)
		}
		return nil, err
	}
	return rule, nil
}

func (s *EnvelopeService) getOwned(ctx context.Context, userID, id string) (*models.Envelope, error) {
	envelope, err := s.envelopes.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: envelope", ErrNotFound)
		}
		return nil, err
	}
	return envelope, nil
}
