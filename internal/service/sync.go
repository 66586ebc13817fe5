package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ivlasov/envelope/internal/bankfeed"
	"github.com/ivlasov/envelope/internal/models"
)

// SyncUserStore defines the user persistence operations needed by the
// SyncService.
type SyncUserStore interface {
	// GetByID fetches a user by id.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// SetFeedCursor persists the feed cursor after a successful feed read.
	SetFeedCursor(ctx context.Context, userID, cursor string) error
}

// SyncRuleStore defines the rule persistence operations needed by the
// SyncService.
type SyncRuleStore interface {
	// ListByUser fetches the user's full rule set in stable order.
	ListByUser(ctx context.Context, userID string) ([]models.EnvelopeRule, error)
}

// SyncTransactionStore defines the transaction persistence operations
// needed by the SyncService.
type SyncTransactionStore interface {
	// InsertFromFeed inserts a transaction, treating a duplicate feed id
	// as a silent no-op.
	InsertFromFeed(ctx context.Context, t *models.Transaction) error
	// UpdateFromFeed updates the mutable fields of the transaction with
	// the given feed id.
	UpdateFromFeed(ctx context.Context, t *models.Transaction) error
	// DeleteByFeedIDs removes the transactions matching the given feed ids.
	DeleteByFeedIDs(ctx context.Context, ids []string) error
}

// TransactionFeed produces page iterators over the bank transaction feed.
type TransactionFeed interface {
	// Pages returns a pager resuming from cursor (nil starts fresh).
	Pages(accessToken string, cursor *string) *bankfeed.Pager
}

// SyncResult reports how many local records each sync changed.
type SyncResult struct {
	// Added is the number of transactions inserted.
	Added int `json:"added"`
	// Modified is the number of transactions updated.
	Modified int `json:"modified"`
	// Removed is the number of transactions deleted.
	Removed int `json:"removed"`
}

// SyncService reconciles local transaction records with the external bank
// feed and auto-categorizes newly added transactions.
type SyncService struct {
	users SyncUserStore
	rules SyncRuleStore
	txs   SyncTransactionStore
	feed  TransactionFeed
	log   *zap.Logger
}

// NewSyncService constructs a SyncService with the provided stores and
// feed client.
func NewSyncService(users SyncUserStore, rules SyncRuleStore, txs SyncTransactionStore, feed TransactionFeed, log *zap.Logger) *SyncService {
	return &SyncService{users: users, rules: rules, txs: txs, feed: feed, log: log}
}

// Run performs one sync for the given user.
//
// It drains the feed pager, commits the final cursor, then applies the
// accumulated records: added (skipping pending, auto-categorizing via the
// user's rules), modified (mutable fields only), removed. The cursor is
// committed before the apply step on purpose: a retried sync resumes from
// the new cursor instead of refetching already-seen pages, at the cost of
// records lost to a mid-apply failure. Nothing coordinates two concurrent
// syncs for the same user; the cursor column is last-write-wins.
func (s *SyncService) Run(ctx context.Context, userID string) (*SyncResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}
	if user.BankAccessToken == nil {
		return nil, ErrNoBankLink
	}

	var (
		added    []bankfeed.FeedTransaction
		modified []bankfeed.FeedTransaction
		removed  []string
	)
	pager := s.feed.Pages(*user.BankAccessToken, user.FeedCursor)
	for pager.More() {
		page, err := pager.Next(ctx)
		if err != nil {
			// No cursor commit: the previously stored cursor stays
			// valid for a retry.
			return nil, fmt.Errorf("read feed: %w", err)
		}
		added = append(added, page.Added...)
		modified = append(modified, page.Modified...)
		removed = append(removed, page.Removed...)
	}

	if err := s.users.SetFeedCursor(ctx, userID, pager.Cursor()); err != nil {
		return nil, fmt.Errorf("persist cursor: %w", err)
	}

	rules, err := s.rules.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	result := &SyncResult{}
	for _, ft := range added {
		if ft.Pending {
			continue
		}
		if err := s.txs.InsertFromFeed(ctx, s.fromFeed(userID, ft, rules)); err != nil {
			return nil, err
		}
		result.Added++
	}

	for _, ft := range modified {
		feedID := ft.ID
		if err := s.txs.UpdateFromFeed(ctx, &models.Transaction{
			FeedTransactionID: &feedID,
			Datetime:          ft.Date,
			Amount:            magnitude(ft.Amount),
			Type:              typeFromFeedAmount(ft.Amount),
			Description:       nilIfEmpty(ft.Description),
			MerchantName:      nilIfEmpty(ft.MerchantName),
			Category:          nilIfEmpty(feedCategory(ft)),
		}); err != nil {
			return nil, err
		}
		result.Modified++
	}

	if len(removed) > 0 {
		if err := s.txs.DeleteByFeedIDs(ctx, removed); err != nil {
			return nil, err
		}
		result.Removed = len(removed)
	}

	s.log.Info("transaction sync complete",
		zap.String("user_id", userID),
		zap.Int("added", result.Added),
		zap.Int("modified", result.Modified),
		zap.Int("removed", result.Removed),
	)
	return result, nil
}

// fromFeed builds a local transaction from a feed record, running the rule
// matcher to auto-assign an envelope.
func (s *SyncService) fromFeed(userID string, ft bankfeed.FeedTransaction, rules []models.EnvelopeRule) *models.Transaction {
	feedID := ft.ID
	category := feedCategory(ft)

	t := &models.Transaction{
		ID:                uuid.NewString(),
		UserID:            userID,
		FeedTransactionID: &feedID,
		Datetime:          ft.Date,
		Amount:            magnitude(ft.Amount),
		Type:              typeFromFeedAmount(ft.Amount),
		Description:       nilIfEmpty(ft.Description),
		MerchantName:      nilIfEmpty(ft.MerchantName),
		Category:          nilIfEmpty(category),
	}

	if envelopeID, ok := MatchEnvelope(rules, category, ft.MerchantName, ft.Description); ok {
		source := models.SourceAuto
		t.EnvelopeID = &envelopeID
		t.Categorized = true
		t.Source = &source
	}
	return t
}

// typeFromFeedAmount inverts the feed's sign convention: feed-positive is
// money leaving the account (EXPENSE), feed-negative is money coming in
// (INCOME).
func typeFromFeedAmount(amount float64) models.TransactionType {
	if amount > 0 {
		return models.TypeExpense
	}
	return models.TypeIncome
}

// magnitude returns the unsigned amount for storage.
func magnitude(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(math.Abs(amount))
}

// feedCategory derives the normalized category label, preferring the
// detailed taxonomy and falling back to the legacy coarse one.
func feedCategory(ft bankfeed.FeedTransaction) string {
	if ft.DetailedCategory != "" {
		return ft.DetailedCategory
	}
	return ft.LegacyCategory
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
