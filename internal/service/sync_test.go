package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ivlasov/envelope/internal/bankfeed"
	"github.com/ivlasov/envelope/internal/models"
)

// scriptedSyncer replays a fixed sequence of feed pages.
type scriptedSyncer struct {
	pages []*bankfeed.SyncPage
	err   error
	calls int
}

func (s *scriptedSyncer) SyncPage(ctx context.Context, accessToken string, cursor *string) (*bankfeed.SyncPage, error) {
	if s.err != nil && s.calls == len(s.pages) {
		return nil, s.err
	}
	page := s.pages[s.calls]
	s.calls++
	return page, nil
}

type fakeFeed struct {
	syncer    *scriptedSyncer
	gotToken  string
	gotCursor *string
}

func (f *fakeFeed) Pages(accessToken string, cursor *string) *bankfeed.Pager {
	f.gotToken = accessToken
	f.gotCursor = cursor
	return bankfeed.NewPager(f.syncer, accessToken, cursor)
}

type fakeSyncUserStore struct {
	user       *models.User
	setCursors []string
	cursorErr  error
}

func (f *fakeSyncUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.user == nil {
		return nil, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *fakeSyncUserStore) SetFeedCursor(ctx context.Context, userID, cursor string) error {
	if f.cursorErr != nil {
		return f.cursorErr
	}
	f.setCursors = append(f.setCursors, cursor)
	return nil
}

type fakeSyncRuleStore struct {
	rules []models.EnvelopeRule
}

func (f *fakeSyncRuleStore) ListByUser(ctx context.Context, userID string) ([]models.EnvelopeRule, error) {
	return f.rules, nil
}

type fakeSyncTxStore struct {
	inserted []*models.Transaction
	updated  []*models.Transaction
	deleted  []string
}

func (f *fakeSyncTxStore) InsertFromFeed(ctx context.Context, t *models.Transaction) error {
	f.inserted = append(f.inserted, t)
	return nil
}

func (f *fakeSyncTxStore) UpdateFromFeed(ctx context.Context, t *models.Transaction) error {
	f.updated = append(f.updated, t)
	return nil
}

func (f *fakeSyncTxStore) DeleteByFeedIDs(ctx context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func linkedUser() *models.User {
	token := "access-token"
	return &models.User{ID: "u1", Email: "u@example.com", BankAccessToken: &token}
}

func newSyncFixture(user *models.User, rules []models.EnvelopeRule, pages []*bankfeed.SyncPage, feedErr error) (*SyncService, *fakeSyncUserStore, *fakeSyncTxStore, *fakeFeed) {
	users := &fakeSyncUserStore{user: user}
	txs := &fakeSyncTxStore{}
	feed := &fakeFeed{syncer: &scriptedSyncer{pages: pages, err: feedErr}}
	svc := NewSyncService(users, &fakeSyncRuleStore{rules: rules}, txs, feed, zap.NewNop())
	return svc, users, txs, feed
}

func TestSync_InsertsAndAutoCategorizes(t *testing.T) {
	pages := []*bankfeed.SyncPage{{
		Added: []bankfeed.FeedTransaction{{
			ID:               "tx1",
			Amount:           45.67,
			Date:             time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Description:      "WHOLEFDS #123",
			MerchantName:     "Whole Foods",
			DetailedCategory: "FOOD_AND_DRINK",
			Pending:          false,
		}},
		HasMore:    false,
		NextCursor: "c1",
	}}
	rules := []models.EnvelopeRule{{ID: "r1", EnvelopeID: "E1", Category: strPtr("FOOD_AND_DRINK")}}

	svc, users, txs, _ := newSyncFixture(linkedUser(), rules, pages, nil)
	result, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, &SyncResult{Added: 1}, result)
	require.Len(t, txs.inserted, 1)

	got := txs.inserted[0]
	assert.Equal(t, models.TypeExpense, got.Type)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("45.67")), "amount = %s", got.Amount)
	require.NotNil(t, got.EnvelopeID)
	assert.Equal(t, "E1", *got.EnvelopeID)
	assert.True(t, got.Categorized)
	require.NotNil(t, got.Source)
	assert.Equal(t, models.SourceAuto, *got.Source)
	require.NotNil(t, got.FeedTransactionID)
	assert.Equal(t, "tx1", *got.FeedTransactionID)

	assert.Equal(t, []string{"c1"}, users.setCursors)
}

func TestSync_SkipsPending(t *testing.T) {
	pages := []*bankfeed.SyncPage{{
		Added:      []bankfeed.FeedTransaction{{ID: "tx1", Amount: 45.67, Pending: true}},
		HasMore:    false,
		NextCursor: "c1",
	}}

	svc, users, txs, _ := newSyncFixture(linkedUser(), nil, pages, nil)
	result, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)

	assert.Empty(t, txs.inserted)
	assert.Equal(t, 0, result.Added)
	// The cursor is still persisted: the pending record was seen.
	assert.Equal(t, []string{"c1"}, users.setCursors)
}

func TestSync_SignConvention(t *testing.T) {
	pages := []*bankfeed.SyncPage{{
		Added: []bankfeed.FeedTransaction{
			{ID: "out", Amount: 12.5},
			{ID: "in", Amount: -500},
		},
		HasMore:    false,
		NextCursor: "c1",
	}}

	svc, _, txs, _ := newSyncFixture(linkedUser(), nil, pages, nil)
	_, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, txs.inserted, 2)

	assert.Equal(t, models.TypeExpense, txs.inserted[0].Type)
	assert.True(t, txs.inserted[0].Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, models.TypeIncome, txs.inserted[1].Type)
	assert.True(t, txs.inserted[1].Amount.Equal(decimal.NewFromInt(500)), "magnitude must be stored unsigned")
}

func TestSync_CategoryFallsBackToLegacy(t *testing.T) {
	pages := []*bankfeed.SyncPage{{
		Added:      []bankfeed.FeedTransaction{{ID: "tx1", Amount: 9.99, LegacyCategory: "Restaurants"}},
		HasMore:    false,
		NextCursor: "c1",
	}}
	rules := []models.EnvelopeRule{{ID: "r1", EnvelopeID: "E1", Category: strPtr("restaurants")}}

	svc, _, txs, _ := newSyncFixture(linkedUser(), rules, pages, nil)
	_, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, txs.inserted, 1)

	require.NotNil(t, txs.inserted[0].Category)
	assert.Equal(t, "Restaurants", *txs.inserted[0].Category)
	require.NotNil(t, txs.inserted[0].EnvelopeID)
	assert.Equal(t, "E1", *txs.inserted[0].EnvelopeID)
}

func TestSync_UnmatchedStaysUncategorized(t *testing.T) {
	pages := []*bankfeed.SyncPage{{
		Added:      []bankfeed.FeedTransaction{{ID: "tx1", Amount: 10, DetailedCategory: "TRAVEL"}},
		HasMore:    false,
		NextCursor: "c1",
	}}
	rules := []models.EnvelopeRule{{ID: "r1", EnvelopeID: "E1", Category: strPtr("FOOD_AND_DRINK")}}

	svc, _, txs, _ := newSyncFixture(linkedUser(), rules, pages, nil)
	_, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, txs.inserted, 1)

	assert.Nil(t, txs.inserted[0].EnvelopeID)
	assert.False(t, txs.inserted[0].Categorized)
	assert.Nil(t, txs.inserted[0].Source)
}

func TestSync_AccumulatesAcrossPages(t *testing.T) {
	pages := []*bankfeed.SyncPage{
		{Added: []bankfeed.FeedTransaction{{ID: "tx1", Amount: 1}}, HasMore: true, NextCursor: "c1"},
		{Added: []bankfeed.FeedTransaction{{ID: "tx2", Amount: 2}}, Removed: []string{"tx0"}, HasMore: false, NextCursor: "c2"},
	}

	svc, users, txs, _ := newSyncFixture(linkedUser(), nil, pages, nil)
	result, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, []string{"tx0"}, txs.deleted)
	// Only the final cursor is committed, once.
	assert.Equal(t, []string{"c2"}, users.setCursors)
}

func TestSync_ModifiedUpdatesMutableFieldsOnly(t *testing.T) {
	pages := []*bankfeed.SyncPage{{
		Modified: []bankfeed.FeedTransaction{{
			ID:           "tx1",
			Amount:       50.00,
			Date:         time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			Description:  "WHOLEFDS #123",
			MerchantName: "Whole Foods",
		}},
		HasMore:    false,
		NextCursor: "c1",
	}}
	// A matching rule must NOT be applied to modified records.
	rules := []models.EnvelopeRule{{ID: "r1", EnvelopeID: "E1", MerchantPattern: strPtr("whole foods")}}

	svc, _, txs, _ := newSyncFixture(linkedUser(), rules, pages, nil)
	result, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Modified)
	require.Len(t, txs.updated, 1)

	got := txs.updated[0]
	require.NotNil(t, got.FeedTransactionID)
	assert.Equal(t, "tx1", *got.FeedTransactionID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(50)))
	assert.Nil(t, got.EnvelopeID, "categorization is not re-evaluated on modification")
	assert.False(t, got.Categorized)
}

func TestSync_ResumesFromStoredCursor(t *testing.T) {
	user := linkedUser()
	stored := "old-cursor"
	user.FeedCursor = &stored

	pages := []*bankfeed.SyncPage{{HasMore: false, NextCursor: "new-cursor"}}
	svc, _, _, feed := newSyncFixture(user, nil, pages, nil)

	_, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, feed.gotCursor)
	assert.Equal(t, "old-cursor", *feed.gotCursor)
	assert.Equal(t, "access-token", feed.gotToken)
}

func TestSync_NoBankLink(t *testing.T) {
	user := &models.User{ID: "u1"}
	svc, _, _, _ := newSyncFixture(user, nil, nil, nil)

	_, err := svc.Run(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoBankLink)
}

func TestSync_UnknownUser(t *testing.T) {
	svc, _, _, _ := newSyncFixture(nil, nil, nil, nil)

	_, err := svc.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSync_FeedFailureLeavesCursorUncommitted(t *testing.T) {
	// First page succeeds, second page fails: the whole sync aborts and
	// the previously committed cursor stays valid for a retry.
	pages := []*bankfeed.SyncPage{{Added: []bankfeed.FeedTransaction{{ID: "tx1", Amount: 1}}, HasMore: true, NextCursor: "c1"}}

	svc, users, txs, _ := newSyncFixture(linkedUser(), nil, pages, errors.New("feed unavailable"))
	_, err := svc.Run(context.Background(), "u1")
	require.Error(t, err)

	assert.Empty(t, users.setCursors, "cursor must not be committed on a failed read")
	assert.Empty(t, txs.inserted, "no partial apply on a failed read")
}
