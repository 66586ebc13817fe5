package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/ivlasov/envelope/internal/models"
)

func setupRuleMock(t *testing.T) (*PostgresRuleRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresRuleRepository(db)
	cleanup := func() {
		db.Close()
	}
	return repo, mock, cleanup
}

func ruleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "envelope_id", "category", "merchant_pattern", "created_at"})
}

func TestListByEnvelope_Success(t *testing.T) {
	repo, mock, cleanup := setupRuleMock(t)
	defer cleanup()

	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE envelope_id = $1`)).
		WithArgs("e1").
		WillReturnRows(ruleRows().
			AddRow("r1", "e1", "FOOD_AND_DRINK", nil, created).
			AddRow("r2", "e1", nil, "whole foods", created.Add(time.Minute)))

	rules, err := repo.ListByEnvelope(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Category == nil || *rules[0].Category != "FOOD_AND_DRINK" {
		t.Errorf("unexpected first rule: %+v", rules[0])
	}
	if rules[1].MerchantPattern == nil || *rules[1].MerchantPattern != "whole foods" {
		t.Errorf("unexpected second rule: %+v", rules[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListByUser_JoinsAcrossEnvelopes(t *testing.T) {
	repo, mock, cleanup := setupRuleMock(t)
	defer cleanup()

	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN envelopes e ON er.envelope_id = e.id`)).
		WithArgs("u1").
		WillReturnRows(ruleRows().
			AddRow("r1", "e1", "FOOD_AND_DRINK", nil, created).
			AddRow("r2", "e2", "TRAVEL", nil, created.Add(time.Minute)))

	rules, err := repo.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].EnvelopeID != "e1" || rules[1].EnvelopeID != "e2" {
		t.Errorf("unexpected rule envelopes: %+v", rules)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInsert_UniqueViolation(t *testing.T) {
	repo, mock, cleanup := setupRuleMock(t)
	defer cleanup()

	category := "FOOD_AND_DRINK"
	r := &models.EnvelopeRule{ID: "r1", EnvelopeID: "e1", Category: &category}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO envelope_rules (id, envelope_id, category, merchant_pattern)`)).
		WithArgs(r.ID, r.EnvelopeID, r.Category, r.MerchantPattern).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Insert(context.Background(), r)
	if err == nil {
		t.Fatal("expected error on duplicate rule")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestInsertIgnoreDuplicate_NoOp(t *testing.T) {
	repo, mock, cleanup := setupRuleMock(t)
	defer cleanup()

	pattern := "whole foods"
	r := &models.EnvelopeRule{ID: "r1", EnvelopeID: "e1", MerchantPattern: &pattern}

	// ON CONFLICT DO NOTHING reports zero rows affected for a duplicate.
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (envelope_id, category, merchant_pattern) DO NOTHING`)).
		WithArgs(r.ID, r.EnvelopeID, r.Category, r.MerchantPattern).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.InsertIgnoreDuplicate(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
