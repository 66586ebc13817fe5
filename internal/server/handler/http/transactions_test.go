package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ivlasov/envelope/internal/models"
	"github.com/ivlasov/envelope/internal/repository"
	"github.com/ivlasov/envelope/internal/service"
)

// fakeTransactionService implements TransactionService for testing.
type fakeTransactionService struct {
	listResult       []models.Transaction
	listErr          error
	createResult     *models.Transaction
	createErr        error
	categorizeResult *models.Transaction
	categorizeErr    error
	reallocateResult *models.Transaction
	reallocateErr    error

	gotFilter    repository.TransactionFilter
	gotApplyRule bool
	gotEnvelope  string
}

func (f *fakeTransactionService) List(ctx context.Context, userID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	f.gotFilter = filter
	return f.listResult, f.listErr
}

func (f *fakeTransactionService) Create(ctx context.Context, userID string, in service.CreateTransactionInput) (*models.Transaction, error) {
	return f.createResult, f.createErr
}

func (f *fakeTransactionService) Categorize(ctx context.Context, userID, txID, envelopeID string, applyRule bool) (*models.Transaction, error) {
	f.gotEnvelope = envelopeID
	f.gotApplyRule = applyRule
	return f.categorizeResult, f.categorizeErr
}

func (f *fakeTransactionService) Reallocate(ctx context.Context, userID, txID, envelopeID string) (*models.Transaction, error) {
	f.gotEnvelope = envelopeID
	return f.reallocateResult, f.reallocateErr
}

func TestTransactionHandler_List_Filters(t *testing.T) {
	svc := &fakeTransactionService{}
	h := &TransactionHandler{TransactionService: svc}

	rec := httptest.NewRecorder()
	req := authedRequest("GET", "/api/transactions?envelope_id=e1&uncategorized=true&start_date=2025-06-01&end_date=2025-06-30", "", "", "")
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotFilter.EnvelopeID == nil || *svc.gotFilter.EnvelopeID != "e1" {
		t.Errorf("expected envelope filter e1, got %+v", svc.gotFilter.EnvelopeID)
	}
	if !svc.gotFilter.UncategorizedOnly {
		t.Error("expected uncategorized filter to be set")
	}
	if svc.gotFilter.StartDate == nil || svc.gotFilter.EndDate == nil {
		t.Error("expected date bounds to be parsed")
	}
}

func TestTransactionHandler_List_BadDate(t *testing.T) {
	h := &TransactionHandler{TransactionService: &fakeTransactionService{}}

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest("GET", "/api/transactions?start_date=June+1", "", "", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_List_EmptyResult(t *testing.T) {
	h := &TransactionHandler{TransactionService: &fakeTransactionService{}}

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest("GET", "/api/transactions", "", "", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("expected empty array, got %q", body)
	}
}

func TestTransactionHandler_Create(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		service      *fakeTransactionService
		expectedCode int
	}{
		{
			name:         "invalid JSON",
			body:         `not a json`,
			service:      &fakeTransactionService{},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "missing fields",
			body:         `{"amount":"10"}`,
			service:      &fakeTransactionService{createErr: service.ErrValidation},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "success",
			body: `{"amount":"25.00","type":"EXPENSE","datetime":"2025-06-01T00:00:00Z"}`,
			service: &fakeTransactionService{createResult: &models.Transaction{
				ID: "t1", Amount: decimal.RequireFromString("25.00"), Type: models.TypeExpense,
			}},
			expectedCode: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h := &TransactionHandler{TransactionService: tt.service}
			h.Create(rec, authedRequest("POST", "/api/transactions", tt.body, "", ""))

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
		})
	}
}

func TestTransactionHandler_Categorize(t *testing.T) {
	svc := &fakeTransactionService{categorizeResult: &models.Transaction{ID: "t1", Categorized: true}}
	h := &TransactionHandler{TransactionService: svc}

	rec := httptest.NewRecorder()
	req := authedRequest("PUT", "/api/transactions/t1/categorize", `{"envelope_id":"e1","apply_rule":true}`, "id", "t1")
	h.Categorize(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotEnvelope != "e1" || !svc.gotApplyRule {
		t.Errorf("expected envelope e1 with apply_rule, got (%q, %v)", svc.gotEnvelope, svc.gotApplyRule)
	}
}

func TestTransactionHandler_Reallocate_ExpenseRejected(t *testing.T) {
	svc := &fakeTransactionService{reallocateErr: service.ErrValidation}
	h := &TransactionHandler{TransactionService: svc}

	rec := httptest.NewRecorder()
	req := authedRequest("POST", "/api/transactions/t1/reallocate", `{"envelope_id":"e2"}`, "id", "t1")
	h.Reallocate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
