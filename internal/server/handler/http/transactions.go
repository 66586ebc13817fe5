package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ivlasov/envelope/internal/middleware"
	"github.com/ivlasov/envelope/internal/models"
	"github.com/ivlasov/envelope/internal/repository"
	"github.com/ivlasov/envelope/internal/service"
)

// TransactionService defines the interface for transaction operations
// required by the HTTP handlers.
type TransactionService interface {
	// List returns the user's transactions, optionally filtered.
	List(ctx context.Context, userID string, filter repository.TransactionFilter) ([]models.Transaction, error)
	// Create inserts a manually entered transaction.
	Create(ctx context.Context, userID string, in service.CreateTransactionInput) (*models.Transaction, error)
	// Categorize assigns an envelope with source MANUAL.
	Categorize(ctx context.Context, userID, txID, envelopeID string, applyRule bool) (*models.Transaction, error)
	// Reallocate moves an INCOME transaction to another envelope.
	Reallocate(ctx context.Context, userID, txID, envelopeID string) (*models.Transaction, error)
}

// TransactionHandler handles HTTP requests for transactions.
type TransactionHandler struct {
	TransactionService TransactionService
}

// List handles GET /api/transactions. Supported query parameters:
// envelope_id, uncategorized=true, start_date, end_date (YYYY-MM-DD).
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var filter repository.TransactionFilter
	q := r.URL.Query()
	if v := q.Get("envelope_id"); v != "" {
		filter.EnvelopeID = &v
	}
	filter.UncategorizedOnly = q.Get("uncategorized") == "true"
	if v := q.Get("start_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date"})
			return
		}
		filter.StartDate = &parsed
	}
	if v := q.Get("end_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date"})
			return
		}
		filter.EndDate = &parsed
	}

	txs, err := h.TransactionService.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// Create handles POST /api/transactions.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var in service.CreateTransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	tx, err := h.TransactionService.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// categorizeRequest represents the JSON payload for categorization.
type categorizeRequest struct {
	EnvelopeID string `json:"envelope_id"`
	ApplyRule  bool   `json:"apply_rule"`
}

// Categorize handles PUT /api/transactions/{id}/categorize.
func (h *TransactionHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	tx, err := h.TransactionService.Categorize(r.Context(), userID, id, req.EnvelopeID, req.ApplyRule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// reallocateRequest represents the JSON payload for reallocation.
type reallocateRequest struct {
	EnvelopeID string `json:"envelope_id"`
}

// Reallocate handles POST /api/transactions/{id}/reallocate.
func (h *TransactionHandler) Reallocate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req reallocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	tx, err := h.TransactionService.Reallocate(r.Context(), userID, id, req.EnvelopeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
