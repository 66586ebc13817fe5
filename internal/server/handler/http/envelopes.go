package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ivlasov/envelope/internal/middleware"
	"github.com/ivlasov/envelope/internal/models"
	"github.com/ivlasov/envelope/internal/service"
)

// EnvelopeService defines the interface for envelope and rule operations
// required by the HTTP handlers.
type EnvelopeService interface {
	// List returns the user's envelopes with derived balances.
	List(ctx context.Context, userID string) ([]models.Envelope, error)
	// Create validates and inserts a new envelope.
	Create(ctx context.Context, userID string, in service.CreateEnvelopeInput) (*models.Envelope, error)
	// Update applies a partial update to an owned envelope.
	Update(ctx context.Context, userID, id string, in service.UpdateEnvelopeInput) (*models.Envelope, error)
	// Delete removes an owned envelope, unlinking its transactions.
	Delete(ctx context.Context, userID, id string) error
	// ListRules returns the rules of an owned envelope.
	ListRules(ctx context.Context, userID, envelopeID string) ([]models.EnvelopeRule, error)
	// AddRule adds a categorization rule to an owned envelope.
	AddRule(ctx context.Context, userID, envelopeID string, in service.RuleInput) (*models.EnvelopeRule, error)
}

// EnvelopeHandler handles HTTP requests for envelopes and their rules.
type EnvelopeHandler struct {
	EnvelopeService EnvelopeService
}

// List handles GET /api/envelopes.
func (h *EnvelopeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	envelopes, err := h.EnvelopeService.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if envelopes == nil {
		envelopes = []models.Envelope{}
	}
	writeJSON(w, http.StatusOK, envelopes)
}

// Create handles POST /api/envelopes.
func (h *EnvelopeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var in service.CreateEnvelopeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	envelope, err := h.EnvelopeService.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope)
}

// Update handles PUT /api/envelopes/{id}.
func (h *EnvelopeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var in service.UpdateEnvelopeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	envelope, err := h.EnvelopeService.Update(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

// Delete handles DELETE /api/envelopes/{id}. Linked transactions are
// retained with their envelope link cleared.
func (h *EnvelopeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.EnvelopeService.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Envelope deleted successfully"})
}

// ListRules handles GET /api/envelopes/{id}/rules.
func (h *EnvelopeHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	rules, err := h.EnvelopeService.ListRules(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rules == nil {
		rules = []models.EnvelopeRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// AddRule handles POST /api/envelopes/{id}/rules.
func (h *EnvelopeHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var in service.RuleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	rule, err := h.EnvelopeService.AddRule(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}
