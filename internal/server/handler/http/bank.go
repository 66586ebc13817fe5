package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ivlasov/envelope/internal/middleware"
	"github.com/ivlasov/envelope/internal/service"
)

// BankService defines the interface for bank account linking operations
// required by the HTTP handlers.
type BankService interface {
	// LinkToken creates a token for the account-linking flow.
	LinkToken(ctx context.Context, userID string) (string, error)
	// SandboxPublicToken creates a test public token (sandbox only).
	SandboxPublicToken(ctx context.Context) (string, error)
	// ExchangeToken stores the credential obtained from a public token.
	ExchangeToken(ctx context.Context, userID, publicToken string) error
}

// SyncRunner performs one transaction sync for a user.
type SyncRunner interface {
	// Run drains the feed and applies the result set locally.
	Run(ctx context.Context, userID string) (*service.SyncResult, error)
}

// BankHandler handles HTTP requests for bank linking and transaction sync.
type BankHandler struct {
	BankService BankService
	SyncRunner  SyncRunner
}

// LinkToken handles POST /api/bank/link-token.
func (h *BankHandler) LinkToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	token, err := h.BankService.LinkToken(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link_token": token})
}

// SandboxLink handles POST /api/bank/sandbox-link. Only available when
// the feed client runs against the sandbox environment.
func (h *BankHandler) SandboxLink(w http.ResponseWriter, r *http.Request) {
	token, err := h.BankService.SandboxPublicToken(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_token": token})
}

// exchangeRequest represents the JSON payload for the token exchange.
type exchangeRequest struct {
	PublicToken string `json:"public_token"`
}

// ExchangeToken handles POST /api/bank/exchange-token. A successful
// exchange stores the credential and resets the feed cursor.
func (h *BankHandler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	if err := h.BankService.ExchangeToken(r.Context(), userID, req.PublicToken); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bank account linked successfully"})
}

// Sync handles POST /api/bank/sync. It reconciles local transactions with
// the external feed and reports the applied counts.
func (h *BankHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	result, err := h.SyncRunner.Run(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
