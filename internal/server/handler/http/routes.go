package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ivlasov/envelope/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler serving the envelope
// budgeting API. It applies CORS for the browser frontend, JSON
// content-type enforcement, and request logging, and mounts the public
// registration/login endpoints and the bearer-protected API under /api.
//
// Middleware chain (applied in order):
//  1. cors.Handler                       — allows the configured frontend origin
//  2. AllowContentType("application/json") — rejects non-JSON request bodies
//  3. WithRequestLogging(logger)          — logs each request
//  4. authMW (protected group only)       — resolves the bearer token to a user
func NewRouter(
	authHandler *AuthHandler,
	envelopeHandler *EnvelopeHandler,
	transactionHandler *TransactionHandler,
	bankHandler *BankHandler,
	authMW func(http.Handler) http.Handler,
	corsOrigin string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Mount API routes
	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		// Protected group: requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Get("/user/settings", authHandler.GetSettings)
			r.Put("/user/settings", authHandler.UpdateSettings)

			r.Get("/envelopes", envelopeHandler.List)
			r.Post("/envelopes", envelopeHandler.Create)
			r.Put("/envelopes/{id}", envelopeHandler.Update)
			r.Delete("/envelopes/{id}", envelopeHandler.Delete)
			r.Get("/envelopes/{id}/rules", envelopeHandler.ListRules)
			r.Post("/envelopes/{id}/rules", envelopeHandler.AddRule)

			r.Get("/transactions", transactionHandler.List)
			r.Post("/transactions", transactionHandler.Create)
			r.Put("/transactions/{id}/categorize", transactionHandler.Categorize)
			r.Post("/transactions/{id}/reallocate", transactionHandler.Reallocate)

			r.Post("/bank/link-token", bankHandler.LinkToken)
			r.Post("/bank/sandbox-link", bankHandler.SandboxLink)
			r.Post("/bank/exchange-token", bankHandler.ExchangeToken)
			r.Post("/bank/sync", bankHandler.Sync)
		})
	})

	return r
}
