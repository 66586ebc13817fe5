// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/ivlasov/envelope/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// TokenVerifier resolves a bearer access token to the identity provider's
// subject id.
type TokenVerifier interface {
	Subject(ctx context.Context, accessToken string) (string, error)
}

// UserLookup resolves a subject id to the local user record.
type UserLookup interface {
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
}

// BearerAuth returns a middleware that enforces bearer-token authentication.
//
// It extracts the token from the Authorization header, resolves it to a
// subject id at the identity provider, loads the local user owning that
// subject, and stores the user id in the request context for downstream
// handlers. Requests without a token get 401, requests with an invalid or
// expired token get 403, and tokens for subjects with no local user row
// get 404.
func BearerAuth(verifier TokenVerifier, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "access token required", http.StatusUnauthorized)
				return
			}

			subject, err := verifier.Subject(r.Context(), token)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusForbidden)
				return
			}

			user, err := users.GetBySubject(r.Context(), subject)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					http.Error(w, "user not found", http.StatusNotFound)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the authenticated user id from the request
// context. Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// WithUserID returns a copy of ctx carrying the given user id. Intended
// for tests that exercise handlers without the full middleware chain.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
