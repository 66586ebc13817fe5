package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ivlasov/envelope/internal/middleware"
	"github.com/ivlasov/envelope/internal/models"
	"github.com/ivlasov/envelope/internal/service"
)

// UserService defines the interface for registration, login, and settings
// operations required by the HTTP handlers.
type UserService interface {
	// Register creates a user at the identity provider and locally.
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	// Login verifies credentials and returns tokens with the user profile.
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	// Settings returns the user's profile and interval settings.
	Settings(ctx context.Context, userID string) (*models.User, error)
	// UpdateSettings updates the interval settings and returns the user.
	UpdateSettings(ctx context.Context, userID string, intervalType *models.IntervalType, startDate *time.Time) (*models.User, error)
}

// AuthHandler handles HTTP requests for registration, login, and user
// settings.
type AuthHandler struct {
	// UserService performs the underlying user operations.
	UserService UserService
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register handles POST /api/register. Credentials go to the identity
// provider; only the provider's subject id is stored locally.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	user, err := h.UserService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"userId":  user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"message": "User registered successfully. Please check your email for verification.",
	})
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	result, err := h.UserService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  result.Tokens.AccessToken,
		"idToken":      result.Tokens.IDToken,
		"refreshToken": result.Tokens.RefreshToken,
		"userId":       result.User.ID,
		"email":        result.User.Email,
		"name":         result.User.Name,
	})
}

// GetSettings handles GET /api/user/settings.
func (h *AuthHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	user, err := h.UserService.Settings(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// settingsRequest represents the JSON payload for a settings update. The
// start date is a plain date string.
type settingsRequest struct {
	IntervalType      *models.IntervalType `json:"interval_type"`
	IntervalStartDate *string              `json:"interval_start_date"`
}

// UpdateSettings handles PUT /api/user/settings.
func (h *AuthHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	var startDate *time.Time
	if req.IntervalStartDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.IntervalStartDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid interval_start_date"})
			return
		}
		startDate = &parsed
	}

	user, err := h.UserService.UpdateSettings(r.Context(), userID, req.IntervalType, startDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
