package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivlasov/envelope/internal/identity"
	"github.com/ivlasov/envelope/internal/models"
	"github.com/ivlasov/envelope/internal/repository"
)

// IdentityProvider defines the external identity operations required by
// the UserService.
type IdentityProvider interface {
	// SignUp registers the user with the provider and returns the subject id.
	SignUp(ctx context.Context, email, password, name string) (string, error)
	// Authenticate verifies the credentials and returns the issued tokens.
	Authenticate(ctx context.Context, email, password string) (*identity.Tokens, error)
	// Subject resolves a bearer access token to a subject id.
	Subject(ctx context.Context, accessToken string) (string, error)
}

// UserRepository defines the persistence operations required by the
// UserService.
type UserRepository interface {
	// CreateUser inserts a new user record.
	CreateUser(ctx context.Context, u *models.User) error
	// GetBySubject fetches the user owning the given subject id.
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
	// GetByID fetches a user by id.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateSettings updates the budgeting interval settings.
	UpdateSettings(ctx context.Context, userID string, intervalType *models.IntervalType, startDate *time.Time) error
}

// LoginResult bundles the provider tokens with the local user profile.
type LoginResult struct {
	Tokens identity.Tokens
	User   models.User
}

// UserService implements registration, login, and settings operations,
// delegating credential handling to the identity provider.
type UserService struct {
	idp  IdentityProvider
	repo UserRepository
}

// NewUserService constructs a UserService with the given provider and
// repository.
func NewUserService(idp IdentityProvider, repo UserRepository) *UserService {
	return &UserService{idp: idp, repo: repo}
}

// Register signs the user up with the identity provider and creates the
// local user row with MONTHLY interval defaults.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if email == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: email, password, and name are required", ErrValidation)
	}

	subject, err := s.idp.SignUp(ctx, email, password, name)
	if err != nil {
		return nil, fmt.Errorf("identity provider: %w", err)
	}

	user := &models.User{
		ID:                uuid.NewString(),
		AuthSubject:       subject,
		Email:             email,
		Name:              name,
		IntervalType:      models.IntervalMonthly,
		IntervalStartDate: time.Now().UTC().Truncate(24 * time.Hour),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user", ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

// Login authenticates the credentials with the identity provider and
// returns the issued tokens along with the local user profile.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	tokens, err := s.idp.Authenticate(ctx, email, password)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	subject, err := s.idp.Subject(ctx, tokens.AccessToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}
	return &LoginResult{Tokens: *tokens, User: *user}, nil
}

// Settings returns the user's profile and budgeting interval settings.
func (s *UserService) Settings(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// UpdateSettings updates the budgeting interval type and/or start date.
// At least one field must be supplied.
func (s *UserService) UpdateSettings(ctx context.Context, userID string, intervalType *models.IntervalType, startDate *time.Time) (*models.User, error) {
	if intervalType == nil && startDate == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if intervalType != nil && !intervalType.Valid() {
		return nil, fmt.Errorf("%w: invalid interval_type", ErrValidation)
	}

	if _, err := s.Settings(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSettings(ctx, userID, intervalType, startDate); err != nil {
		return nil, err
	}
	return s.Settings(ctx, userID)
}
