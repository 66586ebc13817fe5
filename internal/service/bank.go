package service

import (
	"context"
	"fmt"
)

// BankFeedLink defines the account-linking operations of the bank
// aggregator required by the BankService.
type BankFeedLink interface {
	// CreateLinkToken creates a token for the account-linking flow.
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	// CreateSandboxPublicToken creates a public token against the sandbox
	// test institution.
	CreateSandboxPublicToken(ctx context.Context) (string, error)
	// ExchangePublicToken trades a public token for an access token and
	// item id.
	ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error)
	// Sandbox reports whether the client talks to the sandbox environment.
	Sandbox() bool
}

// BankUserStore persists the bank-link credential.
type BankUserStore interface {
	// SetBankLink stores the credential and resets the feed cursor.
	SetBankLink(ctx context.Context, userID, accessToken, itemID string) error
}

// BankService implements the bank account linking flow.
type BankService struct {
	feed  BankFeedLink
	users BankUserStore
}

// NewBankService constructs a BankService with the given feed client and
// user store.
func NewBankService(feed BankFeedLink, users BankUserStore) *BankService {
	return &BankService{feed: feed, users: users}
}

// LinkToken creates a link token for the user's account-linking flow.
func (s *BankService) LinkToken(ctx context.Context, userID string) (string, error) {
	token, err := s.feed.CreateLinkToken(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("bank feed: %w", err)
	}
	return token, nil
}

// SandboxPublicToken creates a test public token. Rejected outside the
// sandbox environment.
func (s *BankService) SandboxPublicToken(ctx context.Context) (string, error) {
	if !s.feed.Sandbox() {
		return "", ErrSandboxOnly
	}
	token, err := s.feed.CreateSandboxPublicToken(ctx)
	if err != nil {
		return "", fmt.Errorf("bank feed: %w", err)
	}
	return token, nil
}

// ExchangeToken exchanges a public token from the linking flow and stores
// the resulting credential. Storing a new credential resets the feed
// cursor, since a cursor is only meaningful within the feed session it was
// issued under.
func (s *BankService) ExchangeToken(ctx context.Context, userID, publicToken string) error {
	if publicToken == "" {
		return fmt.Errorf("%w: public_token is required", ErrValidation)
	}

	accessToken, itemID, err := s.feed.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return fmt.Errorf("bank feed: %w", err)
	}
	return s.users.SetBankLink(ctx, userID, accessToken, itemID)
}
