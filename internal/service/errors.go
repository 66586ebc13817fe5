// Package service provides the business logic for users, envelopes,
// transactions, bank linking, and feed synchronization, delegating
// persistence to repository interfaces.
package service

import "errors"

// Sentinel errors returned by services. Handlers map them to HTTP statuses
// with errors.Is.
var (
	// ErrValidation marks a request rejected before any side effect.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound marks a referenced record that is absent or not owned
	// by the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation on a user-facing create.
	ErrConflict = errors.New("already exists")
	// ErrUnauthenticated marks a failed credential check at the identity
	// provider.
	ErrUnauthenticated = errors.New("authentication failed")
	// ErrNoBankLink marks a sync attempt without a linked bank account.
	ErrNoBankLink = errors.New("no bank account linked")
	// ErrSandboxOnly marks a sandbox-only operation called outside sandbox.
	ErrSandboxOnly = errors.New("only available in sandbox mode")
)
