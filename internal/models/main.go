// Package models defines the core data structures for users, envelopes,
// categorization rules, and transactions.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntervalType defines the set of valid budgeting interval identifiers.
type IntervalType string

const (
	// IntervalWeekly resets budgets every week.
	IntervalWeekly IntervalType = "WEEKLY"
	// IntervalBiweekly resets budgets every two weeks.
	IntervalBiweekly IntervalType = "BIWEEKLY"
	// IntervalMonthly resets budgets every month.
	IntervalMonthly IntervalType = "MONTHLY"
	// IntervalYearly resets budgets every year.
	IntervalYearly IntervalType = "YEARLY"
)

// Valid reports whether the interval type is one of the known values.
func (t IntervalType) Valid() bool {
	switch t {
	case IntervalWeekly, IntervalBiweekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

// AmountType defines how an envelope's allocated amount is computed.
type AmountType string

const (
	// AmountFixed allocates a fixed currency amount.
	AmountFixed AmountType = "FIXED"
	// AmountPercentageCurrent allocates a percentage of current-period income.
	AmountPercentageCurrent AmountType = "PERCENTAGE_CURRENT"
	// AmountPercentagePrevious allocates a percentage of previous-period income.
	AmountPercentagePrevious AmountType = "PERCENTAGE_PREVIOUS"
)

// Valid reports whether the amount type is one of the known values.
func (t AmountType) Valid() bool {
	switch t {
	case AmountFixed, AmountPercentageCurrent, AmountPercentagePrevious:
		return true
	}
	return false
}

// RefreshType defines what happens to an envelope's balance at the start
// of a new budgeting interval.
type RefreshType string

const (
	// RefreshReset discards the unspent balance each interval.
	RefreshReset RefreshType = "REFRESH"
	// RefreshRollover carries the unspent balance into the next interval.
	RefreshRollover RefreshType = "ROLLOVER"
)

// Valid reports whether the refresh type is one of the known values.
func (t RefreshType) Valid() bool {
	return t == RefreshReset || t == RefreshRollover
}

// TransactionType classifies a transaction as money in or money out.
// The stored amount is always a non-negative magnitude; the sign is
// implied by the type.
type TransactionType string

const (
	// TypeIncome adds to an envelope balance.
	TypeIncome TransactionType = "INCOME"
	// TypeExpense subtracts from an envelope balance.
	TypeExpense TransactionType = "EXPENSE"
)

// Valid reports whether the transaction type is one of the known values.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// CategorizationSource records how a transaction got its envelope assignment.
type CategorizationSource string

const (
	// SourceAuto means a categorization rule assigned the envelope.
	SourceAuto CategorizationSource = "AUTO"
	// SourceManual means the user assigned the envelope by hand.
	SourceManual CategorizationSource = "MANUAL"
)

// User represents an application user. Credential verification lives in the
// external identity provider; AuthSubject is the provider's stable subject id.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// AuthSubject is the subject id issued by the identity provider.
	AuthSubject string `json:"-"`
	// Email is the user's email address.
	Email string `json:"email"`
	// Name is the user's display name.
	Name string `json:"name"`
	// BankAccessToken is the opaque bank-link credential, nil until a
	// bank account has been linked.
	BankAccessToken *string `json:"-"`
	// BankItemID identifies the linked bank item at the aggregator.
	BankItemID *string `json:"-"`
	// FeedCursor is the opaque sync cursor for the transaction feed.
	// It is reset to nil whenever the bank-link credential changes.
	FeedCursor *string `json:"-"`
	// IntervalType is the budgeting interval (WEEKLY, BIWEEKLY, MONTHLY, YEARLY).
	IntervalType IntervalType `json:"interval_type"`
	// IntervalStartDate is the first day of the current budgeting interval.
	IntervalStartDate time.Time `json:"interval_start_date"`
}

// Envelope is a named budget bucket. Its current balance is never stored;
// it is derived on read as the signed sum of linked transactions.
type Envelope struct {
	// ID is the unique identifier for the envelope.
	ID string `json:"id"`
	// UserID is the owning user.
	UserID string `json:"user_id"`
	// Name is the user-chosen envelope name.
	Name string `json:"name"`
	// AmountType defines how Amount is interpreted.
	AmountType AmountType `json:"amount_type"`
	// Amount is the allocated amount (fixed value or percentage).
	Amount decimal.Decimal `json:"amount"`
	// RefreshType defines the balance behavior at interval boundaries.
	RefreshType RefreshType `json:"refresh_type"`
	// CurrentBalance is derived from linked transactions on read.
	CurrentBalance decimal.Decimal `json:"current_balance"`
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// EnvelopeRule is a matching predicate used to auto-assign transactions
// to an envelope. At least one of Category or MerchantPattern is set.
type EnvelopeRule struct {
	// ID is the unique identifier for the rule.
	ID string `json:"id"`
	// EnvelopeID is the envelope the rule assigns transactions to.
	EnvelopeID string `json:"envelope_id"`
	// Category is the feed category label the rule matches, if any.
	Category *string `json:"category"`
	// MerchantPattern is a case-insensitive merchant substring, if any.
	MerchantPattern *string `json:"merchant_pattern"`
	// CreatedAt orders rules for first-match evaluation.
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is a single money movement, created by manual entry or by
// feed sync.
type Transaction struct {
	// ID is the unique identifier for the transaction.
	ID string `json:"id"`
	// UserID is the owning user.
	UserID string `json:"user_id"`
	// EnvelopeID links the transaction to an envelope, if categorized.
	EnvelopeID *string `json:"envelope_id"`
	// EnvelopeName is the linked envelope's name, populated on list reads.
	EnvelopeName *string `json:"envelope_name,omitempty"`
	// FeedTransactionID is the external feed identifier, unique across the
	// system; nil for manually entered transactions.
	FeedTransactionID *string `json:"feed_transaction_id"`
	// Datetime is when the transaction occurred.
	Datetime time.Time `json:"datetime"`
	// Amount is the non-negative magnitude; the sign is implied by Type.
	Amount decimal.Decimal `json:"amount"`
	// Type is INCOME or EXPENSE.
	Type TransactionType `json:"type"`
	// Description is the transaction description from the feed or the user.
	Description *string `json:"description"`
	// MerchantName is the merchant, when the feed supplies one.
	MerchantName *string `json:"merchant_name"`
	// Category is the normalized feed category label.
	Category *string `json:"category"`
	// Categorized reports whether an envelope has been assigned.
	Categorized bool `json:"is_categorized"`
	// Source records whether categorization was AUTO or MANUAL.
	Source *CategorizationSource `json:"categorization_source"`
}
