// Package bankfeed wraps the bank aggregator API behind a small client and
// exposes the cursor-paged transaction feed as a lazy page iterator.
package bankfeed

import "time"

// FeedTransaction is one transaction record from the aggregator feed.
// Amount keeps the feed's sign convention: positive means money leaving
// the account, negative means money coming in.
type FeedTransaction struct {
	// ID is the feed's unique transaction identifier.
	ID string
	// Amount is the signed amount in the feed's convention.
	Amount float64
	// Date is the transaction date.
	Date time.Time
	// Description is the feed's transaction name.
	Description string
	// MerchantName is the merchant, empty when the feed omits it.
	MerchantName string
	// DetailedCategory is the primary label of the feed's detailed taxonomy.
	DetailedCategory string
	// LegacyCategory is the first label of the feed's coarse legacy taxonomy.
	LegacyCategory string
	// Pending reports whether the transaction is not yet final.
	Pending bool
}

// SyncPage is one page of the transaction feed.
type SyncPage struct {
	// Added holds transactions new since the cursor.
	Added []FeedTransaction
	// Modified holds transactions changed since the cursor.
	Modified []FeedTransaction
	// Removed holds feed ids of transactions deleted since the cursor.
	Removed []string
	// HasMore reports whether another page follows.
	HasMore bool
	// NextCursor is the cursor to request the next page with.
	NextCursor string
}
