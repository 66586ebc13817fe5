package bankfeed

import "context"

// TransactionSyncer fetches a single feed page. Implemented by Client;
// declared as an interface so the Pager can be driven by fakes in tests.
type TransactionSyncer interface {
	SyncPage(ctx context.Context, accessToken string, cursor *string) (*SyncPage, error)
}

// Pager walks the cursor-paged transaction feed one page at a time. Pages
// are produced on demand, so a caller may stop between pages; the cursor
// after the last consumed page is available from Cursor. Page requests are
// strictly sequential because each cursor comes from the previous page.
type Pager struct {
	feed        TransactionSyncer
	accessToken string
	cursor      *string
	more        bool
}

// NewPager returns a Pager over the feed for the given credential, resuming
// from cursor. A nil cursor starts a fresh feed session.
func NewPager(feed TransactionSyncer, accessToken string, cursor *string) *Pager {
	return &Pager{
		feed:        feed,
		accessToken: accessToken,
		cursor:      cursor,
		more:        true,
	}
}

// More reports whether another page remains to be fetched.
func (p *Pager) More() bool {
	return p.more
}

// Next fetches the next feed page and advances the pager's cursor. On error
// the cursor is not advanced, so the same page can be retried.
func (p *Pager) Next(ctx context.Context) (*SyncPage, error) {
	page, err := p.feed.SyncPage(ctx, p.accessToken, p.cursor)
	if err != nil {
		return nil, err
	}

	next := page.NextCursor
	p.cursor = &next
	p.more = page.HasMore
	return page, nil
}

// Cursor returns the cursor after the last successfully fetched page, or
// the starting cursor if no page has been fetched yet. Empty if the pager
// started from the beginning.
func (p *Pager) Cursor() string {
	if p.cursor == nil {
		return ""
	}
	return *p.cursor
}
