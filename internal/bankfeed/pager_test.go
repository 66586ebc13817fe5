package bankfeed

import (
	"context"
	"errors"
	"testing"
)

// fakeSyncer replays a scripted sequence of pages and records the cursors
// it was called with.
type fakeSyncer struct {
	pages   []*SyncPage
	errAt   int
	calls   int
	cursors []*string
}

func (f *fakeSyncer) SyncPage(ctx context.Context, accessToken string, cursor *string) (*SyncPage, error) {
	f.cursors = append(f.cursors, cursor)
	if f.errAt > 0 && f.calls == f.errAt-1 {
		return nil, errors.New("feed unavailable")
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func TestPager_SinglePage(t *testing.T) {
	feed := &fakeSyncer{pages: []*SyncPage{
		{Added: []FeedTransaction{{ID: "tx1"}}, HasMore: false, NextCursor: "c1"},
	}}
	p := NewPager(feed, "token", nil)

	if !p.More() {
		t.Fatal("expected More() before first page")
	}

	page, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Added) != 1 || page.Added[0].ID != "tx1" {
		t.Errorf("unexpected added set: %+v", page.Added)
	}
	if p.More() {
		t.Error("expected More() false after last page")
	}
	if p.Cursor() != "c1" {
		t.Errorf("Cursor() = %q; want %q", p.Cursor(), "c1")
	}
	if feed.cursors[0] != nil {
		t.Errorf("first request cursor = %v; want nil", *feed.cursors[0])
	}
}

func TestPager_ChainsCursors(t *testing.T) {
	feed := &fakeSyncer{pages: []*SyncPage{
		{HasMore: true, NextCursor: "c1"},
		{HasMore: true, NextCursor: "c2"},
		{HasMore: false, NextCursor: "c3"},
	}}
	p := NewPager(feed, "token", nil)

	var pages int
	for p.More() {
		if _, err := p.Next(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pages++
	}

	if pages != 3 {
		t.Errorf("fetched %d pages; want 3", pages)
	}
	if p.Cursor() != "c3" {
		t.Errorf("Cursor() = %q; want %q", p.Cursor(), "c3")
	}
	if feed.cursors[1] == nil || *feed.cursors[1] != "c1" {
		t.Errorf("second request did not carry cursor c1")
	}
	if feed.cursors[2] == nil || *feed.cursors[2] != "c2" {
		t.Errorf("third request did not carry cursor c2")
	}
}

func TestPager_ResumesFromStoredCursor(t *testing.T) {
	stored := "resume-here"
	feed := &fakeSyncer{pages: []*SyncPage{
		{HasMore: false, NextCursor: "c9"},
	}}
	p := NewPager(feed, "token", &stored)

	if _, err := p.Next(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed.cursors[0] == nil || *feed.cursors[0] != "resume-here" {
		t.Error("pager did not resume from the stored cursor")
	}
}

func TestPager_ErrorKeepsCursor(t *testing.T) {
	feed := &fakeSyncer{
		pages: []*SyncPage{{HasMore: true, NextCursor: "c1"}, nil},
		errAt: 2,
	}
	p := NewPager(feed, "token", nil)

	if _, err := p.Next(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Next(context.Background()); err == nil {
		t.Fatal("expected error from second page")
	}
	// Cursor still points at the last good page so a retry refetches it.
	if p.Cursor() != "c1" {
		t.Errorf("Cursor() = %q after failure; want %q", p.Cursor(), "c1")
	}
	if !p.More() {
		t.Error("More() must stay true after a failed fetch")
	}
}
