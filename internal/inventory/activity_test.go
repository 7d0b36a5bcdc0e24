package inventory

import (
	"fmt"
	"testing"
	"time"
)

func TestFeed_NewestFirst(t *testing.T) {
	f := NewFeed()
	f.Record(KindProduct, "first")
	f.Record(KindStock, "second")
	f.Record(KindAlert, "third")

	got := f.Recent(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Message != "third" || got[2].Message != "first" {
		t.Errorf("order = %v", got)
	}

	if got := f.Recent(2); len(got) != 2 || got[1].Message != "second" {
		t.Errorf("Recent(2) = %v", got)
	}
}

func TestFeed_Bounded(t *testing.T) {
	f := NewFeed()
	for i := 0; i < FeedSize+5; i++ {
		f.Record(KindStock, fmt.Sprintf("event %d", i))
	}

	got := f.Recent(0)
	if len(got) != FeedSize {
		t.Fatalf("len = %d, want %d", len(got), FeedSize)
	}
	if got[0].Message != fmt.Sprintf("event %d", FeedSize+4) {
		t.Errorf("newest = %q", got[0].Message)
	}
	if got[FeedSize-1].Message != "event 5" {
		t.Errorf("oldest = %q, want event 5", got[FeedSize-1].Message)
	}
}

func TestFeed_Timestamps(t *testing.T) {
	fixed := time.Date(2025, 10, 23, 9, 0, 0, 0, time.UTC)
	f := NewFeed()
	f.now = func() time.Time { return fixed }

	f.Record(KindSession, "signed in")
	if got := f.Recent(1)[0].At; !got.Equal(fixed) {
		t.Errorf("At = %v, want %v", got, fixed)
	}
}

func TestFeed_Empty(t *testing.T) {
	if got := NewFeed().Recent(5); len(got) != 0 {
		t.Errorf("Recent() = %v, want empty", got)
	}
}
