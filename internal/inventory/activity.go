package inventory

import (
	"sync"
	"time"
)

// FeedSize is how many activities the feed keeps
const FeedSize = 20

// Activity kinds
const (
	KindProduct = "product"
	KindStock   = "stock"
	KindAlert   = "alert"
	KindSession = "session"
	KindAI      = "ai"
)

// Activity is one line of the dashboard feed
type Activity struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Feed is a bounded ring of recent activity
type Feed struct {
	mu    sync.Mutex
	items []Activity
	next  int
	count int
	now   func() time.Time
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{
		items: make([]Activity, FeedSize),
		now:   time.Now,
	}
}

// Record adds an activity, evicting the oldest once full
func (f *Feed) Record(kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[f.next] = Activity{Kind: kind, Message: message, At: f.now()}
	f.next = (f.next + 1) % len(f.items)
	if f.count < len(f.items) {
		f.count++
	}
}

// Recent returns up to n activities, newest first. n <= 0 means all.
func (f *Feed) Recent(n int) []Activity {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n <= 0 || n > f.count {
		n = f.count
	}
	out := make([]Activity, 0, n)
	for i := 1; i <= n; i++ {
		idx := (f.next - i + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}
