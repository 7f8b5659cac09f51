package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sparkmatch/backend/internal/models"
)

// ProfileLister returns every profile document in one unordered batch.
type ProfileLister interface {
	List(ctx context.Context) ([]models.UserProfile, error)
}

// Item is a feed list entry, keyed by account identifier.
type Item struct {
	ID                       string `json:"id"`
	FirstName                string `json:"firstName,omitempty"`
	ProfileImage             string `json:"profileImage,omitempty"`
	ScreenRecording          string `json:"screenRecording,omitempty"`
	ScreenRecordingThumbnail string `json:"screenRecordingThumbnail,omitempty"`
}

// Loader fetches the full profile set and caches the mapped list for a TTL.
// Refresh bypasses the cache. Overlapping fetches are fenced by a generation
// counter so the most recently issued fetch determines the cached list, and
// the list is always replaced atomically as a whole.
type Loader struct {
	source ProfileLister
	ttl    time.Duration

	NowFunc func() time.Time

	mu        sync.Mutex
	items     []Item
	fetchedAt time.Time
	hasData   bool
	gen       uint64
}

// NewLoader constructs a feed loader over the provided profile source.
func NewLoader(source ProfileLister, ttl time.Duration) *Loader {
	if source == nil {
		panic("feed: profile source must not be nil")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Loader{source: source, ttl: ttl}
}

// Load returns the feed, serving the cached list while it is fresh.
func (l *Loader) Load(ctx context.Context) ([]Item, error) {
	l.mu.Lock()
	if l.hasData && l.now().Before(l.fetchedAt.Add(l.ttl)) {
		items := append([]Item(nil), l.items...)
		l.mu.Unlock()
		return items, nil
	}
	l.mu.Unlock()

	return l.fetch(ctx)
}

// Refresh re-runs the full fetch regardless of cache freshness; the
// pull-to-refresh trigger.
func (l *Loader) Refresh(ctx context.Context) ([]Item, error) {
	return l.fetch(ctx)
}

func (l *Loader) fetch(ctx context.Context) ([]Item, error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	profiles, err := l.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}

	items := make([]Item, 0, len(profiles))
	for _, profile := range profiles {
		items = append(items, Item{
			ID:                       profile.ID,
			FirstName:                profile.FirstName,
			ProfileImage:             profile.ProfileImage,
			ScreenRecording:          profile.ScreenRecording,
			ScreenRecordingThumbnail: profile.ScreenRecordingThumbnail,
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == l.gen {
		l.items = items
		l.fetchedAt = l.now()
		l.hasData = true
	}
	return append([]Item(nil), l.items...), nil
}

func (l *Loader) now() time.Time {
	if l.NowFunc != nil {
		return l.NowFunc()
	}
	return time.Now()
}
