package freshness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"absstitch/internal/errors"
)

// Counter reports how many records of a dashboard section were created
// strictly after a point in time.
type Counter interface {
	CountCreatedAfter(ctx context.Context, section string, since time.Time) (int, error)
}

// CounterMap routes sections to count functions, one per repository.
type CounterMap map[string]func(ctx context.Context, since time.Time) (int, error)

func (m CounterMap) CountCreatedAfter(ctx context.Context, section string, since time.Time) (int, error) {
	fn, ok := m[section]
	if !ok {
		return 0, errors.NewNotFoundError(fmt.Sprintf("unknown dashboard section %q", section))
	}
	return fn(ctx, since)
}

// Tracker computes unread badge counts per dashboard section for one
// viewer. MarkSeen is the only writer of the per-section marker; passively
// reading a badge never moves it. Counts are computed on demand against
// live creation timestamps, never cached.
type Tracker struct {
	counter       Counter
	defaultWindow time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

func NewTracker(counter Counter, defaultWindow time.Duration) *Tracker {
	return &Tracker{
		counter:       counter,
		defaultWindow: defaultWindow,
		lastSeen:      make(map[string]time.Time),
		now:           time.Now,
	}
}

// BadgeCount counts records created after the section's last-seen marker.
// A section never marked falls back to the default window before now.
func (t *Tracker) BadgeCount(ctx context.Context, section string) (int, error) {
	t.mu.Lock()
	since, ok := t.lastSeen[section]
	if !ok {
		since = t.now().Add(-t.defaultWindow)
	}
	t.mu.Unlock()

	return t.counter.CountCreatedAfter(ctx, section, since)
}

func (t *Tracker) MarkSeen(section string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSeen[section] = t.now()
}

func (t *Tracker) LastSeen(section string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen, ok := t.lastSeen[section]
	return seen, ok
}
