package runtime

import (
	"sync"
	"time"

	"courier-lab/domain"
)

// Throttler samples progress notifications per status handle: at most one
// update per interval, extra events inside the window are dropped outright
// (no trailing replay). The per-handle timestamp also serializes writers on
// the same handle, so two updates are never in flight together.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[domain.StatusHandle]time.Time
	now      func() time.Time
}

func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		interval: interval,
		last:     make(map[domain.StatusHandle]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether a progress update for the handle may go out now,
// and opens a new window when it does.
func (t *Throttler) Allow(handle domain.StatusHandle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, ok := t.last[handle]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[handle] = now
	return true
}

// Forget discards the handle's timing record once its job is terminal,
// keeping the tracking map from growing without bound.
func (t *Throttler) Forget(handle domain.StatusHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, handle)
}
