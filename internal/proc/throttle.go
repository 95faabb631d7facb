package proc

import (
	"sync"
	"time"
)

// throttle rate-limits live output callbacks to one per interval. The final
// flush at process exit bypasses it entirely.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	lastEmit time.Time
	now      func() time.Time // overridable in tests
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval, now: time.Now}
}

// Allow reports whether an emission is due, and if so records it.
func (t *throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.now()
	if !t.lastEmit.IsZero() && n.Sub(t.lastEmit) < t.interval {
		return false
	}
	t.lastEmit = n
	return true
}
