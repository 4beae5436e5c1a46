package recorder

import "time"

// DefaultSampleInterval is the minimum spacing between accepted samples.
const DefaultSampleInterval = 5 * time.Second

// Throttle converts a raw fix stream into accepted samples at a minimum
// interval. The first fix of a session is always accepted; after that a fix
// is accepted only when at least the interval has elapsed on the wall clock
// since the last acceptance. Rejected fixes have no side effects.
type Throttle struct {
	interval time.Duration
	last     time.Time
	primed   bool
}

// NewThrottle creates a throttle with the given minimum interval.
// Non-positive intervals fall back to DefaultSampleInterval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Throttle{interval: interval}
}

// Accept reports whether a fix received at now should be promoted to a
// position, and records the acceptance if so. The decision uses receipt
// time, never the fix's own timestamp.
func (t *Throttle) Accept(now time.Time) bool {
	if t.primed && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	t.primed = true
	return true
}

// Reset forgets the last acceptance so the next fix is accepted
// unconditionally.
func (t *Throttle) Reset() {
	t.primed = false
	t.last = time.Time{}
}
