package playback

import (
	"fmt"
	"time"
)

// Anchor is the single monotonic timestamp all event offsets are measured
// against. It is captured once, immediately before the dispatchers and the
// audio collaborator start, and is read-only afterwards, so it may be shared
// across goroutines without synchronization.
type Anchor struct {
	clock Clock
	t0    time.Time
}

// NewAnchor captures t0 from the clock. It takes two readings and rejects a
// clock that steps backwards between them, since offsets computed against a
// non-monotonic source would drift with wall-clock adjustments.
func NewAnchor(clock Clock) (*Anchor, error) {
	first := clock.Now()
	t0 := clock.Now()
	if t0.Before(first) {
		return nil, fmt.Errorf("clock stepped backwards: %w", ErrAnchorUnavailable)
	}
	return &Anchor{clock: clock, t0: t0}, nil
}

// Elapsed returns time since t0 using the monotonic source.
func (a *Anchor) Elapsed() time.Duration {
	return a.clock.Now().Sub(a.t0)
}

// Until returns how long until the given offset's deadline. Negative results
// mean the deadline has already passed. Dispatchers recompute this fresh on
// every iteration instead of accumulating sleep durations.
func (a *Anchor) Until(offset time.Duration) time.Duration {
	return offset - a.Elapsed()
}
