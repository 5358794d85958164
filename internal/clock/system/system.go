// Package system provides a real clock implementation.
package system

import "time"

// Clock implements playback.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time. The value keeps Go's monotonic clock reading
// (no UTC or Round conversion), so anchor arithmetic is immune to wall-clock
// adjustments.
func (Clock) Now() time.Time {
	return time.Now()
}
