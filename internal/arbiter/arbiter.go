// Package arbiter wraps a shared output sink with last-write-wins semantics
// and a guaranteed neutral reset for teardown.
package arbiter

import (
	"fmt"
	"sync"

	"github.com/hapticlabs/hapticsync/internal/playback"
)

// Arbiter is the single shared mutable resource of a session: one physical
// or visual channel written by one or more dispatchers. Apply does not
// arbitrate by stream identity; whichever dispatcher writes last wins,
// including a curve sample landing mid-hold of a pulse. The sink write is the
// only critical section, entered briefly per event.
type Arbiter struct {
	name string
	sink playback.OutputSink

	mu    sync.Mutex
	last  playback.Value
	wrote bool
}

// New wires a sink into an Arbiter.
func New(name string, sink playback.OutputSink) *Arbiter {
	return &Arbiter{name: name, sink: sink}
}

// Name identifies the channel in logs and status reports.
func (a *Arbiter) Name() string { return a.name }

// Apply unconditionally overwrites the channel with v. A sink rejection is
// surfaced as ErrOutputFault so the supervisor tears the session down.
func (a *Arbiter) Apply(v playback.Value) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sink.Write(v); err != nil {
		return fmt.Errorf("channel %s write %v: %v: %w", a.name, v, err, playback.ErrOutputFault)
	}
	a.last = v
	a.wrote = true
	return nil
}

// Reset forces the channel to its neutral state. It is idempotent and safe
// to call from the teardown path while dispatchers are still mid-wait.
func (a *Arbiter) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	neutral := a.sink.Neutral()
	if err := a.sink.Write(neutral); err != nil {
		return fmt.Errorf("channel %s reset: %v: %w", a.name, err, playback.ErrOutputFault)
	}
	a.last = neutral
	a.wrote = true
	return nil
}

// Last reports the most recent value written, and whether any write has
// happened yet. Used by the status endpoint and tests.
func (a *Arbiter) Last() (playback.Value, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, a.wrote
}
