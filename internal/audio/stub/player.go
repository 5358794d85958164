// Package stub provides an audio player for machines without an audio
// device: it produces silence for a fixed duration and completes. Used in
// tests and for dry-running sessions.
package stub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hapticlabs/hapticsync/internal/playback"
)

// Player simulates a track of the configured duration.
type Player struct {
	duration time.Duration

	failAfter time.Duration
	failMsg   string
}

// New creates a Player whose track lasts for duration.
func New(duration time.Duration) *Player {
	return &Player{duration: duration}
}

// NewFailing creates a Player that fails with a playback fault after the
// given delay, for fault-path tests.
func NewFailing(after time.Duration, msg string) *Player {
	return &Player{duration: time.Hour, failAfter: after, failMsg: msg}
}

// Play starts the simulated track.
func (p *Player) Play(ctx context.Context) (playback.AudioHandle, error) {
	h := &handle{
		done: make(chan error, 1),
		stop: make(chan struct{}),
	}
	go p.run(ctx, h)
	return h, nil
}

func (p *Player) run(ctx context.Context, h *handle) {
	finished := time.NewTimer(p.duration)
	defer finished.Stop()

	var fail <-chan time.Time
	if p.failAfter > 0 {
		failTimer := time.NewTimer(p.failAfter)
		defer failTimer.Stop()
		fail = failTimer.C
	}

	select {
	case <-finished.C:
		h.done <- nil
	case <-fail:
		h.done <- fmt.Errorf("%s: %w", p.failMsg, playback.ErrPlaybackFault)
	case <-h.stop:
		h.done <- nil
	case <-ctx.Done():
		h.done <- ctx.Err()
	}
}

type handle struct {
	done     chan error
	stop     chan struct{}
	stopOnce sync.Once
}

func (h *handle) Done() <-chan error {
	return h.done
}

func (h *handle) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}
