// Package dispatcher drives one event stream against the session anchor.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/arbiter"
	"github.com/hapticlabs/hapticsync/internal/playback"
	"github.com/hapticlabs/hapticsync/internal/progress"
)

// Dispatcher paces a single stream: for each event it waits until the
// event's deadline relative to the anchor, applies the value to the arbiter,
// and for pulse streams holds for the settle duration before advancing. The
// remaining wait is recomputed from the anchor on every iteration rather than
// accumulated from prior sleeps, so scheduler jitter never compounds into
// drift over a multi-minute session.
type Dispatcher struct {
	stream    *playback.Stream
	anchor    *playback.Anchor
	arb       *arbiter.Arbiter
	sessionID [16]byte
	emitter   progress.Emitter
	logger    *zap.Logger
}

// Config carries the optional collaborators of a Dispatcher.
type Config struct {
	SessionID [16]byte
	Emitter   progress.Emitter
	Logger    *zap.Logger
}

// New constructs a Dispatcher. The stream is owned exclusively by the
// returned dispatcher and must not be shared.
func New(stream *playback.Stream, anchor *playback.Anchor, arb *arbiter.Arbiter, cfg Config) *Dispatcher {
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = progress.Discard{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		stream:    stream,
		anchor:    anchor,
		arb:       arb,
		sessionID: cfg.SessionID,
		emitter:   emitter,
		logger:    logger,
	}
}

// Run consumes the stream to exhaustion or until ctx is canceled. Events
// whose deadline has already passed are applied immediately, never skipped;
// the engine does not drop events to catch up. Cancellation aborts the
// current wait promptly. A rejected output write aborts the run with an
// error; end of stream is a clean nil return.
func (d *Dispatcher) Run(ctx context.Context) error {
	name := d.stream.Name()
	d.emitStream(progress.StageStreamStart, "")
	d.logger.Debug("dispatcher started",
		zap.String("stream", name),
		zap.String("channel", d.arb.Name()),
		zap.Int("events", d.stream.Len()),
	)

	for {
		ev, ok := d.stream.Next()
		if !ok {
			d.emitStream(progress.StageStreamDone, "")
			d.logger.Debug("stream exhausted", zap.String("stream", name))
			return nil
		}

		late := false
		if remaining := d.anchor.Until(ev.Offset); remaining > 0 {
			if err := sleepCtx(ctx, remaining); err != nil {
				return err
			}
		} else {
			late = true
		}

		if err := d.arb.Apply(ev.Value); err != nil {
			d.emitStream(progress.StageStreamDone, err.Error())
			return fmt.Errorf("dispatch %s: %w", name, err)
		}
		d.emitApply(ev, late)

		if hold := d.stream.Hold(); hold > 0 {
			if err := sleepCtx(ctx, hold); err != nil {
				return err
			}
		}
	}
}

// sleepCtx waits for d or until ctx is canceled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (d *Dispatcher) emitApply(ev playback.Event, late bool) {
	drift := d.anchor.Elapsed() - ev.Offset
	if drift < 0 {
		drift = 0
	}
	d.emitter.Emit(progress.Event{
		SessionID: d.sessionID,
		TS:        time.Now(),
		Stage:     progress.StageApply,
		Channel:   d.arb.Name(),
		Stream:    d.stream.Name(),
		Value:     float64(ev.Value),
		Offset:    ev.Offset,
		Drift:     drift,
		Late:      late,
	})
}

func (d *Dispatcher) emitStream(stage progress.Stage, note string) {
	d.emitter.Emit(progress.Event{
		SessionID: d.sessionID,
		TS:        time.Now(),
		Stage:     stage,
		Channel:   d.arb.Name(),
		Stream:    d.stream.Name(),
		Note:      note,
	})
}
