package playback

import (
	"context"
	"time"
)

// Clock supplies the readings the session anchor is built from. The real
// implementation must return values carrying Go's monotonic clock reading.
type Clock interface {
	Now() time.Time
}

// OutputSink is one physical or visual output channel: a PWM vibration
// motor, a lyric display, or an in-memory recorder in tests. Write is the
// sole critical section of the engine and must be fast; callers serialize
// access through an Arbiter.
type OutputSink interface {
	Write(v Value) error
	// Neutral is the distinguished safe/off value for this channel.
	Neutral() Value
}

// AudioHandle is a running audio track. Done yields exactly one value when
// playback finishes: nil on natural completion, an error on device failure.
// Stop aborts playback early and is safe to call more than once.
type AudioHandle interface {
	Done() <-chan error
	Stop()
}

// AudioPlayer starts the audio output path. Play must begin producing audio
// as close as possible to the instant it returns, so the supervisor can
// capture the anchor immediately beforehand.
type AudioPlayer interface {
	Play(ctx context.Context) (AudioHandle, error)
}

// Hasher computes digests for transcript cache keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator produces session IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
