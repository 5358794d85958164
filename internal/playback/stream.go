package playback

import (
	"math"
	"time"
)

// Value is the payload a dispatched event writes to an output channel:
// a vibration duty percentage for haptic channels, a word index for the
// lyric channel.
type Value float64

// Event is a single timestamped effect command. Offset is measured from
// session start (anchor t0), not wall clock.
type Event struct {
	Offset time.Duration
	Value  Value
}

// StreamKind distinguishes the two pacing behaviors a dispatcher supports.
type StreamKind string

const (
	// KindCurve marks a dense, regularly sampled stream where every sample
	// is a write (e.g. the melody intensity curve).
	KindCurve StreamKind = "curve"

	// KindPulse marks a sparse stream whose events are followed by a settle
	// hold before the next wait begins (e.g. beat pulses).
	KindPulse StreamKind = "pulse"
)

// Stream is an ordered, finite, one-shot sequence of events. It is owned
// exclusively by its dispatcher and consumed exactly once per session; a new
// session rebuilds its streams.
type Stream struct {
	name   string
	kind   StreamKind
	hold   time.Duration
	events []Event
	pos    int
}

// NewCurveStream validates and wraps a dense sample sequence.
func NewCurveStream(name string, events []Event) (*Stream, error) {
	if err := validateEvents(name, events); err != nil {
		return nil, err
	}
	return &Stream{name: name, kind: KindCurve, events: events}, nil
}

// NewPulseStream validates and wraps a sparse pulse sequence. Each dispatched
// pulse is followed by the hold duration before the stream advances. A zero
// hold is allowed; negative holds are rejected.
func NewPulseStream(name string, hold time.Duration, events []Event) (*Stream, error) {
	if hold < 0 {
		return nil, &StreamError{Stream: name, Index: -1, Reason: "negative hold duration"}
	}
	if err := validateEvents(name, events); err != nil {
		return nil, err
	}
	return &Stream{name: name, kind: KindPulse, hold: hold, events: events}, nil
}

func validateEvents(name string, events []Event) error {
	for i, ev := range events {
		if ev.Offset < 0 {
			return &StreamError{Stream: name, Index: i, Reason: "negative offset"}
		}
		if math.IsNaN(float64(ev.Value)) {
			return &StreamError{Stream: name, Index: i, Reason: "NaN value"}
		}
		if i > 0 && ev.Offset < events[i-1].Offset {
			return &StreamError{Stream: name, Index: i, Reason: "offsets not sorted"}
		}
	}
	return nil
}

// Next returns the next event, or ok=false once the stream is exhausted.
// Streams are not restartable.
func (s *Stream) Next() (Event, bool) {
	if s.pos >= len(s.events) {
		return Event{}, false
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, true
}

// Name identifies the stream in logs and progress events.
func (s *Stream) Name() string { return s.name }

// Kind reports the pacing behavior.
func (s *Stream) Kind() StreamKind { return s.kind }

// Hold is the settle duration applied after each pulse; zero for curves.
func (s *Stream) Hold() time.Duration { return s.hold }

// Len is the total number of events the stream was built with.
func (s *Stream) Len() int { return len(s.events) }

// OffsetFromSeconds converts an analysis offset in float seconds to a
// Duration, rejecting NaN and negative inputs before stream construction.
func OffsetFromSeconds(s float64) (time.Duration, error) {
	if math.IsNaN(s) {
		return 0, &StreamError{Index: -1, Reason: "NaN offset"}
	}
	if s < 0 {
		return 0, &StreamError{Index: -1, Reason: "negative offset"}
	}
	return time.Duration(s * float64(time.Second)), nil
}
