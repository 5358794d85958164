package playback

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the playback fault taxonomy. Wrap these with
// fmt.Errorf("...: %w", ...) so callers can classify faults via errors.Is.
var (
	// ErrInvalidEventData marks a malformed stream rejected at construction,
	// before any session starts.
	ErrInvalidEventData = errors.New("invalid event data")

	// ErrAnchorUnavailable marks a clock that cannot supply a usable
	// monotonic reading. Fatal for session start.
	ErrAnchorUnavailable = errors.New("monotonic clock unavailable")

	// ErrOutputFault marks a rejected write on the shared output resource.
	ErrOutputFault = errors.New("output write rejected")

	// ErrPlaybackFault marks a failure in the audio playback collaborator.
	ErrPlaybackFault = errors.New("audio playback failed")

	// ErrSessionActive is returned when Play is called while a session is
	// already running.
	ErrSessionActive = errors.New("session already active")
)

// FaultKind is the coarse classification reported in a session Result.
type FaultKind string

// Session fault kinds.
const (
	FaultNone        FaultKind = "none"
	FaultInvalidData FaultKind = "invalid_event_data"
	FaultAnchor      FaultKind = "anchor_unavailable"
	FaultOutput      FaultKind = "output_fault"
	FaultPlayback    FaultKind = "playback_fault"
	FaultCanceled    FaultKind = "canceled"
	FaultUnknown     FaultKind = "unknown"
)

// ClassifyFault maps an error to its FaultKind. Context cancellation is
// reported as FaultCanceled; a nil error is FaultNone.
func ClassifyFault(err error) FaultKind {
	switch {
	case err == nil:
		return FaultNone
	case errors.Is(err, ErrInvalidEventData):
		return FaultInvalidData
	case errors.Is(err, ErrAnchorUnavailable):
		return FaultAnchor
	case errors.Is(err, ErrOutputFault):
		return FaultOutput
	case errors.Is(err, ErrPlaybackFault):
		return FaultPlayback
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FaultCanceled
	default:
		return FaultUnknown
	}
}

// StreamError describes why stream construction rejected its input.
type StreamError struct {
	Stream string
	Index  int
	Reason string
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %q event %d: %s", e.Stream, e.Index, e.Reason)
}

// Unwrap ties every StreamError to ErrInvalidEventData.
func (e *StreamError) Unwrap() error {
	return ErrInvalidEventData
}
