package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageSessionStart Stage = "SESSION_START"
	StageSessionDone  Stage = "SESSION_DONE"
	StageSessionError Stage = "SESSION_ERROR"
	StageStreamStart  Stage = "STREAM_START"
	StageStreamDone   Stage = "STREAM_DONE"
	StageApply        Stage = "EVENT_APPLIED"
)

// Event captures a single component of playback progress.
type Event struct {
	// SessionID uniquely identifies a playback session using the 16-byte UUID form.
	SessionID [16]byte
	// TS is the timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or dispatch milestone occurred.
	Stage Stage
	// Channel names the output channel (arbiter) written by an apply.
	Channel string
	// Stream names the event stream for stream and apply milestones.
	Stream string
	// Value is the payload written at an apply.
	Value float64
	// Offset is the scheduled offset of the applied event.
	Offset time.Duration
	// Drift is how late the apply landed relative to its deadline.
	Drift time.Duration
	// Late marks an event whose deadline had already passed when reached.
	Late bool
	// Dur carries session runtime for completion milestones.
	Dur time.Duration
	// Fault carries the fault kind for SESSION_ERROR.
	Fault string
	// Note lets emitters attach low-volume debug context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.SessionID == [16]byte{} {
		return errors.New("session id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageSessionStart, StageSessionDone:
	case StageSessionError:
		if e.Fault == "" {
			return errors.New("session error requires fault kind")
		}
	case StageStreamStart, StageStreamDone:
		if e.Stream == "" {
			return errors.New("stream milestone requires stream name")
		}
	case StageApply:
		if e.Channel == "" || e.Stream == "" {
			return errors.New("apply requires channel and stream")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// SessionUUID converts the binary session ID to uuid.UUID.
func (e Event) SessionUUID() uuid.UUID {
	return uuid.UUID(e.SessionID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
