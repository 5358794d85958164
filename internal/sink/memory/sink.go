// Package memory provides an in-memory output sink for tests and local
// development.
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/hapticlabs/hapticsync/internal/playback"
)

// WriteRecord captures one sink write with its wall-clock arrival time.
type WriteRecord struct {
	At    time.Time
	Value playback.Value
}

// Sink records every write. Safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	writes  []WriteRecord
	neutral playback.Value
	failAt  int
	failErr error
}

// New creates a Sink whose neutral value is 0.
func New() *Sink {
	return &Sink{failAt: -1}
}

// NewWithNeutral creates a Sink with a distinguished neutral value.
func NewWithNeutral(neutral playback.Value) *Sink {
	return &Sink{neutral: neutral, failAt: -1}
}

// FailAfter makes the sink reject the nth write (0-based) and every write
// after it, for fault-path tests.
func (s *Sink) FailAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = errors.New("sink failed")
	}
	s.failAt = n
	s.failErr = err
}

// Write records the value, or fails if fault injection is armed.
func (s *Sink) Write(v playback.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt >= 0 && len(s.writes) >= s.failAt {
		return s.failErr
	}
	s.writes = append(s.writes, WriteRecord{At: time.Now(), Value: v})
	return nil
}

// Neutral returns the configured neutral value.
func (s *Sink) Neutral() playback.Value {
	return s.neutral
}

// Writes returns a snapshot of recorded writes.
func (s *Sink) Writes() []WriteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WriteRecord, len(s.writes))
	copy(out, s.writes)
	return out
}

// Values returns just the written values, in order.
func (s *Sink) Values() []playback.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]playback.Value, len(s.writes))
	for i, w := range s.writes {
		out[i] = w.Value
	}
	return out
}
