// Package supervisor orchestrates playback sessions: it captures the
// timeline anchor, runs one dispatcher per stream concurrently with the
// audio collaborator, and guarantees every output channel is reset to its
// neutral state on every exit path.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/arbiter"
	"github.com/hapticlabs/hapticsync/internal/dispatcher"
	"github.com/hapticlabs/hapticsync/internal/logging"
	"github.com/hapticlabs/hapticsync/internal/playback"
	"github.com/hapticlabs/hapticsync/internal/progress"
)

// State is the supervisor lifecycle state.
type State int32

// Supervisor states. The machine is Idle -> Running -> Stopping -> Idle and
// re-entrant: every Play call is a fresh session.
const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Channel pairs one event stream with the output arbiter it writes to.
// Multiple channels may share an arbiter (melody and beats both drive the
// vibration motor); last write wins.
type Channel struct {
	Stream  *playback.Stream
	Arbiter *arbiter.Arbiter
}

// Session groups everything one Play call runs: the streams, their output
// arbiters, and the audio collaborator. Sessions are single-use.
type Session struct {
	Channels []Channel
	Audio    playback.AudioPlayer
}

// Result describes how a session ended.
type Result struct {
	SessionID string
	Fault     playback.FaultKind
	Err       error
	Started   time.Time
	Runtime   time.Duration
}

// Supervisor runs at most one session at a time.
type Supervisor struct {
	clock   playback.Clock
	idGen   playback.IDGenerator
	emitter progress.Emitter
	logger  *zap.Logger

	mu      sync.Mutex
	state   State
	current string
	cancel  context.CancelFunc
	result  Result
}

// New constructs a Supervisor.
func New(clock playback.Clock, idGen playback.IDGenerator, emitter progress.Emitter, logger *zap.Logger) *Supervisor {
	if emitter == nil {
		emitter = progress.Discard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		clock:   clock,
		idGen:   idGen,
		emitter: emitter,
		logger:  logger,
	}
}

// State reports the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentSession returns the id of the running session, if any.
func (s *Supervisor) CurrentSession() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return "", false
	}
	return s.current, true
}

// LastResult returns the result of the most recently finished session.
func (s *Supervisor) LastResult() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Stop requests early termination of the running session. It signals all
// dispatchers to abort their current wait and returns immediately; the
// blocked Play call performs the teardown and returns once it completes.
// Calling Stop with no session running is a no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.state = StateStopping
	if s.cancel != nil {
		s.cancel()
	}
}

// run carries the per-session state once the supervisor slot is acquired.
type run struct {
	sup       *Supervisor
	sess      Session
	sessionID string
	rawID     [16]byte
	ctx       context.Context
	cancel    context.CancelFunc
}

// Play runs one session to completion and blocks until teardown finishes.
// The anchor is captured immediately before the dispatchers and the audio
// collaborator start, so all offsets are measured from the same instant.
// Faults are not retried: the first dispatcher fault, an audio failure, or
// Stop all drive the session through Stopping, and every arbiter is reset to
// neutral regardless of how the session ended.
func (s *Supervisor) Play(ctx context.Context, sess Session) (Result, error) {
	r, err := s.begin(ctx, sess)
	if err != nil {
		return Result{}, err
	}
	return r.do()
}

// Start launches the session in the background and returns its id as soon
// as the supervisor slot is acquired. The session's Result is available via
// LastResult after it finishes.
func (s *Supervisor) Start(ctx context.Context, sess Session) (string, error) {
	r, err := s.begin(ctx, sess)
	if err != nil {
		return "", err
	}
	go func() {
		if _, runErr := r.do(); runErr != nil && !errors.Is(runErr, context.Canceled) {
			s.logger.Warn("background session failed",
				zap.String("session_id", r.sessionID),
				zap.Error(runErr),
			)
		}
	}()
	return r.sessionID, nil
}

// begin validates the session and claims the single supervisor slot.
func (s *Supervisor) begin(ctx context.Context, sess Session) (*run, error) {
	if sess.Audio == nil {
		return nil, errors.New("session has no audio player")
	}

	sessionID, rawID := s.newSessionID()

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, playback.ErrSessionActive
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.state = StateRunning
	s.current = sessionID
	s.cancel = cancel
	s.mu.Unlock()

	return &run{
		sup:       s,
		sess:      sess,
		sessionID: sessionID,
		rawID:     rawID,
		ctx:       runCtx,
		cancel:    cancel,
	}, nil
}

func (r *run) do() (Result, error) {
	s := r.sup
	started := s.clock.Now()
	res := Result{SessionID: r.sessionID, Started: started}
	logger := logging.ForSession(s.logger, r.sessionID)

	arbiters := distinctArbiters(r.sess.Channels)
	// Neutral reset and the return to Idle happen on every exit path,
	// fault or not.
	defer func() {
		for _, arb := range arbiters {
			if rErr := arb.Reset(); rErr != nil {
				logger.Warn("output reset failed",
					zap.String("channel", arb.Name()),
					zap.Error(rErr),
				)
			}
		}
		r.cancel()
		s.mu.Lock()
		s.state = StateIdle
		s.current = ""
		s.cancel = nil
		s.result = res
		s.mu.Unlock()
	}()

	anchor, err := playback.NewAnchor(s.clock)
	if err != nil {
		res.Fault = playback.ClassifyFault(err)
		res.Err = err
		s.emitSessionEnd(r.rawID, res)
		return res, err
	}

	s.emitter.Emit(progress.Event{
		SessionID: r.rawID,
		TS:        time.Now(),
		Stage:     progress.StageSessionStart,
	})
	logger.Info("session started", zap.Int("channels", len(r.sess.Channels)))

	faultCh := make(chan error, len(r.sess.Channels))
	var wg sync.WaitGroup
	for _, ch := range r.sess.Channels {
		d := dispatcher.New(ch.Stream, anchor, ch.Arbiter, dispatcher.Config{
			SessionID: r.rawID,
			Emitter:   s.emitter,
			Logger:    logger,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if runErr := d.Run(r.ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				select {
				case faultCh <- runErr:
				default:
				}
			}
		}()
	}

	handle, err := r.sess.Audio.Play(r.ctx)
	if err != nil {
		if !errors.Is(err, playback.ErrPlaybackFault) {
			err = fmt.Errorf("start audio: %v: %w", err, playback.ErrPlaybackFault)
		}
		r.cancel()
		wg.Wait()
		res.Fault = playback.ClassifyFault(err)
		res.Err = err
		res.Runtime = s.clock.Now().Sub(started)
		s.emitSessionEnd(r.rawID, res)
		return res, err
	}

	var sessionErr error
	select {
	case audioErr := <-handle.Done():
		if audioErr != nil && !errors.Is(audioErr, context.Canceled) {
			if !errors.Is(audioErr, playback.ErrPlaybackFault) {
				audioErr = fmt.Errorf("audio: %v: %w", audioErr, playback.ErrPlaybackFault)
			}
			sessionErr = audioErr
		}
	case dispatchErr := <-faultCh:
		sessionErr = dispatchErr
	case <-r.ctx.Done():
		sessionErr = r.ctx.Err()
	}

	s.mu.Lock()
	s.state = StateStopping
	s.mu.Unlock()

	r.cancel()
	handle.Stop()
	wg.Wait()

	res.Runtime = s.clock.Now().Sub(started)
	res.Err = sessionErr
	res.Fault = playback.ClassifyFault(sessionErr)
	s.emitSessionEnd(r.rawID, res)

	if sessionErr != nil {
		logger.Warn("session ended with fault",
			zap.String("fault", string(res.Fault)),
			zap.Duration("runtime", res.Runtime),
			zap.Error(sessionErr),
		)
		return res, sessionErr
	}
	logger.Info("session completed", zap.Duration("runtime", res.Runtime))
	return res, nil
}

func (s *Supervisor) newSessionID() (string, [16]byte) {
	if s.idGen != nil {
		if id, err := s.idGen.NewID(); err == nil {
			if parsed, pErr := uuid.Parse(id); pErr == nil {
				return id, progress.UUIDToBytes(parsed)
			}
			return id, [16]byte{}
		}
	}
	fallback := uuid.New()
	return fallback.String(), progress.UUIDToBytes(fallback)
}

func (s *Supervisor) emitSessionEnd(rawID [16]byte, res Result) {
	evt := progress.Event{
		SessionID: rawID,
		TS:        time.Now(),
		Stage:     progress.StageSessionDone,
		Dur:       res.Runtime,
	}
	if res.Err != nil {
		evt.Stage = progress.StageSessionError
		evt.Fault = string(res.Fault)
		evt.Note = res.Err.Error()
	}
	s.emitter.Emit(evt)
}

func distinctArbiters(channels []Channel) []*arbiter.Arbiter {
	seen := make(map[*arbiter.Arbiter]struct{}, len(channels))
	out := make([]*arbiter.Arbiter, 0, len(channels))
	for _, ch := range channels {
		if ch.Arbiter == nil {
			continue
		}
		if _, ok := seen[ch.Arbiter]; ok {
			continue
		}
		seen[ch.Arbiter] = struct{}{}
		out = append(out, ch.Arbiter)
	}
	return out
}
