// Package beep plays audio files through the system speaker using
// faiface/beep. The speaker device is a process-wide singleton, so one
// Player serves one playback at a time; the supervisor already enforces a
// single active session.
package beep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/playback"
)

// Config controls the speaker backend.
type Config struct {
	// Path is the audio file to play. WAV and MP3 are supported, chosen by
	// extension.
	Path string
	// Buffer is the speaker buffer length. Shorter buffers cut latency at
	// the cost of underrun headroom. Defaults to 100ms.
	Buffer time.Duration
}

// Player decodes and plays one audio file per Play call.
type Player struct {
	cfg    Config
	logger *zap.Logger
}

// New returns a speaker-backed player. logger may be nil.
func New(cfg Config, logger *zap.Logger) (*Player, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audio path is required")
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{cfg: cfg, logger: logger}, nil
}

// Play decodes the configured file and starts it on the speaker. The
// returned handle's Done channel closes when the file finishes or Stop cuts
// it off.
func (p *Player) Play(ctx context.Context) (playback.AudioHandle, error) {
	stream, format, err := decode(p.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", playback.ErrPlaybackFault, err)
	}
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(p.cfg.Buffer)); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: init speaker: %v", playback.ErrPlaybackFault, err)
	}

	p.logger.Info("audio playback started",
		zap.String("file", p.cfg.Path),
		zap.Int("sample_rate", int(format.SampleRate)),
	)

	h := &handle{
		stream: stream,
		done:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		h.finish(nil)
	})))

	// The speaker has no context of its own; honor cancellation by cutting
	// playback the same way Stop does.
	go func() {
		select {
		case <-ctx.Done():
			h.Stop()
		case <-h.closed:
		}
	}()

	return h, nil
}

type handle struct {
	stream beep.StreamSeekCloser
	done   chan error
	once   sync.Once
	closed chan struct{}
}

func (h *handle) Done() <-chan error { return h.done }

// Stop silences the speaker and releases the decoder. Safe to call more
// than once and after natural completion.
func (h *handle) Stop() {
	h.finish(nil)
}

func (h *handle) finish(err error) {
	h.once.Do(func() {
		speaker.Clear()
		h.stream.Close()
		h.done <- err
		close(h.done)
		close(h.closed)
	})
}

func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open audio: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		stream, format, err := wav.Decode(f)
		if err != nil {
			f.Close()
			return nil, beep.Format{}, fmt.Errorf("decode wav: %w", err)
		}
		return stream, format, nil
	case ".mp3":
		stream, format, err := mp3.Decode(f)
		if err != nil {
			f.Close()
			return nil, beep.Format{}, fmt.Errorf("decode mp3: %w", err)
		}
		return stream, format, nil
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", ext)
	}
}
