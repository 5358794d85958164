// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/analysis"
	"github.com/hapticlabs/hapticsync/internal/arbiter"
	audiobeep "github.com/hapticlabs/hapticsync/internal/audio/beep"
	audiostub "github.com/hapticlabs/hapticsync/internal/audio/stub"
	"github.com/hapticlabs/hapticsync/internal/clock/system"
	"github.com/hapticlabs/hapticsync/internal/config"
	"github.com/hapticlabs/hapticsync/internal/hash/sha256"
	uuidgen "github.com/hapticlabs/hapticsync/internal/id/uuid"
	"github.com/hapticlabs/hapticsync/internal/logging"
	"github.com/hapticlabs/hapticsync/internal/playback"
	"github.com/hapticlabs/hapticsync/internal/progress"
	progresssinks "github.com/hapticlabs/hapticsync/internal/progress/sinks"
	"github.com/hapticlabs/hapticsync/internal/sink/lyric"
	"github.com/hapticlabs/hapticsync/internal/sink/pwm"
	"github.com/hapticlabs/hapticsync/internal/supervisor"
	"github.com/hapticlabs/hapticsync/internal/transcript"
	transcriptnoop "github.com/hapticlabs/hapticsync/internal/transcript/noop"
	transcriptpg "github.com/hapticlabs/hapticsync/internal/transcript/postgres"
	transcriptsqlite "github.com/hapticlabs/hapticsync/internal/transcript/sqlite"
)

// App holds all the shared, long-lived services for the application. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    transcript.Store
	hub      *progress.Hub
	sup      *supervisor.Supervisor
	words    *analysis.WordSource
	haptic   *pwm.Sink
	lyricsW  io.Writer
	registry prometheus.Registerer
}

// Option adjusts App construction, mainly for tests.
type Option func(*App)

// WithLyricsWriter redirects the karaoke line away from stdout.
func WithLyricsWriter(w io.Writer) Option {
	return func(a *App) { a.lyricsW = w }
}

// WithRegistry registers playback metrics against a custom registry instead
// of the process-wide default.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(a *App) { a.registry = reg }
}

// New creates and initializes an App based on the loaded configuration. It
// is the central point for service initialization and fails fast if any
// critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development)
		if err != nil {
			return nil, err
		}
	}
	logger.Info("initializing services")

	a := &App{
		cfg:     cfg,
		logger:  logger,
		lyricsW: os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	// Transcript cache provider.
	var err error
	switch cfg.Transcripts.Provider {
	case "sqlite":
		logger.Info("using sqlite transcript cache", zap.String("path", cfg.Transcripts.SQLitePath))
		a.store, err = transcriptsqlite.Open(cfg.Transcripts.SQLitePath)
	case "postgres":
		logger.Info("using postgres transcript cache")
		a.store, err = transcriptpg.New(ctx, transcriptpg.Config{DSN: cfg.Transcripts.PostgresDSN})
	case "noop":
		logger.Info("transcript caching disabled")
		a.store = transcriptnoop.New()
	default:
		return nil, fmt.Errorf("unknown transcript provider: %s", cfg.Transcripts.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize transcript cache: %w", err)
	}

	// Haptic output. Opened once; sessions share the channel through
	// per-session arbiters.
	if cfg.Haptic.Enabled {
		a.haptic, err = pwm.Open(pwm.Config{
			Chip:    cfg.Haptic.Chip,
			Channel: cfg.Haptic.Channel,
			FreqHz:  cfg.Haptic.FreqHz,
		}, logger)
		if err != nil {
			a.closePartial()
			return nil, fmt.Errorf("initialize pwm output: %w", err)
		}
	}

	// Progress pipeline: structured logs always, Prometheus always.
	promSink, err := progresssinks.NewPrometheusSink(a.registry)
	if err != nil {
		a.closePartial()
		return nil, fmt.Errorf("register playback metrics: %w", err)
	}
	a.hub = progress.NewHub(progress.Config{
		BufferSize:     cfg.Progress.BufferSize,
		MaxBatchEvents: cfg.Progress.MaxBatchEvents,
		MaxBatchWait:   time.Duration(cfg.Progress.MaxBatchWaitMs) * time.Millisecond,
		Logger:         logger,
	},
		progresssinks.NewLogSink(logger),
		promSink,
	)

	a.words = analysis.NewWordSource(sha256.New(), a.store, logger)
	a.sup = supervisor.New(system.New(), uuidgen.New(), a.hub, logger)

	logger.Info("services initialized")
	return a, nil
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger { return a.logger }

// Supervisor returns the session supervisor.
func (a *App) Supervisor() *supervisor.Supervisor { return a.sup }

// TranscriptStore exposes the configured transcript cache.
func (a *App) TranscriptStore() transcript.Store { return a.store }

// PlayRequest names the analysis document to play. AudioPath overrides the
// audio location; when empty the file named by the document is resolved
// relative to the document.
type PlayRequest struct {
	AnalysisPath string
	AudioPath    string
}

// StartSession assembles and launches a playback session in the background,
// returning its id.
func (a *App) StartSession(ctx context.Context, req PlayRequest) (string, error) {
	sess, err := a.buildSession(ctx, req)
	if err != nil {
		return "", err
	}
	return a.sup.Start(ctx, sess)
}

// PlaySession assembles and runs a playback session, blocking until it
// finishes. Used by the one-shot CLI mode.
func (a *App) PlaySession(ctx context.Context, req PlayRequest) (supervisor.Result, error) {
	sess, err := a.buildSession(ctx, req)
	if err != nil {
		return supervisor.Result{}, err
	}
	return a.sup.Play(ctx, sess)
}

// StopSession requests early termination of the running session, if any.
func (a *App) StopSession() {
	a.sup.Stop()
}

func (a *App) buildSession(ctx context.Context, req PlayRequest) (supervisor.Session, error) {
	doc, err := analysis.Load(req.AnalysisPath)
	if err != nil {
		return supervisor.Session{}, err
	}
	audioPath := req.AudioPath
	if audioPath == "" {
		audioPath = filepath.Join(filepath.Dir(req.AnalysisPath), doc.File)
	}

	var channels []supervisor.Channel

	if a.cfg.Haptic.Enabled {
		params := analysis.HapticParams{
			BeatDuty:      a.cfg.Haptic.BeatDuty,
			BeatHold:      a.cfg.BeatPulse(),
			MelodyMinDuty: a.cfg.Haptic.MelodyMinDuty,
			MelodyMaxDuty: a.cfg.Haptic.MelodyMaxDuty,
		}
		vibration := arbiter.New("vibration", a.haptic)
		if len(doc.Melody) > 0 {
			melody, mErr := analysis.MelodyStream(doc, params)
			if mErr != nil {
				return supervisor.Session{}, mErr
			}
			channels = append(channels, supervisor.Channel{Stream: melody, Arbiter: vibration})
		}
		if len(doc.Beats) > 0 {
			beats, bErr := analysis.BeatStream(doc, params)
			if bErr != nil {
				return supervisor.Session{}, bErr
			}
			channels = append(channels, supervisor.Channel{Stream: beats, Arbiter: vibration})
		}
	}

	if a.cfg.Lyrics.Enabled {
		words, wErr := a.words.Words(ctx, audioPath, doc)
		if wErr != nil {
			return supervisor.Session{}, wErr
		}
		if len(words) > 0 {
			stream, sErr := analysis.WordStream(words)
			if sErr != nil {
				return supervisor.Session{}, sErr
			}
			sink := lyric.New(a.lyricsW, words, a.cfg.Lyrics.Color)
			channels = append(channels, supervisor.Channel{
				Stream:  stream,
				Arbiter: arbiter.New("lyrics", sink),
			})
		}
	}

	audio, err := a.buildAudio(audioPath, doc)
	if err != nil {
		return supervisor.Session{}, err
	}
	return supervisor.Session{Channels: channels, Audio: audio}, nil
}

func (a *App) buildAudio(audioPath string, doc analysis.Document) (playback.AudioPlayer, error) {
	switch a.cfg.Audio.Backend {
	case "beep":
		return audiobeep.New(audiobeep.Config{
			Path:   audioPath,
			Buffer: a.cfg.AudioBuffer(),
		}, a.logger)
	case "stub":
		return audiostub.New(timelineExtent(doc)), nil
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", a.cfg.Audio.Backend)
	}
}

// timelineExtent estimates how long the stub backend should pretend to play:
// the last event on any track plus a grace period.
func timelineExtent(doc analysis.Document) time.Duration {
	var last float64
	if n := len(doc.Melody); n > 0 && doc.Melody[n-1].Time > last {
		last = doc.Melody[n-1].Time
	}
	if n := len(doc.Beats); n > 0 && doc.Beats[n-1] > last {
		last = doc.Beats[n-1]
	}
	if n := len(doc.Words); n > 0 && doc.Words[n-1].End > last {
		last = doc.Words[n-1].End
	}
	return time.Duration(last*float64(time.Second)) + 500*time.Millisecond
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	a.logger.Info("shutting down services")
	if a.hub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("error draining progress hub", zap.Error(err))
		}
		cancel()
	}
	a.closePartial()
	// Flush buffered log entries before the process exits.
	_ = a.logger.Sync()
}

func (a *App) closePartial() {
	if a.haptic != nil {
		if err := a.haptic.Close(); err != nil {
			a.logger.Warn("error closing pwm output", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("error closing transcript cache", zap.Error(err))
		}
	}
}
