package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/progress"
)

// LogSink emits structured logs for debugging playback sessions. Apply
// events are logged at debug level (a dense melody curve produces hundreds
// per second); lifecycle milestones are logged at info.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("session_id", evt.SessionUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("channel", evt.Channel),
			zap.String("stream", evt.Stream),
			zap.Float64("value", evt.Value),
			zap.Duration("offset", evt.Offset),
			zap.Duration("drift", evt.Drift),
			zap.Bool("late", evt.Late),
			zap.Duration("dur", evt.Dur),
			zap.String("fault", evt.Fault),
			zap.String("note", evt.Note),
		}
		if evt.Stage == progress.StageApply {
			s.logger.Debug("playback event", fields...)
			continue
		}
		s.logger.Info("playback event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
