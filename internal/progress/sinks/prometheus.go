package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hapticlabs/hapticsync/internal/progress"
)

// PrometheusSink exports playback progress metrics via Prometheus. It owns
// all collectors for sessions started/completed/running and per-channel
// dispatch counters and drift histograms.
type PrometheusSink struct {
	sessionsStarted   prometheus.Counter
	sessionsCompleted *prometheus.CounterVec
	sessionsRunning   prometheus.Gauge
	sessionRuntime    *prometheus.HistogramVec

	eventsApplied *prometheus.CounterVec
	dispatchDrift *prometheus.HistogramVec
	lateEvents    *prometheus.CounterVec

	tracker *sessionTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hapticsync_sessions_started_total",
			Help: "Total playback sessions that have started.",
		}),
		sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hapticsync_sessions_completed_total",
			Help: "Total playback sessions completed partitioned by result.",
		}, []string{"result"}),
		sessionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hapticsync_sessions_running",
			Help: "Current number of running playback sessions.",
		}),
		sessionRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hapticsync_session_runtime_seconds",
			Help:    "Wall time per completed session.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"result"}),
		eventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hapticsync_events_applied_total",
			Help: "Dispatched events partitioned by channel and stream.",
		}, []string{"channel", "stream"}),
		dispatchDrift: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hapticsync_dispatch_drift_seconds",
			Help:    "Lateness of event application relative to its deadline.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"channel"}),
		lateEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hapticsync_late_events_total",
			Help: "Events whose deadline had already passed when reached.",
		}, []string{"channel"}),
		tracker: newSessionTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.sessionsStarted,
		s.sessionsCompleted,
		s.sessionsRunning,
		s.sessionRuntime,
		s.eventsApplied,
		s.dispatchDrift,
		s.lateEvents,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageSessionStart, progress.StageSessionDone, progress.StageSessionError:
		s.handleSessionEvent(evt)
	case progress.StageApply:
		s.handleApplyEvent(evt)
	}
}

func (s *PrometheusSink) handleSessionEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageSessionStart:
		s.sessionsStarted.Inc()
		if s.tracker.start(evt.SessionID) {
			s.sessionsRunning.Inc()
		}
	case progress.StageSessionDone:
		s.sessionsCompleted.WithLabelValues("success").Inc()
		s.observeRuntime(evt, "success")
	case progress.StageSessionError:
		s.sessionsCompleted.WithLabelValues(evt.Fault).Inc()
		s.observeRuntime(evt, evt.Fault)
	}
	if evt.Stage != progress.StageSessionStart && s.tracker.complete(evt.SessionID) {
		s.sessionsRunning.Dec()
	}
}

func (s *PrometheusSink) observeRuntime(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.sessionRuntime.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) handleApplyEvent(evt progress.Event) {
	s.eventsApplied.WithLabelValues(evt.Channel, evt.Stream).Inc()
	if evt.Drift > 0 {
		s.dispatchDrift.WithLabelValues(evt.Channel).Observe(evt.Drift.Seconds())
	}
	if evt.Late {
		s.lateEvents.WithLabelValues(evt.Channel).Inc()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type sessionTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newSessionTracker() *sessionTracker {
	return &sessionTracker{running: make(map[[16]byte]struct{})}
}

func (t *sessionTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *sessionTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
