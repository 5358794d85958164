// Package main hosts the hapticsync service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and session
//     control endpoints. Play requests name an analysis document; the app
//     container assembles a session from it and hands it to the supervisor.
//   - Supervisor & dispatchers: one dispatcher goroutine per event stream
//     waits out each event's offset against a shared monotonic anchor and
//     writes through a channel arbiter, so concurrent streams driving the
//     same output resolve by last write wins. At most one session runs at a
//     time; Stop and faults both drain through the same teardown path and
//     every output ends at its neutral value.
//   - Audio: the beep backend decodes wav/mp3 and plays through the system
//     speaker; the stub backend times out silently for tests and dry runs.
//   - Persistence: word timings are cached in SQLite or Postgres keyed by
//     the SHA-256 of the audio file, so repeated plays of the same recording
//     skip transcription.
//   - Configuration & plumbing: Viper populates config from env/files; zap
//     provides structured logging; Prometheus metrics are exported via the
//     metrics middleware, the /metrics handler, and the progress sink.
//
// Operational notes:
//   - Concurrency model: fixed set of dispatcher goroutines per session,
//     torn down via context cancellation propagated from the supervisor.
//     Shutdown reacts to SIGINT/SIGTERM and stops any running session first.
//   - Hardware: the vibration channel drives a sysfs PWM pin; run with
//     haptic.enabled=false on machines without one.
//
// Quick checklist:
//   - Configure env vars with the HAPTICSYNC_ prefix: HAPTICSYNC_SERVER_PORT,
//     HAPTICSYNC_AUDIO_BACKEND, HAPTICSYNC_HAPTIC_ENABLED,
//     HAPTICSYNC_TRANSCRIPTS_PROVIDER, and friends.
//   - Run as a service: go run ./cmd/hapticsyncd -config config.yaml
//   - One-shot play: go run ./cmd/hapticsyncd -file analysis.json
package main
