// Package playback defines the core types and interfaces of the
// timeline-synchronized playback engine: timestamped event streams, the
// monotonic session anchor, output sink contracts, and the fault taxonomy
// shared by dispatchers and the supervisor.
package playback
