// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces that dispatchers and the supervisor use to report
// playback progress. It batches events on a background goroutine and fans
// them out to pluggable sinks such as Prometheus metrics or structured logs,
// without ever blocking the timing-sensitive dispatch loops.
package progress
