// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz / readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/session/play and /v1/session/stop for session control.
//   - GET /v1/session/status for the supervisor state and last result.
package api
