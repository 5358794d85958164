package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hapticlabs/hapticsync/internal/app"
	"github.com/hapticlabs/hapticsync/internal/metrics"
	"github.com/hapticlabs/hapticsync/internal/playback"
	"github.com/hapticlabs/hapticsync/internal/supervisor"
)

// Conductor assembles and controls playback sessions. *app.App satisfies it.
type Conductor interface {
	StartSession(ctx context.Context, req app.PlayRequest) (string, error)
	StopSession()
	Supervisor() *supervisor.Supervisor
}

// Server wires HTTP handlers to the conductor.
type Server struct {
	router    chi.Router
	conductor Conductor
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(conductor Conductor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	s := &Server{
		conductor: conductor,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Post("/play", s.playSession)
			r.Post("/stop", s.stopSession)
			r.Get("/status", s.sessionStatus)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The conductor is wired at startup or the process does not come up, so
	// readiness mirrors liveness for now.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type playRequest struct {
	AnalysisPath string `json:"analysis_path"`
	AudioPath    string `json:"audio_path,omitempty"`
}

func (s *Server) playSession(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.AnalysisPath == "" {
		writeError(w, http.StatusBadRequest, "analysis_path required")
		return
	}
	// The session must outlive this request; detach it from the request
	// context.
	id, err := s.conductor.StartSession(context.Background(), app.PlayRequest{
		AnalysisPath: req.AnalysisPath,
		AudioPath:    req.AudioPath,
	})
	if err != nil {
		if errors.Is(err, playback.ErrSessionActive) {
			writeError(w, http.StatusConflict, "a session is already running")
			return
		}
		s.logger.Error("session start failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": id})
}

func (s *Server) stopSession(w http.ResponseWriter, _ *http.Request) {
	sup := s.conductor.Supervisor()
	id, running := sup.CurrentSession()
	s.conductor.StopSession()
	if !running {
		writeJSON(w, http.StatusOK, map[string]string{"state": supervisor.StateIdle.String()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": id,
		"state":      supervisor.StateStopping.String(),
	})
}

type statusResponse struct {
	State      string         `json:"state"`
	SessionID  string         `json:"session_id,omitempty"`
	LastResult *resultPayload `json:"last_result,omitempty"`
}

type resultPayload struct {
	SessionID string `json:"session_id"`
	Fault     string `json:"fault,omitempty"`
	Error     string `json:"error,omitempty"`
	RuntimeMs int64  `json:"runtime_ms"`
}

func (s *Server) sessionStatus(w http.ResponseWriter, _ *http.Request) {
	sup := s.conductor.Supervisor()
	resp := statusResponse{State: sup.State().String()}
	if id, ok := sup.CurrentSession(); ok {
		resp.SessionID = id
	}
	if last := sup.LastResult(); last.SessionID != "" {
		payload := &resultPayload{
			SessionID: last.SessionID,
			RuntimeMs: last.Runtime.Milliseconds(),
		}
		if last.Err != nil {
			payload.Fault = string(last.Fault)
			payload.Error = last.Err.Error()
		}
		resp.LastResult = payload
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
