// Package server exposes the use cases over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/runoshun/crew-board/internal/api"
	"github.com/runoshun/crew-board/internal/usecase"
)

// UseCases are the operations the API exposes.
type UseCases struct {
	RegisterProject *usecase.RegisterProject
	ListProjects    *usecase.ListProjects
	NewTask         *usecase.NewTask
	ListTasks       *usecase.ListTasks
	ShowTask        *usecase.ShowTask
	UpdateTask      *usecase.UpdateTask
	DeleteTask      *usecase.DeleteTask
	DispatchTask    *usecase.DispatchTask
	SessionEnded    *usecase.SessionEnded
	GetTerminalOpen *usecase.GetTerminalOpen
	SetTerminalOpen *usecase.SetTerminalOpen
	ListActiveTasks *usecase.ListActiveTasks
}

// Config holds server configuration.
type Config struct {
	// Address is the listen address (e.g., "127.0.0.1:7420").
	Address string

	// ShutdownTimeout is the maximum time to wait for connections to drain.
	// Defaults to 10 seconds if not specified.
	ShutdownTimeout time.Duration

	// ReadTimeout defaults to 10 seconds if not specified.
	ReadTimeout time.Duration

	// WriteTimeout defaults to 2 minutes if not specified.
	// Transitions merge branches synchronously and may take a while.
	WriteTimeout time.Duration
}

// Server serves the crew-board API.
type Server struct {
	httpServer      *http.Server
	uc              UseCases
	metrics         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New creates a server. A nil metrics handler disables /metrics.
func New(uc UseCases, metrics http.Handler, logger *slog.Logger, cfg Config) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		uc:              uc,
		metrics:         metrics,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/projects/{id}/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /api/projects/{id}/tasks/{taskId}", s.handleShowTask)
	mux.HandleFunc("PATCH /api/projects/{id}/tasks/{taskId}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /api/projects/{id}/tasks/{taskId}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/projects/{id}/tasks/{taskId}/dispatch", s.handleDispatchTask)
	mux.HandleFunc("POST /api/projects/{id}/tasks/{taskId}/session-ended", s.handleSessionEnded)
	mux.HandleFunc("GET /api/projects/{id}/terminal-open", s.handleGetTerminalOpen)
	mux.HandleFunc("PATCH /api/projects/{id}/terminal-open", s.handleSetTerminalOpen)
	mux.HandleFunc("GET /api/agent/tasks", s.handleActiveTasks)

	return s.logRequests(mux)
}

// Serve accepts connections on l until Shutdown.
// Returns http.ErrServerClosed when the server is shut down gracefully.
func (s *Server) Serve(l net.Listener) error {
	return s.httpServer.Serve(l)
}

// Start listens on the configured address and serves.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("listening", "addr", l.Addr().String())
	return s.Serve(l)
}

// Shutdown drains connections, bounded by the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpServer.SetKeepAlivesEnabled(false)
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}

func respondOK(w http.ResponseWriter, body any) {
	respondJSON(w, http.StatusOK, body)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, api.ErrorResponse{Error: message, Code: code})
}

// respondErr maps a use case error to its HTTP status.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := api.Classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondError(w, status, code, err.Error())
}

// decodeJSON reads the request body into v. It responds and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, api.CodeInvalidJSON, "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, api.CodeInvalidJSON, err.Error())
		return false
	}
	return true
}
