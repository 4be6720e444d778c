// Package httpapi serves wrapped definition views over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/withdef/internal/ir"
	"github.com/roach88/withdef/internal/withdef"
)

// DefaultTimeout bounds how long a def request waits for its record.
const DefaultTimeout = 5 * time.Second

// Store is the slice of the definition store the server uses.
type Store interface {
	withdef.Store
	SetHighlighted(spec string)
	ClearHighlighted()
}

// Server routes def requests to short-lived containers.
type Server struct {
	store      Store
	dispatcher withdef.Dispatcher
	reporter   withdef.StatusReporter
	health     func(context.Context) error
	timeout    time.Duration
	router     *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

// WithTimeout sets how long a def request waits for its record to settle.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithStatusReporter sets the reporter handed to every container.
func WithStatusReporter(r withdef.StatusReporter) Option {
	return func(s *Server) {
		s.reporter = r
	}
}

// WithHealthCheck sets the probe behind GET /healthz.
func WithHealthCheck(fn func(context.Context) error) Option {
	return func(s *Server) {
		s.health = fn
	}
}

// New creates a Server.
func New(store Store, dispatcher withdef.Dispatcher, opts ...Option) *Server {
	s := &Server{
		store:      store,
		dispatcher: dispatcher,
		reporter:   withdef.LogReporter{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/defs/*", s.handleDef)
	r.Route("/highlight", func(r chi.Router) {
		r.Get("/", s.handleGetHighlight)
		r.Put("/", s.handlePutHighlight)
		r.Delete("/", s.handleDeleteHighlight)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("http server shutting down", "addr", addr)
		return srv.Shutdown(shutdownCtx)
	}
}

// handleDef serves GET /defs/{repo}@{rev}/-/def/{path}. The container sees
// the same splat a router would give it: the repo/rev part and the def path.
func (s *Server) handleDef(w http.ResponseWriter, r *http.Request) {
	spec := chi.URLParam(r, "*")
	props, ok := withdef.PropsFromSpec(spec)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid def spec %q", spec))
		return
	}

	view, err := s.Resolve(r.Context(), props)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, view)
	case err != nil:
		// Client went away; nobody is listening.
		slog.Debug("def request abandoned", "spec", spec, "error", err)
	case view.Unavailable():
		writeJSON(w, statusFor(view.Code), view)
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

// Resolve runs one container for props, bounded by the server timeout.
func (s *Server) Resolve(ctx context.Context, props withdef.Props) (withdef.View, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return withdef.Resolve(ctx, s.store, s.dispatcher, withdef.SummaryComponent, props,
		withdef.WithStatusReporter(s.reporter),
	)
}

type highlightRequest struct {
	Spec string `json:"spec"`
}

func (s *Server) handleGetHighlight(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, highlightRequest{Spec: s.store.Highlighted()})
}

func (s *Server) handlePutHighlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if _, ok := ir.ParseDefSpec(req.Spec); !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid def spec %q", req.Spec))
		return
	}

	s.store.SetHighlighted(req.Spec)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteHighlight(w http.ResponseWriter, _ *http.Request) {
	s.store.ClearHighlighted()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor keeps formatter codes that are not HTTP statuses off the wire.
func statusFor(code int) int {
	if code < 400 || code > 599 {
		return http.StatusInternalServerError
	}
	return code
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs one slog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
