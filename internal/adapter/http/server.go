package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/climate-trigger-map/internal/pipeline"
	"github.com/couchcryptid/climate-trigger-map/internal/render"
)

// MapService renders the maps served by the HTTP server.
type MapService interface {
	sharedobs.ReadinessChecker
	TriggerMap(ctx context.Context) (*render.Artifact, error)
	MortalityMap(ctx context.Context, sel pipeline.Selection) (*render.Artifact, error)
	Periods() (pipeline.Periods, error)
}

// Server exposes the map pages plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	maps       MapService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the map routes, /healthz, /readyz, and /metrics.
func NewServer(addr string, maps MapService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		maps:   maps,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/mortality", http.StatusFound)
	})
	mux.HandleFunc("GET /triggers", s.handleTriggers)
	mux.HandleFunc("GET /mortality", s.handleMortality)
	mux.HandleFunc("GET /api/periods", s.handlePeriods)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(maps))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	art, err := s.maps.TriggerMap(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art)
}

// handleMortality serves the mortality map for ?year=&month=. A missing
// parameter falls back to the default period.
func (s *Server) handleMortality(w http.ResponseWriter, r *http.Request) {
	periods, err := s.maps.Periods()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sel := periods.Default
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		if sel.Year, err = strconv.Atoi(v); err != nil {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "year must be an integer"})
			return
		}
	}
	if v := q.Get("month"); v != "" {
		if sel.Month, err = strconv.Atoi(v); err != nil {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be an integer"})
			return
		}
	}

	art, err := s.maps.MortalityMap(r.Context(), sel)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art)
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := s.maps.Periods()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, periods)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrUnknownPeriod):
		status = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoResults):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrNotReady):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		sharedobs.WriteJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func writeArtifact(w http.ResponseWriter, art *render.Artifact) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Artifact-Id", art.ID)
	w.WriteHeader(http.StatusOK)
	art.WriteTo(w) //nolint:errcheck // client went away
}
