// Package api hosts the operator HTTP surface of the harvester:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /api/run for a progress snapshot of the current harvest.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/budget"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/engine"
	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/metrics"
)

// Server exposes read-only run observability endpoints.
type Server struct {
	router   chi.Router
	runID    string
	engine   *engine.Engine
	governor *budget.Governor
	logger   *zap.Logger
}

// NewServer wires the routes. The engine and governor may be nil while the
// run has not started; the snapshot endpoint degrades accordingly.
func NewServer(runID string, eng *engine.Engine, governor *budget.Governor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runID:    runID,
		engine:   eng,
		governor: governor,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/api/run", s.runSnapshot)
	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs the listener until ctx is canceled, then shuts down with a
// short grace period.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("Metrics server listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// runSnapshot reports the live cursor, item count, and per-event charges.
func (s *Server) runSnapshot(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run not started"})
		return
	}
	body := map[string]any{
		"runId":             s.runID,
		"scrapedPageNumber": s.engine.State().ScrapedPageNumber,
		"itemsEmitted":      s.engine.Emitted(),
	}
	if s.governor != nil {
		body["charges"] = s.governor.Counts()
		body["budgetExhausted"] = s.governor.Exhausted()
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Response write failed", zap.Error(err))
	}
}
