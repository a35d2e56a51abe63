package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/plan"
	"git.home.luguber.info/inful/conveyor/internal/runstore"
)

// HTTPServer exposes daemon status, run history and optional metrics.
type HTTPServer struct {
	addr       string
	daemon     *Daemon
	projection *runstore.HistoryProjection
	metrics    http.Handler // nil disables /metrics
	server     *http.Server
}

// NewHTTPServer creates the status server. metricsHandler may be nil.
func NewHTTPServer(addr string, d *Daemon, projection *runstore.HistoryProjection, metricsHandler http.Handler) *HTTPServer {
	return &HTTPServer{
		addr:       addr,
		daemon:     d,
		projection: projection,
		metrics:    metricsHandler,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	mux.HandleFunc("POST /api/trigger", s.handleTrigger)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start begins serving in the background.
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	slog.Info("starting status server", slog.String("addr", s.addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status server failed", logfields.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	slog.Info("stopping status server")
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *HTTPServer) handleRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.projection.History())
}

func (s *HTTPServer) handleRun(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.projection.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Workflow string `json:"workflow"`
		Branch   string `json:"branch,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.Workflow == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workflow is required"})
		return
	}
	job := &RunJob{
		ID:        uuid.NewString(),
		Workflow:  req.Workflow,
		Kind:      KindManual,
		Trigger:   plan.TriggerEvent{Event: plan.EventManual, Branch: req.Branch},
		CreatedAt: time.Now(),
	}
	if err := s.daemon.Enqueue(job); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", logfields.Error(err))
	}
}
