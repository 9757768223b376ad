package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/proxyhealth/internal/httpapi/middleware"
	"github.com/hamed0406/proxyhealth/internal/repo"
	"github.com/hamed0406/proxyhealth/internal/report"
)

// RunFunc executes one full probe batch and returns its report. The server
// does not know about proxies or thresholds; it only triggers runs and
// serves what comes back.
type RunFunc func(ctx context.Context) *report.Report

type Server struct {
	Logger  *zap.Logger
	Runs    repo.RunStore
	RunOnce RunFunc

	Keys              middleware.Keys
	RequestsPerMinute int
	Burst             int
}

func NewServer(l *zap.Logger, runs repo.RunStore, runOnce RunFunc, keys middleware.Keys, rpm, burst int) *Server {
	return &Server{
		Logger:            l,
		Runs:              runs,
		RunOnce:           runOnce,
		Keys:              keys,
		RequestsPerMinute: rpm,
		Burst:             burst,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.RateLimit(s.RequestsPerMinute, s.Burst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAny(s.Keys))
		r.Get("/api/runs", s.handleListRuns)
		r.Get("/api/runs/latest", s.handleLatestRun)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(s.Keys))
		r.Post("/api/runs", s.handleTriggerRun)
	})

	return r
}

// handleTriggerRun executes a full batch synchronously. Probe batches are
// bounded by (retries+1)*(timeout+delay) per pair, so a blocking handler is
// acceptable for the on-demand use case.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	rep := s.RunOnce(r.Context())
	if err := s.Runs.Put(r.Context(), rep); err != nil {
		s.Logger.Warn("run_store_error", zap.Error(err))
	}

	s.Logger.Info("run_triggered",
		zap.String("run_id", rep.RunID),
		zap.Int("total", rep.Summary.TotalTests),
		zap.Float64("success_rate", rep.Summary.SuccessRate),
	)
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Runs.Latest(r.Context())
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	if rep == nil {
		http.Error(w, "no runs yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			n = parsed
		}
	}
	reps, err := s.Runs.Recent(r.Context(), n)
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reps)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
