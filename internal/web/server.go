package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"netmon/internal/store"
)

// Server exposes the recorded measurements read-only. It opens the log file
// independently per request, so the single-writer model of the store is
// unaffected.
type Server struct {
	store *store.CSV
	log   *slog.Logger
	now   func() time.Time
}

func NewServer(st *store.CSV, logger *slog.Logger) *Server {
	return &Server{store: st, log: logger, now: time.Now}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/measurements", s.handleMeasurements)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.Handle("/metrics", promhttp.Handler())
	return logMiddleware(mux, s.log)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	since := s.now().Add(-s.window(r))
	items, err := s.store.Recent(since)
	if err != nil {
		s.log.Error("read measurements", "err", err)
		http.Error(w, "failed to read measurements", http.StatusInternalServerError)
		return
	}
	writeJSON(w, items)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	since := s.now().Add(-s.window(r))
	items, err := s.store.ReadAll()
	if err != nil {
		s.log.Error("read measurements", "err", err)
		http.Error(w, "failed to read measurements", http.StatusInternalServerError)
		return
	}
	writeJSON(w, store.Summarize(items, since))
}

func (s *Server) window(r *http.Request) time.Duration {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			hours = parsed
		}
	}
	return time.Duration(hours) * time.Hour
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
