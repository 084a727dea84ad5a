package studyd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/report"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/study"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/sweep"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/protobuf/types/known/structpb"
)

type HTTPServer struct {
	mux   *http.ServeMux
	store *ReportStore
}

// NewHTTPServer serves the reports in store. A nil gatherer disables /metrics.
func NewHTTPServer(store *ReportStore, gatherer prometheus.Gatherer) *HTTPServer {
	s := &HTTPServer{
		mux:   http.NewServeMux(),
		store: store,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/sweeps", s.handleSweeps)
	s.mux.HandleFunc("/v1/table", s.handleTable)
	s.mux.HandleFunc("/v1/table/", s.handleCell)
	s.mux.HandleFunc("/v1/cells/", s.handleCellByID)
	if gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSweeps handles GET /v1/sweeps
func (s *HTTPServer) handleSweeps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sweeps": s.store.IDs(),
	})
}

// handleTable handles GET /v1/table, optionally ?sweep_id=
func (s *HTTPServer) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rep, err := s.store.Lookup(r.URL.Query().Get("sweep_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	st, err := report.TableStruct(rep)
	if err != nil {
		logger.Error("table export failed", "sweep_id", rep.SweepID, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeStruct(w, st)
}

// handleCell handles GET /v1/table/{configuration}/{policy}
func (s *HTTPServer) handleCell(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/table/")
	configuration, policy, ok := strings.Cut(path, "/")
	if !ok || configuration == "" || policy == "" || strings.Contains(policy, "/") {
		s.writeError(w, http.StatusBadRequest, "path must be /v1/table/{configuration}/{policy}")
		return
	}

	rep, err := s.store.Lookup(r.URL.Query().Get("sweep_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeCell(w, rep, study.Key{Configuration: configuration, Policy: policy})
}

// handleCellByID handles GET /v1/cells/{cell_id}
func (s *HTTPServer) handleCellByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/cells/")
	rep, err := s.store.Lookup(r.URL.Query().Get("sweep_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	key, err := rep.CellKey(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeCell(w, rep, key)
}

func (s *HTTPServer) writeCell(w http.ResponseWriter, rep *sweep.Report, key study.Key) {
	st, err := report.CellStruct(rep, key)
	if err != nil {
		var unknown *study.UnknownCellError
		if errors.As(err, &unknown) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeStruct(w, st)
}

func (s *HTTPServer) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSweepNotFound), errors.Is(err, ErrNoSweep):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *HTTPServer) writeStruct(w http.ResponseWriter, st *structpb.Struct) {
	data, err := report.MarshalJSON(st)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "encode failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
