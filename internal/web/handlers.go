package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/admissions/internal/config"
	"github.com/JonMunkholm/admissions/internal/core"
	"github.com/go-chi/chi/v5"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// PreviewResponse is the body of GET /api/preview/{universityCode}.
type PreviewResponse struct {
	UniversityCode string                      `json:"universityCode"`
	Stats          core.ParseStats             `json:"stats"`
	Majors         []core.Major                `json:"majors"`
	Requirements   []core.AdmissionRequirement `json:"requirements"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, r, HealthResponse{Status: "ok", Database: "ok"})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.sources)
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.syncContext(r)
	defer cancel()

	report, err := s.service.SyncAll(ctx, s.sources)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, report)
}

func (s *Server) handleSyncOne(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.syncContext(r)
	defer cancel()

	report, err := s.service.SyncOne(ctx, s.sources, chi.URLParam(r, "universityCode"))
	if err != nil && report.UniversityCode == "" {
		respondError(w, r, err)
		return
	}

	// A failed run still carries a report; send it with the error status.
	if err != nil {
		writeJSONStatus(w, statusFor(err), report)
		return
	}
	writeJSON(w, r, report)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "universityCode")
	src, ok := config.FindSource(s.sources, code)
	if !ok {
		respondError(w, r, core.ErrUnknownSource)
		return
	}

	result, err := s.service.Preview(r.Context(), src)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, PreviewResponse{
		UniversityCode: code,
		Stats:          result.Stats,
		Majors:         result.Majors,
		Requirements:   result.Requirements,
	})
}

func (s *Server) handleRecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultRunsLimit)

	runs, err := s.service.RecentRuns(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []core.SyncRun{}
	}
	writeJSON(w, r, runs)
}

// syncContext detaches a sync from the client connection so a dropped
// request does not abort a half-finished batch. The sync timeout still applies.
func (s *Server) syncContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.Sync.Timeout)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
