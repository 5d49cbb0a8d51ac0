package api

import (
	"net/http"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/sourcestate"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		body["status"] = "degraded"
		body["database"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		body["database"] = "ok"
		if n, err := s.store.CountArticles(r.Context()); err == nil {
			body["articles"] = n
		}
	}
	if s.agg != nil {
		body["aggregation"] = s.agg.Snapshot()
	}
	writeJSON(w, status, body)
}

func (s *Server) handleSourceHealth(w http.ResponseWriter, r *http.Request) {
	sources := []sourcestate.Health{}
	if s.health != nil {
		all, err := s.health.All()
		if err != nil {
			s.fail(w, r, toAppError(err, "failed to read source health"))
			return
		}
		sources = all
	}
	s.list(w, "sources", sources, len(sources), nil)
}

// handleRunAggregation runs one tick synchronously and returns its report.
func (s *Server) handleRunAggregation(w http.ResponseWriter, r *http.Request) {
	if s.agg == nil {
		s.fail(w, r, notFoundError("aggregation is not enabled"))
		return
	}
	report, err := s.agg.RunNow(r.Context())
	if err != nil {
		s.fail(w, r, toAppError(err, "aggregation failed"))
		return
	}
	s.ok(w, map[string]any{"report": report})
}
