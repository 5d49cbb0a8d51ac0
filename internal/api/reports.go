package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

type createReportRequest struct {
	UserID       string   `json:"userId"`
	Type         string   `json:"reportType"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	LocationName string   `json:"locationName"`
	City         string   `json:"city"`
	Country      string   `json:"country"`
	Severity     string   `json:"severity"`
	ImageURL     string   `json:"imageUrl"`
	VideoURL     string   `json:"videoUrl"`
}

var severities = map[string]bool{
	"":                    true,
	domain.SeverityLow:    true,
	domain.SeverityMedium: true,
	domain.SeverityHigh:   true,
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	req.UserID, req.Title = strings.TrimSpace(req.UserID), strings.TrimSpace(req.Title)
	if req.UserID == "" || req.Title == "" || req.Latitude == nil || req.Longitude == nil {
		s.fail(w, r, validationError("userId, latitude, longitude and title are required"))
		return
	}
	severity := strings.ToLower(strings.TrimSpace(req.Severity))
	if !severities[severity] {
		s.fail(w, r, validationError("severity must be one of: low, medium, high"))
		return
	}
	reportType := strings.TrimSpace(req.Type)
	if reportType == "" {
		reportType = "other"
	}

	report, err := s.store.CreateReport(r.Context(), domain.Report{
		UserID:       req.UserID,
		Type:         reportType,
		Title:        req.Title,
		Description:  strings.TrimSpace(req.Description),
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		LocationName: strings.TrimSpace(req.LocationName),
		City:         strings.TrimSpace(req.City),
		Country:      strings.TrimSpace(req.Country),
		Severity:     severity,
		ImageURL:     strings.TrimSpace(req.ImageURL),
		VideoURL:     strings.TrimSpace(req.VideoURL),
	})
	if err != nil {
		s.fail(w, r, toAppError(err, "failed to create report"))
		return
	}
	s.ok(w, map[string]any{"message": "report created", "reportId": report.ID, "report": report})
}

func (s *Server) handleReportsNear(w http.ResponseWriter, r *http.Request) {
	lat, lng, radius, appErr := point(r, 10)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	limit, appErr := queryInt(r, "limit", 50)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	reports, err := s.store.ReportsNear(r.Context(), lat, lng, radius, limit)
	if err != nil {
		s.fail(w, r, toAppError(err, "failed to fetch nearby reports"))
		return
	}
	s.list(w, "reports", reports, len(reports), map[string]any{"radius": radius})
}

func (s *Server) handleReportsByCity(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(chi.URLParam(r, "city"))
	limit, appErr := queryInt(r, "limit", 50)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	reports, err := s.store.ReportsByCity(r.Context(), city, limit)
	if err != nil {
		s.fail(w, r, toAppError(err, "failed to fetch city reports"))
		return
	}
	s.list(w, "reports", reports, len(reports), map[string]any{"city": city})
}

func (s *Server) handleTrendingReports(w http.ResponseWriter, r *http.Request) {
	limit, appErr := queryInt(r, "limit", 20)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	reports, err := s.store.TrendingReports(r.Context(), limit)
	if err != nil {
		s.fail(w, r, toAppError(err, "failed to fetch trending reports"))
		return
	}
	s.list(w, "reports", reports, len(reports), nil)
}

type verifyRequest struct {
	UserID  string `json:"userId"`
	Type    string `json:"verificationType"`
	Comment string `json:"comment"`
}

func (s *Server) handleVerifyReport(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if req.UserID == "" || req.Type == "" {
		s.fail(w, r, validationError("userId and verificationType are required"))
		return
	}

	report, err := s.store.VerifyReport(r.Context(), domain.Verification{
		ReportID: chi.URLParam(r, "id"),
		UserID:   req.UserID,
		Type:     req.Type,
		Comment:  strings.TrimSpace(req.Comment),
	})
	if err != nil {
		s.fail(w, r, toAppError(err, "report not found"))
		return
	}
	s.ok(w, map[string]any{"message": "report verified", "report": report})
}

type upvoteRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleUpvoteReport(w http.ResponseWriter, r *http.Request) {
	var req upvoteRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.fail(w, r, validationError("userId is required"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.UpvoteReport(r.Context(), id); err != nil {
		s.fail(w, r, toAppError(err, "report not found"))
		return
	}
	s.ok(w, map[string]any{"message": "report upvoted", "reportId": id})
}

func (s *Server) handleAlertsNear(w http.ResponseWriter, r *http.Request) {
	lat, lng, radius, appErr := point(r, 50)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	alerts, err := s.store.ActiveAlertsNear(r.Context(), lat, lng, radius)
	if err != nil {
		s.fail(w, r, toAppError(err, "failed to fetch alerts"))
		return
	}
	s.list(w, "alerts", alerts, len(alerts), map[string]any{"radius": radius})
}
