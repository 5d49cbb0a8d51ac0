package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/pkg/geo"
)

func (s *Server) handleNewsNear(w http.ResponseWriter, r *http.Request) {
	lat, lng, radius, appErr := point(r, 50)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	limit, appErr := queryInt(r, "limit", 20)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}

	news, err := s.store.ArticlesNear(r.Context(), lat, lng, radius, limit)
	if err != nil {
		s.fail(w, r, toAppError(err, "failed to fetch news"))
		return
	}
	s.list(w, "news", news, len(news), map[string]any{"radius": radius})
}

func (s *Server) handleNewsByCity(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(chi.URLParam(r, "city"))
	limit, appErr := queryInt(r, "limit", 20)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}

	news, err := s.store.ArticlesByCity(r.Context(), city, limit)
	if err != nil {
		s.fail(w, r, toAppError(err, "failed to fetch news"))
		return
	}
	s.list(w, "news", news, len(news), map[string]any{"city": city})
}

// handleNewsSearch runs the live combined fetch. Results are geotagged to the requested place
// and, when lat and lng are given, filtered to the radius around them.
func (s *Server) handleNewsSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city, country := strings.TrimSpace(q.Get("city")), strings.TrimSpace(q.Get("country"))
	if city == "" || country == "" {
		s.fail(w, r, validationError("city and country are required"))
		return
	}
	limit, appErr := queryInt(r, "limit", 20)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}

	news := s.news.LocalNews(r.Context(), city, country, strings.TrimSpace(q.Get("countryCode")))
	pt := s.geocoder.Resolve(city, country)
	for i := range news {
		news[i].SetCoordinates(pt.Lat, pt.Lng)
	}

	if q.Get("lat") != "" || q.Get("lng") != "" {
		lat, lng, radius, appErr := point(r, 50)
		if appErr != nil {
			s.fail(w, r, appErr)
			return
		}
		news = geo.Within(news, geo.Point{Lat: lat, Lng: lng}, radius)
	}
	if limit > 0 && len(news) > limit {
		news = news[:limit]
	}
	s.list(w, "news", news, len(news), map[string]any{"location": city + ", " + country})
}

func (s *Server) handleLatestNews(w http.ResponseWriter, r *http.Request) {
	limit, appErr := queryInt(r, "limit", 50)
	if appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	news, err := s.store.LatestArticles(r.Context(), limit)
	if err != nil {
		s.fail(w, r, toAppError(err, "failed to fetch news"))
		return
	}
	s.list(w, "news", news, len(news), nil)
}

type userLocationRequest struct {
	UserID    string   `json:"userId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
}

func (s *Server) handleSaveUserLocation(w http.ResponseWriter, r *http.Request) {
	var req userLocationRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		s.fail(w, r, appErr)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Latitude == nil || req.Longitude == nil {
		s.fail(w, r, validationError("userId, latitude and longitude are required"))
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		s.fail(w, r, validationError("latitude or longitude out of range"))
		return
	}

	loc := domain.UserLocation{
		UserID:    req.UserID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		City:      orUnknown(req.City),
		Country:   orUnknown(req.Country),
	}
	if err := s.store.SaveUserLocation(r.Context(), loc); err != nil {
		s.fail(w, r, toAppError(err, "failed to save location"))
		return
	}
	s.ok(w, map[string]any{"message": "location saved", "location": loc})
}

func (s *Server) handleGetUserLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.store.UserLocation(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.fail(w, r, toAppError(err, "location not found for this user"))
		return
	}
	s.ok(w, map[string]any{"location": loc})
}

func (s *Server) handleDeleteUserLocation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.store.DeleteUserLocation(r.Context(), userID); err != nil {
		s.fail(w, r, toAppError(err, "failed to delete location"))
		return
	}
	s.ok(w, map[string]any{"message": "location deleted", "userId": userID})
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Unknown"
	}
	return s
}
