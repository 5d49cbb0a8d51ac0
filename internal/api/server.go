// Package api serves the read and write HTTP endpoints over chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Adda-Baaj/geopulse/internal/aggregator"
	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/internal/logger"
	"github.com/Adda-Baaj/geopulse/internal/sourcestate"
	"github.com/Adda-Baaj/geopulse/pkg/geo"
)

// Store is the persistence used by handlers.
type Store interface {
	Ping(ctx context.Context) error
	CountArticles(ctx context.Context) (int, error)
	ArticlesNear(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]domain.Article, error)
	ArticlesByCity(ctx context.Context, city string, limit int) ([]domain.Article, error)
	LatestArticles(ctx context.Context, limit int) ([]domain.Article, error)

	SaveUserLocation(ctx context.Context, loc domain.UserLocation) error
	UserLocation(ctx context.Context, userID string) (domain.UserLocation, error)
	DeleteUserLocation(ctx context.Context, userID string) error

	CreateReport(ctx context.Context, r domain.Report) (domain.Report, error)
	ReportsNear(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]domain.Report, error)
	ReportsByCity(ctx context.Context, city string, limit int) ([]domain.Report, error)
	TrendingReports(ctx context.Context, limit int) ([]domain.Report, error)
	VerifyReport(ctx context.Context, v domain.Verification) (domain.Report, error)
	UpvoteReport(ctx context.Context, id string) error

	ActiveAlertsNear(ctx context.Context, lat, lng, radiusKm float64) ([]domain.WeatherAlert, error)
}

// LocalNews is the combined headlines and search fetch.
type LocalNews interface {
	LocalNews(ctx context.Context, city, country, countryCode string) []domain.Article
}

// Aggregation exposes the scheduler to operators.
type Aggregation interface {
	RunNow(ctx context.Context) (aggregator.TickReport, error)
	Snapshot() aggregator.RunState
}

// SourceHealth lists recorded fetch outcomes.
type SourceHealth interface {
	All() ([]sourcestate.Health, error)
}

// Server holds handler dependencies.
type Server struct {
	store    Store
	news     LocalNews
	agg      Aggregation
	health   SourceHealth
	geocoder *geo.Geocoder
	log      logger.Logger
	now      func() time.Time
}

// Options configures a Server. Aggregation and Health may be nil.
type Options struct {
	Store       Store
	News        LocalNews
	Aggregation Aggregation
	Health      SourceHealth
	Geocoder    *geo.Geocoder
	Log         logger.Logger
}

// NewServer builds a Server. Aggregation and Health may be nil; a nil Geocoder gets the built-in table.
func NewServer(o Options) *Server {
	if o.Geocoder == nil {
		o.Geocoder = geo.NewGeocoder(nil)
	}
	return &Server{
		store:    o.Store,
		news:     o.News,
		agg:      o.Aggregation,
		health:   o.Health,
		geocoder: o.Geocoder,
		log:      logger.Ensure(o.Log),
		now:      time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/health", s.handleHealth)
	r.Get("/health/sources", s.handleSourceHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/news", func(r chi.Router) {
			r.Get("/location", s.handleNewsNear)
			r.Get("/city/{city}", s.handleNewsByCity)
			r.Get("/search", s.handleNewsSearch)
			r.Get("/latest", s.handleLatestNews)
			r.Post("/user-location", s.handleSaveUserLocation)
			r.Get("/user-location/{userID}", s.handleGetUserLocation)
			r.Delete("/user-location/{userID}", s.handleDeleteUserLocation)
		})
		r.Route("/reports", func(r chi.Router) {
			r.Post("/", s.handleCreateReport)
			r.Get("/nearby", s.handleReportsNear)
			r.Get("/city/{city}", s.handleReportsByCity)
			r.Get("/trending", s.handleTrendingReports)
			r.Post("/{id}/verify", s.handleVerifyReport)
			r.Post("/{id}/upvote", s.handleUpvoteReport)
		})
		r.Get("/alerts/nearby", s.handleAlertsNear)
		r.Post("/aggregation/run", s.handleRunAggregation)
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.log.DebugObj("http request", "http_request", map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"took_ms":    time.Since(started).Milliseconds(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}
