package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "geopulse.db"), 2)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func located(title, url string, lat, lng float64, age time.Duration) domain.Article {
	a := domain.Article{Title: title, URL: url, Source: "test", PublishedAt: fixedNow.Add(-age), City: "Accra", Country: "gh"}
	a.SetCoordinates(lat, lng)
	return a
}

func TestUpsertArticlesIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	batch := []domain.Article{
		located("Accra market reopens", "https://a.example/1", 5.6037, -0.187, time.Hour),
		located("Rains expected in Accra", "https://a.example/2", 5.6037, -0.187, 2*time.Hour),
	}

	first, err := s.UpsertArticles(ctx, batch)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Inserted != 2 || first.Duplicates != 0 || len(first.New) != 2 {
		t.Fatalf("first = %+v", first)
	}

	second, err := s.UpsertArticles(ctx, batch)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Inserted != 0 || second.Duplicates != 2 || len(second.New) != 0 {
		t.Fatalf("second = %+v", second)
	}

	n, err := s.CountArticles(ctx)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestUpsertArticlesRecordsItemFailures(t *testing.T) {
	s := newTestStore(t)
	res, err := s.UpsertArticles(context.Background(), []domain.Article{
		{Title: "   ", URL: "https://a.example/blank"},
		located("Valid headline here", "https://a.example/ok", 5.6, -0.18, 0),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if res.Inserted != 1 || res.Errored != 1 || len(res.Failures) != 1 {
		t.Fatalf("res = %+v", res)
	}
}

func TestUpsertKeepsOriginalContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	orig := located("Accra market reopens", "https://a.example/1", 5.6037, -0.187, time.Hour)
	orig.Description = "original"
	if _, err := s.UpsertArticles(ctx, []domain.Article{orig}); err != nil {
		t.Fatal(err)
	}

	changed := orig
	changed.Description = "rewritten"
	if _, err := s.UpsertArticles(ctx, []domain.Article{changed}); err != nil {
		t.Fatal(err)
	}

	got, err := s.LatestArticles(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Description != "original" {
		t.Fatalf("got %+v", got)
	}
	if got[0].LastSeenAt == nil {
		t.Fatalf("expected last_seen_at")
	}
}

func TestArticlesNearAccra(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	batch := []domain.Article{
		located("Older Accra headline", "https://a.example/old", 5.6037, -0.187, 3*time.Hour),
		located("Newer Accra headline", "https://a.example/new", 5.61, -0.19, time.Hour),
		located("Kumasi is far away", "https://a.example/kumasi", 6.6885, -1.6244, 0),
		{Title: "Unlocated headline", URL: "https://a.example/none", PublishedAt: fixedNow},
	}
	if _, err := s.UpsertArticles(ctx, batch); err != nil {
		t.Fatal(err)
	}

	got, err := s.ArticlesNear(ctx, 5.6037, -0.187, 10, 20)
	if err != nil {
		t.Fatalf("near: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d: %+v", len(got), got)
	}
	if got[0].Title != "Newer Accra headline" || got[1].Title != "Older Accra headline" {
		t.Fatalf("order = %q, %q", got[0].Title, got[1].Title)
	}
}

func TestArticlesNearExcludesNullIsland(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.DB().ExecContext(ctx, `
		INSERT INTO articles (title, url, published_at, latitude, longitude, created_at, last_seen_at)
		VALUES ('Sentinel row', 'https://a.example/zero', ?, 0, 0, ?, ?)`, fixedNow, fixedNow, fixedNow); err != nil {
		t.Fatal(err)
	}

	got, err := s.ArticlesNear(ctx, 0.01, 0.01, 50, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no articles, got %+v", got)
	}
}

func TestArticlesNearRejectsBadInput(t *testing.T) {
	s := newTestStore(t)
	cases := []struct {
		lat, lng, km float64
	}{
		{91, 0, 10},
		{0, -181, 10},
		{5.6, -0.18, 0},
		{math.NaN(), 0, 10},
		{5.6, math.NaN(), 10},
		{5.6, -0.18, math.NaN()},
		{5.6, -0.18, math.Inf(1)},
		{math.Inf(-1), 0, 10},
	}
	ctx := context.Background()
	for _, tc := range cases {
		if _, err := s.ArticlesNear(ctx, tc.lat, tc.lng, tc.km, 10); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("ArticlesNear(%v, %v, %v) err = %v", tc.lat, tc.lng, tc.km, err)
		}
		if _, err := s.ReportsNear(ctx, tc.lat, tc.lng, tc.km, 10); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("ReportsNear(%v, %v, %v) err = %v", tc.lat, tc.lng, tc.km, err)
		}
		if _, err := s.ActiveAlertsNear(ctx, tc.lat, tc.lng, tc.km); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("ActiveAlertsNear(%v, %v, %v) err = %v", tc.lat, tc.lng, tc.km, err)
		}
	}
}

func TestArticlesByCityIgnoresCase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := located("Accra market reopens", "https://a.example/1", 5.6037, -0.187, 0)
	b := located("Lagos traffic update", "https://b.example/1", 6.5244, 3.3792, 0)
	b.City, b.Country = "Lagos", "ng"
	if _, err := s.UpsertArticles(ctx, []domain.Article{a, b}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ArticlesByCity(ctx, " ACCRA ", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].City != "Accra" {
		t.Fatalf("got %+v", got)
	}
}

func TestDistinctPlacesSkipsPlaceholders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	locs := []domain.UserLocation{
		{UserID: "u1", Latitude: 5.6, Longitude: -0.18, City: "Accra", Country: "gh"},
		{UserID: "u2", Latitude: 5.6, Longitude: -0.18, City: "Accra", Country: "gh"},
		{UserID: "u3", Latitude: 6.5, Longitude: 3.3, City: "Lagos", Country: "ng"},
		{UserID: "u4", Latitude: 1, Longitude: 1, City: "Unknown", Country: "gh"},
		{UserID: "u5", Latitude: 1, Longitude: 1, City: "", Country: "ke"},
		{UserID: "u6", Latitude: 1, Longitude: 1, City: "Nairobi", Country: "UNKNOWN"},
	}
	for i, loc := range locs {
		at := fixedNow.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		if err := s.SaveUserLocation(ctx, loc); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.DistinctPlaces(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.Place{{City: "Accra", Country: "gh"}, {City: "Lagos", Country: "ng"}}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestUserLocationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveUserLocation(ctx, domain.UserLocation{UserID: "u1", Latitude: 5.6, Longitude: -0.18, City: "Accra", Country: "gh"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveUserLocation(ctx, domain.UserLocation{UserID: "u1", Latitude: 6.5, Longitude: 3.3, City: "Lagos", Country: "ng"}); err != nil {
		t.Fatal(err)
	}
	loc, err := s.UserLocation(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if loc.City != "Lagos" {
		t.Fatalf("city = %q, want Lagos", loc.City)
	}

	if err := s.DeleteUserLocation(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UserLocation(ctx, "u1"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReportVerificationAndTrending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	quiet, err := s.CreateReport(ctx, domain.Report{UserID: "u0", Type: "traffic", Title: "Slow traffic", Latitude: 5.6, Longitude: -0.18, City: "Accra"})
	if err != nil {
		t.Fatal(err)
	}
	if quiet.Severity != domain.SeverityMedium || quiet.ID == "" || !quiet.ExpiresAt.Equal(fixedNow.Add(ReportTTL)) {
		t.Fatalf("created = %+v", quiet)
	}

	hot, err := s.CreateReport(ctx, domain.Report{UserID: "u1", Type: "flood", Title: "Street flooded", Latitude: 5.61, Longitude: -0.19, City: "Accra", Severity: domain.SeverityHigh})
	if err != nil {
		t.Fatal(err)
	}

	for _, user := range []string{"a", "b"} {
		if _, err := s.VerifyReport(ctx, domain.Verification{ReportID: hot.ID, UserID: user, Type: domain.VerificationConfirm}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.VerifyReport(ctx, domain.Verification{ReportID: hot.ID, UserID: "a", Type: domain.VerificationConfirm})
	if err != nil {
		t.Fatal(err)
	}
	if got.VerificationCount != 2 || got.Verified {
		t.Fatalf("repeat verification counted twice: %+v", got)
	}
	got, err = s.VerifyReport(ctx, domain.Verification{ReportID: hot.ID, UserID: "c", Type: domain.VerificationConfirm})
	if err != nil {
		t.Fatal(err)
	}
	if got.VerificationCount != 3 || !got.Verified {
		t.Fatalf("expected verified report, got %+v", got)
	}

	if err := s.UpvoteReport(ctx, quiet.ID); err != nil {
		t.Fatal(err)
	}
	trending, err := s.TrendingReports(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(trending) != 2 || trending[0].ID != hot.ID {
		t.Fatalf("trending = %+v", trending)
	}

	if _, err := s.VerifyReport(ctx, domain.Verification{ReportID: "missing", UserID: "a", Type: domain.VerificationConfirm}); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.VerifyReport(ctx, domain.Verification{ReportID: hot.ID, UserID: "a", Type: "maybe"}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected invalid query, got %v", err)
	}
	if err := s.UpvoteReport(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReportsNearSkipExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.now = func() time.Time { return fixedNow.Add(-30 * time.Hour) }
	if _, err := s.CreateReport(ctx, domain.Report{UserID: "u1", Type: "fire", Title: "Old fire", Latitude: 5.6, Longitude: -0.18, City: "Accra"}); err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return fixedNow }
	fresh, err := s.CreateReport(ctx, domain.Report{UserID: "u2", Type: "fire", Title: "New fire", Latitude: 5.6, Longitude: -0.18, City: "Accra"})
	if err != nil {
		t.Fatal(err)
	}

	near, err := s.ReportsNear(ctx, 5.6037, -0.187, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(near) != 1 || near[0].ID != fresh.ID {
		t.Fatalf("near = %+v", near)
	}
	if near[0].DistanceKm == nil || *near[0].DistanceKm > 10 {
		t.Fatalf("distance = %v", near[0].DistanceKm)
	}

	byCity, err := s.ReportsByCity(ctx, "accra", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(byCity) != 1 {
		t.Fatalf("by city = %+v", byCity)
	}
}

func TestWeatherAlerts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alert := func(title, severity string, start, end time.Time) domain.WeatherAlert {
		return domain.WeatherAlert{AlertType: "storm", Severity: severity, Title: title, Latitude: 5.6, Longitude: -0.18,
			City: "Accra", Country: "gh", Source: "OpenWeather", StartTime: start, EndTime: end}
	}
	alerts := []domain.WeatherAlert{
		alert("Thunderstorm watch", "moderate", fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour)),
		alert("Flood warning", "extreme", fixedNow.Add(-2*time.Hour), fixedNow.Add(2*time.Hour)),
		alert("Expired heat advisory", "severe", fixedNow.Add(-5*time.Hour), fixedNow.Add(-time.Hour)),
	}

	n, err := s.SaveWeatherAlerts(ctx, alerts)
	if err != nil || n != 3 {
		t.Fatalf("saved %d, %v", n, err)
	}
	n, err = s.SaveWeatherAlerts(ctx, alerts)
	if err != nil || n != 0 {
		t.Fatalf("resaved %d, %v", n, err)
	}

	got, err := s.ActiveAlertsNear(ctx, 5.6037, -0.187, 25)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Title != "Flood warning" || got[1].Title != "Thunderstorm watch" {
		t.Fatalf("got %+v", got)
	}
}
