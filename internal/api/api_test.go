package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/aggregator"
	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/internal/sourcestate"
	"github.com/Adda-Baaj/geopulse/internal/store"
)

type stubNews struct{ articles []domain.Article }

func (s stubNews) LocalNews(_ context.Context, city, country, _ string) []domain.Article {
	out := make([]domain.Article, len(s.articles))
	copy(out, s.articles)
	for i := range out {
		out[i].City, out[i].Country = city, country
	}
	return out
}

type stubAggregation struct{ err error }

func (s stubAggregation) RunNow(context.Context) (aggregator.TickReport, error) {
	return aggregator.TickReport{Places: 2}, s.err
}

func (s stubAggregation) Snapshot() aggregator.RunState { return aggregator.RunState{Ticks: 3} }

type stubHealth []sourcestate.Health

func (s stubHealth) All() ([]sourcestate.Health, error) { return s, nil }

func newTestServer(t *testing.T, agg Aggregation) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"), 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv := NewServer(Options{
		Store:       st,
		News:        stubNews{articles: []domain.Article{{Title: "Accra market reopens", PublishedAt: time.Now()}}},
		Aggregation: agg,
		Health:      stubHealth{{ProviderID: "ghanaweb", LastItems: 7}},
	})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp.StatusCode, out
}

func TestNewsNearReturnsEnvelope(t *testing.T) {
	ts, st := newTestServer(t, nil)
	a := domain.Article{Title: "Accra floods", URL: "https://a.example/1", PublishedAt: time.Now(), City: "Accra", Country: "Ghana"}
	a.SetCoordinates(5.6037, -0.187)
	if _, err := st.UpsertArticles(context.Background(), []domain.Article{a}); err != nil {
		t.Fatal(err)
	}

	code, body := doJSON(t, http.MethodGet, ts.URL+"/api/news/location?lat=5.6037&lng=-0.187&radius=10", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d body = %v", code, body)
	}
	if body["success"] != true || body["count"].(float64) != 1 {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["timestamp"].(string); !ok {
		t.Fatalf("missing timestamp: %v", body)
	}

	code, body = doJSON(t, http.MethodGet, ts.URL+"/api/news/city/ACCRA", nil)
	if code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("city: %d %v", code, body)
	}
}

func TestNewsNearValidation(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	for _, q := range []string{"lat=5.6", "lat=abc&lng=1", "lat=5.6&lng=-0.18&radius=-1", "lat=95&lng=0",
		"lat=NaN&lng=0", "lat=5.6&lng=-0.18&radius=NaN", "lat=5.6&lng=-0.18&radius=%2BInf", "lat=5.6&lng=-Inf",
	} {
		code, body := doJSON(t, http.MethodGet, ts.URL+"/api/news/location?"+q, nil)
		if code != http.StatusBadRequest {
			t.Errorf("%s: status = %d body = %v", q, code, body)
		}
	}
}

func TestNewsSearchGeotagsAndFilters(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	code, body := doJSON(t, http.MethodGet, ts.URL+"/api/news/search?city=Accra&country=Ghana", nil)
	if code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("search: %d %v", code, body)
	}
	first := body["news"].([]any)[0].(map[string]any)
	if first["latitude"].(float64) != 5.6037 {
		t.Fatalf("article not geotagged: %v", first)
	}

	code, body = doJSON(t, http.MethodGet, ts.URL+"/api/news/search?city=Accra&country=Ghana&lat=6.5244&lng=3.3792&radius=10", nil)
	if code != http.StatusOK || body["count"].(float64) != 0 {
		t.Fatalf("filtered search: %d %v", code, body)
	}

	code, _ = doJSON(t, http.MethodGet, ts.URL+"/api/news/search?city=Accra", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("missing country status = %d", code)
	}
}

func TestUserLocationRoutes(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	code, body := doJSON(t, http.MethodPost, ts.URL+"/api/news/user-location", map[string]any{
		"userId": "u1", "latitude": 5.6, "longitude": -0.18, "city": "Accra",
	})
	if code != http.StatusOK {
		t.Fatalf("save: %d %v", code, body)
	}

	code, body = doJSON(t, http.MethodGet, ts.URL+"/api/news/user-location/u1", nil)
	loc := body["location"].(map[string]any)
	if code != http.StatusOK || loc["city"] != "Accra" || loc["country"] != "Unknown" {
		t.Fatalf("get: %d %v", code, body)
	}

	if code, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/news/user-location/u1", nil); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	code, body = doJSON(t, http.MethodGet, ts.URL+"/api/news/user-location/u1", nil)
	if code != http.StatusNotFound {
		t.Fatalf("after delete: %d %v", code, body)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != ErrCodeNotFound {
		t.Fatalf("error = %v", errBody)
	}

	code, _ = doJSON(t, http.MethodPost, ts.URL+"/api/news/user-location", map[string]any{"userId": "u2"})
	if code != http.StatusBadRequest {
		t.Fatalf("missing coordinates status = %d", code)
	}
}

func TestReportRoutes(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	code, body := doJSON(t, http.MethodPost, ts.URL+"/api/reports", map[string]any{
		"userId": "u1", "title": "Street flooded", "latitude": 5.6, "longitude": -0.18, "city": "Accra", "reportType": "flood",
	})
	if code != http.StatusOK {
		t.Fatalf("create: %d %v", code, body)
	}
	id := body["reportId"].(string)

	for _, user := range []string{"a", "b", "c"} {
		code, body = doJSON(t, http.MethodPost, ts.URL+"/api/reports/"+id+"/verify", map[string]any{
			"userId": user, "verificationType": "confirm",
		})
		if code != http.StatusOK {
			t.Fatalf("verify: %d %v", code, body)
		}
	}
	if report := body["report"].(map[string]any); report["verified"] != true {
		t.Fatalf("report not verified: %v", report)
	}

	if code, _ = doJSON(t, http.MethodPost, ts.URL+"/api/reports/"+id+"/upvote", map[string]any{"userId": "a"}); code != http.StatusOK {
		t.Fatalf("upvote status = %d", code)
	}
	if code, _ = doJSON(t, http.MethodPost, ts.URL+"/api/reports/missing/upvote", map[string]any{"userId": "a"}); code != http.StatusNotFound {
		t.Fatalf("upvote missing status = %d", code)
	}

	code, body = doJSON(t, http.MethodGet, ts.URL+"/api/reports/nearby?lat=5.6037&lng=-0.187", nil)
	if code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("nearby: %d %v", code, body)
	}
	code, body = doJSON(t, http.MethodGet, ts.URL+"/api/reports/trending", nil)
	if code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("trending: %d %v", code, body)
	}
	code, body = doJSON(t, http.MethodGet, ts.URL+"/api/reports/city/accra", nil)
	if code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("city: %d %v", code, body)
	}

	code, _ = doJSON(t, http.MethodPost, ts.URL+"/api/reports", map[string]any{"userId": "u1", "title": "x", "latitude": 1, "longitude": 1, "severity": "apocalyptic"})
	if code != http.StatusBadRequest {
		t.Fatalf("bad severity status = %d", code)
	}
}

func TestAlertsNearbyEmpty(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	code, body := doJSON(t, http.MethodGet, ts.URL+"/api/alerts/nearby?lat=5.6&lng=-0.18", nil)
	if code != http.StatusOK || body["count"].(float64) != 0 {
		t.Fatalf("alerts: %d %v", code, body)
	}
	if alerts, ok := body["alerts"].([]any); !ok || len(alerts) != 0 {
		t.Fatalf("alerts should be an empty list: %v", body["alerts"])
	}
}

func TestHealthAndAggregation(t *testing.T) {
	ts, _ := newTestServer(t, stubAggregation{})

	code, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	if code != http.StatusOK || body["status"] != "ok" || body["database"] != "ok" {
		t.Fatalf("health: %d %v", code, body)
	}

	code, body = doJSON(t, http.MethodGet, ts.URL+"/health/sources", nil)
	if code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("sources: %d %v", code, body)
	}

	code, body = doJSON(t, http.MethodPost, ts.URL+"/api/aggregation/run", nil)
	if code != http.StatusOK {
		t.Fatalf("run: %d %v", code, body)
	}
}

func TestAggregationConflict(t *testing.T) {
	ts, _ := newTestServer(t, stubAggregation{err: aggregator.ErrTickInProgress})
	code, body := doJSON(t, http.MethodPost, ts.URL+"/api/aggregation/run", nil)
	if code != http.StatusConflict {
		t.Fatalf("status = %d body = %v", code, body)
	}
}
