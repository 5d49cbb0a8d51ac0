package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	pubs := filepath.Join(dir, "publishers.yaml")
	if err := os.WriteFile(pubs, []byte(`
publishers:
  - id: webhook
    type: http
    http:
      url: https://sink.example/events
`), 0o600); err != nil {
		t.Fatal(err)
	}

	return &config.Config{
		Log:      config.LogConfig{Level: "error"},
		HTTP:     config.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second},
		Database: config.DatabaseConfig{Path: filepath.Join(dir, "geopulse.db"), MaxOpenConns: 2},
		State:    config.StateConfig{Path: filepath.Join(dir, "state.db")},
		Aggregation: config.AggregationConfig{
			Interval:       time.Minute,
			RequestTimeout: time.Second,
			SweepWorkers:   2,
			Enrich:         true,
		},
		NewsAPI:    config.NewsAPIConfig{BaseURL: "http://127.0.0.1:1", PageSize: 10, Language: "en"},
		Publishers: config.FileConfig{File: pubs},
	}
}

func TestBuildWiresService(t *testing.T) {
	cfg := testConfig(t)
	a, err := build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.close()

	if a.sources == 0 {
		t.Error("expected the embedded default sources")
	}
	if a.publishers != 1 {
		t.Errorf("publishers = %d, want 1", a.publishers)
	}
	if a.server.Addr != cfg.HTTP.Addr || a.server.ReadTimeout != time.Second {
		t.Errorf("server = %+v", a.server)
	}

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d body = %s", rec.Code, rec.Body)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["database"] != "ok" {
		t.Fatalf("health body = %v", body)
	}
	if _, ok := body["aggregation"]; !ok {
		t.Fatalf("health body missing aggregation state: %v", body)
	}
}

func TestBuildFailsOnBadSourcesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.File = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := build(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for missing sources file")
	}
	// A failed build releases what it opened, so the bbolt file can be reopened at once.
	cfg.Sources.File = ""
	a, err := build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("rebuild after failure: %v", err)
	}
	a.close()
}
