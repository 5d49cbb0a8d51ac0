package sourcestate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/logger"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"), logger.NopLogger{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordFetchTracksFailures(t *testing.T) {
	s := openTemp(t)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.RecordFetch(ctx, "ghanaweb", 12, nil)
	s.RecordFetch(ctx, "ghanaweb", 0, errors.New("status 503"))
	s.RecordFetch(ctx, "ghanaweb", 0, errors.New("timeout"))

	h, ok, err := s.Get("ghanaweb")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if h.ConsecutiveFailures != 2 || h.TotalFailures != 2 || h.TotalFetches != 3 {
		t.Fatalf("counters = %+v", h)
	}
	if h.LastItems != 12 || h.LastError != "timeout" || h.Healthy() {
		t.Fatalf("health = %+v", h)
	}

	s.RecordFetch(ctx, "ghanaweb", 4, nil)
	h, _, _ = s.Get("ghanaweb")
	if !h.Healthy() || h.LastItems != 4 || h.LastError != "" {
		t.Fatalf("after recovery = %+v", h)
	}
}

func TestAllSortedAndPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.RecordFetch(context.Background(), "punch", 3, nil)
	s.RecordFetch(context.Background(), "citinewsroom", 5, nil)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	all, err := reopened.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ProviderID != "citinewsroom" || all[1].ProviderID != "punch" {
		t.Fatalf("all = %+v", all)
	}
	if _, ok, _ := reopened.Get("missing"); ok {
		t.Fatalf("expected missing provider to be absent")
	}
}
