package domain

import (
	"testing"
	"time"
)

func TestNormalizedTitle(t *testing.T) {
	cases := map[string]string{
		"Flood warning issued":    "flood warning issued",
		" flood  warning issued ": "flood warning issued",
		"":                        "",
	}
	for in, want := range cases {
		if got := (Article{Title: in}).NormalizedTitle(); got != want {
			t.Errorf("NormalizedTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetCoordinatesClearsSentinel(t *testing.T) {
	var a Article
	a.SetCoordinates(5.6037, -0.187)
	if _, _, ok := a.Coordinates(); !ok {
		t.Fatal("expected coordinates")
	}
	a.SetCoordinates(0, 0)
	if a.Latitude != nil || a.Longitude != nil {
		t.Fatal("sentinel should clear coordinates")
	}
}

func TestReportActive(t *testing.T) {
	now := time.Now()
	r := Report{Status: ReportStatusActive, ExpiresAt: now.Add(time.Hour)}
	if !r.Active(now) {
		t.Fatal("expected active")
	}
	r.ExpiresAt = now
	if r.Active(now) {
		t.Fatal("expires_at <= now must be inactive")
	}
}
