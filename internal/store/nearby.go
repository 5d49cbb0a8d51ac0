package store

import (
	"fmt"
	"math"

	"github.com/Adda-Baaj/geopulse/pkg/geo"
)

// radius is the exact great-circle filter shared by articles, reports and alerts.
type radius struct {
	center geo.Point
	km     float64
}

func newRadius(lat, lng, km float64) (radius, error) {
	if !finite(lat) || !finite(lng) || !finite(km) {
		return radius{}, fmt.Errorf("%w: coordinates and radius must be finite", ErrInvalidQuery)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return radius{}, fmt.Errorf("%w: coordinates (%f, %f) out of range", ErrInvalidQuery, lat, lng)
	}
	if km <= 0 {
		return radius{}, fmt.Errorf("%w: radius must be positive", ErrInvalidQuery)
	}
	return radius{center: geo.Point{Lat: lat, Lng: lng}, km: km}, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// predicate excludes unresolved rows, narrows by latitude band, then applies the exact haversine distance.
func (r radius) predicate() (string, []any) {
	span := geo.LatitudeSpan(r.km)
	clause := `latitude IS NOT NULL AND longitude IS NOT NULL
		AND NOT (latitude = 0 AND longitude = 0)
		AND latitude BETWEEN ? AND ?
		AND haversine_km(?, ?, latitude, longitude) <= ?`
	return clause, []any{r.center.Lat - span, r.center.Lat + span, r.center.Lat, r.center.Lng, r.km}
}

// distance selects the distance column for the same center.
func (r radius) distance() (string, []any) {
	return `haversine_km(?, ?, latitude, longitude)`, []any{r.center.Lat, r.center.Lng}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
