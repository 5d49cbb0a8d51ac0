// Package geo holds the static geocoder, country tables and the haversine distance used by every radius query.
package geo

import (
	"math"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

// EarthRadiusKm is the mean earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Unknown is the sentinel returned for places the geocoder cannot resolve.
var Unknown = Point{}

// IsUnknown reports whether p is the (0,0) sentinel.
func (p Point) IsUnknown() bool { return p == Unknown }

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLng*sinLng
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// LatitudeSpan returns the half-height in degrees of the band that contains every point within radiusKm.
func LatitudeSpan(radiusKm float64) float64 {
	return radiusKm / (math.Pi * EarthRadiusKm / 180)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Within keeps the items whose coordinates lie within radiusKm of center. Items without coordinates are dropped.
func Within[T domain.Located](items []T, center Point, radiusKm float64) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		lat, lng, ok := item.Coordinates()
		if !ok {
			continue
		}
		if Haversine(center, Point{Lat: lat, Lng: lng}) <= radiusKm {
			out = append(out, item)
		}
	}
	return out
}
