package domain

import (
	"strings"
	"time"
)

// Domain contains core models and interfaces.

// Located is implemented by every geo-tagged item served by radius queries.
type Located interface {
	Coordinates() (lat, lng float64, ok bool)
}

type Article struct {
	ID          int64      `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Source      string     `json:"source"`
	ProviderID  string     `json:"providerId,omitempty"`
	URL         string     `json:"url"`
	PublishedAt time.Time  `json:"publishedAt"`
	City        string     `json:"city"`
	Country     string     `json:"country"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
}

// NormalizedTitle is the dedup key: lower-cased, trimmed, inner whitespace collapsed.
func (a Article) NormalizedTitle() string {
	return strings.Join(strings.Fields(strings.ToLower(a.Title)), " ")
}

// Coordinates reports the geotag, ok is false until resolved or when it is the (0,0) sentinel.
func (a Article) Coordinates() (float64, float64, bool) {
	return coords(a.Latitude, a.Longitude)
}

// SetCoordinates assigns the geotag; the (0,0) sentinel clears it.
func (a *Article) SetCoordinates(lat, lng float64) {
	if lat == 0 && lng == 0 {
		a.Latitude, a.Longitude = nil, nil
		return
	}
	a.Latitude, a.Longitude = &lat, &lng
}

func coords(lat, lng *float64) (float64, float64, bool) {
	if lat == nil || lng == nil {
		return 0, 0, false
	}
	if *lat == 0 && *lng == 0 {
		return 0, 0, false
	}
	return *lat, *lng, true
}

// Place is a distinct (city, country) pair discovered from user locations.
type Place struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type UserLocation struct {
	UserID    string    `json:"userId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Report statuses and severities.
const (
	ReportStatusActive = "active"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Verification kinds.
const (
	VerificationConfirm = "confirm"
	VerificationDispute = "dispute"
)

type Report struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Type              string    `json:"reportType"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	LocationName      string    `json:"locationName,omitempty"`
	City              string    `json:"city,omitempty"`
	Country           string    `json:"country,omitempty"`
	Severity          string    `json:"severity"`
	ImageURL          string    `json:"imageUrl,omitempty"`
	VideoURL          string    `json:"videoUrl,omitempty"`
	Status            string    `json:"status"`
	Upvotes           int       `json:"upvotes"`
	VerificationCount int       `json:"verificationCount"`
	Verified          bool      `json:"verified"`
	ExpiresAt         time.Time `json:"expiresAt"`
	CreatedAt         time.Time `json:"createdAt"`
	DistanceKm        *float64  `json:"distanceKm,omitempty"`
}

func (r Report) Coordinates() (float64, float64, bool) {
	return coords(&r.Latitude, &r.Longitude)
}

// Active reports whether the report is still served at now.
func (r Report) Active(now time.Time) bool {
	return r.Status == ReportStatusActive && r.ExpiresAt.After(now)
}

type Verification struct {
	ReportID string `json:"reportId"`
	UserID   string `json:"userId"`
	Type     string `json:"verificationType"`
	Comment  string `json:"comment,omitempty"`
}

type WeatherAlert struct {
	ID          int64     `json:"id,omitempty"`
	AlertType   string    `json:"alertType"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Source      string    `json:"source"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

func (w WeatherAlert) Coordinates() (float64, float64, bool) {
	return coords(&w.Latitude, &w.Longitude)
}
