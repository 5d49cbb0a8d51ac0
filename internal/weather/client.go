// Package weather pulls severe weather alerts for a place from the OpenWeather one-call API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/pkg/httpclient"
)

// DefaultBaseURL is the OpenWeather 2.5 API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

const defaultSource = "Weather Service"

// ErrDisabled is returned when no api key is configured.
var ErrDisabled = errors.New("weather alerts disabled: no api key")

// Client fetches alerts through the shared HTTP client.
type Client struct {
	http    httpclient.Client
	baseURL string
	apiKey  string
}

// NewClient builds a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(hc httpclient.Client, baseURL, apiKey string) *Client {
	if hc == nil {
		hc = httpclient.NewRestyClient(10 * time.Second)
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: hc, baseURL: baseURL, apiKey: strings.TrimSpace(apiKey)}
}

// Enabled reports whether an api key is set.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

type oneCallResponse struct {
	Alerts []struct {
		SenderName  string   `json:"sender_name"`
		Event       string   `json:"event"`
		Start       int64    `json:"start"`
		End         int64    `json:"end"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	} `json:"alerts"`
}

// Alerts returns the alerts active around (lat, lng), tagged with the given place.
func (c *Client) Alerts(ctx context.Context, lat, lng float64, place domain.Place) ([]domain.WeatherAlert, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	resp, err := c.http.GetWithQuery(ctx, c.baseURL+"/onecall", map[string]string{
		"lat":     strconv.FormatFloat(lat, 'f', -1, 64),
		"lon":     strconv.FormatFloat(lng, 'f', -1, 64),
		"appid":   c.apiKey,
		"exclude": "minutely,hourly,daily",
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("weather alerts %s: %w", place.City, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("weather alerts %s: status %d: %s", place.City, resp.StatusCode(), httpclient.Snippet(resp.Body()))
	}

	var payload oneCallResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode weather alerts: %w", err)
	}

	out := make([]domain.WeatherAlert, 0, len(payload.Alerts))
	for _, a := range payload.Alerts {
		if strings.TrimSpace(a.Event) == "" {
			continue
		}
		source := strings.TrimSpace(a.SenderName)
		if source == "" {
			source = defaultSource
		}
		out = append(out, domain.WeatherAlert{
			AlertType:   AlertType(a.Event),
			Severity:    Severity(a.Tags),
			Title:       strings.TrimSpace(a.Event),
			Description: strings.TrimSpace(a.Description),
			Latitude:    lat,
			Longitude:   lng,
			City:        place.City,
			Country:     place.Country,
			Source:      source,
			StartTime:   time.Unix(a.Start, 0).UTC(),
			EndTime:     time.Unix(a.End, 0).UTC(),
		})
	}
	return out, nil
}

// AlertType buckets a free-form event name; anything unmatched counts as rain.
func AlertType(event string) string {
	e := strings.ToLower(event)
	switch {
	case strings.Contains(e, "storm"), strings.Contains(e, "thunder"):
		return "storm"
	case strings.Contains(e, "flood"):
		return "flood"
	case strings.Contains(e, "heat"):
		return "heat"
	case strings.Contains(e, "cold"):
		return "cold"
	case strings.Contains(e, "wind"):
		return "wind"
	default:
		return "rain"
	}
}

// Severity picks the strongest recognised tag. No tags means moderate.
func Severity(tags []string) string {
	if len(tags) == 0 {
		return "moderate"
	}
	has := func(want string) bool {
		for _, t := range tags {
			if strings.EqualFold(strings.TrimSpace(t), want) {
				return true
			}
		}
		return false
	}
	switch {
	case has("Extreme"):
		return "extreme"
	case has("Severe"):
		return "severe"
	case has("Moderate"):
		return "moderate"
	default:
		return "minor"
	}
}
