package providers

import (
	"context"
	"strings"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/pkg/httpclient"
)

// Supported source kinds.
const (
	KindAPI    = "api"
	KindRSS    = "rss"
	KindScrape = "scrape"
)

// HTTPClient is the transport used by fetchers.
type HTTPClient = httpclient.Client

// Provider describes one configured source. Kind selects the fetcher; the remaining fields are kind specific.
type Provider struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Kind           string            `json:"kind" yaml:"kind"`
	Region         string            `json:"region" yaml:"region"`
	URL            string            `json:"url" yaml:"url"`
	Selector       string            `json:"selector" yaml:"selector"`
	City           string            `json:"city" yaml:"city"`
	Country        string            `json:"country" yaml:"country"`
	Params         map[string]string `json:"params" yaml:"params"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	Enabled        *bool             `json:"enabled" yaml:"enabled"`
	RequestDelayMS int               `json:"request_delay_ms" yaml:"request_delay_ms"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (p Provider) EnabledValue() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// RequestDelay is the pause between follow-up requests to the same provider.
func (p Provider) RequestDelay() time.Duration {
	if p.RequestDelayMS <= 0 {
		return 0
	}
	return time.Duration(p.RequestDelayMS) * time.Millisecond
}

// SourceName is the publisher name stamped on emitted articles.
func (p Provider) SourceName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return p.ID
}

// Fetcher retrieves and normalizes articles for one source kind.
type Fetcher interface {
	Kind() string
	Fetch(ctx context.Context, cfg Provider) ([]domain.Article, error)
}

// FetcherRegistry selects the fetcher for a provider.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (Fetcher, error)
}

// Headers returns a copy of the provider request headers.
func Headers(cfg Provider) map[string]string {
	if len(cfg.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		out[k] = v
	}
	return out
}
