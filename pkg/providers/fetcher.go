package providers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/geopulse/pkg/httpclient"
)

// DefaultRequestTimeout bounds every external source call.
const DefaultRequestTimeout = 10 * time.Second

type fetcherRegistry struct {
	fetchers map[string]Fetcher
	mu       sync.RWMutex
}

// NewFetcherRegistry builds a registry for the provided fetcher implementations.
func NewFetcherRegistry(fetchers ...Fetcher) FetcherRegistry {
	reg := &fetcherRegistry{
		fetchers: make(map[string]Fetcher, len(fetchers)),
	}

	for _, f := range fetchers {
		if f == nil {
			continue
		}
		reg.fetchers[strings.ToLower(strings.TrimSpace(f.Kind()))] = f
	}

	return reg
}

// FetcherFor selects the fetcher for the given provider based on its kind.
func (r *fetcherRegistry) FetcherFor(cfg Provider) (Fetcher, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("provider %q kind is empty", cfg.ID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.fetchers[strings.ToLower(cfg.Kind)]; ok {
		return f, nil
	}

	return nil, fmt.Errorf("no fetcher registered for kind %q (provider %q)", cfg.Kind, cfg.ID)
}

// DefaultHTTPClient returns a resty client bounded by DefaultRequestTimeout.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(DefaultRequestTimeout) }

// DefaultFetcherRegistry wires up the api, rss and scrape fetchers.
func DefaultFetcherRegistry(client HTTPClient) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	return NewFetcherRegistry(
		NewAPIFetcher(client),
		NewFeedFetcher(client),
		NewScrapeFetcher(client),
	)
}
