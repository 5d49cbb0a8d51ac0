// Package aggregator drives the periodic fetch, merge, geotag and persist pipeline.
package aggregator

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/internal/merge"
	"github.com/Adda-Baaj/geopulse/pkg/geo"
	"github.com/Adda-Baaj/geopulse/pkg/providers"
)

// Collector fetches one source and never fails; failures come back as empty results.
type Collector interface {
	Collect(ctx context.Context, cfg providers.Provider) []domain.Article
}

// NewsService answers the combined local news query against the news API.
type NewsService struct {
	collector Collector
	api       providers.APIConfig
}

// NewNewsService builds a NewsService.
func NewNewsService(collector Collector, api providers.APIConfig) *NewsService {
	return &NewsService{collector: collector, api: api}
}

// LocalNews fetches top headlines for the country code and a "city country" search concurrently,
// then merges them headlines first so search results win title conflicts.
// An empty countryCode is resolved from country.
func (n *NewsService) LocalNews(ctx context.Context, city, country, countryCode string) []domain.Article {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if strings.TrimSpace(countryCode) == "" {
		countryCode = geo.CountryCode(country)
	}

	var headlines, search []domain.Article
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		headlines = n.collector.Collect(gctx, providers.HeadlinesProvider(n.api, countryCode))
		return nil
	})
	g.Go(func() error {
		search = n.collector.Collect(gctx, providers.SearchProvider(n.api, city, country))
		return nil
	})
	_ = g.Wait()

	merged := merge.Merge(headlines, search)
	for i := range merged {
		merged[i].City = city
		merged[i].Country = country
	}
	return merged
}
