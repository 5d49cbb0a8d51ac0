package providers

import (
	"context"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/internal/logger"
)

// HealthRecorder receives the outcome of every source fetch.
type HealthRecorder interface {
	RecordFetch(ctx context.Context, providerID string, items int, fetchErr error)
}

// Collector runs fetchers with failure isolation: a failing or hung source yields an empty list, never an error.
type Collector struct {
	registry FetcherRegistry
	timeout  time.Duration
	health   HealthRecorder
	log      logger.Logger
}

// NewCollector builds a Collector. A non-positive timeout falls back to DefaultRequestTimeout.
func NewCollector(registry FetcherRegistry, timeout time.Duration, health HealthRecorder, log logger.Logger) *Collector {
	if registry == nil {
		registry = DefaultFetcherRegistry(nil)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Collector{
		registry: registry,
		timeout:  timeout,
		health:   health,
		log:      logger.Ensure(log),
	}
}

// Collect fetches one provider. Failures are logged, recorded and degrade to an empty result.
func (c *Collector) Collect(ctx context.Context, cfg Provider) []domain.Article {
	started := time.Now()
	articles, err := c.fetch(ctx, cfg)
	if err != nil {
		srcErr := &SourceError{ProviderID: cfg.ID, Kind: cfg.Kind, Err: err}
		c.log.WarnObj("source fetch failed", "source_fetch_error", map[string]any{
			"provider_id": cfg.ID,
			"kind":        cfg.Kind,
			"url":         cfg.URL,
			"took_ms":     time.Since(started).Milliseconds(),
			"error":       srcErr.Error(),
		})
		c.record(cfg.ID, 0, srcErr)
		return []domain.Article{}
	}

	c.log.DebugObj("source fetched", "source_fetch", map[string]any{
		"provider_id": cfg.ID,
		"kind":        cfg.Kind,
		"articles":    len(articles),
		"took_ms":     time.Since(started).Milliseconds(),
	})
	c.record(cfg.ID, len(articles), nil)
	if articles == nil {
		articles = []domain.Article{}
	}
	return articles
}

func (c *Collector) fetch(ctx context.Context, cfg Provider) ([]domain.Article, error) {
	f, err := c.registry.FetcherFor(cfg)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return f.Fetch(fetchCtx, cfg)
}

// record writes health outside the fetch deadline so a slow source cannot starve its own bookkeeping.
func (c *Collector) record(providerID string, items int, err error) {
	if c.health == nil {
		return
	}
	c.health.RecordFetch(context.Background(), providerID, items, err)
}
