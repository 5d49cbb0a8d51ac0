// Package crawler fills missing article metadata from the article pages themselves.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/internal/logger"
	"github.com/Adda-Baaj/geopulse/pkg/httpclient"
	"github.com/Adda-Baaj/geopulse/pkg/providers"
)

const (
	maxPageBytes = 1 << 20 // 1 MiB
	maxWorkers   = 10
)

// Enricher reads og:/meta tags to fill description and image. Titles are never touched.
type Enricher struct {
	client httpclient.Client
	log    logger.Logger
}

// NewEnricher builds an Enricher; a nil client falls back to the default provider transport.
func NewEnricher(client httpclient.Client, log logger.Logger) *Enricher {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	return &Enricher{client: client, log: logger.Ensure(log)}
}

// Enrich returns a copy of articles with gaps filled where the page provides them.
// Pages are fetched by at most maxWorkers goroutines, paced by the provider's request delay.
// On cancellation the untouched originals are returned for the remaining items.
func (e *Enricher) Enrich(ctx context.Context, cfg providers.Provider, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)

	pending := make([]int, 0, len(articles))
	for i, art := range articles {
		if needsEnrichment(art) {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out
	}

	var pace <-chan time.Time
	if delay := cfg.RequestDelay(); delay > 0 {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		pace = ticker.C
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(len(pending), maxWorkers))
	for _, idx := range pending {
		if gctx.Err() != nil {
			break
		}
		if pace != nil {
			select {
			case <-gctx.Done():
			case <-pace:
			}
		}
		g.Go(func() error {
			art := out[idx]
			meta, err := e.pageMeta(gctx, cfg, art.URL)
			if err != nil {
				e.log.WarnObj("article metadata fetch failed", "enrich_error", map[string]any{
					"provider_id": cfg.ID,
					"url":         art.URL,
					"error":       err,
				})
				return nil
			}
			out[idx] = apply(art, meta)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func needsEnrichment(a domain.Article) bool {
	if !strings.HasPrefix(a.URL, "http://") && !strings.HasPrefix(a.URL, "https://") {
		return false
	}
	return strings.TrimSpace(a.Description) == "" || strings.TrimSpace(a.ImageURL) == ""
}

func apply(a domain.Article, meta pageMeta) domain.Article {
	if strings.TrimSpace(a.Description) == "" && meta.Description != "" {
		a.Description = meta.Description
	}
	if strings.TrimSpace(a.ImageURL) == "" && meta.ImageURL != "" {
		a.ImageURL = absolute(meta.ImageURL, a.URL)
	}
	return a
}

func (e *Enricher) pageMeta(ctx context.Context, cfg providers.Provider, pageURL string) (pageMeta, error) {
	resp, err := e.client.Get(ctx, pageURL, providers.Headers(cfg))
	if err != nil {
		return pageMeta{}, fmt.Errorf("http fetch: %w", err)
	}
	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return pageMeta{}, fmt.Errorf("status %d body: %s", resp.StatusCode(), httpclient.Snippet(body))
	}
	if len(body) > maxPageBytes {
		body = body[:maxPageBytes]
	}
	return parseMeta(body)
}

type pageMeta struct {
	Description string
	ImageURL    string
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	content := func(sel string) string {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	return pageMeta{
		Description: firstNonEmpty(
			content(`meta[property="og:description"]`),
			content(`meta[name="twitter:description"]`),
			content(`meta[name="description"]`),
		),
		ImageURL: firstNonEmpty(
			content(`meta[property="og:image"]`),
			content(`meta[name="twitter:image"]`),
		),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func absolute(raw, base string) string {
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return b.ResolveReference(ref).String()
}
