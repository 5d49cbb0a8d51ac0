package providers

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

// feedFetcher implements Fetcher for RSS and Atom feeds.
type feedFetcher struct {
	client HTTPClient
	now    func() time.Time
}

// NewFeedFetcher builds a Fetcher for feed providers.
func NewFeedFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &feedFetcher{client: client, now: time.Now}
}

func (f *feedFetcher) Kind() string { return KindRSS }

// Fetch downloads the feed and extracts title, description, link and publication date per item.
func (f *feedFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Kind, KindRSS) {
		return nil, fmt.Errorf("feed fetcher received incompatible provider kind %q", cfg.Kind)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("provider %q url is empty", cfg.ID)
	}

	headers := Headers(cfg)
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = "application/rss+xml, application/atom+xml, application/xml, text/xml"
	}

	body, err := fetchDocument(ctx, f.client, cfg.URL, cfg.ID, headers)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode %s feed: %w", cfg.ID, err)
	}

	return f.buildArticles(cfg, feed.Items), nil
}

func (f *feedFetcher) buildArticles(cfg Provider, items []*gofeed.Item) []domain.Article {
	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		title := collapseSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		articles = append(articles, domain.Article{
			Title:       title,
			Description: strings.TrimSpace(item.Description),
			ImageURL:    itemImage(item),
			Source:      cfg.SourceName(),
			ProviderID:  cfg.ID,
			URL:         resolveURL(link, cfg.URL),
			PublishedAt: orNow(itemTime(item), f.now),
			City:        cfg.City,
			Country:     cfg.Country,
		})
	}
	return articles
}

func itemTime(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed
	default:
		return time.Time{}
	}
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && strings.TrimSpace(item.Image.URL) != "" {
		return strings.TrimSpace(item.Image.URL)
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return strings.TrimSpace(enc.URL)
		}
	}
	return ""
}
