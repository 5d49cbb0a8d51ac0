package providers

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

// minHeadlineLen filters navigation and menu anchors; shorter texts are dropped.
const minHeadlineLen = 10

// scrapeFetcher implements Fetcher for HTML pages matched with a CSS selector.
type scrapeFetcher struct {
	client HTTPClient
	now    func() time.Time
}

// NewScrapeFetcher builds a Fetcher for scrape providers.
func NewScrapeFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &scrapeFetcher{client: client, now: time.Now}
}

func (f *scrapeFetcher) Kind() string { return KindScrape }

// Fetch downloads the page and extracts one article per matched headline.
func (f *scrapeFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Kind, KindScrape) {
		return nil, fmt.Errorf("scrape fetcher received incompatible provider kind %q", cfg.Kind)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("provider %q url is empty", cfg.ID)
	}
	if strings.TrimSpace(cfg.Selector) == "" {
		return nil, fmt.Errorf("provider %q selector is empty", cfg.ID)
	}

	body, err := fetchDocument(ctx, f.client, cfg.URL, cfg.ID, Headers(cfg))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s html: %w", cfg.ID, err)
	}

	fetchedAt := f.now().UTC()
	var articles []domain.Article
	doc.Find(cfg.Selector).Each(func(_ int, sel *goquery.Selection) {
		title := collapseSpace(sel.Text())
		if len([]rune(title)) <= minHeadlineLen {
			return
		}

		articles = append(articles, domain.Article{
			Title:       title,
			Source:      cfg.SourceName(),
			ProviderID:  cfg.ID,
			URL:         resolveURL(headlineHref(sel), cfg.URL),
			PublishedAt: fetchedAt,
			City:        cfg.City,
			Country:     cfg.Country,
		})
	})

	return articles, nil
}

// headlineHref finds the link for a matched node: its own href, an enclosing anchor, then a nested one.
func headlineHref(sel *goquery.Selection) string {
	if href, ok := sel.Attr("href"); ok {
		return href
	}
	if href, ok := sel.Closest("a").Attr("href"); ok {
		return href
	}
	if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
		return href
	}
	return ""
}
