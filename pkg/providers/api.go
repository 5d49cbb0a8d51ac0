package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/pkg/httpclient"
)

const (
	removedTitle      = "[Removed]"
	unknownSourceName = "Unknown"
)

// APIConfig holds the news search API connection settings.
type APIConfig struct {
	BaseURL  string
	Key      string
	PageSize int
	Language string
}

// HeadlinesProvider builds the top-headlines query for a country code.
func HeadlinesProvider(api APIConfig, countryCode string) Provider {
	params := map[string]string{
		"country": strings.ToLower(strings.TrimSpace(countryCode)),
		"sortBy":  "publishedAt",
	}
	return apiProvider(api, "newsapi-headlines-"+params["country"], "top-headlines", params)
}

// SearchProvider builds the full-text search query for "city country".
func SearchProvider(api APIConfig, city, country string) Provider {
	params := map[string]string{
		"q":      strings.TrimSpace(city + " " + country),
		"sortBy": "publishedAt",
	}
	if api.Language != "" {
		params["language"] = api.Language
	}
	return apiProvider(api, "newsapi-search", "everything", params)
}

func apiProvider(api APIConfig, id, endpoint string, params map[string]string) Provider {
	if api.PageSize > 0 {
		params["pageSize"] = strconv.Itoa(api.PageSize)
	}
	var headers map[string]string
	if api.Key != "" {
		headers = map[string]string{"X-Api-Key": api.Key}
	}
	return Provider{
		ID:      id,
		Name:    "NewsAPI",
		Kind:    KindAPI,
		URL:     strings.TrimRight(api.BaseURL, "/") + "/" + endpoint,
		Params:  params,
		Headers: headers,
	}
}

type apiResponse struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Articles []apiArticle `json:"articles"`
}

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// apiFetcher implements Fetcher for REST+JSON news search endpoints.
type apiFetcher struct {
	client HTTPClient
	now    func() time.Time
}

// NewAPIFetcher builds a Fetcher for news search API providers.
func NewAPIFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &apiFetcher{client: client, now: time.Now}
}

func (f *apiFetcher) Kind() string { return KindAPI }

// Fetch issues the parameterized query and normalizes the returned articles.
func (f *apiFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Kind, KindAPI) {
		return nil, fmt.Errorf("api fetcher received incompatible provider kind %q", cfg.Kind)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("provider %q url is empty", cfg.ID)
	}

	resp, err := f.client.GetWithQuery(ctx, cfg.URL, cfg.Params, Headers(cfg))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", cfg.ID, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode(), Snippet: httpclient.Snippet(resp.Body())}
	}

	var payload apiResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", cfg.ID, err)
	}
	if strings.EqualFold(payload.Status, "error") {
		return nil, fmt.Errorf("%s api error %s: %s", cfg.ID, payload.Code, payload.Message)
	}

	return f.buildArticles(cfg, payload.Articles), nil
}

func (f *apiFetcher) buildArticles(cfg Provider, items []apiArticle) []domain.Article {
	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		title := collapseSpace(item.Title)
		if title == "" || title == removedTitle {
			continue
		}

		source := strings.TrimSpace(item.Source.Name)
		if source == "" {
			source = unknownSourceName
		}

		articles = append(articles, domain.Article{
			Title:       title,
			Description: strings.TrimSpace(item.Description),
			ImageURL:    strings.TrimSpace(item.URLToImage),
			Source:      source,
			ProviderID:  cfg.ID,
			URL:         strings.TrimSpace(item.URL),
			PublishedAt: orNow(parseAPITime(item.PublishedAt), f.now),
			City:        cfg.City,
			Country:     cfg.Country,
		})
	}
	return articles
}

func parseAPITime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Time{}
}
