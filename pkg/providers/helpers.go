package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Adda-Baaj/geopulse/pkg/httpclient"
)

const maxDocumentBytes = 2 << 20 // 2 MiB

// fetchDocument retrieves a source document. Non-200 responses and documents over maxDocumentBytes are errors.
func fetchDocument(ctx context.Context, client httpclient.Client, rawURL, providerID string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, rawURL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", providerID, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode(), Snippet: httpclient.Snippet(body)}
	}
	if len(body) > maxDocumentBytes {
		return nil, fmt.Errorf("fetch %s: %w (%d bytes)", providerID, ErrDocumentTooLarge, len(body))
	}
	return body, nil
}

// resolveURL resolves a possibly relative URL against a base URL. An empty raw value resolves to base.
func resolveURL(raw, base string) string {
	raw = strings.TrimSpace(raw)

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}

// collapseSpace trims s and folds runs of whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// orNow returns t, or now when t is zero.
func orNow(t time.Time, now func() time.Time) time.Time {
	if t.IsZero() {
		return now().UTC()
	}
	return t.UTC()
}
