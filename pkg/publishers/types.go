// Package publishers emits ingest events for newly stored articles to downstream sinks.
package publishers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Adda-Baaj/geopulse/internal/domain"
	"github.com/Adda-Baaj/geopulse/internal/logger"
)

// EventArticleIngested is the only event type emitted today.
const EventArticleIngested = "article.ingested"

// Logger is the structured logger used by publishers.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }

// Event is one newly inserted article with the place it was collected for.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ProviderID string         `json:"provider_id,omitempty"`
	City       string         `json:"city"`
	Country    string         `json:"country"`
	EmittedAt  time.Time      `json:"emitted_at"`
	Article    domain.Article `json:"article"`
}

// NewArticleEvent wraps a stored article.
func NewArticleEvent(a domain.Article, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       EventArticleIngested,
		ProviderID: a.ProviderID,
		City:       a.City,
		Country:    a.Country,
		EmittedAt:  now.UTC(),
		Article:    a,
	}
}

// attributes are the routing hints attached to queue messages.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{"event_type": e.Type}
	for k, v := range map[string]string{"provider_id": e.ProviderID, "city": e.City, "country": e.Country} {
		if v != "" {
			attrs[k] = v
		}
	}
	return attrs
}

// Publisher delivers events to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
