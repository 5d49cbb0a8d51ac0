package publishers

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

// Dispatcher fans every event out to all publishers. Failures are logged and never returned to the ingest path.
type Dispatcher struct {
	pubs []Publisher
	log  Logger
	now  func() time.Time
}

// NewDispatcher wraps pubs; an empty list yields a dispatcher that does nothing.
func NewDispatcher(pubs []Publisher, log Logger) *Dispatcher {
	return &Dispatcher{pubs: pubs, log: ensureLogger(log), now: time.Now}
}

// Len is the number of configured publishers.
func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.pubs)
}

// PublishArticles emits one event per article to every publisher and returns how many deliveries succeeded.
func (d *Dispatcher) PublishArticles(ctx context.Context, articles []domain.Article) int {
	if d.Len() == 0 || len(articles) == 0 {
		return 0
	}

	delivered := 0
	for _, art := range articles {
		evt := NewArticleEvent(art, d.now())
		for _, pub := range d.pubs {
			if ctx.Err() != nil {
				return delivered
			}
			if err := pub.Publish(ctx, evt); err != nil {
				d.log.WarnObj("publish event failed", "publisher_error", map[string]any{
					"publisher_id":   pub.ID(),
					"publisher_type": pub.Type(),
					"event_id":       evt.ID,
					"title":          art.Title,
					"error":          err,
				})
				continue
			}
			delivered++
		}
	}
	return delivered
}

// Close closes publishers that hold resources.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, pub := range d.pubs {
		if c, ok := pub.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
