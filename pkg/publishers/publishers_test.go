package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/domain"
)

func TestLoadRegistryExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("SINK_TOKEN", "secret")
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	content := `
publishers:
  - id: webhook
    type: http
    http:
      url: " https://sink.example/events "
      headers:
        Authorization: "Bearer ${SINK_TOKEN}"
        Empty: " "
  - id: ingest-queue
    type: queue
    enabled: false
    queue:
      provider: AWS-SQS
      sqs:
        queue_url: https://sqs.eu-west-1.amazonaws.com/123/ingest
        region: eu-west-1
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("all = %+v", all)
	}
	hook := all[0].HTTP
	if hook.URL != "https://sink.example/events" || hook.Method != "POST" || hook.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http = %+v", hook)
	}
	if hook.Headers["Authorization"] != "Bearer secret" {
		t.Fatalf("headers = %+v", hook.Headers)
	}
	if _, ok := hook.Headers["Empty"]; ok {
		t.Fatalf("blank header kept")
	}
	if all[1].Queue.Provider != QueueProviderAWSSQS || all[1].Queue.SQS.Region != "eu-west-1" {
		t.Fatalf("queue = %+v", all[1].Queue)
	}

	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "webhook" {
		t.Fatalf("enabled = %+v", enabled)
	}
}

func TestParseRegistryRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"missing id":      `{"publishers":[{"type":"http","http":{"url":"https://x"}}]}`,
		"missing url":     `{"publishers":[{"id":"a","type":"http","http":{}}]}`,
		"unknown type":    `{"publishers":[{"id":"a","type":"carrier-pigeon"}]}`,
		"unknown queue":   `{"publishers":[{"id":"a","type":"queue","queue":{"provider":"azure"}}]}`,
		"half creds":      `{"publishers":[{"id":"a","type":"queue","queue":{"provider":"aws-sns","sns":{"topic_arn":"arn","region":"us-east-1","access_key_id":"k"}}}]}`,
		"duplicate id":    `{"publishers":[{"id":"a","type":"http","http":{"url":"https://x"}},{"id":"a","type":"http","http":{"url":"https://y"}}]}`,
		"gcp needs topic": `{"publishers":[{"id":"a","type":"queue","queue":{"provider":"gcp","gcp":{"project_id":"p"}}}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRegistry([]byte(body), ".json"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestHTTPPublisherPostsEvent(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Event
		auth     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var evt Event
		if err := json.Unmarshal(body, &evt); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, evt)
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	reg, err := ParseRegistry([]byte(`
publishers:
  - id: webhook
    type: http
    http:
      url: `+srv.URL+`
      headers:
        Authorization: Bearer abc
`), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	pubs, err := DefaultRegistry().BuildAll(context.Background(), reg.Enabled(), nil)
	if err != nil {
		t.Fatal(err)
	}

	d := NewDispatcher(pubs, nil)
	n := d.PublishArticles(context.Background(), []domain.Article{
		{Title: "Accra market reopens", City: "Accra", Country: "gh", ProviderID: "ghanaweb"},
	})
	if n != 1 {
		t.Fatalf("delivered = %d", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("received = %d", len(received))
	}
	evt := received[0]
	if evt.Type != EventArticleIngested || evt.City != "Accra" || evt.Article.Title != "Accra market reopens" || evt.ID == "" {
		t.Fatalf("event = %+v", evt)
	}
	if auth != "Bearer abc" {
		t.Fatalf("auth = %q", auth)
	}
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) ID() string   { return "broken" }
func (f *failingPublisher) Type() string { return "test" }
func (f *failingPublisher) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("sink down")
}

type sendFunc func(ctx context.Context, evt Event) error

func (f sendFunc) Send(ctx context.Context, evt Event) error { return f(ctx, evt) }

func TestDispatcherIsolatesFailures(t *testing.T) {
	broken := &failingPublisher{}
	var sent []Event
	queue := &queuePublisher{id: "q", provider: "fake", sender: sendFunc(func(_ context.Context, evt Event) error {
		sent = append(sent, evt)
		return nil
	})}

	d := NewDispatcher([]Publisher{broken, queue}, nil)
	n := d.PublishArticles(context.Background(), []domain.Article{{Title: "One headline"}, {Title: "Two headline"}})
	if n != 2 || broken.calls != 2 || len(sent) != 2 {
		t.Fatalf("delivered=%d broken=%d sent=%d", n, broken.calls, len(sent))
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestEventAttributesSkipEmpty(t *testing.T) {
	attrs := NewArticleEvent(domain.Article{Title: "x", City: "Lagos"}, fixedTime).attributes()
	if attrs["city"] != "Lagos" || attrs["event_type"] != EventArticleIngested {
		t.Fatalf("attrs = %v", attrs)
	}
	if _, ok := attrs["country"]; ok {
		t.Fatalf("empty country attribute kept")
	}
	if !strings.Contains(NewArticleEvent(domain.Article{}, fixedTime).EmittedAt.String(), "UTC") {
		t.Fatalf("emitted_at not UTC")
	}
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	if d.Len() != 0 {
		t.Fatal("expected zero publishers")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}

var fixedTime = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
