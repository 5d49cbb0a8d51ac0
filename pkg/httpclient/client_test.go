package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestGetWithQuerySendsParamsAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("country"); got != "gh" {
			t.Errorf("country = %q", got)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("X-Api-Key = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := NewRestyClient(2 * time.Second)
	resp, err := c.GetWithQuery(context.Background(), srv.URL, map[string]string{"country": "gh"}, map[string]string{"X-Api-Key": "secret"})
	if err != nil {
		t.Fatalf("GetWithQuery: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if !strings.Contains(string(resp.Body()), "ok") {
		t.Fatalf("body = %s", resp.Body())
	}
	if resp.Header("Content-Type") != "application/json" {
		t.Fatalf("content type = %q", resp.Header("Content-Type"))
	}
}

func TestTimeoutSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewRestyClient(50 * time.Millisecond)
	if _, err := c.Get(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet(nil); got != "<empty>" {
		t.Errorf("Snippet(nil) = %q", got)
	}
	long := strings.Repeat("x", 600)
	if got := Snippet([]byte(long)); len(got) != 515 {
		t.Errorf("len = %d", len(got))
	}

	// "é" is two bytes, so byte 512 of this body falls inside a rune.
	multi := "x" + strings.Repeat("é", 300)
	got := Snippet([]byte(multi))
	if !utf8.ValidString(got) {
		t.Fatalf("snippet split a rune: %q", got[len(got)-6:])
	}
	if len(got) != 511+len("...") {
		t.Errorf("len = %d, want %d", len(got), 511+len("..."))
	}
}
