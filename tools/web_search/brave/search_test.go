package brave

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDiscoverDecodesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "test-key" {
			t.Errorf("token header %q", got)
		}
		q := r.URL.Query()
		if q.Get("q") != "nurse to ux designer" {
			t.Errorf("query %q", q.Get("q"))
		}
		if q.Get("count") != "2" {
			t.Errorf("count %q", q.Get("count"))
		}
		w.Write([]byte(`{"web":{"results":[
			{"title":"Scrubs to screens","url":"https://a.example/story","description":"switched fields","age":"3 months ago"},
			{"title":"Second","url":"https://b.example/story","description":"more"},
			{"title":"Third","url":"https://c.example/story"}
		]}}`))
	}))
	defer srv.Close()

	s := New("test-key", time.Second)
	s.SetBaseURL(srv.URL)

	out, err := s.Discover(context.Background(), "nurse to ux designer", 2)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("results capped at k=2, got %d", len(out))
	}
	first := out[0]
	if first.Title != "Scrubs to screens" || first.URL != "https://a.example/story" {
		t.Fatalf("unexpected first result: %+v", first)
	}
	if first.Snippet != "switched fields" || first.Date != "3 months ago" {
		t.Fatalf("description/age not decoded: %+v", first)
	}
}

func TestDiscoverNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New("k", time.Second)
	s.SetBaseURL(srv.URL)

	if _, err := s.Discover(context.Background(), "q", 3); err == nil {
		t.Fatalf("expected error on 429")
	} else if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry status: %v", err)
	}
}

func TestNewAppliesTimeout(t *testing.T) {
	s := New("k", 0)
	if s.client.Timeout != DefaultTimeout {
		t.Fatalf("zero timeout should fall back to default, got %v", s.client.Timeout)
	}
}
