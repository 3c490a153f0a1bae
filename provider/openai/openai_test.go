package openai_provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func completionResponse(text string) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": text}},
		},
	})
	return b
}

func TestCompleteSendsPrompts(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write(completionResponse("hello"))
	}))
	defer srv.Close()

	c := NewClient("key", "gpt-4o-mini", 0.2, 100, 5*time.Second)
	c.SetBaseURL(srv.URL)

	out, err := c.Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello" {
		t.Fatalf("unexpected completion %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "user text" {
		t.Fatalf("unexpected messages: %#v", got.Messages)
	}
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(completionResponse("eventually"))
	}))
	defer srv.Close()

	c := NewClient("key", "gpt-4o-mini", 0.2, 100, 5*time.Second)
	c.SetBaseURL(srv.URL)
	c.backoff = time.Millisecond

	out, err := c.Complete(context.Background(), "", "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "eventually" {
		t.Fatalf("unexpected completion %q", out)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("key", "gpt-4o-mini", 0.2, 100, 5*time.Second)
	c.SetBaseURL(srv.URL)
	c.backoff = time.Millisecond

	if _, err := c.Complete(context.Background(), "", "prompt"); err == nil {
		t.Fatalf("expected error after retries")
	}
	if atomic.LoadInt32(&calls) != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, calls)
	}
}

func TestCompleteDoesNotRetryClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("key", "gpt-4o-mini", 0.2, 100, 5*time.Second)
	c.SetBaseURL(srv.URL)
	c.backoff = time.Millisecond

	if _, err := c.Complete(context.Background(), "", "prompt"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("client errors must not be retried, got %d attempts", calls)
	}
}
