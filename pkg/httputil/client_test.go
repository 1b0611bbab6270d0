package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestJSONPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json content type, got %q", ct)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["text"] != "hello" {
			t.Errorf("expected text=hello, got %q", payload["text"])
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	config := DefaultRequestConfig(http.MethodPost, server.URL)
	resp, err := Request(context.Background(), config, map[string]string{"text": "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}
}

func TestRequestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := DefaultRequestConfig(http.MethodGet, server.URL)
	config.InitialBackoff = time.Millisecond
	config.MaxBackoff = 5 * time.Millisecond

	resp, err := Request(context.Background(), config, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after retries, got %d", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestRequestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	config := DefaultRequestConfig(http.MethodGet, server.URL)
	config.InitialBackoff = time.Millisecond

	_, err := Request(context.Background(), config, nil)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 attempt for client error, got %d", got)
	}
}

func TestRequestHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-123" {
			t.Errorf("missing authorization header")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := DefaultRequestConfig(http.MethodGet, server.URL)
	config.Headers = map[string][]string{"Authorization": {"Bearer token-123"}}

	if _, err := Request(context.Background(), config, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
