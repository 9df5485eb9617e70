package httpds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(retries int) *Client {
	return NewClient(Config{
		MaxRetries:     retries,
		Timeout:        2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Headers:        http.Header{"X-Job": []string{"nightly"}},
	})
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{InsecureSkipVerify: true})
	if c.httpClient.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v, want 30s", c.httpClient.Timeout)
	}
	if c.maxRetries != 0 || c.initialBackoff <= 0 || c.maxBackoff <= 0 {
		t.Fatalf("defaults = %+v", c)
	}
	tr, ok := c.httpClient.Transport.(*http.Transport)
	if !ok || tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("transport = %#v, want InsecureSkipVerify", c.httpClient.Transport)
	}
}

func TestGet_RetriesTransientStatuses(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Job") != "nightly" {
			t.Errorf("missing base header")
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = io.WriteString(w, `{"vin":"TMB1"}`)
		}
	}))
	defer srv.Close()

	resp, err := fastClient(3).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("status = %d, hits = %d; want 200 after 3 hits", resp.StatusCode, hits)
	}
}

func TestGet_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := fastClient(2).Get(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "retryable status 502") {
		t.Fatalf("err = %v, want retryable status error", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestGet_ContextAndArguments(t *testing.T) {
	t.Parallel()

	if _, err := fastClient(0).Get(context.Background(), ""); err == nil {
		t.Fatalf("Get(empty url): expected error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fastClient(0).Get(ctx, "http://127.0.0.1:1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{5, time.Second},
		{80, time.Second},
	}
	for _, tc := range cases {
		if got := backoffDuration(100*time.Millisecond, tc.attempt, time.Second); got != tc.want {
			t.Errorf("backoffDuration(attempt=%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestSource_Open(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jsonl" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "{\"a\":1}\n")
	}))
	defer srv.Close()

	rc, err := NewSource(fastClient(0), srv.URL+"/data.jsonl").Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "{\"a\":1}\n" {
		t.Fatalf("body = %q", body)
	}

	if _, err := NewSource(nil, srv.URL+"/missing.jsonl").Open(context.Background()); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v, want 404 status error", err)
	}
}
