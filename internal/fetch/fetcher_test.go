// internal/fetch/fetcher_test.go
package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/webharvest/webharvest/internal/ratelimit"
)

func newTestFetcher(cfg Config) *Fetcher {
	return New(cfg, ratelimit.New(0), nil, zerolog.Nop())
}

func TestFetch_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	f := newTestFetcher(Config{Site: "test"})
	defer f.Close()

	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", result.StatusCode)
	}
	if result.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", result.Attempts)
	}
	if !strings.Contains(result.Body, "ok") {
		t.Errorf("unexpected body: %q", result.Body)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("expected identifying user agent %q, got %q", DefaultUserAgent, gotUA)
	}
}

func TestFetch_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	f := newTestFetcher(Config{Site: "test", MaxRetries: 3, RetryDelay: time.Millisecond})
	defer f.Close()

	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if result.Body != "recovered" {
		t.Errorf("unexpected body: %q", result.Body)
	}
}

func TestFetch_TooManyRequestsIsTransient(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := newTestFetcher(Config{Site: "test", MaxRetries: 1, RetryDelay: time.Millisecond})
	defer f.Close()

	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", result.Attempts)
	}
}

func TestFetch_PermanentFailureNoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(Config{Site: "test", MaxRetries: 3, RetryDelay: time.Millisecond})
	defer f.Close()

	_, err := f.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if fe.Kind != KindPermanent {
		t.Errorf("expected permanent kind, got %v", fe.Kind)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", fe.StatusCode)
	}
	if fe.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", fe.Attempts)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 request, got %d", got)
	}
}

func TestFetch_ExhaustsRetryBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := newTestFetcher(Config{Site: "test", MaxRetries: 2, RetryDelay: time.Millisecond})
	defer f.Close()

	_, err := f.Fetch(context.Background(), server.URL)
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.Kind != KindTransient {
		t.Errorf("expected transient kind, got %v", fe.Kind)
	}
	if fe.Attempts != 3 {
		t.Errorf("expected max_retries+1 = 3 attempts, got %d", fe.Attempts)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
}

func TestFetch_RateLimitSpacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	interval := 150 * time.Millisecond
	f := New(Config{Site: "test"}, ratelimit.New(interval), nil, zerolog.Nop())
	defer f.Close()

	ctx := context.Background()
	if _, err := f.Fetch(ctx, server.URL); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	start := time.Now()
	if _, err := f.Fetch(ctx, server.URL); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if elapsed := time.Since(start); elapsed < interval-20*time.Millisecond {
		t.Errorf("second fetch started after %v, expected at least %v", elapsed, interval)
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(Config{Site: "test", MaxRetries: 5, RetryDelay: time.Second})
	defer f.Close()

	start := time.Now()
	_, err := f.Fetch(ctx, server.URL)
	if time.Since(start) > 500*time.Millisecond {
		t.Error("canceled fetch should return promptly, not wait out the backoff")
	}
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.Kind != KindCanceled {
		t.Errorf("expected canceled kind, got %v", fe.Kind)
	}
}

func TestFetch_DecodesDeclaredCharset(t *testing.T) {
	// "café" in ISO-8859-1: the é is a single 0xE9 byte.
	latin1 := []byte{'c', 'a', 'f', 0xE9}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write(latin1)
	}))
	defer server.Close()

	f := newTestFetcher(Config{Site: "test"})
	defer f.Close()

	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Body != "café" {
		t.Errorf("expected decoded body %q, got %q", "café", result.Body)
	}
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	f := newTestFetcher(Config{RetryDelay: time.Second})

	if got := f.backoff(0); got != time.Second {
		t.Errorf("attempt 0: expected 1s, got %v", got)
	}
	if got := f.backoff(1); got != 2*time.Second {
		t.Errorf("attempt 1: expected 2s, got %v", got)
	}
	if got := f.backoff(2); got != 4*time.Second {
		t.Errorf("attempt 2: expected 4s, got %v", got)
	}
	if got := f.backoff(10); got != maxBackoff {
		t.Errorf("attempt 10: expected cap %v, got %v", maxBackoff, got)
	}
}

func TestErrorKindHelpers(t *testing.T) {
	transient := &Error{URL: "https://example.com/", Kind: KindTransient}
	permanent := &Error{URL: "https://example.com/", Kind: KindPermanent, StatusCode: 404}

	if !IsTransient(transient) || IsTransient(permanent) {
		t.Error("IsTransient misclassified")
	}
	if !IsPermanent(permanent) || IsPermanent(transient) {
		t.Error("IsPermanent misclassified")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain error should not be transient")
	}
}
