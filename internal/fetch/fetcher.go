// internal/fetch/fetcher.go

// Package fetch performs rate-limited, retrying HTTP GETs over a pooled
// connection. Transient failures (timeouts, 429, 5xx) are retried with
// exponential backoff; other 4xx responses fail immediately.
package fetch

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/webharvest/webharvest/internal/monitoring"
	"github.com/webharvest/webharvest/internal/ratelimit"
)

// DefaultUserAgent is the identifying client header sent with every request.
const DefaultUserAgent = "webharvest/1.0 (+https://github.com/webharvest/webharvest)"

const maxBackoff = 30 * time.Second

// Result is the success arm of a fetch: a fully read, UTF-8 decoded body.
type Result struct {
	URL        string
	Body       string
	StatusCode int
	Attempts   int
	Duration   time.Duration
}

// Config holds fetcher settings.
type Config struct {
	// Site labels log lines and metrics.
	Site string

	// Timeout applies per request.
	Timeout time.Duration

	// MaxRetries is the number of retries after the initial attempt.
	// Total attempts never exceed MaxRetries+1.
	MaxRetries int

	// RetryDelay is the backoff base; the delay doubles per failed attempt
	// and is capped at 30s.
	RetryDelay time.Duration

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// Headers are extra request headers.
	Headers map[string]string
}

// Fetcher issues GET requests through a shared connection pool. It owns the
// pool: Close must be called when the session ends so idle connections are
// released on every exit path.
type Fetcher struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	config  Config
	metrics *monitoring.Metrics
	log     zerolog.Logger
}

// New creates a Fetcher. limiter may not be nil; metrics may be nil.
func New(config Config, limiter *ratelimit.Limiter, metrics *monitoring.Metrics, log zerolog.Logger) *Fetcher {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Fetcher{
		client:  client,
		limiter: limiter,
		config:  config,
		metrics: metrics,
		log:     log.With().Str("component", "fetch").Logger(),
	}
}

// Fetch performs a GET with rate limiting and retry. On success the returned
// Result carries the complete body; on failure the error is always a *Error
// and no partial body is returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	start := time.Now()
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &Error{URL: url, Kind: KindCanceled, Attempts: attempt, Err: err}
		}

		f.metrics.ObserveFetchAttempt(f.config.Site)

		result, status, err := f.attempt(ctx, url)
		if err == nil && result != nil {
			result.Attempts = attempt + 1
			result.Duration = time.Since(start)
			f.metrics.ObserveFetchDuration(f.config.Site, result.Duration.Seconds())
			f.log.Debug().Str("url", url).Int("status", result.StatusCode).
				Int("attempts", result.Attempts).Msg("fetched")
			return result, nil
		}

		if ctx.Err() != nil {
			return nil, &Error{URL: url, Kind: KindCanceled, Attempts: attempt + 1, Err: ctx.Err()}
		}

		lastStatus = status
		lastErr = err

		if status > 0 && !retryableStatus(status) {
			fe := &Error{URL: url, Kind: KindPermanent, Attempts: attempt + 1, StatusCode: status}
			f.metrics.ObserveFetchFailure(f.config.Site, fe.Kind.String())
			f.log.Warn().Str("url", url).Int("status", status).Msg("permanent failure")
			return nil, fe
		}

		if attempt < f.config.MaxRetries {
			delay := f.backoff(attempt)
			f.metrics.ObserveFetchRetry(f.config.Site)
			f.log.Warn().Str("url", url).Int("status", status).
				Dur("backoff", delay).Int("attempt", attempt+1).Msg("transient failure, retrying")
			if err := sleep(ctx, delay); err != nil {
				return nil, &Error{URL: url, Kind: KindCanceled, Attempts: attempt + 1, Err: err}
			}
		}
	}

	fe := &Error{
		URL:        url,
		Kind:       KindTransient,
		Attempts:   f.config.MaxRetries + 1,
		StatusCode: lastStatus,
		Err:        lastErr,
	}
	f.metrics.ObserveFetchFailure(f.config.Site, fe.Kind.String())
	f.log.Error().Str("url", url).Int("attempts", fe.Attempts).Msg("retries exhausted")
	return nil, fe
}

// attempt issues a single GET. It returns (result, 0, nil) on success,
// (nil, status, nil) for a non-2xx response, and (nil, 0, err) for a
// transport error.
func (f *Fetcher) attempt(ctx context.Context, url string) (*Result, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for key, value := range f.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		// A truncated body counts as a transport failure; the caller never
		// sees a partial result.
		return nil, 0, err
	}

	body := decodeBody(raw, resp.Header.Get("Content-Type"))
	return &Result{URL: url, Body: body, StatusCode: resp.StatusCode}, 0, nil
}

// Close releases idle pooled connections.
func (f *Fetcher) Close() {
	if transport, ok := f.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// backoff returns base * 2^attempt capped at maxBackoff.
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.config.RetryDelay << uint(attempt)
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}
	return delay
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// decodeBody converts the response body to UTF-8 using the charset declared
// in the Content-Type header. Unknown or missing charsets fall back to the
// raw bytes.
func decodeBody(raw []byte, contentType string) string {
	if contentType == "" {
		return string(raw)
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(raw)
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(raw)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(raw)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
