// internal/session/session.go

// Package session orchestrates one crawl: it drives the fetch/parse state
// machine over a FIFO URL queue, deduplicates records by identity key,
// discovers detail links, and hands the accumulated results to the record
// store. Sessions share no mutable state; one site, one session.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/extract"
	"github.com/webharvest/webharvest/internal/fetch"
	"github.com/webharvest/webharvest/internal/monitoring"
	"github.com/webharvest/webharvest/internal/ratelimit"
	"github.com/webharvest/webharvest/pkg/records"
)

// State is the crawl session's lifecycle state.
type State int

const (
	StateInit State = iota
	StateFetching
	StateParsing
	StateDone
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a session. It is produced whichever
// terminal state was reached, so partial results are never lost.
type Outcome struct {
	State        State
	Records      []*records.Record
	Failures     []records.Failure
	PagesFetched int
	Duration     time.Duration
}

// Snapshot is a point-in-time view of crawl progress for the status server.
type Snapshot struct {
	Site         string `json:"site"`
	State        string `json:"state"`
	PagesFetched int    `json:"pages_fetched"`
	Pending      int    `json:"pending"`
	Records      int    `json:"records"`
	Failures     int    `json:"failures"`
}

// Session owns the crawl state for one site. All state is owned exclusively
// by Run; the mutex exists only so Status can be read concurrently.
type Session struct {
	cfg             *config.SiteConfig
	fetcher         *fetch.Fetcher
	assembler       *extract.Assembler
	metrics         *monitoring.Metrics
	log             zerolog.Logger
	discoverPattern *regexp.Regexp

	mu       sync.Mutex
	state    State
	pending  []string
	enqueued map[string]bool
	seeds    map[string]bool
	visited  map[string]bool
	records  []*records.Record
	failures []records.Failure
	pages    int
}

// New is the session factory: it validates the configuration, builds the
// rate limiter, fetcher and assembler, and seeds the URL queue. Validation
// failures are fatal before any network activity.
func New(cfg *config.SiteConfig, metrics *monitoring.Metrics, log zerolog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var pattern *regexp.Regexp
	if cfg.Discover != nil && cfg.Discover.Pattern != "" {
		var err error
		pattern, err = regexp.Compile(cfg.Discover.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid discover pattern: %w", err)
		}
	}

	log = log.With().Str("site", cfg.Name).Logger()

	limiter := ratelimit.New(cfg.RateLimitInterval())
	fetcher := fetch.New(fetch.Config{
		Site:       cfg.Name,
		Timeout:    cfg.TimeoutDuration(),
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelayDuration(),
		UserAgent:  cfg.UserAgent,
	}, limiter, metrics, log)

	s := &Session{
		cfg:             cfg,
		fetcher:         fetcher,
		assembler:       extract.NewAssembler(cfg, metrics, log),
		metrics:         metrics,
		log:             log.With().Str("component", "session").Logger(),
		discoverPattern: pattern,
		state:           StateInit,
		enqueued:        make(map[string]bool),
		seeds:           make(map[string]bool),
		visited:         make(map[string]bool),
	}

	for _, seed := range cfg.Seeds() {
		s.seeds[seed] = true
		s.enqueue(seed)
	}
	return s, nil
}

// Run drives the session to a terminal state and returns the outcome. The
// context is checked at the top of each fetch/parse cycle, never mid-request;
// on cancellation the session finishes as DONE with whatever it has. The
// fetcher's connection pool is released on every exit path.
func (s *Session) Run(ctx context.Context) *Outcome {
	defer s.fetcher.Close()

	start := time.Now()
	seedFailed := false
	canceled := false

	s.log.Info().Int("seeds", len(s.pending)).Int("max_pages", s.cfg.MaxPages).
		Msg("session started")

	for {
		if ctx.Err() != nil {
			s.log.Warn().Msg("canceled, keeping partial results")
			canceled = true
			break
		}

		s.setState(StateFetching)
		url, ok := s.dequeue()
		if !ok || s.pageCount() >= s.cfg.MaxPages {
			break
		}

		result, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			s.recordFailure(url, err)
			if s.seeds[url] {
				seedFailed = true
			}
			var fe *fetch.Error
			if errors.As(err, &fe) && fe.Kind == fetch.KindCanceled {
				canceled = true
				break
			}
			// A single page's failure never aborts the session.
			continue
		}

		s.setState(StateParsing)
		s.processPage(url, result.Body)
	}

	state := StateDone
	if !canceled && s.pageCount() == 0 && seedFailed {
		state = StateFailed
	}
	s.setState(state)

	outcome := &Outcome{
		State:        state,
		Records:      s.collectedRecords(),
		Failures:     s.collectedFailures(),
		PagesFetched: s.pageCount(),
		Duration:     time.Since(start),
	}
	s.log.Info().Stringer("state", state).Int("pages", outcome.PagesFetched).
		Int("records", len(outcome.Records)).Int("failures", len(outcome.Failures)).
		Dur("duration", outcome.Duration).Msg("session finished")
	return outcome
}

// processPage parses a fetched body, assembles a record, deduplicates it,
// and enqueues any discovered detail links.
func (s *Session) processPage(url, body string) {
	doc, err := extract.Parse(body, url)
	if err != nil {
		s.recordFailure(url, err)
		return
	}

	s.mu.Lock()
	s.pages++
	s.mu.Unlock()
	s.metrics.ObservePageScraped(s.cfg.Name)

	rec := s.assembler.Assemble(doc)
	s.keepRecord(url, rec)

	if s.cfg.Discover != nil {
		links := doc.Links(s.cfg.Discover.Selector, s.cfg.Discover.Attribute, s.discoverPattern)
		for _, link := range links {
			if !s.hasPageBudget() {
				break
			}
			s.enqueue(link)
		}
	}
}

// keepRecord applies the sparse-record policy and identity-key dedup before
// appending the record.
func (s *Session) keepRecord(url string, rec *records.Record) {
	if rec.LowConfidence() && !s.cfg.KeepSparseRecords() {
		s.log.Warn().Str("url", url).Msg("dropping sparse record")
		return
	}

	key := rec.GetString(s.cfg.IdentityField)
	if key == "" {
		key = url
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visited[key] {
		s.metrics.ObserveDuplicateDropped(s.cfg.Name)
		s.log.Debug().Str("identity", key).Msg("duplicate record discarded")
		return
	}
	s.visited[key] = true
	s.records = append(s.records, rec)
}

// recordFailure logs a page failure and appends it to the failure list.
func (s *Session) recordFailure(url string, err error) {
	failure := records.Failure{
		URL:        url,
		Reason:     err.Error(),
		OccurredAt: time.Now().UTC(),
	}
	var fe *fetch.Error
	if errors.As(err, &fe) {
		failure.Attempts = fe.Attempts
	}

	s.mu.Lock()
	s.failures = append(s.failures, failure)
	s.mu.Unlock()
	s.log.Warn().Str("url", url).Err(err).Msg("page failed")
}

// enqueue appends a URL to the pending queue unless it was already queued
// or the page budget is spent.
func (s *Session) enqueue(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enqueued[url] {
		return
	}
	if s.pages+len(s.pending) >= s.cfg.MaxPages {
		return
	}
	s.enqueued[url] = true
	s.pending = append(s.pending, url)
}

// dequeue pops the next URL in FIFO discovery order.
func (s *Session) dequeue() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return "", false
	}
	url := s.pending[0]
	s.pending = s.pending[1:]
	return url, true
}

func (s *Session) hasPageBudget() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages+len(s.pending) < s.cfg.MaxPages
}

func (s *Session) pageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) collectedRecords() []*records.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*records.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Session) collectedFailures() []records.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]records.Failure, len(s.failures))
	copy(out, s.failures)
	return out
}

// Status returns a progress snapshot; safe to call while Run is active.
func (s *Session) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Site:         s.cfg.Name,
		State:        s.state.String(),
		PagesFetched: s.pages,
		Pending:      len(s.pending),
		Records:      len(s.records),
		Failures:     len(s.failures),
	}
}
