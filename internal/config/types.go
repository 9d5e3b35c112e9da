// internal/config/types.go

// Package config defines the per-site crawl configuration: seed URLs, request
// policy, the declarative field-extraction rule table, link discovery, and
// output settings. One SiteConfig drives one crawl session and is immutable
// for its lifetime.
package config

import (
	"time"

	"github.com/webharvest/webharvest/internal/pipeline"
)

// SiteConfig is the full configuration for crawling one site.
type SiteConfig struct {
	// Name identifies the site; it becomes the `source` field on every
	// record and the prefix of output file names.
	Name string `yaml:"name"`

	// SeedURLs are the starting pages, processed in order.
	SeedURLs []string `yaml:"seed_urls"`

	// RateLimit is the minimum number of seconds between outbound requests.
	RateLimit float64 `yaml:"rate_limit"`

	// MaxRetries is the number of retries after the initial attempt for
	// transient failures.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the backoff base in seconds; the delay doubles per
	// attempt and is capped at 30s.
	RetryDelay float64 `yaml:"retry_delay,omitempty"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// MaxPages bounds the total number of pages fetched in one session.
	MaxPages int `yaml:"max_pages"`

	// UserAgent overrides the default identifying client header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// IdentityField names the record field used for deduplication.
	// Defaults to "url".
	IdentityField string `yaml:"identity_field,omitempty"`

	// MinFields is the minimum number of extracted (non-provenance) fields
	// below which a record is flagged low-confidence.
	MinFields int `yaml:"min_fields,omitempty"`

	// KeepSparse controls whether low-confidence records are kept (default)
	// or dropped.
	KeepSparse *bool `yaml:"keep_sparse,omitempty"`

	// Discover configures detail-link discovery on fetched pages.
	Discover *DiscoverConfig `yaml:"discover,omitempty"`

	// Pagination expands a URL template into additional seed URLs.
	Pagination *PaginationConfig `yaml:"pagination,omitempty"`

	// Fields is the extraction rule table evaluated on every page.
	Fields []FieldRule `yaml:"fields"`

	// Output controls where and in which formats records are exported.
	Output OutputConfig `yaml:"output"`
}

// DiscoverConfig configures how detail-page links are found on a page.
// Matched values are resolved against the page URL before enqueueing.
type DiscoverConfig struct {
	Selector  string `yaml:"selector"`
	Attribute string `yaml:"attribute,omitempty"`
	Pattern   string `yaml:"pattern,omitempty"`
}

// PaginationConfig expands a numbered-page URL template into seed URLs.
// The template must contain a "{page}" placeholder.
type PaginationConfig struct {
	URLTemplate string `yaml:"url_template"`
	StartPage   int    `yaml:"start_page,omitempty"`
	Pages       int    `yaml:"pages,omitempty"`
}

// FieldRule is the ordered fallback chain for one field. Strategies are
// evaluated in order; the first that locates non-empty content and whose
// transforms succeed wins. Transform, if set, applies to the winning value
// after any strategy-level transforms.
type FieldRule struct {
	Name       string                 `yaml:"name"`
	Strategies []Strategy             `yaml:"strategies"`
	Transform  pipeline.TransformList `yaml:"transform,omitempty"`
}

// Strategy kinds.
const (
	StrategyCSS  = "css"  // text content of the first selector match
	StrategyAttr = "attr" // attribute value of the first selector match
	StrategyMeta = "meta" // content attribute of <meta name=|property=...>
)

// Strategy is one candidate way to locate a field's value in a document.
type Strategy struct {
	Kind      string                 `yaml:"kind"`
	Selector  string                 `yaml:"selector"`
	Attribute string                 `yaml:"attribute,omitempty"`
	Transform pipeline.TransformList `yaml:"transform,omitempty"`
}

// OutputConfig defines export settings.
type OutputConfig struct {
	// Directory is the root output directory; the site name is appended.
	Directory string `yaml:"directory"`

	// Formats lists export sinks: json, csv, excel, sqlite.
	Formats []string `yaml:"formats"`
}

// RateLimitInterval returns the rate limit as a duration.
func (c *SiteConfig) RateLimitInterval() time.Duration {
	return time.Duration(c.RateLimit * float64(time.Second))
}

// RetryDelayDuration returns the backoff base as a duration.
func (c *SiteConfig) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay * float64(time.Second))
}

// TimeoutDuration returns the request timeout as a duration.
func (c *SiteConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// KeepSparseRecords reports the sparse-record policy, defaulting to keep.
func (c *SiteConfig) KeepSparseRecords() bool {
	if c.KeepSparse == nil {
		return true
	}
	return *c.KeepSparse
}
