// internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var validFormats = map[string]bool{
	"json":   true,
	"csv":    true,
	"excel":  true,
	"sqlite": true,
}

var validStrategyKinds = map[string]bool{
	StrategyCSS:  true,
	StrategyAttr: true,
	StrategyMeta: true,
}

// Validate checks the configuration for fatal errors. It runs before any
// network activity so a broken config never burns the retry budget.
func (c *SiteConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("site name is required")
	}
	if len(c.SeedURLs) == 0 && c.Pagination == nil {
		return fmt.Errorf("at least one seed URL or a pagination template is required")
	}
	for i, seed := range c.SeedURLs {
		if err := validateURL(seed); err != nil {
			return fmt.Errorf("seed URL %d: %w", i, err)
		}
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be at least 1")
	}
	if c.MinFields < 0 {
		return fmt.Errorf("min_fields cannot be negative")
	}

	if c.Discover != nil {
		if strings.TrimSpace(c.Discover.Selector) == "" {
			return fmt.Errorf("discover.selector is required when discover is set")
		}
		if c.Discover.Pattern != "" {
			if _, err := regexp.Compile(c.Discover.Pattern); err != nil {
				return fmt.Errorf("discover.pattern is not a valid regexp: %w", err)
			}
		}
	}

	if c.Pagination != nil {
		if !strings.Contains(c.Pagination.URLTemplate, "{page}") {
			return fmt.Errorf("pagination.url_template must contain a {page} placeholder")
		}
		if c.Pagination.Pages < 0 {
			return fmt.Errorf("pagination.pages cannot be negative")
		}
	}

	if len(c.Fields) == 0 {
		return fmt.Errorf("at least one field rule is required")
	}
	seen := make(map[string]bool, len(c.Fields))
	for i, field := range c.Fields {
		if err := field.validate(); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		if seen[field.Name] {
			return fmt.Errorf("field %d: duplicate field name %q", i, field.Name)
		}
		seen[field.Name] = true
	}

	if strings.TrimSpace(c.Output.Directory) == "" {
		return fmt.Errorf("output.directory is required")
	}
	if len(c.Output.Formats) == 0 {
		return fmt.Errorf("at least one output format is required")
	}
	for _, format := range c.Output.Formats {
		if !validFormats[format] {
			return fmt.Errorf("unknown output format %q", format)
		}
	}

	return nil
}

func (f FieldRule) validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("field name is required")
	}
	if len(f.Strategies) == 0 {
		return fmt.Errorf("field %q: at least one strategy is required", f.Name)
	}
	for i, s := range f.Strategies {
		if !validStrategyKinds[s.Kind] {
			return fmt.Errorf("field %q strategy %d: unknown kind %q", f.Name, i, s.Kind)
		}
		if strings.TrimSpace(s.Selector) == "" {
			return fmt.Errorf("field %q strategy %d: selector is required", f.Name, i)
		}
		if s.Kind == StrategyAttr && strings.TrimSpace(s.Attribute) == "" {
			return fmt.Errorf("field %q strategy %d: attribute is required for attr kind", f.Name, i)
		}
		for j, rule := range s.Transform {
			if err := rule.Validate(); err != nil {
				return fmt.Errorf("field %q strategy %d transform %d: %w", f.Name, i, j, err)
			}
		}
	}
	for j, rule := range f.Transform {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("field %q transform %d: %w", f.Name, j, err)
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
