// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default returns a SiteConfig carrying the documented defaults. Loading
// starts from this value, so a key absent from the YAML keeps its default
// while an explicit zero (e.g. rate_limit: 0) is honored.
func Default() SiteConfig {
	return SiteConfig{
		RateLimit:     1.0,
		MaxRetries:    3,
		RetryDelay:    1.0,
		Timeout:       30,
		MaxPages:      1,
		IdentityField: "url",
		MinFields:     1,
		Output: OutputConfig{
			Directory: "data",
			Formats:   []string{"json", "csv"},
		},
	}
}

// LoadFromFile reads and validates a site configuration from a YAML file.
func LoadFromFile(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load parses and validates a site configuration from YAML bytes.
func Load(data []byte) (*SiteConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in nested defaults that Default cannot pre-populate.
func (c *SiteConfig) applyDefaults() {
	if c.Discover != nil && c.Discover.Attribute == "" {
		c.Discover.Attribute = "href"
	}
	if c.Pagination != nil && c.Pagination.StartPage <= 0 {
		c.Pagination.StartPage = 1
	}
	for i := range c.Fields {
		for j := range c.Fields[i].Strategies {
			s := &c.Fields[i].Strategies[j]
			if s.Kind == StrategyAttr && s.Attribute == "" {
				s.Attribute = "href"
			}
		}
	}
}

// Seeds returns the initial URL queue: explicit seed URLs first, then any
// pagination-template expansion. The result is bounded by MaxPages since
// additional seeds past the page budget would never be fetched.
func (c *SiteConfig) Seeds() []string {
	seeds := make([]string, 0, len(c.SeedURLs))
	seeds = append(seeds, c.SeedURLs...)

	if c.Pagination != nil {
		pages := c.Pagination.Pages
		if pages <= 0 {
			pages = c.MaxPages
		}
		for i := 0; i < pages; i++ {
			page := c.Pagination.StartPage + i
			seeds = append(seeds, strings.ReplaceAll(
				c.Pagination.URLTemplate, "{page}", strconv.Itoa(page)))
		}
	}

	if len(seeds) > c.MaxPages {
		seeds = seeds[:c.MaxPages]
	}
	return seeds
}
