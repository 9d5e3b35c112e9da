// internal/extract/parser.go

// Package extract parses fetched HTML and evaluates declarative extraction
// rules against it: per-field fallback chains of tagged strategies, and the
// assembler that merges field results into provenance-tagged records.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed HTML page bound to its source URL so relative links
// can be resolved. It is never mutated after parsing.
type Document struct {
	doc  *goquery.Document
	base *url.URL
	raw  string
}

// Parse builds a Document from an HTML body and the URL it was fetched from.
func Parse(body, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}
	return &Document{doc: doc, base: base, raw: body}, nil
}

// URL returns the page URL the document was fetched from.
func (d *Document) URL() string {
	return d.base.String()
}

// Find runs a CSS selector against the document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Resolve turns a possibly relative reference into an absolute URL against
// the page URL. Unparseable references are returned unchanged.
func (d *Document) Resolve(ref string) string {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return d.base.ResolveReference(parsed).String()
}

// Links returns resolved link targets matched by selector/attribute, in
// document order, first occurrence only. pattern, when non-nil, filters the
// resolved URLs.
func (d *Document) Links(selector, attribute string, pattern *regexp.Regexp) []string {
	if attribute == "" {
		attribute = "href"
	}

	var links []string
	seen := make(map[string]bool)
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		value, exists := s.Attr(attribute)
		if !exists || strings.TrimSpace(value) == "" {
			return
		}
		resolved := d.Resolve(value)
		if pattern != nil && !pattern.MatchString(resolved) {
			return
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})
	return links
}
