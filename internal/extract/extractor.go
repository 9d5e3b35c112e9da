// internal/extract/extractor.go
package extract

import (
	"fmt"
	"strings"

	"github.com/webharvest/webharvest/internal/config"
)

// ExtractField evaluates a field rule's strategies in order and returns the
// first non-empty transformed value. The second return value reports whether
// any candidate matched; absence is a normal outcome, never an error. The
// function is pure: it does no I/O and never mutates the document, so the
// same document and rule always yield the same value.
func ExtractField(doc *Document, rule config.FieldRule) (string, bool) {
	for _, strategy := range rule.Strategies {
		raw, ok := evalStrategy(doc, strategy)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}

		value, err := strategy.Transform.Apply(raw)
		if err != nil {
			continue
		}
		value, err = rule.Transform.Apply(value)
		if err != nil {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		return value, true
	}
	return "", false
}

// evalStrategy locates raw content for one candidate strategy.
func evalStrategy(doc *Document, s config.Strategy) (string, bool) {
	switch s.Kind {
	case config.StrategyCSS:
		sel := doc.Find(s.Selector)
		if sel.Length() == 0 {
			return "", false
		}
		return strings.TrimSpace(sel.First().Text()), true

	case config.StrategyAttr:
		sel := doc.Find(s.Selector)
		if sel.Length() == 0 {
			return "", false
		}
		value, exists := sel.First().Attr(s.Attribute)
		if !exists {
			return "", false
		}
		// Link-bearing attributes are resolved against the page URL so
		// records always carry absolute references.
		if s.Attribute == "href" || s.Attribute == "src" {
			return doc.Resolve(value), true
		}
		return strings.TrimSpace(value), true

	case config.StrategyMeta:
		selector := fmt.Sprintf(`meta[name=%q], meta[property=%q]`, s.Selector, s.Selector)
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			return "", false
		}
		content, exists := sel.First().Attr("content")
		if !exists {
			return "", false
		}
		return strings.TrimSpace(content), true

	default:
		return "", false
	}
}
