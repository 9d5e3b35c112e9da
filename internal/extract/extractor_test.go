// internal/extract/extractor_test.go
package extract

import (
	"regexp"
	"testing"

	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/pipeline"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <meta name="description" content="Meta description here">
  <meta property="og:title" content="OG Title">
</head>
<body>
  <h1>  Acme Tool  </h1>
  <div class="tagline"></div>
  <a class="website" href="/go/acme">Visit</a>
  <img class="logo" src="assets/logo.png">
  <span class="votes">Votes: 128</span>
  <a class="detail" href="/startups/alpha">Alpha</a>
  <a class="detail" href="/startups/beta">Beta</a>
  <a class="detail" href="/startups/alpha">Alpha again</a>
  <a class="other" href="/about">About</a>
</body>
</html>`

func mustParse(t *testing.T, body, pageURL string) *Document {
	t.Helper()
	doc, err := Parse(body, pageURL)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return doc
}

func TestExtractField_CSSText(t *testing.T) {
	doc := mustParse(t, samplePage, "https://example.com/startups/acme")

	rule := config.FieldRule{
		Name:       "name",
		Strategies: []config.Strategy{{Kind: config.StrategyCSS, Selector: "h1"}},
	}
	value, ok := ExtractField(doc, rule)
	if !ok {
		t.Fatal("expected a match")
	}
	if value != "Acme Tool" {
		t.Errorf("expected trimmed text %q, got %q", "Acme Tool", value)
	}
}

func TestExtractField_FallbackOrder(t *testing.T) {
	doc := mustParse(t, samplePage, "https://example.com/")

	// The first strategy matches an element with empty text; the second is
	// the meta fallback, which must win.
	rule := config.FieldRule{
		Name: "description",
		Strategies: []config.Strategy{
			{Kind: config.StrategyCSS, Selector: ".tagline"},
			{Kind: config.StrategyMeta, Selector: "description"},
		},
	}
	value, ok := ExtractField(doc, rule)
	if !ok {
		t.Fatal("expected the fallback strategy to match")
	}
	if value != "Meta description here" {
		t.Errorf("expected meta content, got %q", value)
	}
}

func TestExtractField_MetaProperty(t *testing.T) {
	doc := mustParse(t, samplePage, "https://example.com/")

	rule := config.FieldRule{
		Name:       "title",
		Strategies: []config.Strategy{{Kind: config.StrategyMeta, Selector: "og:title"}},
	}
	value, ok := ExtractField(doc, rule)
	if !ok || value != "OG Title" {
		t.Errorf("expected OG Title, got %q (ok=%v)", value, ok)
	}
}

func TestExtractField_AttrResolvesLinks(t *testing.T) {
	doc := mustParse(t, samplePage, "https://example.com/startups/acme")

	tests := []struct {
		name     string
		selector string
		attr     string
		want     string
	}{
		{"href resolved", "a.website", "href", "https://example.com/go/acme"},
		{"src resolved", "img.logo", "src", "https://example.com/startups/assets/logo.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := config.FieldRule{
				Name: "link",
				Strategies: []config.Strategy{
					{Kind: config.StrategyAttr, Selector: tt.selector, Attribute: tt.attr},
				},
			}
			value, ok := ExtractField(doc, rule)
			if !ok || value != tt.want {
				t.Errorf("expected %q, got %q (ok=%v)", tt.want, value, ok)
			}
		})
	}
}

func TestExtractField_Absent(t *testing.T) {
	doc := mustParse(t, samplePage, "https://example.com/")

	rule := config.FieldRule{
		Name:       "missing",
		Strategies: []config.Strategy{{Kind: config.StrategyCSS, Selector: ".does-not-exist"}},
	}
	value, ok := ExtractField(doc, rule)
	if ok || value != "" {
		t.Errorf("expected no match, got %q (ok=%v)", value, ok)
	}
}

func TestExtractField_TransformFailureFallsThrough(t *testing.T) {
	doc := mustParse(t, samplePage, "https://example.com/")

	// The first candidate matches but its parse_int transform fails on the
	// non-numeric prefix; the chain must move on to the next candidate.
	rule := config.FieldRule{
		Name: "votes",
		Strategies: []config.Strategy{
			{
				Kind:      config.StrategyCSS,
				Selector:  "h1",
				Transform: pipeline.TransformList{{Type: "parse_int"}},
			},
			{
				Kind:      config.StrategyCSS,
				Selector:  ".votes",
				Transform: pipeline.TransformList{{Type: "extract_number"}},
			},
		},
	}
	value, ok := ExtractField(doc, rule)
	if !ok {
		t.Fatal("expected the second candidate to match")
	}
	if value != "128" {
		t.Errorf("expected %q, got %q", "128", value)
	}
}

func TestExtractField_RuleTransformAppliesToWinner(t *testing.T) {
	doc := mustParse(t, samplePage, "https://example.com/")

	rule := config.FieldRule{
		Name:       "name",
		Strategies: []config.Strategy{{Kind: config.StrategyCSS, Selector: "h1"}},
		Transform:  pipeline.TransformList{{Type: "lowercase"}},
	}
	value, ok := ExtractField(doc, rule)
	if !ok || value != "acme tool" {
		t.Errorf("expected lowercased value, got %q (ok=%v)", value, ok)
	}
}

func TestExtractField_Deterministic(t *testing.T) {
	doc := mustParse(t, samplePage, "https://example.com/")

	rule := config.FieldRule{
		Name:       "name",
		Strategies: []config.Strategy{{Kind: config.StrategyCSS, Selector: "h1"}},
	}
	first, _ := ExtractField(doc, rule)
	for i := 0; i < 5; i++ {
		again, _ := ExtractField(doc, rule)
		if again != first {
			t.Fatalf("extraction is not deterministic: %q then %q", first, again)
		}
	}
}

func TestLinks_OrderDedupAndPattern(t *testing.T) {
	doc := mustParse(t, samplePage, "https://example.com/")

	links := doc.Links("a.detail, a.other", "href", nil)
	want := []string{
		"https://example.com/startups/alpha",
		"https://example.com/startups/beta",
		"https://example.com/about",
	}
	if len(links) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(links), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("link %d: expected %q, got %q", i, want[i], links[i])
		}
	}

	filtered := doc.Links("a", "href", regexp.MustCompile(`/startups/`))
	if len(filtered) != 2 {
		t.Errorf("expected 2 pattern-filtered links, got %d: %v", len(filtered), filtered)
	}
}

func TestResolve_UnparseableReturnsInput(t *testing.T) {
	doc := mustParse(t, "<html></html>", "https://example.com/")
	ref := "http://%zz"
	if got := doc.Resolve(ref); got != ref {
		t.Errorf("expected unparseable ref unchanged, got %q", got)
	}
}
