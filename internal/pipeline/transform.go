// internal/pipeline/transform.go

// Package pipeline provides the transformation rules applied to raw extracted
// values before they are merged into a record.
package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TransformRule defines a single transformation applied to an extracted value.
type TransformRule struct {
	Type        string                 `yaml:"type" json:"type"`
	Pattern     string                 `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Replacement string                 `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	Format      string                 `yaml:"format,omitempty" json:"format,omitempty"`
	Params      map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
}

// TransformList is an ordered chain of transformation rules applied in
// sequence. A failing rule aborts the chain.
type TransformList []TransformRule

// Apply runs every rule in order on the input string.
func (tl TransformList) Apply(input string) (string, error) {
	result := input
	for i, rule := range tl {
		var err error
		result, err = rule.Apply(result)
		if err != nil {
			return "", fmt.Errorf("transform rule %d (%s) failed: %w", i, rule.Type, err)
		}
	}
	return result, nil
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	numberRe     = regexp.MustCompile(`-?\d+(?:[.,]\d+)*`)
)

// Apply runs a single transformation rule on the input string.
func (tr TransformRule) Apply(input string) (string, error) {
	switch tr.Type {
	case "trim":
		return strings.TrimSpace(input), nil

	case "normalize_spaces":
		return whitespaceRe.ReplaceAllString(strings.TrimSpace(input), " "), nil

	case "lowercase":
		return strings.ToLower(input), nil

	case "uppercase":
		return strings.ToUpper(input), nil

	case "remove_html":
		return htmlTagRe.ReplaceAllString(input, ""), nil

	case "extract_number":
		match := numberRe.FindString(input)
		if match == "" {
			return "", fmt.Errorf("no number found in %q", input)
		}
		return strings.ReplaceAll(match, ",", ""), nil

	case "parse_int":
		cleaned := strings.ReplaceAll(strings.TrimSpace(input), ",", "")
		if _, err := strconv.ParseInt(cleaned, 10, 64); err != nil {
			return "", fmt.Errorf("parse_int failed: %w", err)
		}
		return cleaned, nil

	case "parse_float":
		cleaned := strings.ReplaceAll(strings.TrimSpace(input), ",", "")
		if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
			return "", fmt.Errorf("parse_float failed: %w", err)
		}
		return cleaned, nil

	case "regex":
		if tr.Pattern == "" {
			return "", fmt.Errorf("regex transform requires a pattern")
		}
		re, err := regexp.Compile(tr.Pattern)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		// With a replacement the rule rewrites; without one it extracts the
		// first match. params.replacement allows an explicit empty string.
		if replacement, ok := tr.replacement(); ok {
			return re.ReplaceAllString(input, replacement), nil
		}
		match := re.FindString(input)
		if match == "" {
			return "", fmt.Errorf("pattern %q matched nothing", tr.Pattern)
		}
		return match, nil

	case "replace":
		oldVal, newVal, err := tr.replaceParams()
		if err != nil {
			return "", err
		}
		return strings.ReplaceAll(input, oldVal, newVal), nil

	case "prefix":
		value, err := tr.stringParam("value")
		if err != nil {
			return "", err
		}
		return value + input, nil

	case "suffix":
		value, err := tr.stringParam("value")
		if err != nil {
			return "", err
		}
		return input + value, nil

	case "parse_date":
		return tr.parseDate(input)

	default:
		return "", fmt.Errorf("unknown transform type %q", tr.Type)
	}
}

// Validate checks that the rule is well formed without applying it, so broken
// rule tables fail during configuration validation instead of mid-crawl.
func (tr TransformRule) Validate() error {
	switch tr.Type {
	case "trim", "normalize_spaces", "lowercase", "uppercase", "remove_html",
		"extract_number", "parse_int", "parse_float":
		return nil
	case "regex":
		if tr.Pattern == "" {
			return fmt.Errorf("regex transform requires a pattern")
		}
		if _, err := regexp.Compile(tr.Pattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		return nil
	case "replace":
		_, _, err := tr.replaceParams()
		return err
	case "prefix", "suffix":
		_, err := tr.stringParam("value")
		return err
	case "parse_date":
		if tr.Format == "" && len(tr.inputFormats()) == 0 {
			return fmt.Errorf("parse_date requires a format")
		}
		return nil
	default:
		return fmt.Errorf("unknown transform type %q", tr.Type)
	}
}

// parseDate normalizes a date string. Input layouts are tried in order; the
// first that parses wins. The output layout defaults to date-only ISO.
func (tr TransformRule) parseDate(input string) (string, error) {
	layouts := tr.inputFormats()
	if tr.Format != "" {
		layouts = append([]string{tr.Format}, layouts...)
	}
	if len(layouts) == 0 {
		return "", fmt.Errorf("parse_date requires a format")
	}

	outputFormat := "2006-01-02"
	if tr.Params != nil {
		if v, ok := tr.Params["output_format"].(string); ok && v != "" {
			outputFormat = v
		}
	}

	cleaned := strings.TrimSpace(strings.ReplaceAll(input, ",", ""))
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return parsed.Format(outputFormat), nil
		}
	}
	return "", fmt.Errorf("no date layout matched %q", input)
}

func (tr TransformRule) replacement() (string, bool) {
	if tr.Replacement != "" {
		return tr.Replacement, true
	}
	if tr.Params != nil {
		if v, ok := tr.Params["replacement"].(string); ok {
			return v, true
		}
	}
	return "", false
}

func (tr TransformRule) inputFormats() []string {
	if tr.Params == nil {
		return nil
	}
	raw, ok := tr.Params["input_formats"]
	if !ok {
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var layouts []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			layouts = append(layouts, s)
		}
	}
	return layouts
}

func (tr TransformRule) replaceParams() (string, string, error) {
	if tr.Params == nil {
		return "", "", fmt.Errorf("replace transform requires old and new parameters")
	}
	oldVal, okOld := tr.Params["old"].(string)
	newVal, okNew := tr.Params["new"].(string)
	if !okOld || !okNew {
		return "", "", fmt.Errorf("replace transform requires old and new parameters")
	}
	return oldVal, newVal, nil
}

func (tr TransformRule) stringParam(name string) (string, error) {
	if tr.Params == nil {
		return "", fmt.Errorf("%s transform requires a %s parameter", tr.Type, name)
	}
	value, ok := tr.Params[name].(string)
	if !ok {
		return "", fmt.Errorf("%s transform requires a %s parameter", tr.Type, name)
	}
	return value, nil
}
