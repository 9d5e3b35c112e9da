// pkg/records/records.go

// Package records defines the structured unit of extracted data produced by a
// crawl session, plus the failure bookkeeping that travels alongside it. Field
// order is preserved from assembly time so exports are reproducible.
package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Provenance field names present on every Record.
const (
	FieldSource    = "source"
	FieldURL       = "url"
	FieldScrapedAt = "scraped_at"
)

// ScrapedAtFormat is the timestamp layout used for the scraped_at field.
const ScrapedAtFormat = time.RFC3339

// Record is one structured unit of extracted data: a field-to-value mapping
// that remembers the order in which fields were set. Values are strings,
// string slices, or nested mappings.
type Record struct {
	keys          []string
	values        map[string]interface{}
	lowConfidence bool
}

// New creates an empty Record.
func New() *Record {
	return &Record{
		values: make(map[string]interface{}),
	}
}

// NewWithProvenance creates a Record pre-populated with the mandatory
// provenance fields, which always occupy the first three positions.
func NewWithProvenance(source, url string, scrapedAt time.Time) *Record {
	r := New()
	r.Set(FieldSource, source)
	r.Set(FieldURL, url)
	r.Set(FieldScrapedAt, scrapedAt.UTC().Format(ScrapedAtFormat))
	return r
}

// Set stores a field value. Setting an existing field overwrites the value
// but keeps the field's original position.
func (r *Record) Set(key string, value interface{}) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns a field value and whether it is present.
func (r *Record) Get(key string) (interface{}, bool) {
	v, ok := r.values[key]
	return v, ok
}

// GetString returns a field value rendered as a string, or "" if absent.
func (r *Record) GetString(key string) string {
	v, ok := r.values[key]
	if !ok || v == nil {
		return ""
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Has reports whether the field is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// SetLowConfidence marks the record as sparse. The flag is an observability
// signal only and is never serialized.
func (r *Record) SetLowConfidence(v bool) {
	r.lowConfidence = v
}

// LowConfidence reports whether the record was flagged as sparse.
func (r *Record) LowConfidence() bool {
	return r.lowConfidence
}

// MarshalJSON encodes the record as a JSON object with fields in insertion
// order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valueJSON, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", key, err)
		}
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the record, preserving the key
// order of the source document.
func (r *Record) UnmarshalJSON(data []byte) error {
	r.keys = nil
	r.values = make(map[string]interface{})

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode field %q: %w", key, err)
		}
		r.Set(key, value)
	}

	_, err = dec.Token() // closing brace
	return err
}

// Failure records a page that could not be fetched or parsed. Failures are
// collected per session and exported next to the records so partial runs stay
// auditable.
type Failure struct {
	URL        string    `json:"url"`
	Reason     string    `json:"reason"`
	Attempts   int       `json:"attempts,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
