// internal/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/webharvest/webharvest/pkg/records"
)

// JSONWriter writes records as an ordered UTF-8 JSON array. Each object's
// keys appear in assembly order.
type JSONWriter struct {
	dir       string
	site      string
	timestamp time.Time
}

// NewJSONWriter creates a JSON writer for one export run.
func NewJSONWriter(dir, site string, timestamp time.Time) *JSONWriter {
	return &JSONWriter{dir: dir, site: site, timestamp: timestamp}
}

// Format returns "json".
func (w *JSONWriter) Format() string { return "json" }

// Write persists the records and returns the final file path.
func (w *JSONWriter) Write(recs []*records.Record) (string, error) {
	path := Filename(w.dir, w.site, "json", w.timestamp)

	if recs == nil {
		recs = []*records.Record{}
	}
	err := atomicWrite(path, func(f io.Writer) error {
		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(recs); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// WriteFailures persists the session failure list next to the records.
func (w *JSONWriter) WriteFailures(failures []records.Failure) (string, error) {
	path := Filename(w.dir, w.site+"_failures", "json", w.timestamp)

	err := atomicWrite(path, func(f io.Writer) error {
		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(failures)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}
