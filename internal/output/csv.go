// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/webharvest/webharvest/pkg/records"
)

// CSVWriter writes records as CSV. The header is the union of all field
// names in order of first appearance; absent fields render as empty cells.
type CSVWriter struct {
	dir       string
	site      string
	timestamp time.Time
}

// NewCSVWriter creates a CSV writer for one export run.
func NewCSVWriter(dir, site string, timestamp time.Time) *CSVWriter {
	return &CSVWriter{dir: dir, site: site, timestamp: timestamp}
}

// Format returns "csv".
func (w *CSVWriter) Format() string { return "csv" }

// Write persists the records and returns the final file path.
func (w *CSVWriter) Write(recs []*records.Record) (string, error) {
	path := Filename(w.dir, w.site, "csv", w.timestamp)

	err := atomicWrite(path, func(f io.Writer) error {
		writer := csv.NewWriter(f)
		header := fieldUnion(recs)

		if len(header) > 0 {
			if err := writer.Write(header); err != nil {
				return fmt.Errorf("failed to write CSV header: %w", err)
			}
		}

		row := make([]string, len(header))
		for _, rec := range recs {
			for i, field := range header {
				row[i] = ""
				if rec.Has(field) {
					row[i] = rec.GetString(field)
				}
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}

		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return "", err
	}
	return path, nil
}
