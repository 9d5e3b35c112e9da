// internal/output/output.go

// Package output persists crawl results. Every sink writes through a temp
// file in the destination directory followed by a rename, so a partially
// written file is never left as the final artifact. File names carry a
// timestamp suffix to avoid overwriting earlier runs.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/webharvest/webharvest/pkg/records"
)

// Writer persists a record set to one destination and returns the final path.
type Writer interface {
	Write(recs []*records.Record) (string, error)
	Format() string
}

// Filename builds the timestamp-suffixed output path for a site export.
func Filename(dir, site, ext string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", site, t.Format("20060102_150405"), ext))
}

// atomicWrite streams content into a temp file next to path and renames it
// into place. On any error the temp file is removed and path is untouched.
func atomicWrite(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}

// fieldUnion returns the union of field names across all records, in order
// of first appearance. This is the CSV/Excel header.
func fieldUnion(recs []*records.Record) []string {
	var fields []string
	seen := make(map[string]bool)
	for _, rec := range recs {
		for _, key := range rec.Keys() {
			if !seen[key] {
				seen[key] = true
				fields = append(fields, key)
			}
		}
	}
	return fields
}
