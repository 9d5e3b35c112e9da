// internal/output/sqlite.go
package output

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/webharvest/webharvest/pkg/records"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	source     TEXT NOT NULL,
	url        TEXT NOT NULL,
	scraped_at TEXT NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_source ON records(source);
`

// SQLiteWriter persists records into a per-run SQLite database. The full
// record is stored as ordered JSON in the data column, with the provenance
// fields lifted into their own columns for querying. All inserts happen in
// a single transaction so a failed export leaves no partial rows.
type SQLiteWriter struct {
	dir       string
	site      string
	timestamp time.Time
}

// NewSQLiteWriter creates a SQLite writer for one export run.
func NewSQLiteWriter(dir, site string, timestamp time.Time) *SQLiteWriter {
	return &SQLiteWriter{dir: dir, site: site, timestamp: timestamp}
}

// Format returns "sqlite".
func (w *SQLiteWriter) Format() string { return "sqlite" }

// Write persists the records and returns the final file path.
func (w *SQLiteWriter) Write(recs []*records.Record) (string, error) {
	path := Filename(w.dir, w.site, "db", w.timestamp)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return "", fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO records (source, url, scraped_at, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			tx.Rollback()
			return "", fmt.Errorf("failed to marshal record: %w", err)
		}
		_, err = stmt.Exec(
			rec.GetString(records.FieldSource),
			rec.GetString(records.FieldURL),
			rec.GetString(records.FieldScrapedAt),
			string(data),
		)
		if err != nil {
			tx.Rollback()
			return "", fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit records: %w", err)
	}
	return path, nil
}
