// internal/output/manager.go
package output

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/monitoring"
	"github.com/webharvest/webharvest/pkg/records"
)

// Manager fans a session's results out to every configured sink. All sinks
// of one export share the same timestamp suffix. Storage errors are fatal:
// the first failing sink aborts the export and surfaces the error.
type Manager struct {
	dir     string
	site    string
	formats []string
	metrics *monitoring.Metrics
	log     zerolog.Logger
}

// NewManager builds a Manager from the site configuration. Output lands in
// <output.directory>/<site>/.
func NewManager(cfg *config.SiteConfig, metrics *monitoring.Metrics, log zerolog.Logger) *Manager {
	return &Manager{
		dir:     filepath.Join(cfg.Output.Directory, cfg.Name),
		site:    cfg.Name,
		formats: cfg.Output.Formats,
		metrics: metrics,
		log:     log.With().Str("component", "output").Logger(),
	}
}

// Export writes the records in every configured format and, when the session
// recorded failures, a companion failures file. It returns the paths written.
func (m *Manager) Export(recs []*records.Record, failures []records.Failure) ([]string, error) {
	timestamp := time.Now()
	var paths []string

	for _, format := range m.formats {
		writer, err := m.writerFor(format, timestamp)
		if err != nil {
			return paths, err
		}

		path, err := writer.Write(recs)
		m.metrics.ObserveExport(m.site, format, err)
		if err != nil {
			return paths, fmt.Errorf("%s export failed: %w", format, err)
		}
		m.log.Info().Str("format", format).Str("path", path).
			Int("records", len(recs)).Msg("exported")
		paths = append(paths, path)
	}

	if len(failures) > 0 {
		path, err := NewJSONWriter(m.dir, m.site, timestamp).WriteFailures(failures)
		if err != nil {
			return paths, fmt.Errorf("failure list export failed: %w", err)
		}
		m.log.Info().Str("path", path).Int("failures", len(failures)).
			Msg("exported failure list")
		paths = append(paths, path)
	}

	return paths, nil
}

func (m *Manager) writerFor(format string, timestamp time.Time) (Writer, error) {
	switch format {
	case "json":
		return NewJSONWriter(m.dir, m.site, timestamp), nil
	case "csv":
		return NewCSVWriter(m.dir, m.site, timestamp), nil
	case "excel":
		return NewExcelWriter(m.dir, m.site, timestamp), nil
	case "sqlite":
		return NewSQLiteWriter(m.dir, m.site, timestamp), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
