// internal/extract/assembler.go
package extract

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/webharvest/webharvest/internal/config"
	"github.com/webharvest/webharvest/internal/monitoring"
	"github.com/webharvest/webharvest/pkg/records"
)

// Assembler runs the full field rule table against one page and merges the
// results into a provenance-tagged record.
type Assembler struct {
	source    string
	fields    []config.FieldRule
	minFields int
	metrics   *monitoring.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewAssembler builds an Assembler from the site configuration.
func NewAssembler(cfg *config.SiteConfig, metrics *monitoring.Metrics, log zerolog.Logger) *Assembler {
	return &Assembler{
		source:    cfg.Name,
		fields:    cfg.Fields,
		minFields: cfg.MinFields,
		metrics:   metrics,
		log:       log.With().Str("component", "assemble").Logger(),
		now:       time.Now,
	}
}

// Assemble produces a record for the page: provenance fields first, then
// every field whose rule matched. Fields whose whole fallback chain failed
// are omitted rather than defaulted. Records with fewer than the configured
// minimum of extracted fields are flagged low-confidence but still returned;
// keeping or dropping them is the session's decision.
func (a *Assembler) Assemble(doc *Document) *records.Record {
	rec := records.NewWithProvenance(a.source, doc.URL(), a.now())

	extracted := 0
	for _, rule := range a.fields {
		value, ok := ExtractField(doc, rule)
		if !ok {
			continue
		}
		rec.Set(rule.Name, value)
		extracted++
	}

	if extracted < a.minFields {
		rec.SetLowConfidence(true)
		a.log.Warn().Str("url", doc.URL()).Int("fields", extracted).
			Int("min_fields", a.minFields).Msg("sparse record")
	}
	a.metrics.ObserveRecordAssembled(a.source, rec.LowConfidence())

	return rec
}
