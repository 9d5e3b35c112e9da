// internal/output/excel.go
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/webharvest/webharvest/pkg/records"
)

const excelSheetName = "Records"

// ExcelWriter writes records to an xlsx workbook with the same header-union
// layout as the CSV sink.
type ExcelWriter struct {
	dir       string
	site      string
	timestamp time.Time
}

// NewExcelWriter creates an Excel writer for one export run.
func NewExcelWriter(dir, site string, timestamp time.Time) *ExcelWriter {
	return &ExcelWriter{dir: dir, site: site, timestamp: timestamp}
}

// Format returns "excel".
func (w *ExcelWriter) Format() string { return "excel" }

// Write persists the records and returns the final file path.
func (w *ExcelWriter) Write(recs []*records.Record) (string, error) {
	path := Filename(w.dir, w.site, "xlsx", w.timestamp)

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", excelSheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	header := fieldUnion(recs)
	for col, field := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", fmt.Errorf("invalid header coordinate: %w", err)
		}
		if err := file.SetCellValue(excelSheetName, cell, field); err != nil {
			return "", fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for rowIdx, rec := range recs {
		for col, field := range header {
			if !rec.Has(field) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return "", fmt.Errorf("invalid cell coordinate: %w", err)
			}
			if err := file.SetCellValue(excelSheetName, cell, rec.GetString(field)); err != nil {
				return "", fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	err := atomicWrite(path, func(f io.Writer) error {
		if _, err := file.WriteTo(f); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}
