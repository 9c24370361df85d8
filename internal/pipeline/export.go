package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"calibboard/internal"
)

const (
	RecordsSheet = "Records"
	KPISheet     = "KPIs"
)

var recordHeaders = []string{
	"subsystem", "tag", "description", "location",
	"calibration_required", "calibration_status", "origin",
}

// ExportRecordsToXLSX writes records and their KPI summary to outputPath,
// creating the parent directory.
func ExportRecordsToXLSX(records []internal.CanonicalRecord, summary internal.KPISummary, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outputPath) //nolint:gosec // operator-supplied path
	if err != nil {
		return err
	}
	if err := WriteXLSX(out, records, summary); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func WriteXLSX(w io.Writer, records []internal.CanonicalRecord, summary internal.KPISummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), RecordsSheet); err != nil {
		return err
	}
	for i, h := range recordHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(RecordsSheet, cell, h)
	}
	for i, r := range records {
		row := i + 2
		set := func(col int, value string) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(RecordsSheet, cell, value)
		}
		set(1, r.Subsystem)
		set(2, r.Tag)
		set(3, r.Description)
		set(4, r.Location)
		set(5, r.CalibrationRequired)
		set(6, r.CalibrationStatus)
		set(7, r.Origin)
	}

	if _, err := f.NewSheet(KPISheet); err != nil {
		return err
	}
	kpis := []struct {
		name  string
		value int
	}{
		{"total", summary.Total},
		{"missing_tag", summary.MissingTag},
		{"required", summary.Required},
		{"completed", summary.Completed},
		{"outstanding", summary.Outstanding},
		{"completion_percent", summary.CompletionPercent},
	}
	for i, k := range kpis {
		row := i + 1
		nameCell, _ := excelize.CoordinatesToCellName(1, row)
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(KPISheet, nameCell, k.name)
		_ = f.SetCellValue(KPISheet, valueCell, k.value)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
