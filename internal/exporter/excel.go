package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"climatedash/internal/dataprocessing"
	"climatedash/pkg/contracts/domain"
)

// Workbook sheet names.
const (
	SheetUnified = "Unified"
	SheetSummary = "Summary"
)

// ExcelExporter writes the unified table and its summary to one workbook.
type ExcelExporter struct {
	logger *slog.Logger
}

// NewExcelExporter creates an xlsx exporter
func NewExcelExporter(logger *slog.Logger) *ExcelExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelExporter{logger: logger}
}

// Export writes sheets Unified and Summary to filePath.
func (e *ExcelExporter) Export(filePath string, table domain.Table, stats dataprocessing.SummaryStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetUnified); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", SheetSummary, err)
	}

	if err := writeSheetRow(f, SheetUnified, 1, stringCells(domain.UnifiedColumns)); err != nil {
		return err
	}
	for i, rec := range table.Records {
		row := make([]interface{}, 0, len(domain.UnifiedColumns))
		row = append(row, rec.Country, rec.Year)
		for _, m := range domain.UnifiedMetrics {
			row = append(row, cellValue(rec.Values[m]))
		}
		if err := writeSheetRow(f, SheetUnified, i+2, row); err != nil {
			return err
		}
	}

	if err := writeSheetRow(f, SheetSummary, 1, stringCells(summaryHeader(stats))); err != nil {
		return err
	}
	for i, label := range dataprocessing.SummaryRows {
		row := []interface{}{label}
		for _, c := range stats.Columns {
			row = append(row, cellValue(c.Values()[i]))
		}
		if err := writeSheetRow(f, SheetSummary, i+2, row); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Workbook written",
		slog.String("file_path", filePath),
		slog.Int("rows", table.Len()))
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func stringCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// cellValue leaves missing values as blank cells.
func cellValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
