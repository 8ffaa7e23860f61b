package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"climatedash/internal/dataprocessing"
	"climatedash/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := openOutput(filePath, flags)
	if err != nil {
		return err
	}
	defer file.Close()

	if options.BOMPrefix && !options.Append {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// WriteTable writes the unified table as processed_data.csv: UnifiedColumns
// header, no index column, missing values as empty fields.
func (w *CSVWriter) WriteTable(filePath string, table domain.Table) error {
	stream, err := w.CreateStreamWriter(filePath, domain.UnifiedColumns, false)
	if err != nil {
		return err
	}

	for i, rec := range table.Records {
		if err := stream.WriteRecord(tableRow(rec)); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filePath, err)
	}

	w.logger.Info("Unified dataset written",
		slog.String("file_path", filePath),
		slog.Int("rows", table.Len()))
	return nil
}

// WriteSummary writes summary statistics in describe() layout: one column
// per numeric field and one row per statistic.
func (w *CSVWriter) WriteSummary(filePath string, stats dataprocessing.SummaryStats) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers: summaryHeader(stats),
		Records: summaryRows(stats),
	})
}

func tableRow(rec domain.UnifiedRecord) []string {
	row := make([]string, 0, len(domain.UnifiedColumns))
	row = append(row, rec.Country, formatInt(int64(rec.Year)))
	for _, m := range domain.UnifiedMetrics {
		row = append(row, formatOptional(rec.Values[m]))
	}
	return row
}

func summaryHeader(stats dataprocessing.SummaryStats) []string {
	header := make([]string, 0, len(stats.Columns)+1)
	header = append(header, "")
	for _, c := range stats.Columns {
		header = append(header, c.Column)
	}
	return header
}

func summaryRows(stats dataprocessing.SummaryStats) [][]string {
	rows := make([][]string, len(dataprocessing.SummaryRows))
	for i, label := range dataprocessing.SummaryRows {
		rows[i] = append(make([]string, 0, len(stats.Columns)+1), label)
	}
	for _, c := range stats.Columns {
		for i, v := range c.Values() {
			rows[i] = append(rows[i], formatOptional(v))
		}
	}
	return rows
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter creates a new streaming CSV writer
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string, bom bool) (*StreamWriter, error) {
	w.logger.Info("Creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.Int("header_count", len(headers)))

	file, err := openOutput(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return nil, err
	}

	if bom {
		if _, err := file.Write(utf8BOM); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{
		file:   file,
		writer: writer,
	}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

func openOutput(filePath string, flags int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}
