// Package exporter writes the unified climate dataset to disk and databases.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers, streaming,
// and an optional UTF-8 BOM. It writes processed_data.csv and
// summary_statistics.csv.
//
// ExcelExporter: Writes the unified table and its summary into an xlsx workbook.
//
// SQLExporter: Replaces the "unified" table of a SQLite or PostgreSQL database.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(logger)
//	if err := writer.WriteTable("processed_data.csv", table); err != nil {
//	    return err
//	}
//	err := writer.WriteSummary("summary_statistics.csv", dataprocessing.Summarize(table))
package exporter
