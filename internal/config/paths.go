package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved, absolute file locations of one run
type Paths struct {
	InputDir     string
	OutputDir    string
	LogsDir      string
	ProcessedCSV string
	SummaryCSV   string
	ForecastsCSV string
	ExcelFile    string
	SQLiteFile   string
}

// ResolvePaths turns the configured paths into absolute paths relative to the
// working directory. Output files without a directory land in OutputDir.
func ResolvePaths(c PathsConfig, p PipelineConfig) (*Paths, error) {
	inputDir, err := filepath.Abs(c.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input dir: %w", err)
	}
	outputDir, err := filepath.Abs(c.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output dir: %w", err)
	}
	logsDir, err := filepath.Abs(c.LogsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve logs dir: %w", err)
	}

	paths := &Paths{
		InputDir:     inputDir,
		OutputDir:    outputDir,
		LogsDir:      logsDir,
		ProcessedCSV: outputPath(outputDir, c.ProcessedFile),
		SummaryCSV:   outputPath(outputDir, c.SummaryFile),
		ForecastsCSV: outputPath(inputDir, c.ForecastsFile),
		ExcelFile:    outputPath(outputDir, p.ExcelFile),
	}
	if p.SQLDriver == "sqlite" {
		dsn := p.SQLDSN
		if dsn == "" {
			dsn = "processed_data.sqlite"
		}
		paths.SQLiteFile = outputPath(outputDir, dsn)
	}
	return paths, nil
}

func outputPath(dir, name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// EnsureDirectories creates the output and logs directories
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// InputFile returns the path of a source file in the input directory
func (p *Paths) InputFile(name string) string {
	return filepath.Join(p.InputDir, name)
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Resolved paths",
		slog.String("input_dir", p.InputDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("processed_csv", p.ProcessedCSV),
		slog.String("summary_csv", p.SummaryCSV),
		slog.String("forecasts_csv", p.ForecastsCSV),
		slog.String("excel_file", p.ExcelFile),
		slog.String("sqlite_file", p.SQLiteFile))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
