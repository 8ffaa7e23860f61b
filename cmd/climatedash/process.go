package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"climatedash/internal/config"
	"climatedash/internal/dataprocessing"
	"climatedash/internal/exporter"
	"climatedash/internal/infrastructure"
	"climatedash/internal/operations"
	"climatedash/internal/validation"
)

type processFlags struct {
	input     string
	output    string
	summary   string
	xlsx      string
	sqlDriver string
	sqlDSN    string
}

var processOpts processFlags

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the ETL pipeline",
	Long: `Load every source CSV from the input directory, clean and unify them,
write processed_data.csv and summary_statistics.csv, and print the summary.

Optional exports:
  --xlsx        workbook with ` + exporter.SheetUnified + ` and ` + exporter.SheetSummary + ` sheets
  --sql-driver  sqlite or postgres, together with --sql-dsn`,
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringVarP(&processOpts.input, "input", "i", "", "directory holding the source CSV files")
	f.StringVarP(&processOpts.output, "output", "o", "", "processed data file")
	f.StringVar(&processOpts.summary, "summary", "", "summary statistics file")
	f.StringVar(&processOpts.xlsx, "xlsx", "", "also export an Excel workbook to this file")
	f.StringVar(&processOpts.sqlDriver, "sql-driver", "", "also export to a SQL database: sqlite or postgres")
	f.StringVar(&processOpts.sqlDSN, "sql-dsn", "", "data source name for --sql-driver")
}

// apply overrides the configuration with the flags that were set
func (f processFlags) apply(cfg *config.Config) {
	if f.input != "" {
		cfg.Paths.InputDir = f.input
	}
	if f.output != "" {
		cfg.Paths.ProcessedFile = f.output
	}
	if f.summary != "" {
		cfg.Paths.SummaryFile = f.summary
	}
	if f.xlsx != "" {
		cfg.Pipeline.ExcelFile = f.xlsx
	}
	if f.sqlDriver != "" {
		cfg.Pipeline.SQLDriver = f.sqlDriver
	}
	if f.sqlDSN != "" {
		cfg.Pipeline.SQLDSN = f.sqlDSN
	}
}

func runProcess(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	processOpts.apply(cfg)

	paths, err := config.ResolvePaths(cfg.Paths, cfg.Pipeline)
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}
	if err := validation.NewFileValidator(logger).ValidateOutputDirectory(paths.OutputDir); err != nil {
		return err
	}
	paths.LogPathResolution(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := runPipeline(ctx, paths, cfg.Pipeline)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d rows in %s\n", result.Rows, result.Duration.Round(time.Millisecond))
	for _, o := range result.Outputs {
		fmt.Fprintf(out, "  wrote %s\n", o)
	}
	fmt.Fprintln(out)
	printSummary(out, result.Summary)
	return nil
}

func runPipeline(ctx context.Context, paths *config.Paths, pipeline config.PipelineConfig) (*operations.RunResult, error) {
	logger := infrastructure.GetLogger()
	registry := operations.NewPipelineRegistry(paths, pipeline, nil, logger)
	manager := operations.NewManager(nil, registry, &operations.Config{Timeout: pipeline.Timeout})
	manager.SetLogger(logger)
	return manager.Run(ctx)
}

// printSummary renders the describe() table: one row per statistic, one
// column per numeric field
func printSummary(w io.Writer, stats dataprocessing.SummaryStats) {
	header := make([]string, 0, len(stats.Columns)+1)
	header = append(header, "")
	for _, c := range stats.Columns {
		header = append(header, c.Column)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	values := make([][]*float64, len(stats.Columns))
	for i, c := range stats.Columns {
		values[i] = c.Values()
	}
	for row, label := range dataprocessing.SummaryRows {
		line := make([]string, 0, len(header))
		line = append(line, label)
		for col := range stats.Columns {
			line = append(line, formatStat(values[col][row]))
		}
		table.Append(line)
	}
	table.Render()
}

func formatStat(v *float64) string {
	if v == nil {
		return "NaN"
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}
