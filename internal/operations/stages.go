package operations

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"climatedash/internal/config"
	"climatedash/internal/dataprocessing"
	"climatedash/internal/exporter"
	"climatedash/internal/infrastructure"
)

// LoadStep reads every source file
type LoadStep struct {
	BaseStep
	processor *dataprocessing.Processor
}

// NewLoadStep creates the load step
func NewLoadStep(processor *dataprocessing.Processor) *LoadStep {
	return &LoadStep{BaseStep: NewBaseStep(StepIDLoad, StepNameLoad), processor: processor}
}

// Execute loads the datasets into the run state
func (s *LoadStep) Execute(ctx context.Context, state *RunState) error {
	ds, err := s.processor.Load(ctx)
	if err != nil {
		return err
	}
	state.Datasets = ds

	rows := 0
	for _, df := range ds {
		rows += df.Nrow()
	}
	state.GetStep(s.ID()).SetRows(rows)
	return nil
}

// CleanStep applies the per-source cleaning rules
type CleanStep struct {
	BaseStep
	processor *dataprocessing.Processor
}

// NewCleanStep creates the clean step
func NewCleanStep(processor *dataprocessing.Processor) *CleanStep {
	return &CleanStep{BaseStep: NewBaseStep(StepIDClean, StepNameClean), processor: processor}
}

// Execute cleans the loaded datasets
func (s *CleanStep) Execute(ctx context.Context, state *RunState) error {
	if state.Datasets == nil {
		return fmt.Errorf("no datasets loaded")
	}
	cleaned, err := s.processor.Clean(ctx, state.Datasets)
	if err != nil {
		return err
	}
	state.Cleaned = cleaned
	state.GetStep(s.ID()).SetRows(cleaned.Emissions.Len())
	return nil
}

// UnifyStep joins the cleaned sources and computes the summary
type UnifyStep struct {
	BaseStep
	processor *dataprocessing.Processor
}

// NewUnifyStep creates the unify step
func NewUnifyStep(processor *dataprocessing.Processor) *UnifyStep {
	return &UnifyStep{BaseStep: NewBaseStep(StepIDUnify, StepNameUnify), processor: processor}
}

// Execute builds the unified table
func (s *UnifyStep) Execute(ctx context.Context, state *RunState) error {
	state.Table = s.processor.Unify(ctx, state.Cleaned)
	state.Stats = dataprocessing.Summarize(state.Table)
	state.GetStep(s.ID()).SetRows(state.Table.Len())
	return nil
}

// ExportStep writes the processed CSV, the summary and the optional xlsx and SQL exports
type ExportStep struct {
	BaseStep
	paths    *config.Paths
	pipeline config.PipelineConfig
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewExportStep creates the export step
func NewExportStep(paths *config.Paths, pipeline config.PipelineConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ExportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportStep{
		BaseStep: NewBaseStep(StepIDExport, StepNameExport),
		paths:    paths,
		pipeline: pipeline,
		metrics:  metrics,
		logger:   logger,
	}
}

// Execute writes every configured output
func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	writer := exporter.NewCSVWriter(s.logger)
	if err := writer.WriteTable(s.paths.ProcessedCSV, state.Table); err != nil {
		return fmt.Errorf("write processed data: %w", err)
	}
	state.AddOutput(s.paths.ProcessedCSV)
	s.recordRows(ctx, "csv", state.Table.Len())

	if s.paths.SummaryCSV != "" {
		if err := writer.WriteSummary(s.paths.SummaryCSV, state.Stats); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		state.AddOutput(s.paths.SummaryCSV)
	}

	if s.paths.ExcelFile != "" {
		if err := exporter.NewExcelExporter(s.logger).Export(s.paths.ExcelFile, state.Table, state.Stats); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		state.AddOutput(s.paths.ExcelFile)
		s.recordRows(ctx, "xlsx", state.Table.Len())
	}

	if s.pipeline.SQLDriver != "" {
		dsn := s.pipeline.SQLDSN
		if s.pipeline.SQLDriver == exporter.DriverSQLite {
			dsn = s.paths.SQLiteFile
		}
		sqlExp, err := exporter.OpenSQLExporter(ctx, s.pipeline.SQLDriver, dsn, s.logger)
		if err != nil {
			return err
		}
		defer sqlExp.Close()

		if err := sqlExp.Export(ctx, state.Table); err != nil {
			return fmt.Errorf("write sql table: %w", err)
		}
		state.AddOutput(s.pipeline.SQLDriver + ":" + exporter.UnifiedTableName)
		s.recordRows(ctx, s.pipeline.SQLDriver, state.Table.Len())
	}

	state.GetStep(s.ID()).SetRows(state.Table.Len())
	return nil
}

func (s *ExportStep) recordRows(ctx context.Context, target string, rows int) {
	if s.metrics == nil {
		return
	}
	s.metrics.PipelineRowsWritten.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("target", target)))
}

// NewPipelineRegistry registers the four pipeline steps in order
func NewPipelineRegistry(paths *config.Paths, pipeline config.PipelineConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Registry {
	processor := dataprocessing.NewProcessor(paths.InputDir, infrastructure.WithComponent(logger, "dataprocessing"))

	registry := NewRegistry()
	for _, step := range []Step{
		NewLoadStep(processor),
		NewCleanStep(processor),
		NewUnifyStep(processor),
		NewExportStep(paths, pipeline, metrics, infrastructure.WithComponent(logger, "exporter")),
	} {
		// IDs are fixed and distinct.
		_ = registry.Register(step)
	}
	return registry
}
