package services

import (
	"context"
	"log/slog"
	"sync"

	"climatedash/internal/operations"
	"climatedash/pkg/contracts/events"
)

// PipelineService runs the ETL pipeline and reloads the dataset afterwards
type PipelineService struct {
	manager *operations.Manager
	dataset *DatasetService
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewPipelineService creates a pipeline service. dataset may be nil.
func NewPipelineService(manager *operations.Manager, dataset *DatasetService, logger *slog.Logger) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineService{manager: manager, dataset: dataset, logger: logger}
}

// Run executes the pipeline synchronously and reloads the dataset on success
func (p *PipelineService) Run(ctx context.Context) (*operations.RunResult, error) {
	result, err := p.manager.Run(ctx)
	if err != nil {
		return result, err
	}

	if p.dataset != nil {
		if err := p.dataset.Reload(ctx, "pipeline"); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Start runs the pipeline in the background. It fails fast with
// operations.ErrRunInProgress when a run is active. The run outlives ctx
// cancellation but keeps its values.
func (p *PipelineService) Start(ctx context.Context) error {
	if p.manager.IsRunning() {
		return operations.ErrRunInProgress
	}

	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.Run(ctx); err != nil {
			p.logger.ErrorContext(ctx, "background pipeline run failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Wait blocks until background runs have finished
func (p *PipelineService) Wait() {
	p.wg.Wait()
}

// Status returns the last run snapshot
func (p *PipelineService) Status() events.OperationSnapshot {
	return p.manager.Status()
}

// IsRunning reports whether a run is active
func (p *PipelineService) IsRunning() bool {
	return p.manager.IsRunning()
}
