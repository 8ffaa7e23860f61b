package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "climatedash/internal/errors"
	"climatedash/internal/infrastructure"
	"climatedash/internal/operations"
	"climatedash/internal/services"
)

// PipelineHandler triggers and reports ETL runs
type PipelineHandler struct {
	service      *services.PipelineService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(service *services.PipelineService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PipelineHandler {
	return &PipelineHandler{
		service:      service,
		logger:       infrastructure.WithComponent(logger, "pipeline_handler"),
		errorHandler: errorHandler,
	}
}

// Run handles POST /api/pipeline/run. The run continues in the background;
// progress is pushed over the websocket.
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Start(r.Context()); err != nil {
		if errors.Is(err, operations.ErrRunInProgress) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPipelineRunning)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrPipelineExecution(err))
		return
	}

	h.logger.InfoContext(r.Context(), "pipeline run started")
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, h.service.Status())
}

// Status handles GET /api/pipeline/status
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status())
}
