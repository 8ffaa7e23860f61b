package handlers

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"climatedash/internal/config"
	apierrors "climatedash/internal/errors"
	"climatedash/internal/infrastructure"
)

// DataHandler serves the pipeline's CSV outputs for download
type DataHandler struct {
	files        map[string]string
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler exposes the processed and summary CSVs by base name
func NewDataHandler(paths *config.Paths, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	files := make(map[string]string)
	for _, p := range []string{paths.ProcessedCSV, paths.SummaryCSV} {
		if p != "" {
			files[filepath.Base(p)] = p
		}
	}
	return &DataHandler{
		files:        files,
		logger:       infrastructure.WithComponent(logger, "data_handler"),
		errorHandler: errorHandler,
	}
}

// Download handles GET /api/data/download/{name}
func (h *DataHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, ok := h.files[name]
	if !ok || !config.FileExists(path) {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("file "+name).WithContext("name", name))
		return
	}

	h.logger.DebugContext(r.Context(), "serving download",
		slog.String("name", name),
		slog.String("path", path))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	http.ServeFile(w, r, path)
}
