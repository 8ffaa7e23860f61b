// Package validation checks the pipeline's input and output locations before
// any file is parsed.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "climatedash/internal/errors"
)

// FileValidator checks source files and output directories
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputDirectory checks that dir exists and is a directory
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return apperrors.NewStorageError("input directory does not exist", err).
			WithContext("path", dir)
	}
	if err != nil {
		return apperrors.NewStorageError("failed to stat input directory", err).
			WithContext("path", dir)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return apperrors.NewStorageError(fmt.Sprintf("%s is not a directory", dir), nil).
			WithContext("path", dir)
	}
	return nil
}

// ValidateSources checks every named CSV file in dir and reports all
// problems at once
func (v *FileValidator) ValidateSources(dir string, names []string) error {
	if err := v.ValidateInputDirectory(dir); err != nil {
		return err
	}

	var problems []string
	for _, name := range names {
		if err := v.ValidateCSVFile(filepath.Join(dir, name)); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		v.logger.Error("Source files failed validation",
			slog.String("directory", dir),
			slog.Int("invalid", len(problems)),
			slog.Int("expected", len(names)))
		return apperrors.NewStorageError("source files failed validation: "+strings.Join(problems, "; "), nil).
			WithContext("path", dir).
			WithContext("invalid", problems)
	}

	v.logger.Debug("Source files validated",
		slog.String("directory", dir),
		slog.Int("files", len(names)))
	return nil
}

// ValidateCSVFile checks that path is a readable, non-empty .csv file
func (v *FileValidator) ValidateCSVFile(path string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return fmt.Errorf("%s is not a CSV file", filepath.Base(path))
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist", filepath.Base(path))
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filepath.Base(path), err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", filepath.Base(path))
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", filepath.Base(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", filepath.Base(path), err)
	}
	file.Close()
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("failed to create output directory", err).
			WithContext("path", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("output directory is not writable", err).
			WithContext("path", dir)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
