package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce batches the burst of events a single rewrite produces
const DefaultWatchDebounce = 500 * time.Millisecond

// Watch reloads the dataset whenever the processed file changes. It watches
// the parent directory so that replaced files are picked up, and blocks until
// ctx is done.
func (s *DatasetService) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	s.logger.InfoContext(ctx, "watching processed data",
		slog.String("path", s.path),
		slog.Duration("debounce", debounce))

	target := filepath.Clean(s.path)
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.logger.DebugContext(ctx, "processed data changed", slog.String("op", event.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WarnContext(ctx, "watcher error", slog.String("error", err.Error()))

		case <-timer.C:
			if err := s.Reload(ctx, "watch"); err != nil {
				// A half-written file fails to parse; the next write event retries.
				s.logger.WarnContext(ctx, "reload after change failed", slog.String("error", err.Error()))
			}
		}
	}
}
