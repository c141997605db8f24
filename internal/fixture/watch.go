package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the fixture at path whenever it is written or replaced and
// passes the result to fn. It blocks until ctx is done.
//
// The parent directory is watched rather than the file so that editors which
// save through a rename keep triggering reloads.
func Watch(ctx context.Context, path string, fn func(*Scene, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			slog.Debug("fixture changed", "path", target, "op", ev.Op.String())
			fn(Load(target))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("fixture watch error", "path", target, "error", err)
		}
	}
}
