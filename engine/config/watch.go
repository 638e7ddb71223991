package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Carmen-Shannon/oxy-pacer/common"
)

// Watch reloads the file at path whenever it is written or replaced and passes every valid result
// to onChange. Invalid edits are logged and skipped so the last good configuration stays in force.
// The parent directory is watched because editors often save by renaming over the file.
//
// Parameters:
//   - ctx: stops the watcher when done
//   - path: the configuration file
//   - onChange: receives each successfully reloaded configuration
//
// Returns:
//   - error: nil once ctx is done, or the error that stopped the watcher
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				common.Logger().Warn("config reload rejected", "path", abs, "error", err)
				continue
			}
			common.Logger().Info("config reloaded", "path", abs)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("config: watch %s: %w", path, err)
		}
	}
}
