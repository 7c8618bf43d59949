package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// configWatchDebounce coalesces the burst of events an editor save produces.
const configWatchDebounce = 200 * time.Millisecond

// scrollOverridesFrom returns overrides that set every field of c.
func scrollOverridesFrom(c ScrollConfig) ScrollOverrides {
	return ScrollOverrides{
		WheelMultiplier: &c.WheelMultiplier,
		TouchMultiplier: &c.TouchMultiplier,
		VelocityDecay:   &c.VelocityDecay,
		Smoothing:       &c.Smoothing,
		MinVelocity:     &c.MinVelocity,
		WrapThreshold:   &c.WrapThreshold,
	}
}

// watchConfigFile re-reads path whenever it changes on disk and sends the
// scroll section to the daemon as an UpdateScrollConfig. Only the scroll
// section is live; other sections take effect on restart.
//
// current is the scroll section the daemon started with. A save that leaves
// the scroll section unchanged sends nothing.
func watchConfigFile(ctx context.Context, path string, current ScrollConfig, events chan<- Event, logger *slog.Logger) error {
	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer w.Close()

	// Editors commonly save by renaming a temp file over the original, which
	// drops a watch on the file itself. Watch the directory instead.
	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch config dir %s: %w", dir, err)
	}
	logger.Info("watching config file", "path", abs)

	debounce := time.NewTimer(configWatchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(configWatchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)

		case <-debounce.C:
			cfg, err := LoadConfigFile(abs)
			if err != nil {
				logger.Warn("config reload failed; keeping current settings", "path", abs, "error", err)
				continue
			}
			if err := cfg.Scroll.Validate(); err != nil {
				logger.Warn("reloaded scroll config invalid; keeping current settings", "path", abs, "error", err)
				continue
			}
			if cfg.Scroll == current {
				logger.Debug("config file changed; scroll section unchanged", "path", abs)
				continue
			}

			select {
			case events <- UpdateScrollConfig{Overrides: scrollOverridesFrom(cfg.Scroll)}:
				current = cfg.Scroll
				logger.Info("config reloaded", "path", abs,
					"velocity_decay", cfg.Scroll.VelocityDecay,
					"smoothing", cfg.Scroll.Smoothing)
			case <-ctx.Done():
				return nil
			}
		}
	}
}
