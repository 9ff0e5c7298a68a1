package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sweeney/kiosk-sleep/internal/logfields"
)

// DefaultReloadDebounce collapses editor save bursts into one reload.
const DefaultReloadDebounce = 500 * time.Millisecond

// Watcher monitors the settings file and delivers each valid new version.
// Invalid edits are logged and skipped; the previous settings stay in force.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	updates  chan *Config
	reload   chan struct{}
	stopOnce sync.Once
	stop     chan struct{}
}

// NewWatcher creates a watcher for the settings file at path.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &Watcher{
		path:     absPath,
		watcher:  fw,
		debounce: debounce,
		updates:  make(chan *Config, 1),
		reload:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}, nil
}

// Start begins monitoring. The directory is watched rather than the file so
// that editors replacing the file by rename are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}

	slog.Info("Starting configuration watcher", logfields.Path(w.path))

	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
	return nil
}

// Updates delivers reloaded settings. Only the latest pending version is kept.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Stop ends monitoring and closes the file system watcher.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) {
	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}

			switch {
			case event.Op&fsnotify.Write == fsnotify.Write,
				event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				slog.Debug("Config file change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				w.trigger()
			case event.Op&fsnotify.Remove == fsnotify.Remove:
				slog.Warn("Config file removed", logfields.Path(event.Name))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) reloadLoop(ctx context.Context) {
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-w.reload:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			w.performReload()
		}
	}
}

func (w *Watcher) trigger() {
	select {
	case w.reload <- struct{}{}:
	default:
	}
}

func (w *Watcher) performReload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Error("Failed to reload configuration", logfields.Path(w.path), logfields.Error(err))
		return
	}

	// Replace any update the run loop has not consumed yet.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg
	slog.Info("Configuration reloaded", logfields.Path(w.path), slog.Int("rules", len(cfg.Rules)))
}
