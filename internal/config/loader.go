package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ayusman/gazekeys/internal/log"
)

const reloadDebounce = 200 * time.Millisecond

// Loader owns the configuration file and publishes tuning changes.
type Loader struct {
	path    string
	updates chan Tuning

	mu      sync.Mutex
	current *Config
}

// NewLoader creates a loader for path. Call Load before Watch.
func NewLoader(path string) *Loader {
	return &Loader{
		path:    path,
		updates: make(chan Tuning, 1),
	}
}

// Path returns the watched file path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the last successfully loaded configuration.
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Updates delivers new tuning values. Only the latest pending value is kept.
func (l *Loader) Updates() <-chan Tuning {
	return l.updates
}

// Watch reloads the file whenever it changes until ctx is done. Invalid
// files are logged and ignored.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are seen.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", l.path, err)
	}

	go l.run(ctx, watcher)
	return nil
}

func (l *Loader) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	target := filepath.Clean(l.path)
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounce = time.After(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn("config watcher error", "error", err)
		case <-debounce:
			debounce = nil
			l.reload()
		}
	}
}

func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		log.Warn("ignoring config change", "path", l.path, "error", err)
		return
	}

	l.mu.Lock()
	prev := l.current
	l.current = cfg
	l.mu.Unlock()

	if prev != nil && prev.Tuning == cfg.Tuning {
		return
	}
	log.Info("config reloaded", "path", l.path, "dwell", cfg.Tuning.Dwell, "blink_threshold", cfg.Tuning.BlinkThreshold)
	l.publish(cfg.Tuning)
}

func (l *Loader) publish(t Tuning) {
	for {
		select {
		case l.updates <- t:
			return
		default:
		}
		// Drop the stale pending value.
		select {
		case <-l.updates:
		default:
		}
	}
}
