package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a policy file for changes and delivers freshly built
// Tables to a callback. It debounces rapid writes so an editor save does not
// trigger a reload storm.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	path     string
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// DefaultDebounceInterval is the quiet period required after the last file
// event before a reload is triggered.
const DefaultDebounceInterval = 100 * time.Millisecond

// NewWatcher creates a watcher for the policy file at path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsw,
		logger:   logger.With("component", "expiry.policy.watcher"),
		path:     path,
		debounce: newDebouncer(DefaultDebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks processing file events until the context is cancelled or Stop
// is called. On every (debounced) change it rebuilds the Table from the
// policy file and passes it to onReload; a file that fails to parse is
// logged and skipped, leaving the previous Table in effect.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Table)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	// Watch the containing directory so the watch survives atomic
	// rename-replace saves.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}

	w.logger.Info("policy watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("policy watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("policy watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcessEvent(event) {
				continue
			}

			w.logger.Debug("policy file event", "path", event.Name, "op", event.Op.String())

			w.debounce.trigger(func() {
				table, err := LoadFile(w.path)
				if err != nil {
					w.logger.Error("policy reload failed, keeping previous table", "error", err)
					return
				}
				w.logger.Info("policy table reloaded", "path", w.path)
				onReload(table)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("policy watcher error", "error", err)
			// Continue watching despite errors
		}
	}
}

// Stop stops the watcher and waits for Watch to return.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.debounce.stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// shouldProcessEvent filters events down to writes of the policy file itself.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".yaml" || ext == ".yml"
}

// debouncer collects rapid events and fires the callback only after a quiet
// period.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopCh   chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	})
}

func (d *debouncer) stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
