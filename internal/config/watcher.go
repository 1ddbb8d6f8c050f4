package config

import (
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must stay quiet before a reload.
const DefaultDebounce = 1500 * time.Millisecond

// Watcher reloads a configuration file with loader whenever it changes and
// passes the result to every registered handler. A load error is logged
// and reported to the error handler; handlers keep their last config.
//
// The parent directory is watched rather than the file itself, so editors
// that save by renaming a temporary file over the original keep working.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)
	onError  func(error)
	logger   *slog.Logger

	mu       sync.Mutex
	handlers map[int]func(T)
	nextID   int

	fsw  *fsnotify.Watcher
	stop chan struct{}
	done chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce overrides DefaultDebounce.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler sets a callback for load errors.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// NewConfigWatcher creates a watcher for path. Nothing is watched until Start.
func NewConfigWatcher[T any](
	path string,
	loader func(path string) (T, error),
	logger *slog.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	w := &Watcher[T]{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		loader:   loader,
		logger:   logger,
		handlers: make(map[int]func(T)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers handler and returns a function that removes it.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.handlers, id)
		w.mu.Unlock()
	}
}

// Start begins watching in the background.
func (w *Watcher[T]) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.fsw = fsw
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	w.logger.Info("Config watcher started", "path", w.path, "debounce", w.debounce)
	go w.watch()
	return nil
}

// Stop ends watching and waits for the loop to exit. A reload already
// running finishes first. Stop before Start is a no-op.
func (w *Watcher[T]) Stop() error {
	if w.fsw == nil {
		return nil
	}
	close(w.stop)
	<-w.done
	err := w.fsw.Close()
	w.fsw = nil
	return err
}

func (w *Watcher[T]) watch() {
	defer close(w.done)

	// The timer only runs between a change and its reload
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			w.logger.Debug("Config watcher stopped")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Write for in-place saves, Create for rename-over saves
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("Config file change detected", "op", event.Op.String())
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// reload loads the file once and hands the same value to every handler.
func (w *Watcher[T]) reload() {
	cfg, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload config", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	handlers := slices.Collect(maps.Values(w.handlers))
	w.mu.Unlock()

	w.logger.Info("Config reloaded", "path", w.path, "handlers", len(handlers))
	for _, handler := range handlers {
		handler(cfg)
	}
}
