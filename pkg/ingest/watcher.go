package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc is called once per debounced batch of resource file changes.
type RunFunc func(ctx context.Context) error

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long to wait for more changes before running.
	// Default: 500ms
	Debounce time.Duration
}

// DefaultWatcherOptions returns the watcher defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{Debounce: 500 * time.Millisecond}
}

// Watcher re-runs ingestion when companies.json or people.json change.
// Editors and copy tools usually produce several events per save, so
// events are coalesced for the debounce window.
type Watcher struct {
	dir      string
	files    map[string]struct{}
	run      RunFunc
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	started  atomic.Bool
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for source. Call Start to begin watching.
func NewWatcher(source Source, run RunFunc, logger *slog.Logger, opts *WatcherOptions) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		dir: source.Dir,
		files: map[string]struct{}{
			CompaniesFile: {},
			PeopleFile:    {},
		},
		run:      run,
		debounce: opts.Debounce,
		logger:   logger,
		watcher:  fw,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start watches the source directory until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching resources", slog.String("dir", w.dir))
	w.started.Store(true)
	go w.loop(ctx)
	return nil
}

// Stop ends watching and waits for an in-flight run to return.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		if w.started.Load() {
			<-w.stopped
		}
	})
	return err
}

// Stopped is closed once the watch loop has exited.
func (w *Watcher) Stopped() <-chan struct{} {
	return w.stopped
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.stopped)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("resource changed", slog.String("file", ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", slog.String("error", err.Error()))
		case <-timer.C:
			if err := w.run(ctx); err != nil {
				w.logger.Error("re-ingestion failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if _, ok := w.files[filepath.Base(ev.Name)]; !ok {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}
