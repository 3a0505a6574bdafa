// Package watcher reports changes to the settings file made outside the
// application, such as a user editing settings.yaml by hand.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of writes to the same file.
const DefaultDebounce = 100 * time.Millisecond

// Event reports that a watched file changed.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher watches a directory for changes to a set of file names.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	dir        string
	names      map[string]bool
	delay      time.Duration
	log        *zap.Logger
	eventsChan chan Event
	done       chan struct{}
	stopOnce   sync.Once
	debounce   map[string]*time.Timer
	debounceMu sync.Mutex
}

// New creates a watcher for the given file names inside dir. The directory
// is watched rather than the files so atomic replace-by-rename is seen.
func New(dir string, names []string, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		fsWatcher:  fsWatcher,
		dir:        filepath.Clean(dir),
		names:      make(map[string]bool, len(names)),
		delay:      DefaultDebounce,
		log:        logger.Named("watcher"),
		eventsChan: make(chan Event, 16),
		done:       make(chan struct{}),
		debounce:   make(map[string]*time.Timer),
	}
	for _, n := range names {
		w.names[n] = true
	}
	return w, nil
}

// Events returns the channel for receiving events.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start starts the watcher.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return err
	}
	w.log.Debug("Watching", zap.String("dir", w.dir))

	go w.processEvents()
	return nil
}

// Stop stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()

		w.debounceMu.Lock()
		for path, timer := range w.debounce {
			timer.Stop()
			delete(w.debounce, path)
		}
		w.debounceMu.Unlock()
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Atomic saves (write tmp, rename over target) arrive as Create or Rename
	// on the target name.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	if filepath.Dir(event.Name) != w.dir || !w.names[filepath.Base(event.Name)] {
		return
	}

	w.debounceEvent(event.Name, func() {
		w.emit(Event{Path: event.Name, Op: event.Op})
	})
}

func (w *Watcher) debounceEvent(path string, fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}

	w.debounce[path] = time.AfterFunc(w.delay, func() {
		w.debounceMu.Lock()
		delete(w.debounce, path)
		w.debounceMu.Unlock()
		fn()
	})
}

func (w *Watcher) emit(ev Event) {
	w.log.Debug("File changed", zap.String("path", ev.Path), zap.Stringer("op", ev.Op))
	select {
	case w.eventsChan <- ev:
	case <-w.done:
	}
}
