package vaultfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zettelscript/zettelscript/internal/logger"
)

// EventKind classifies a debounced vault change.
type EventKind string

const (
	EventWrite  EventKind = "write"
	EventRemove EventKind = "remove"
)

// Event is one settled filesystem change, ready for reindexing.
type Event struct {
	Path string
	Kind EventKind
}

// Watcher watches a vault root for markdown file changes and emits debounced
// Events on Changes. Rapid successive writes to the same path (editors that
// save in multiple steps) collapse into a single event.
type Watcher struct {
	root     string
	debounce time.Duration

	fsw     *fsnotify.Watcher
	Changes chan Event

	mu        sync.Mutex
	pending   map[string]EventKind
	lastEvent map[string]time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewWatcher constructs a Watcher rooted at the given vault directory. The
// debounce window defaults to 300ms if d <= 0.
func NewWatcher(root string, d time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		d = 300 * time.Millisecond
	}
	w := &Watcher{
		root:      root,
		debounce:  d,
		fsw:       fsw,
		Changes:   make(chan Event, 16),
		pending:   make(map[string]EventKind),
		lastEvent: make(map[string]time.Time),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers root and every subdirectory with fsnotify, since
// fsnotify does not watch recursively on its own.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && IgnoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Start runs the watch loop in a goroutine until ctx is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop halts the watch loop and closes the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("vaultfs: watcher error", "error", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				logger.Warn("vaultfs: watch new directory", "path", ev.Name, "error", err)
			}
			return
		}
	}
	if !strings.EqualFold(filepath.Ext(ev.Name), Extension) {
		return
	}

	var kind EventKind
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		kind = EventRemove
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind = EventWrite
	default:
		return
	}

	w.mu.Lock()
	w.pending[ev.Name] = kind
	w.lastEvent[ev.Name] = time.Now()
	w.mu.Unlock()
}

// flush emits events for paths whose last fsnotify event is older than the
// debounce window, leaving still-settling paths pending for the next tick.
func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var settled []Event
	for path, kind := range w.pending {
		if now.Sub(w.lastEvent[path]) < w.debounce {
			continue
		}
		settled = append(settled, Event{Path: path, Kind: kind})
		delete(w.pending, path)
		delete(w.lastEvent, path)
	}
	w.mu.Unlock()

	for _, ev := range settled {
		w.Changes <- ev
	}
}
