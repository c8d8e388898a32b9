// Package watcher reports playlist documents appearing, changing and
// disappearing in a directory.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

type fileState struct {
	size  int64
	mtime time.Time
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{size: info.Size(), mtime: info.ModTime()}
}

// FSWatcher follows one directory through filesystem notifications. Only
// files whose extension matches are tracked. Watch starts with a full Scan
// that reports every existing file as created.
type FSWatcher struct {
	logger    *slog.Logger
	extension string

	mu       sync.Mutex
	callback func(path string, event EventType)
	known    map[string]fileState
	cancel   context.CancelFunc
}

func NewFSWatcher(extension string, logger *slog.Logger) *FSWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSWatcher{
		logger:    logger,
		extension: strings.ToLower(extension),
		known:     make(map[string]fileState),
	}
}

func (w *FSWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	w.callback = callback
	w.mu.Unlock()
}

// Watch blocks until ctx is cancelled or Stop is called. A missing directory
// is created.
func (w *FSWatcher) Watch(ctx context.Context, path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	if err := fsw.Add(path); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()
	defer cancel()

	w.logger.Info("watching directory", "path", path)
	if err := w.Scan(path); err != nil {
		w.logger.Warn("scan failed", "path", path, "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "path", path, "error", err)
		}
	}
}

func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	return nil
}

// handle maps one notification onto the tracked set. A create for a file the
// initial scan already reported is dropped, and a write to an unseen file
// counts as its creation.
func (w *FSWatcher) handle(ev fsnotify.Event) {
	if !w.tracks(ev.Name) {
		return
	}

	var event EventType
	w.mu.Lock()
	_, seen := w.known[ev.Name]
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if !seen {
			w.mu.Unlock()
			return
		}
		delete(w.known, ev.Name)
		event = EventDelete
	case ev.Has(fsnotify.Create):
		if seen {
			w.mu.Unlock()
			return
		}
		w.known[ev.Name] = stat(ev.Name)
		event = EventCreate
	case ev.Has(fsnotify.Write):
		w.known[ev.Name] = stat(ev.Name)
		event = EventModify
		if !seen {
			event = EventCreate
		}
	default:
		w.mu.Unlock()
		return
	}
	callback := w.callback
	w.mu.Unlock()

	w.emit(callback, ev.Name, event)
}

// Scan reads dir and reports every difference from the tracked set: new
// files, files whose size or mtime changed, and files that vanished.
func (w *FSWatcher) Scan(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	seen := make(map[string]fileState, len(entries))
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || !w.tracks(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		seen[path] = fileState{size: info.Size(), mtime: info.ModTime()}
	}

	type change struct {
		path  string
		event EventType
	}
	var changes []change

	w.mu.Lock()
	for path, st := range seen {
		old, ok := w.known[path]
		switch {
		case !ok:
			changes = append(changes, change{path, EventCreate})
		case old.size != st.size || !old.mtime.Equal(st.mtime):
			changes = append(changes, change{path, EventModify})
		}
	}
	for path := range w.known {
		if _, ok := seen[path]; !ok {
			changes = append(changes, change{path, EventDelete})
		}
	}
	w.known = seen
	callback := w.callback
	w.mu.Unlock()

	for _, c := range changes {
		w.emit(callback, c.path, c.event)
	}
	return nil
}

func (w *FSWatcher) tracks(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return w.extension == "" || strings.ToLower(filepath.Ext(name)) == w.extension
}

func (w *FSWatcher) emit(callback func(string, EventType), path string, event EventType) {
	w.logger.Debug("file changed", "path", path, "event", event.String())
	if callback != nil {
		callback(path, event)
	}
}
