package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu     sync.Mutex
	events map[string]EventType
	count  int
}

func newRecorder(w *FSWatcher) *recorder {
	r := &recorder{events: make(map[string]EventType)}
	w.OnChange(func(path string, event EventType) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events[filepath.Base(path)] = event
		r.count++
	})
	return r
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = make(map[string]EventType)
	r.count = 0
}

func TestFSWatcher_ScanCreateModifyDelete(t *testing.T) {
	dir := t.TempDir()
	w := NewFSWatcher(".json", testLogger())
	rec := newRecorder(w)

	os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte("{}"), 0644)

	if err := w.Scan(dir); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(rec.events) != 1 || rec.events["a.json"] != EventCreate {
		t.Fatalf("events = %v, want a.json created", rec.events)
	}

	rec.reset()
	w.Scan(dir)
	if len(rec.events) != 0 {
		t.Fatalf("events = %v on unchanged directory", rec.events)
	}

	os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"name":"changed"}`), 0644)
	os.WriteFile(filepath.Join(dir, "B.JSON"), []byte("{}"), 0644)
	w.Scan(dir)
	if rec.events["a.json"] != EventModify || rec.events["B.JSON"] != EventCreate {
		t.Fatalf("events = %v, want a.json modified and B.JSON created", rec.events)
	}

	rec.reset()
	os.Remove(filepath.Join(dir, "a.json"))
	w.Scan(dir)
	if len(rec.events) != 1 || rec.events["a.json"] != EventDelete {
		t.Fatalf("events = %v, want a.json deleted", rec.events)
	}
}

func TestFSWatcher_HandleMapsOps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doors.json")
	os.WriteFile(path, []byte("{}"), 0644)

	tests := []struct {
		name      string
		op        fsnotify.Op
		file      string
		wantEvent EventType
		wantFired bool
	}{
		{"create", fsnotify.Create, path, EventCreate, true},
		{"duplicate create", fsnotify.Create, path, 0, false},
		{"write", fsnotify.Write, path, EventModify, true},
		{"chmod", fsnotify.Chmod, path, 0, false},
		{"rename", fsnotify.Rename, path, EventDelete, true},
		{"remove after rename", fsnotify.Remove, path, 0, false},
		{"write to unseen file", fsnotify.Write, path, EventCreate, true},
		{"remove", fsnotify.Remove, path, EventDelete, true},
		{"other extension", fsnotify.Create, filepath.Join(dir, "clip.mp4"), 0, false},
		{"hidden file", fsnotify.Create, filepath.Join(dir, ".doors.json"), 0, false},
	}

	w := NewFSWatcher(".json", testLogger())
	rec := newRecorder(w)

	for _, tt := range tests {
		rec.reset()
		w.handle(fsnotify.Event{Name: tt.file, Op: tt.op})

		if fired := rec.count > 0; fired != tt.wantFired {
			t.Fatalf("%s: fired = %v, want %v (events %v)", tt.name, fired, tt.wantFired, rec.events)
		}
		if tt.wantFired && rec.events[filepath.Base(tt.file)] != tt.wantEvent {
			t.Fatalf("%s: event = %s, want %s", tt.name, rec.events[filepath.Base(tt.file)], tt.wantEvent)
		}
	}
}

func TestFSWatcher_ScanAfterWriteIsQuiet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doors.json")
	os.WriteFile(path, []byte("{}"), 0644)

	w := NewFSWatcher(".json", testLogger())
	rec := newRecorder(w)
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Create})

	rec.reset()
	w.Scan(dir)
	if rec.count != 0 {
		t.Errorf("events = %v after scanning a file already reported", rec.events)
	}
}

func TestFSWatcher_WatchStops(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "playlists")
	w := NewFSWatcher(".json", testLogger())

	created := make(chan string, 4)
	w.OnChange(func(path string, event EventType) {
		if event == EventCreate {
			created <- filepath.Base(path)
		}
	})

	done := make(chan error, 1)
	go func() { done <- w.Watch(context.Background(), dir) }()

	deadline := time.Now().Add(time.Second)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Watch did not create the directory")
		}
		time.Sleep(time.Millisecond)
	}
	os.WriteFile(filepath.Join(dir, "new.json"), []byte("{}"), 0644)

	select {
	case name := <-created:
		if name != "new.json" {
			t.Errorf("created = %s", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no create event")
	}

	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after Stop")
	}
}

func TestEventType_String(t *testing.T) {
	if EventDelete.String() != "delete" || EventType(9).String() != "unknown" {
		t.Errorf("String() = %q / %q", EventDelete.String(), EventType(9).String())
	}
}
