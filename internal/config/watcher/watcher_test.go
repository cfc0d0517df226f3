package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNew(t *testing.T) {
	w := New()
	if w.debounce != 100*time.Millisecond {
		t.Errorf("default debounce = %v, want 100ms", w.debounce)
	}

	w = New(WithDebounce(0))
	if w.debounce != 0 {
		t.Errorf("debounce = %v, want 0", w.debounce)
	}

	w = New(WithDebounce(-time.Second))
	if w.debounce != 100*time.Millisecond {
		t.Errorf("negative debounce should be ignored, got %v", w.debounce)
	}
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestConvertOp(t *testing.T) {
	tests := []struct {
		op     fsnotify.Op
		want   Operation
		wantOK bool
	}{
		{fsnotify.Write, OpWrite, true},
		{fsnotify.Create, OpCreate, true},
		{fsnotify.Create | fsnotify.Write, OpCreate, true},
		{fsnotify.Remove, OpRemove, true},
		{fsnotify.Rename, OpRename, true},
		{fsnotify.Chmod, 0, false},
	}

	for _, tt := range tests {
		got, ok := convertOp(tt.op)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("convertOp(%v) = %v, %v; want %v, %v", tt.op, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestWatcher_WatchUnwatch(t *testing.T) {
	dir := t.TempDir()
	w := New()

	if err := w.Watch(filepath.Join(dir, "b.toml")); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(filepath.Join(dir, "a.toml")); err != nil {
		t.Fatal(err)
	}

	files := w.WatchedFiles()
	want := []string{filepath.Join(dir, "a.toml"), filepath.Join(dir, "b.toml")}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("WatchedFiles() = %v, want %v", files, want)
	}

	if err := w.Unwatch(filepath.Join(dir, "a.toml")); err != nil {
		t.Fatal(err)
	}
	if len(w.WatchedFiles()) != 1 {
		t.Errorf("WatchedFiles() = %v after Unwatch", w.WatchedFiles())
	}
}

func TestWatcher_Coalescing(t *testing.T) {
	base := time.Date(2024, 3, 19, 12, 0, 0, 0, time.UTC)
	now := base
	w := New(WithDebounce(50 * time.Millisecond))
	w.now = func() time.Time { return now }

	var got []Event
	w.OnChange(func(e Event) { got = append(got, e) })

	tests := []struct {
		ops  []Operation
		want Operation
	}{
		{[]Operation{OpCreate, OpWrite}, OpCreate},
		{[]Operation{OpWrite, OpWrite}, OpWrite},
		{[]Operation{OpWrite, OpRemove}, OpRemove},
		{[]Operation{OpRemove, OpCreate, OpWrite}, OpCreate},
	}

	for i, tt := range tests {
		got = nil
		path := filepath.Join("/settings", string(rune('a'+i))+".toml")
		for _, op := range tt.ops {
			w.queueEvent(Event{Path: path, Op: op, Time: now})
		}

		// Not yet stable.
		w.processPendingEvents()
		if len(got) != 0 {
			t.Fatalf("case %d: emitted before debounce: %v", i, got)
		}

		now = now.Add(50 * time.Millisecond)
		w.processPendingEvents()
		if len(got) != 1 {
			t.Fatalf("case %d: emitted %d events, want 1", i, len(got))
		}
		if got[0].Op != tt.want {
			t.Errorf("case %d: op = %v, want %v", i, got[0].Op, tt.want)
		}
	}
}

func TestWatcher_HandlerPanicRecovered(t *testing.T) {
	w := New(WithDebounce(0))

	called := false
	w.OnChange(func(Event) { panic("boom") })
	w.OnChange(func(Event) { called = true })

	w.emitEvent(Event{Path: "/x.toml", Op: OpWrite})
	if !called {
		t.Error("second handler not called after first panicked")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	w := New()
	if err := w.Watch(filepath.Join(dir, "settings.toml")); err != nil {
		t.Fatal(err)
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !w.IsRunning() {
		t.Error("expected watcher to be running")
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Start() error = %v, want ErrRunning", err)
	}

	w.Stop()
	w.Stop()
	if w.IsRunning() {
		t.Error("expected watcher to be stopped")
	}
}

func TestWatcher_StartMissingDirectory(t *testing.T) {
	w := New()
	if err := w.Watch(filepath.Join(t.TempDir(), "missing", "settings.toml")); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error watching a missing directory")
	}
	if w.IsRunning() {
		t.Error("watcher running after failed Start")
	}
}

func waitForEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
		return Event{}
	}
}

func TestWatcher_DetectsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")

	w := New(WithDebounce(20 * time.Millisecond))
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	events := make(chan Event, 16)
	w.OnChange(func(e Event) { events <- e })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("debug = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := waitForEvent(t, events)
	if e.Path != path {
		t.Errorf("event path = %q, want %q", e.Path, path)
	}
	if e.Op != OpCreate {
		t.Errorf("event op = %v, want create", e.Op)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	for e = waitForEvent(t, events); e.Op != OpRemove; e = waitForEvent(t, events) {
		if e.Op != OpWrite {
			t.Errorf("unexpected event before remove: %v", e.Op)
		}
	}
}

func TestWatcher_StopsWithContext(t *testing.T) {
	w := New(WithDebounce(0))
	if err := w.Watch(filepath.Join(t.TempDir(), "settings.toml")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
