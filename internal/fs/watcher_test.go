package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/mobilecli/internal/protocol"
)

func TestFileWatcherClassifiesCreatedThenModified(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWatcher(30 * time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	target := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(target, []byte("v1"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	ev := waitForEvent(t, w.Events(), 2*time.Second)
	if ev.ChangeType != protocol.ChangeCreated {
		t.Fatalf("expected created, got %+v", ev)
	}

	if err := os.WriteFile(target, []byte("v2, longer content"), 0644); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	ev = waitForEvent(t, w.Events(), 2*time.Second)
	if ev.ChangeType != protocol.ChangeModified {
		t.Fatalf("expected modified, got %+v", ev)
	}
}

func TestFileWatcherUnwatchStopsEvents(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWatcher(30 * time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if err := w.Unwatch(dir); err != nil {
		t.Fatalf("unwatch failed: %v", err)
	}

	os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644)

	select {
	case ev := <-w.Events():
		t.Fatalf("expected no events after unwatch, got %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func waitForEvent(t *testing.T, ch <-chan protocol.FileChanged, timeout time.Duration) protocol.FileChanged {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for file change event")
		return protocol.FileChanged{}
	}
}
