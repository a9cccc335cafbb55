package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string) *DocumentWatcher {
	t.Helper()
	watcher, err := NewDocumentWatcher(path)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := watcher.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	t.Cleanup(func() { watcher.Stop() })
	return watcher
}

// waitForEvent blocks until an event for the document arrives or the
// timeout elapses.
func waitForEvent(t *testing.T, watcher *DocumentWatcher, timeout time.Duration) (DocumentEvent, bool) {
	t.Helper()
	select {
	case event, ok := <-watcher.Events():
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return event, true
	case <-time.After(timeout):
		return DocumentEvent{}, false
	}
}

func TestWatcherEmitsDocumentEvents(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "tasks.json")
	watcher := startWatcher(t, docPath)

	if err := os.WriteFile(docPath, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	event, ok := waitForEvent(t, watcher, 2*time.Second)
	if !ok {
		t.Fatal("no event after document creation")
	}
	if event.Path != docPath {
		t.Errorf("event path = %s, want %s", event.Path, docPath)
	}
	if event.Op != OpCreate && event.Op != OpModify {
		t.Errorf("event op = %v, want create or modify", event.Op)
	}

	if err := os.Remove(docPath); err != nil {
		t.Fatal(err)
	}

	// Drain until the delete arrives; creation may have produced a
	// trailing write event first.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-watcher.Events():
			if event.Op == OpDelete {
				return
			}
		case <-deadline:
			t.Fatal("no delete event after document removal")
		}
	}
}

func TestWatcherSurvivesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "tasks.json")
	if err := os.WriteFile(docPath, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	watcher := startWatcher(t, docPath)

	// Replace the document the way an atomic writer does: temp file
	// plus rename.
	tmpPath := docPath + ".123.tmp"
	if err := os.WriteFile(tmpPath, []byte(`{"tasks":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmpPath, docPath); err != nil {
		t.Fatal(err)
	}

	event, ok := waitForEvent(t, watcher, 2*time.Second)
	if !ok {
		t.Fatal("no event after atomic replace")
	}
	if event.Path != docPath {
		t.Errorf("event path = %s, want %s", event.Path, docPath)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "tasks.json")
	watcher := startWatcher(t, docPath)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tasks.json.99.tmp"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "tasks.json.lock"), 0755); err != nil {
		t.Fatal(err)
	}

	if event, ok := waitForEvent(t, watcher, 300*time.Millisecond); ok {
		t.Fatalf("unexpected event for sibling file: %+v", event)
	}
}

func TestWatcherStartStop(t *testing.T) {
	dir := t.TempDir()
	watcher, err := NewDocumentWatcher(filepath.Join(dir, "tasks.json"))
	if err != nil {
		t.Fatal(err)
	}

	if watcher.IsRunning() {
		t.Error("watcher running before Start")
	}
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !watcher.IsRunning() {
		t.Error("watcher not running after Start")
	}
	if err := watcher.Start(); err == nil {
		t.Error("second Start must fail")
	}

	if err := watcher.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if watcher.IsRunning() {
		t.Error("watcher running after Stop")
	}
	if err := watcher.Stop(); err != nil {
		t.Errorf("second Stop must be a no-op, got %v", err)
	}
}
