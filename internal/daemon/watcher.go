package daemon

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates the document was created.
	OpCreate EventOp = iota
	// OpModify indicates the document was modified.
	OpModify
	// OpDelete indicates the document was deleted.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// DocumentEvent represents a file system event on the task document.
type DocumentEvent struct {
	// Path is the absolute path of the document.
	Path string
	// Op is the operation that occurred.
	Op EventOp
}

// DocumentWatcher watches a single task document for changes.
// It uses fsnotify for cross-platform file system event monitoring.
//
// The parent directory is watched rather than the file itself: atomic
// writers replace the document by rename, which drops a file-level
// watch, while a directory watch survives the swap. Events for
// anything in the directory other than the document (temp files, the
// lock directory, unrelated files) are filtered out.
type DocumentWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan DocumentEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewDocumentWatcher creates a watcher for the document at path.
// The watcher must be started with Start() before it will emit events.
func NewDocumentWatcher(path string) (*DocumentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve document path %s: %w", path, err)
	}

	return &DocumentWatcher{
		watcher: watcher,
		path:    abs,
		events:  make(chan DocumentEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the document's directory for changes.
// Returns an error if the directory cannot be watched.
func (dw *DocumentWatcher) Start() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.running {
		return fmt.Errorf("watcher already running")
	}

	dir := filepath.Dir(dw.path)
	if err := dw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch document directory %s: %w", dir, err)
	}

	dw.running = true
	dw.wg.Add(1)
	go dw.processEvents()

	return nil
}

// Stop stops watching and cleans up resources.
// It blocks until the event processing goroutine has exited.
func (dw *DocumentWatcher) Stop() error {
	dw.mu.Lock()
	if !dw.running {
		dw.mu.Unlock()
		return nil
	}
	dw.running = false
	dw.mu.Unlock()

	close(dw.done)

	if err := dw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	dw.wg.Wait()

	close(dw.events)
	close(dw.errors)

	return nil
}

// Events returns the channel that emits DocumentEvent notifications.
// This channel is closed when the watcher is stopped.
func (dw *DocumentWatcher) Events() <-chan DocumentEvent {
	return dw.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (dw *DocumentWatcher) Errors() <-chan error {
	return dw.errors
}

// processEvents converts fsnotify events to DocumentEvent
// notifications, dropping everything that is not the document itself.
func (dw *DocumentWatcher) processEvents() {
	defer dw.wg.Done()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}

			if docEvent, ok := dw.convertEvent(event); ok {
				select {
				case dw.events <- docEvent:
				case <-dw.done:
					return
				}
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case dw.errors <- err:
			case <-dw.done:
				return
			}
		}
	}
}

// convertEvent converts an fsnotify event to a DocumentEvent.
// Returns (DocumentEvent{}, false) for events that should be ignored.
func (dw *DocumentWatcher) convertEvent(event fsnotify.Event) (DocumentEvent, bool) {
	abs, err := filepath.Abs(event.Name)
	if err != nil || abs != dw.path {
		return DocumentEvent{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		// Rename away is a delete; the replacement triggers a create.
		op = OpDelete
	default:
		// Ignore chmod and other events.
		return DocumentEvent{}, false
	}

	return DocumentEvent{Path: abs, Op: op}, true
}

// IsRunning returns true if the watcher is currently running.
func (dw *DocumentWatcher) IsRunning() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.running
}
