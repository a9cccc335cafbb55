// Package daemon provides the background process that keeps the task
// document and the remote repository reconciled.
//
// The daemon:
// 1. Performs an initial full reconciliation on startup
// 2. Watches the task document for changes and reconciles on write
// 3. Periodically reconciles to pick up remote-side changes
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	stdsync "sync"
	"time"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is how often to reconcile even without file events.
	// Remote-side changes have no file event, so this is the only way
	// they are picked up.
	SyncInterval time.Duration

	// DebounceInterval is how long to wait before reconciling after a
	// file change. Rapid successive writes are batched into one pass.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     30 * time.Second,
		DebounceInterval: 100 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates document watching and reconciliation.
type Daemon struct {
	coord   sync.Coordinator
	docPath string
	config  *Config

	watcher *DocumentWatcher

	pendingMu stdsync.Mutex
	pendingAt time.Time
	pending   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// New creates a new Daemon instance watching the document at docPath
// and reconciling through coord. Use Start() to begin.
func New(coord sync.Coordinator, docPath string) (*Daemon, error) {
	return NewWithConfig(coord, docPath, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(coord sync.Coordinator, docPath string, config *Config) (*Daemon, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if docPath == "" {
		return nil, fmt.Errorf("docPath cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := NewDocumentWatcher(docPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		coord:   coord,
		docPath: docPath,
		config:  config,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// This blocks until ctx is cancelled or startup fails. The initial
// reconciliation must succeed; after that, individual reconciliation
// failures are logged and retried on the next trigger.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if _, err := d.coord.SyncAll(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	if err := d.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	d.config.Logger.Printf("Watching: %s", d.docPath)

	d.wg.Add(3)
	go d.watchDocumentEvents()
	go d.processDebounce()
	go d.periodicSync()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Stop(); err != nil {
		d.config.Logger.Printf("Error stopping watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// watchDocumentEvents monitors document events and marks a pending
// reconciliation.
func (d *Daemon) watchDocumentEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			d.config.Logger.Printf("Document event: %s %s", event.Op, event.Path)
			d.queueSync()

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueSync marks a reconciliation as pending, restarting the
// debounce window.
func (d *Daemon) queueSync() {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	d.pending = true
	d.pendingAt = time.Now()
}

// processDebounce runs the pending reconciliation once the debounce
// window has elapsed without further events.
func (d *Daemon) processDebounce() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if d.takePending() {
				d.runSync("file change")
			}
		}
	}
}

// takePending consumes the pending flag if the debounce window has
// elapsed.
func (d *Daemon) takePending() bool {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()

	if !d.pending || time.Since(d.pendingAt) < d.config.DebounceInterval {
		return false
	}
	d.pending = false
	return true
}

// periodicSync reconciles on a fixed interval to pick up remote-side
// changes that produce no file event.
func (d *Daemon) periodicSync() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.runSync("interval")
		}
	}
}

// runSync performs one reconciliation pass. The document write a pull
// performs re-triggers a file event, but the follow-up pass classifies
// everything as unchanged, so the loop settles immediately.
func (d *Daemon) runSync(trigger string) {
	result, err := d.coord.SyncAll(d.ctx)
	if err != nil {
		d.config.Logger.Printf("Sync failed (%s): %v", trigger, err)
		return
	}
	if result.Pushed > 0 || result.Pulled > 0 || result.Conflicts > 0 {
		d.config.Logger.Printf("Sync (%s): pushed=%d pulled=%d conflicts=%d",
			trigger, result.Pushed, result.Pulled, result.Conflicts)
	}
}
