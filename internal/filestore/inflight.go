package filestore

import "sync"

// inflightWrites serializes this process's writes to the same
// canonical path: a writer waits for the previous in-flight write to
// the path to finish before taking its turn. This is a convenience for
// concurrent goroutines inside one process only; it is not a
// substitute for the cross-process lock and protects nothing against
// other processes.
type inflightWrites struct {
	mu      sync.Mutex
	pending map[string]chan struct{}
}

func newInflightWrites() *inflightWrites {
	return &inflightWrites{pending: make(map[string]chan struct{})}
}

// begin blocks until no earlier write to path is in flight, then
// registers the caller as the current writer. The returned func must
// be called when the write finishes.
func (w *inflightWrites) begin(path string) (done func()) {
	for {
		w.mu.Lock()
		prev, busy := w.pending[path]
		if !busy {
			ch := make(chan struct{})
			w.pending[path] = ch
			w.mu.Unlock()
			return func() {
				w.mu.Lock()
				delete(w.pending, path)
				w.mu.Unlock()
				close(ch)
			}
		}
		w.mu.Unlock()
		<-prev
	}
}
