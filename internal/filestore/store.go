// Package filestore provides durable, crash-safe, cross-process-safe
// persistence for a single JSON task document.
//
// Writes are atomic: the document is serialized to a process-unique
// sibling temp file and renamed over the target, so a concurrent
// reader observes either the old or the new document, never a partial
// one. Writers additionally serialize end-to-end through an advisory
// cross-process lock, because a lock-free rename race could still let
// two writers' renames land out of order.
//
// Reads are never blocked by the lock; the lock protects only the
// write+rename window.
package filestore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/schema"
)

// emptyDocument is the content of a freshly created document.
const emptyDocument = "{}\n"

// Store owns the on-disk bytes of task documents. Parsed domain
// objects belong to the repositories layered on top; nothing outside
// the store mutates the files directly.
type Store struct {
	inflight *inflightWrites
}

// New creates a Store.
func New() *Store {
	return &Store{inflight: newInflightWrites()}
}

func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// ReadDocument reads and parses the document at path.
//
// A missing path fails with ErrNotFound so callers can distinguish
// "no data yet" from real failures. Content that is not valid JSON
// fails with ErrMalformed; the message names the path. Any other I/O
// failure is wrapped with the path and cause.
//
// Reads never take the write lock: rename-based replacement means a
// reader sees either the old or the new document in full.
func (s *Store) ReadDocument(path string) (*schema.TaskDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(KindNotFound, "read", path, err)
		}
		return nil, newError(KindWriteFailure, "read", path, err)
	}

	var doc schema.TaskDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, newError(KindMalformed, "read", path, err)
	}
	return &doc, nil
}

// WriteDocument writes the document durably and atomically.
//
// The target path is created (parent directories plus an empty `{}`
// placeholder) if absent, because the cross-process lock needs an
// existing file to lock against. The write itself is temp-file plus
// rename under the lock; once the rename begins it is must-complete.
func (s *Store) WriteDocument(path string, doc *schema.TaskDocument) error {
	path = canonicalPath(path)

	if err := s.ensureTarget(path); err != nil {
		return err
	}

	// Wait out our own prior in-flight write to this path. Same-process
	// only; cross-process exclusion comes from the lock below.
	done := s.inflight.begin(path)
	defer done()

	lock, err := acquireLock(path)
	if err != nil {
		return err
	}
	// Release on every exit path. Failures are swallowed inside
	// release; the lock may already have gone stale.
	defer lock.release()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return newError(KindWriteFailure, "write", path, err)
	}
	data = append(data, '\n')

	return replaceFile(path, data)
}

// replaceFile writes data to a process-unique temp sibling and renames
// it over path. The temp file is removed best-effort if anything fails
// before the rename, so the original error is never masked by cleanup.
func replaceFile(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.%d.%s.tmp", path, os.Getpid(), uuid.NewString())

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return newError(KindWriteFailure, "write", path, err)
	}

	cleanup := func(cause error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return newError(KindWriteFailure, "write", path, cause)
	}

	if _, err := f.Write(data); err != nil {
		return cleanup(err)
	}
	if err := f.Sync(); err != nil {
		return cleanup(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return newError(KindWriteFailure, "write", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return newError(KindWriteFailure, "write", path, err)
	}
	return nil
}

// ensureTarget guarantees path exists, creating parent directories and
// an empty placeholder document when absent. Creation is O_EXCL so a
// concurrent creator winning the race is fine.
func (s *Store) ensureTarget(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return newError(KindWriteFailure, "stat", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return newError(KindWriteFailure, "mkdir", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return newError(KindWriteFailure, "create", path, err)
	}
	if _, err := f.WriteString(emptyDocument); err != nil {
		_ = f.Close()
		return newError(KindWriteFailure, "create", path, err)
	}
	if err := f.Close(); err != nil {
		return newError(KindWriteFailure, "create", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (s *Store) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, newError(KindWriteFailure, "stat", path, err)
}

// Remove deletes path. A missing path is a no-op success.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return newError(KindWriteFailure, "remove", path, err)
	}
	return nil
}

// Move renames from to to.
func (s *Store) Move(from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return &Error{Kind: KindWriteFailure, Op: "move", Path: from + " -> " + to, Err: err}
	}
	return nil
}

// Copy duplicates from to to.
func (s *Store) Copy(from, to string) error {
	wrap := func(err error) error {
		return &Error{Kind: KindWriteFailure, Op: "copy", Path: from + " -> " + to, Err: err}
	}

	src, err := os.Open(from)
	if err != nil {
		return wrap(err)
	}
	defer src.Close()

	dst, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return wrap(err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return wrap(err)
	}
	if err := dst.Close(); err != nil {
		return wrap(err)
	}
	return nil
}
