package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Cross-process advisory lock parameters. A crashed holder blocks
// other writers for at most lockStaleAfter; acquisition gives up after
// lockRetries attempts with exponential backoff rather than hanging.
const (
	lockStaleAfter    = 10 * time.Second
	lockRetries       = 5
	lockRetryMinDelay = 100 * time.Millisecond
	lockRetryMaxDelay = 1000 * time.Millisecond
)

// lockOwnerFile names the token file inside the lock directory that
// identifies the holder.
const lockOwnerFile = "owner"

// pathLock is an advisory cross-process lock on a document path,
// implemented as a sibling lock directory. Directory creation is
// atomic on every platform, so whichever process creates it holds the
// lock; the directory's mtime bounds staleness. The token written to
// the owner file lets release distinguish the holder's own lock from
// one reclaimed and re-acquired by another process.
type pathLock struct {
	dir   string
	token string
}

func lockDirFor(path string) string {
	return path + ".lock"
}

// acquireLock takes the lock for path, retrying with exponential
// backoff and reclaiming stale locks left behind by crashed holders.
// The target file must already exist; writeDocument guarantees that
// before calling.
func acquireLock(path string) (*pathLock, error) {
	dir := lockDirFor(path)
	delay := lockRetryMinDelay

	var lastErr error
	for attempt := 0; attempt <= lockRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
			if delay > lockRetryMaxDelay {
				delay = lockRetryMaxDelay
			}
		}

		err := os.Mkdir(dir, 0o755)
		if err == nil {
			token := fmt.Sprintf("%d.%s", os.Getpid(), uuid.NewString())
			if err := os.WriteFile(filepath.Join(dir, lockOwnerFile), []byte(token), 0o644); err != nil {
				_ = os.RemoveAll(dir)
				lastErr = err
				continue
			}
			return &pathLock{dir: dir, token: token}, nil
		}
		if !os.IsExist(err) {
			lastErr = err
			continue
		}

		// Lock held by someone. Reclaim it if the holder has been gone
		// longer than the stale bound; a successful removal does not
		// grant the lock, it just opens the next attempt to a race all
		// contenders resolve through Mkdir.
		info, statErr := os.Stat(dir)
		if statErr != nil {
			// Holder released between Mkdir and Stat; retry immediately.
			lastErr = err
			continue
		}
		if time.Since(info.ModTime()) > lockStaleAfter {
			_ = os.RemoveAll(dir)
		}
		lastErr = fmt.Errorf("held by another process")
	}

	return nil, newError(KindLockFailure, "lock", path, lastErr)
}

// release drops the lock, but only if this holder still owns it: a
// holder that overran the stale bound may find its lock reclaimed and
// re-acquired by another process, and must not delete that process's
// lock out from under it. Failures are swallowed; the caller's
// original error must not be masked.
func (l *pathLock) release() {
	if l == nil {
		return
	}
	owner, err := os.ReadFile(filepath.Join(l.dir, lockOwnerFile))
	if err != nil || string(owner) != l.token {
		return
	}
	_ = os.RemoveAll(l.dir)
}
