package filestore

import (
	"errors"
	"fmt"
)

// Sentinel errors for discriminated handling at call sites. Every
// failure the store returns is an *Error whose Kind maps onto one of
// these, so callers match with errors.Is rather than string checks.
var (
	// ErrNotFound means the document path does not exist. Callers that
	// treat "no data yet" as an empty result match on this.
	ErrNotFound = errors.New("document not found")

	// ErrMalformed means the file exists but does not contain valid
	// JSON. Never auto-repaired.
	ErrMalformed = errors.New("malformed document")

	// ErrWriteFailure means an I/O failure during a write. Temp
	// artifacts are cleaned up best-effort before this propagates.
	ErrWriteFailure = errors.New("write failure")

	// ErrLockFailure means the cross-process lock could not be
	// acquired within the retry budget.
	ErrLockFailure = errors.New("lock acquisition failure")
)

// Kind discriminates store failures.
type Kind int

const (
	KindNotFound Kind = iota
	KindMalformed
	KindWriteFailure
	KindLockFailure
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindMalformed:
		return ErrMalformed
	case KindLockFailure:
		return ErrLockFailure
	default:
		return ErrWriteFailure
	}
}

// Error is the store's tagged error type: a kind plus the operation
// and path that failed and the underlying cause. One type with a kind
// enum replaces a hierarchy of error subclasses.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind.sentinel())
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an *Error against the kind sentinels.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
