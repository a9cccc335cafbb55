package db

import (
	"errors"
	"fmt"
)

// ErrRemoteQuery matches any failed backend query via errors.Is.
var ErrRemoteQuery = errors.New("remote query failure")

// QueryError wraps a failed backend query with the name of the failing
// operation. Expected absences (no rows) are never a QueryError; they
// are normalized to nil results before errors are built.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("remote query %q failed: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrRemoteQuery }
