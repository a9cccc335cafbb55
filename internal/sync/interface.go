package sync

import (
	"context"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/db"
)

// Action is the classification the coordinator assigns to one record
// during reconciliation.
type Action string

const (
	// ActionUnchanged means neither side changed since the last sync.
	ActionUnchanged Action = "unchanged"

	// ActionPush means only the local side changed; the local record
	// was written to (or deleted from) the remote repository.
	ActionPush Action = "push"

	// ActionPull means only the remote side changed; the remote record
	// was written to (or removed from) the local document.
	ActionPull Action = "pull"

	// ActionConflict means both sides changed since the last sync.
	// Neither record was modified; the conflict was flagged in the
	// metadata table for later resolution.
	ActionConflict Action = "conflict"
)

// RecordResult describes what happened to one record during a sync.
type RecordResult struct {
	TaskID string
	Action Action
}

// Result summarizes one reconciliation pass.
type Result struct {
	Unchanged int
	Pushed    int
	Pulled    int
	Conflicts int
	Records   []RecordResult
}

// Total returns the number of records examined.
func (r *Result) Total() int {
	return r.Unchanged + r.Pushed + r.Pulled + r.Conflicts
}

// Coordinator reconciles the local task document with the remote
// repository.
//
// The coordinator is resilient: a failure syncing one record is
// recorded and the pass continues with the remaining records. It never
// resolves a conflict on its own; conflicting records keep both copies
// intact until Resolve is called with an explicit winner.
type Coordinator interface {
	// SyncAll reconciles every record on either side: the union of the
	// local document's tasks and the remote repository's rows.
	//
	// Returns the per-record classification summary. The returned error
	// is non-nil only when the pass could not run at all (either side
	// unreadable); per-record failures are logged and skipped.
	SyncAll(ctx context.Context) (*Result, error)

	// SyncTask reconciles a single record by id.
	SyncTask(ctx context.Context, taskID string) (Action, error)

	// Conflicts lists the records currently flagged as conflicting.
	Conflicts(ctx context.Context) ([]*db.SyncMetadata, error)

	// Resolve settles a flagged conflict by declaring a winner. With
	// keepLocal the local copy overwrites the remote one; otherwise the
	// remote copy overwrites the local one. The metadata row is stamped
	// resolved so the record classifies as unchanged on the next pass.
	Resolve(ctx context.Context, taskID string, keepLocal bool) error
}
