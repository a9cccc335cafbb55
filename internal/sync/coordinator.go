package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/db"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/filestore"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/schema"
)

// metadataTable is the table_name every task metadata row is filed
// under. One coordinator tracks one logical table.
const metadataTable = "tasks"

// coordinator implements the Coordinator interface.
type coordinator struct {
	repo      *filestore.LocalRepository
	db        *db.DB
	accountID string
	logger    *log.Logger
}

// New creates a Coordinator reconciling the repository's document with
// the remote database for one account.
//
// The database connection must be open and have its schema initialized.
// If logger is nil, a default logger writing to stderr is used.
func New(repo *filestore.LocalRepository, database *db.DB, accountID string, logger *log.Logger) Coordinator {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &coordinator{
		repo:      repo,
		db:        database,
		accountID: accountID,
		logger:    logger,
	}
}

// classify decides what to do with one record from its current hash
// pair and the pair stored at the previous reconciliation.
//
// Identical content on both sides is always unchanged, even on first
// observation. With no stored metadata, a record present on exactly
// one side is a plain push or pull; present on both sides with
// different content it is a conflict, because neither copy can be
// called stale. With stored metadata, whichever side moved away from
// its last-synced hash is the changed one; both moving is a conflict.
func classify(jsonHash, dbHash string, meta *db.SyncMetadata) Action {
	if jsonHash == dbHash {
		return ActionUnchanged
	}
	if meta == nil {
		switch {
		case dbHash == "":
			return ActionPush
		case jsonHash == "":
			return ActionPull
		default:
			return ActionConflict
		}
	}

	localChanged := jsonHash != meta.LastJSONHash
	remoteChanged := dbHash != meta.LastDBHash
	switch {
	case localChanged && remoteChanged:
		return ActionConflict
	case localChanged:
		return ActionPush
	case remoteChanged:
		return ActionPull
	default:
		// Hashes differ but neither side moved: a previously flagged
		// conflict still awaiting resolution.
		return ActionConflict
	}
}

// SyncAll implements Coordinator.SyncAll.
func (c *coordinator) SyncAll(ctx context.Context) (*Result, error) {
	localTasks, err := c.loadLocal()
	if err != nil {
		return nil, fmt.Errorf("sync: load local document: %w", err)
	}
	remoteTasks, err := c.db.GetTasks(ctx, c.accountID)
	if err != nil {
		return nil, fmt.Errorf("sync: load remote tasks: %w", err)
	}

	// Snapshot copies: applyLocal compacts the working slice in place,
	// so the map must not point into it.
	localByID := make(map[string]*schema.Task, len(localTasks))
	for i := range localTasks {
		t := localTasks[i]
		localByID[t.ID] = &t
	}
	remoteByID := make(map[string]*schema.Task, len(remoteTasks))
	for _, t := range remoteTasks {
		remoteByID[t.ID] = t
	}

	ids := unionIDs(localByID, remoteByID)
	result := &Result{}
	working := localTasks
	localDirty := false

	// Pulls whose metadata is stamped only after the batched document
	// save below commits.
	type pendingPull struct {
		id     string
		dbHash string
	}
	var pulls []pendingPull

	for _, id := range ids {
		local := localByID[id]
		remote := remoteByID[id]

		action, err := c.reconcile(ctx, id, local, remote)
		if err != nil {
			c.logger.Printf("WARNING: failed to sync task %s: %v", id, err)
			continue
		}

		switch action {
		case ActionUnchanged:
			result.Unchanged++
		case ActionPush:
			result.Pushed++
		case ActionPull:
			working = applyLocal(working, id, remote)
			localDirty = true
			pulls = append(pulls, pendingPull{id: id, dbHash: schema.HashTask(remote)})
			result.Pulled++
		case ActionConflict:
			result.Conflicts++
		}
		result.Records = append(result.Records, RecordResult{TaskID: id, Action: action})
	}

	if localDirty {
		schema.SortTasks(working)
		if err := c.repo.SaveTasks(working); err != nil {
			return result, fmt.Errorf("sync: save local document: %w", err)
		}
		for _, p := range pulls {
			if err := c.recordSync(ctx, p.id, p.dbHash, p.dbHash, db.ConflictNone); err != nil {
				// The pull itself landed; both sides now hash equal, so
				// the next pass classifies unchanged and re-records.
				c.logger.Printf("WARNING: failed to record pull of %s: %v", p.id, err)
			}
		}
	}

	c.logger.Printf("Sync complete: unchanged=%d pushed=%d pulled=%d conflicts=%d",
		result.Unchanged, result.Pushed, result.Pulled, result.Conflicts)
	return result, nil
}

// SyncTask implements Coordinator.SyncTask.
func (c *coordinator) SyncTask(ctx context.Context, taskID string) (Action, error) {
	localTasks, err := c.loadLocal()
	if err != nil {
		return "", fmt.Errorf("sync task %s: load local document: %w", taskID, err)
	}
	var local *schema.Task
	for i := range localTasks {
		if localTasks[i].ID == taskID {
			local = &localTasks[i]
			break
		}
	}
	remote, err := c.db.GetTask(ctx, c.accountID, taskID)
	if err != nil {
		return "", fmt.Errorf("sync task %s: load remote: %w", taskID, err)
	}

	action, err := c.reconcile(ctx, taskID, local, remote)
	if err != nil {
		return "", err
	}
	if action == ActionPull {
		if err := c.pullToDocument(taskID, remote); err != nil {
			return action, err
		}
		dbHash := schema.HashTask(remote)
		if err := c.recordSync(ctx, taskID, dbHash, dbHash, db.ConflictNone); err != nil {
			return action, err
		}
	}
	return action, nil
}

// reconcile classifies one record and applies the push side effects
// and the metadata update. Pull mutations of the local document and
// their metadata are left to the caller so SyncAll can batch them
// into one save and record only what that save committed.
func (c *coordinator) reconcile(ctx context.Context, id string, local, remote *schema.Task) (Action, error) {
	jsonHash := schema.HashTask(local)
	dbHash := schema.HashTask(remote)

	meta, err := c.db.GetSyncMetadata(ctx, metadataTable, id)
	if err != nil {
		return "", err
	}
	action := classify(jsonHash, dbHash, meta)

	switch action {
	case ActionUnchanged:
		err = c.recordSync(ctx, id, jsonHash, dbHash, db.ConflictNone)
	case ActionPush:
		if err = c.pushToRemote(ctx, id, local); err == nil {
			err = c.recordSync(ctx, id, jsonHash, jsonHash, db.ConflictNone)
		}
	case ActionPull:
		// Nothing recorded here: the caller stamps metadata only after
		// the document write succeeds, so a failed save leaves the old
		// hash pair in place and the pull is retried next pass.
	case ActionConflict:
		// Both copies stay intact; only the flag is written.
		err = c.recordSync(ctx, id, jsonHash, dbHash, db.ConflictDetected)
	}
	if err != nil {
		return "", err
	}
	return action, nil
}

// pushToRemote writes the local copy to the remote repository. An
// absent local copy deletes the remote row: classification already
// established the remote side has not changed since the last sync, so
// the deletion cannot clobber remote edits.
func (c *coordinator) pushToRemote(ctx context.Context, id string, local *schema.Task) error {
	if local == nil {
		return c.db.DeleteTask(ctx, c.accountID, id)
	}
	if err := c.db.UpsertTask(ctx, local); err != nil {
		return err
	}
	return c.db.ReplaceDependencies(ctx, c.accountID, id, local.Dependencies)
}

// pullToDocument writes the remote copy into the local document. An
// absent remote copy removes the task from the document.
func (c *coordinator) pullToDocument(id string, remote *schema.Task) error {
	if remote == nil {
		return c.repo.RemoveTask(id)
	}
	pulled := *remote
	pulled.Subtasks = nil
	return c.repo.UpsertTask(pulled)
}

// applyLocal folds one pull into the in-memory working set.
func applyLocal(tasks []schema.Task, id string, remote *schema.Task) []schema.Task {
	if remote == nil {
		kept := tasks[:0]
		for _, t := range tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		return kept
	}
	pulled := *remote
	pulled.Subtasks = nil
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i] = pulled
			return tasks
		}
	}
	return append(tasks, pulled)
}

// Conflicts implements Coordinator.Conflicts.
func (c *coordinator) Conflicts(ctx context.Context) ([]*db.SyncMetadata, error) {
	return c.db.ListConflicts(ctx, metadataTable)
}

// Resolve implements Coordinator.Resolve.
func (c *coordinator) Resolve(ctx context.Context, taskID string, keepLocal bool) error {
	meta, err := c.db.GetSyncMetadata(ctx, metadataTable, taskID)
	if err != nil {
		return err
	}
	if meta == nil || meta.ConflictStatus != db.ConflictDetected {
		return fmt.Errorf("resolve %s: no conflict flagged", taskID)
	}

	localTasks, err := c.loadLocal()
	if err != nil {
		return fmt.Errorf("resolve %s: load local document: %w", taskID, err)
	}
	var local *schema.Task
	for i := range localTasks {
		if localTasks[i].ID == taskID {
			local = &localTasks[i]
			break
		}
	}
	remote, err := c.db.GetTask(ctx, c.accountID, taskID)
	if err != nil {
		return fmt.Errorf("resolve %s: load remote: %w", taskID, err)
	}

	if keepLocal {
		if err := c.pushToRemote(ctx, taskID, local); err != nil {
			return fmt.Errorf("resolve %s: push local copy: %w", taskID, err)
		}
		hash := schema.HashTask(local)
		if err := c.recordSync(ctx, taskID, hash, hash, db.ConflictResolvedLocal); err != nil {
			return err
		}
		c.logger.Printf("Resolved conflict on %s: kept local copy", taskID)
		return nil
	}

	if err := c.pullToDocument(taskID, remote); err != nil {
		return fmt.Errorf("resolve %s: pull remote copy: %w", taskID, err)
	}
	hash := schema.HashTask(remote)
	if err := c.recordSync(ctx, taskID, hash, hash, db.ConflictResolvedRemote); err != nil {
		return err
	}
	c.logger.Printf("Resolved conflict on %s: kept remote copy", taskID)
	return nil
}

// recordSync persists the hash pair and conflict status observed for
// one record. The metadata table's uniqueness constraint makes this an
// update after the first observation.
func (c *coordinator) recordSync(ctx context.Context, id, jsonHash, dbHash, status string) error {
	return c.db.UpsertSyncMetadata(ctx, &db.SyncMetadata{
		TableName:      metadataTable,
		RecordKey:      id,
		LastJSONHash:   jsonHash,
		LastDBHash:     dbHash,
		ConflictStatus: status,
	})
}

// loadLocal reads the document's tasks and stamps the coordinator's
// account id on each, so local and remote copies of the same content
// hash identically.
func (c *coordinator) loadLocal() ([]schema.Task, error) {
	tasks, err := c.repo.LoadTasks()
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].AccountID == "" {
			tasks[i].AccountID = c.accountID
		}
	}
	return tasks, nil
}

func unionIDs(local, remote map[string]*schema.Task) []string {
	seen := make(map[string]bool, len(local)+len(remote))
	var ids []string
	for id := range local {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range remote {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
