// Package migrate moves full task sets between the local document and
// the remote repository. Unlike the sync coordinator it does no
// hash-based reconciliation: an export overwrites the remote side with
// the document's content, an import overwrites the document with the
// remote side's content.
package migrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/db"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/filestore"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/schema"
)

// Options contains configuration for a migration.
type Options struct {
	AccountID string
	DryRun    bool // Preview without writing
	Backup    bool // Back up the document before an import overwrites it
}

// Result contains statistics about the migration.
type Result struct {
	TasksMigrated int
	DepsMigrated  int
	BackupCreated string
	Errors        []string
}

// Export writes every task in the document to the remote repository.
// Individual task failures are collected in Result.Errors; the export
// continues with the remaining tasks.
func Export(ctx context.Context, repo *filestore.LocalRepository, database *db.DB, opts Options) (*Result, error) {
	result := &Result{}

	tasks, err := repo.LoadTasks()
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if err := schema.ValidateTaskSet(tasks); err != nil {
		return nil, fmt.Errorf("document is not exportable: %w", err)
	}

	for i := range tasks {
		task := tasks[i]
		if task.AccountID == "" {
			task.AccountID = opts.AccountID
		}

		if !opts.DryRun {
			if err := database.UpsertTask(ctx, &task); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("failed to export task %s: %v", task.ID, err))
				continue
			}
			if err := database.ReplaceDependencies(ctx, task.AccountID, task.ID, task.Dependencies); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("failed to export dependencies of %s: %v", task.ID, err))
				continue
			}
		}
		result.TasksMigrated++
		result.DepsMigrated += len(task.Dependencies)
	}

	return result, nil
}

// Import replaces the document's task set with the remote repository's
// content. With opts.Backup the current document is copied aside first
// so the overwrite can be rolled back.
func Import(ctx context.Context, repo *filestore.LocalRepository, database *db.DB, opts Options) (*Result, error) {
	result := &Result{}

	remote, err := database.GetTasks(ctx, opts.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load remote tasks: %w", err)
	}

	tasks := make([]schema.Task, 0, len(remote))
	for _, t := range remote {
		task := *t
		task.Subtasks = nil
		tasks = append(tasks, task)
		result.DepsMigrated += len(task.Dependencies)
	}
	result.TasksMigrated = len(tasks)

	if opts.DryRun {
		return result, nil
	}

	if opts.Backup {
		backupPath, err := backupDocument(repo.Path())
		if err != nil {
			return nil, err
		}
		result.BackupCreated = backupPath
	}

	schema.SortTasks(tasks)
	if err := repo.SaveTasks(tasks); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	return result, nil
}

// backupDocument copies the document aside with a timestamp suffix.
// A missing document needs no backup.
func backupDocument(path string) (string, error) {
	input, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read document for backup: %w", err)
	}

	backupPath := path + ".backup." + time.Now().Format("20060102-150405")
	if err := os.WriteFile(backupPath, input, 0600); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	return backupPath, nil
}
