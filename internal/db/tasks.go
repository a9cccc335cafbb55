package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/schema"
)

// GetTasks fetches all tasks for the account ordered by position
// ascending. No rows is an empty slice, not an error.
//
// Dependency edges for the whole result set are fetched in ONE batched
// query and folded into the tasks during mapping — never one query per
// task.
func (db *DB) GetTasks(ctx context.Context, accountID string) ([]*schema.Task, error) {
	query := db.rebind(`
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE account_id = ?
	ORDER BY position ASC
	`)

	rows, err := db.q.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, &QueryError{Op: "get tasks", Err: err}
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, &QueryError{Op: "get tasks", Err: err}
	}
	if len(tasks) == 0 {
		return []*schema.Task{}, nil
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	deps, err := db.dependenciesFor(ctx, accountID, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if edges, ok := deps[t.ID]; ok {
			t.Dependencies = edges
		}
	}
	return tasks, nil
}

// dependenciesFor fetches the dependency edges of the given task ids
// in a single query and folds them into an adjacency map.
func (db *DB) dependenciesFor(ctx context.Context, accountID string, ids []string) (map[string][]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := db.rebind(`
	SELECT task_id, depends_on_task_id
	FROM task_dependencies
	WHERE account_id = ? AND task_id IN (` + placeholders + `)
	ORDER BY task_id, depends_on_task_id
	`)

	args := make([]any, 0, len(ids)+1)
	args = append(args, accountID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Op: "get task dependencies", Err: err}
	}
	defer rows.Close()

	deps := make(map[string][]string)
	for rows.Next() {
		var taskID, dependsOn string
		if err := rows.Scan(&taskID, &dependsOn); err != nil {
			return nil, &QueryError{Op: "get task dependencies", Err: err}
		}
		deps[taskID] = append(deps[taskID], dependsOn)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "get task dependencies", Err: err}
	}
	return deps, nil
}

// GetTask fetches a single task by id. A missing row is (nil, nil) —
// "no such task" is an expected outcome, distinct from a query failure
// which is still an error.
//
// On success the task's dependency edges and its subtasks (children
// ordered by subtask_position) are folded into the returned Task.
func (db *DB) GetTask(ctx context.Context, accountID, taskID string) (*schema.Task, error) {
	query := db.rebind(`
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE account_id = ? AND id = ?
	`)

	task, err := scanTask(db.q.QueryRowContext(ctx, query, accountID, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &QueryError{Op: "get task", Err: err}
	}

	deps, err := db.dependenciesFor(ctx, accountID, []string{taskID})
	if err != nil {
		return nil, err
	}
	if edges, ok := deps[taskID]; ok {
		task.Dependencies = edges
	}

	subtasks, err := db.subtasksOf(ctx, accountID, taskID)
	if err != nil {
		return nil, err
	}
	task.Subtasks = subtasks
	return task, nil
}

// subtasksOf fetches the children of a task ordered by their subtask
// position.
func (db *DB) subtasksOf(ctx context.Context, accountID, taskID string) ([]*schema.Task, error) {
	query := db.rebind(`
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE account_id = ? AND parent_task_id = ?
	ORDER BY subtask_position ASC
	`)

	rows, err := db.q.QueryContext(ctx, query, accountID, taskID)
	if err != nil {
		return nil, &QueryError{Op: "get subtasks", Err: err}
	}
	defer rows.Close()

	subtasks, err := scanTasks(rows)
	if err != nil {
		return nil, &QueryError{Op: "get subtasks", Err: err}
	}
	return subtasks, nil
}

// UpsertTask inserts or updates one task row. Idempotent.
func (db *DB) UpsertTask(ctx context.Context, task *schema.Task) error {
	if err := task.Validate(); err != nil {
		return &QueryError{Op: "upsert task", Err: err}
	}

	query := db.rebind(`
	INSERT INTO tasks (
		id, account_id, parent_task_id, title, description,
		status, priority, position, subtask_position, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (account_id, id) DO UPDATE SET
		parent_task_id = excluded.parent_task_id,
		title = excluded.title,
		description = excluded.description,
		status = excluded.status,
		priority = excluded.priority,
		position = excluded.position,
		subtask_position = excluded.subtask_position,
		updated_at = excluded.updated_at
	`)

	_, err := db.q.ExecContext(ctx, query,
		task.ID,
		task.AccountID,
		nullString(task.ParentTaskID),
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		task.Position,
		nullInt(task.SubtaskPosition),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &QueryError{Op: "upsert task", Err: err}
	}
	return nil
}

// ReplaceDependencies rewrites a task's outgoing dependency edges.
// Delete and re-insert are separate single statements; the window
// between them is part of the documented best-effort consistency of
// the remote backend.
func (db *DB) ReplaceDependencies(ctx context.Context, accountID, taskID string, dependsOn []string) error {
	del := db.rebind(`DELETE FROM task_dependencies WHERE account_id = ? AND task_id = ?`)
	if _, err := db.q.ExecContext(ctx, del, accountID, taskID); err != nil {
		return &QueryError{Op: "replace dependencies", Err: err}
	}

	ins := db.rebind(`
	INSERT INTO task_dependencies (account_id, task_id, depends_on_task_id)
	VALUES (?, ?, ?)
	ON CONFLICT (account_id, task_id, depends_on_task_id) DO NOTHING
	`)
	for _, dep := range dependsOn {
		if _, err := db.q.ExecContext(ctx, ins, accountID, taskID, dep); err != nil {
			return &QueryError{Op: "replace dependencies", Err: err}
		}
	}
	return nil
}

// DeleteTask removes a task row and its outgoing dependency edges.
// Deleting an absent task is a no-op success.
func (db *DB) DeleteTask(ctx context.Context, accountID, taskID string) error {
	depQuery := db.rebind(`DELETE FROM task_dependencies WHERE account_id = ? AND (task_id = ? OR depends_on_task_id = ?)`)
	if _, err := db.q.ExecContext(ctx, depQuery, accountID, taskID, taskID); err != nil {
		return &QueryError{Op: "delete task", Err: err}
	}

	query := db.rebind(`DELETE FROM tasks WHERE account_id = ? AND id = ?`)
	if _, err := db.q.ExecContext(ctx, query, accountID, taskID); err != nil {
		return &QueryError{Op: "delete task", Err: err}
	}
	return nil
}

// TaskCount returns the number of tasks stored for the account.
func (db *DB) TaskCount(ctx context.Context, accountID string) (int, error) {
	query := db.rebind(`SELECT COUNT(*) FROM tasks WHERE account_id = ?`)
	var count int
	if err := db.q.QueryRowContext(ctx, query, accountID).Scan(&count); err != nil {
		return 0, &QueryError{Op: "count tasks", Err: err}
	}
	return count, nil
}
