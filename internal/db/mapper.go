package db

import (
	"database/sql"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/schema"
)

// taskColumns is the column list every task query selects, in the
// order scanTask expects. Keeping one mapper for both repository
// methods means the row-to-domain translation cannot drift.
const taskColumns = `id, account_id, parent_task_id, title, description, status, priority, position, subtask_position`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask maps one task row into the domain model.
func scanTask(row rowScanner) (*schema.Task, error) {
	var (
		task            schema.Task
		parentTaskID    sql.NullString
		subtaskPosition sql.NullInt64
	)

	err := row.Scan(
		&task.ID,
		&task.AccountID,
		&parentTaskID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.Position,
		&subtaskPosition,
	)
	if err != nil {
		return nil, err
	}

	if parentTaskID.Valid {
		task.ParentTaskID = parentTaskID.String
	}
	if subtaskPosition.Valid {
		task.SubtaskPosition = int(subtaskPosition.Int64)
	}
	task.Dependencies = []string{}
	return &task, nil
}

// scanTasks maps a multi-row result set.
func scanTasks(rows *sql.Rows) ([]*schema.Task, error) {
	var tasks []*schema.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// nullString maps "" to SQL NULL, matching the nullable columns.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullInt maps 0 to SQL NULL for the optional subtask position.
func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}
