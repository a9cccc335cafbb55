// Package schema defines the task domain model shared by the local
// document store and the remote repository, plus the canonical content
// hashing used by the sync coordinator to detect change.
package schema

import (
	"fmt"
	"sort"
)

// Status describes a task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusDeferred   Status = "deferred"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusDeferred, StatusCancelled:
		return true
	}
	return false
}

// Priority describes a task's scheduling priority.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether the priority is one of the known values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is a unit of work with identity, status, priority, sibling
// ordering, and dependency edges to other tasks in the same account.
//
// Task IDs are unique within an account. Position orders tasks among
// their siblings; SubtaskPosition orders a parent's children. Every ID
// listed in Dependencies must reference an existing task in the same
// account.
type Task struct {
	ID              string   `json:"id"`
	ParentTaskID    string   `json:"parentTaskId,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Status          Status   `json:"status"`
	Priority        Priority `json:"priority"`
	Dependencies    []string `json:"dependencies"`
	Position        int      `json:"position"`
	SubtaskPosition int      `json:"subtaskPosition,omitempty"`
	AccountID       string   `json:"accountId,omitempty"`

	// Subtasks holds child tasks when a repository folds them into a
	// single lookup. They are separate records for sync purposes and
	// are excluded from the content hash.
	Subtasks []*Task `json:"subtasks,omitempty"`
}

// SetDefaults applies default values for optional fields.
func (t *Task) SetDefaults() {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Dependencies == nil {
		t.Dependencies = []string{}
	}
}

// Validate checks that the task's own fields are well formed.
// Cross-record invariants (unique IDs, resolvable dependencies,
// position collisions) are checked by ValidateTaskSet.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	for _, dep := range t.Dependencies {
		if dep == "" {
			return fmt.Errorf("empty dependency id")
		}
		if dep == t.ID {
			return fmt.Errorf("task %s depends on itself", t.ID)
		}
	}
	return nil
}

// ValidateTaskSet checks the cross-record invariants of a full task
// collection: IDs are unique, every dependency and parent reference
// resolves within the set, and sibling positions do not collide.
//
// A dangling dependency is a data-integrity error, never silently
// dropped. Cycle detection is the caller's responsibility; a cyclic
// graph here is a caller error.
func ValidateTaskSet(tasks []Task) error {
	ids := make(map[string]bool, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
		if ids[t.ID] {
			return fmt.Errorf("duplicate task id %s", t.ID)
		}
		ids[t.ID] = true
	}

	type slot struct {
		parent   string
		position int
	}
	seen := make(map[slot]string, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		for _, dep := range t.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("task %s depends on unknown task %s", t.ID, dep)
			}
		}
		if t.ParentTaskID != "" && !ids[t.ParentTaskID] {
			return fmt.Errorf("task %s references unknown parent %s", t.ID, t.ParentTaskID)
		}
		pos := t.Position
		if t.ParentTaskID != "" {
			pos = t.SubtaskPosition
		}
		key := slot{parent: t.ParentTaskID, position: pos}
		if other, ok := seen[key]; ok {
			return fmt.Errorf("tasks %s and %s share position %d under parent %q", other, t.ID, pos, t.ParentTaskID)
		}
		seen[key] = t.ID
	}
	return nil
}

// SortTasks orders tasks by position, subtasks after their siblings by
// subtask position. The order matches the remote repository's
// position-ascending query so the two representations line up.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].ParentTaskID != tasks[j].ParentTaskID {
			return tasks[i].ParentTaskID < tasks[j].ParentTaskID
		}
		if tasks[i].ParentTaskID != "" {
			return tasks[i].SubtaskPosition < tasks[j].SubtaskPosition
		}
		return tasks[i].Position < tasks[j].Position
	})
}
