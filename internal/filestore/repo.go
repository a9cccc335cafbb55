package filestore

import (
	"errors"
	"fmt"
	"time"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/schema"
)

// LocalRepository maps the task domain model to and from a single JSON
// document through the Store. It owns the parsed in-memory tasks; the
// Store owns the bytes. There is no record-level locking: the unit of
// consistency is the whole document, and saves are full-document
// replaces.
type LocalRepository struct {
	path  string
	store *Store
}

// NewLocalRepository creates a repository backed by the document at
// path.
func NewLocalRepository(path string, store *Store) *LocalRepository {
	if store == nil {
		store = New()
	}
	return &LocalRepository{path: canonicalPath(path), store: store}
}

// Path returns the backing document path.
func (r *LocalRepository) Path() string { return r.path }

// LoadTasks deserializes the document's task collection.
//
// A missing document and a freshly created empty document (`{}`) both
// mean "zero tasks", not an error. Malformed content still fails.
func (r *LocalRepository) LoadTasks() ([]schema.Task, error) {
	doc, err := r.store.ReadDocument(r.path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []schema.Task{}, nil
		}
		return nil, err
	}
	if doc.Tasks == nil {
		return []schema.Task{}, nil
	}
	tasks := make([]schema.Task, len(doc.Tasks))
	copy(tasks, doc.Tasks)
	for i := range tasks {
		tasks[i].SetDefaults()
	}
	return tasks, nil
}

// SaveTasks re-serializes the full document with the given task set.
// This is a replace, not a patch; atomicity at document granularity is
// sufficient because no finer-grained mutation exists.
func (r *LocalRepository) SaveTasks(tasks []schema.Task) error {
	for i := range tasks {
		tasks[i].SetDefaults()
	}
	if err := schema.ValidateTaskSet(tasks); err != nil {
		return fmt.Errorf("save tasks %s: %w", r.path, err)
	}

	doc, err := r.store.ReadDocument(r.path)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		doc = &schema.TaskDocument{}
	}
	doc.Tasks = tasks
	doc.Touch(time.Now())

	return r.store.WriteDocument(r.path, doc)
}

// UpsertTask inserts or replaces one task by id, preserving the rest
// of the document. Used by the sync coordinator's pull path.
//
// The read and the write take the cross-process lock separately, so a
// concurrent process mutating the document between them loses its
// update to this full-document save. Each write is still atomic; the
// non-guarantee is isolation across the read-modify-write span.
func (r *LocalRepository) UpsertTask(task schema.Task) error {
	tasks, err := r.LoadTasks()
	if err != nil {
		return err
	}
	replaced := false
	for i := range tasks {
		if tasks[i].ID == task.ID {
			tasks[i] = task
			replaced = true
			break
		}
	}
	if !replaced {
		tasks = append(tasks, task)
	}
	schema.SortTasks(tasks)
	return r.SaveTasks(tasks)
}

// RemoveTask deletes one task by id. Removing an absent task is a
// no-op success. Carries the same read-modify-write caveat as
// UpsertTask: concurrent process mutations between the read and the
// save are lost.
func (r *LocalRepository) RemoveTask(id string) error {
	tasks, err := r.LoadTasks()
	if err != nil {
		return err
	}
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tasks) {
		return nil
	}
	return r.SaveTasks(kept)
}
