package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/schema"
)

const testAccount = "acct-1"

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "remote.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return database
}

func remoteTask(id string, position int) *schema.Task {
	return &schema.Task{
		ID:           id,
		Title:        "Task " + id,
		Status:       schema.StatusPending,
		Priority:     schema.PriorityMedium,
		Dependencies: []string{},
		Position:     position,
		AccountID:    testAccount,
	}
}

func seedTask(t *testing.T, database *DB, task *schema.Task) {
	t.Helper()
	if err := database.UpsertTask(context.Background(), task); err != nil {
		t.Fatalf("seed task %s: %v", task.ID, err)
	}
	if len(task.Dependencies) > 0 {
		if err := database.ReplaceDependencies(context.Background(), task.AccountID, task.ID, task.Dependencies); err != nil {
			t.Fatalf("seed deps for %s: %v", task.ID, err)
		}
	}
}

// countingQuerier counts QueryContext calls so tests can assert how
// many queries an operation issued.
type countingQuerier struct {
	inner   querier
	queries atomic.Int64
}

func (c *countingQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.queries.Add(1)
	return c.inner.QueryContext(ctx, query, args...)
}

func (c *countingQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.inner.QueryRowContext(ctx, query, args...)
}

func (c *countingQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.inner.ExecContext(ctx, query, args...)
}

func TestGetTasksEmpty(t *testing.T) {
	database := setupTestDB(t)

	tasks, err := database.GetTasks(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("expected empty slice, got %v", tasks)
	}
}

func TestGetTasksOrderAndDependencies(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	a := remoteTask("a", 2)
	b := remoteTask("b", 0)
	c := remoteTask("c", 1)
	c.Dependencies = []string{"b"}
	a.Dependencies = []string{"b", "c"}
	for _, task := range []*schema.Task{a, b, c} {
		seedTask(t, database, task)
	}

	tasks, err := database.GetTasks(ctx, testAccount)
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}

	gotOrder := make([]string, len(tasks))
	for i, task := range tasks {
		gotOrder[i] = task.ID
	}
	if want := "b,c,a"; strings.Join(gotOrder, ",") != want {
		t.Errorf("order = %v, want %s", gotOrder, want)
	}

	for _, task := range tasks {
		if task.ID == "a" {
			if len(task.Dependencies) != 2 {
				t.Errorf("task a dependencies = %v, want 2 edges", task.Dependencies)
			}
		}
		if task.ID == "b" && len(task.Dependencies) != 0 {
			t.Errorf("task b should have no dependencies, got %v", task.Dependencies)
		}
	}
}

func TestGetTasksScopedByAccount(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	mine := remoteTask("mine", 0)
	other := remoteTask("other", 0)
	other.AccountID = "acct-2"
	seedTask(t, database, mine)
	seedTask(t, database, other)

	tasks, err := database.GetTasks(ctx, testAccount)
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "mine" {
		t.Errorf("account scoping broken: %v", tasks)
	}
}

// GetTasks must issue exactly one dependency query no matter how many
// tasks the account holds: one task query plus one batched edge query.
func TestGetTasksBatchesDependencyFetch(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		task := remoteTask(fmt.Sprintf("t%02d", i), i)
		if i > 0 {
			task.Dependencies = []string{fmt.Sprintf("t%02d", i-1)}
		}
		seedTask(t, database, task)
	}

	counter := &countingQuerier{inner: database.conn}
	database.q = counter

	tasks, err := database.GetTasks(ctx, testAccount)
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	if len(tasks) != 50 {
		t.Fatalf("expected 50 tasks, got %d", len(tasks))
	}
	if got := counter.queries.Load(); got != 2 {
		t.Errorf("GetTasks issued %d queries, want 2 (tasks + one batched dependency fetch)", got)
	}
}

func TestGetTaskMissingIsNil(t *testing.T) {
	database := setupTestDB(t)

	task, err := database.GetTask(context.Background(), testAccount, "missing-id")
	if err != nil {
		t.Fatalf("missing row must not be an error, got %v", err)
	}
	if task != nil {
		t.Errorf("expected nil task, got %+v", task)
	}
}

func TestGetTaskFoldsSubtasks(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	parent := remoteTask("parent", 0)
	childB := remoteTask("child-b", 1)
	childB.ParentTaskID = "parent"
	childB.SubtaskPosition = 2
	childA := remoteTask("child-a", 2)
	childA.ParentTaskID = "parent"
	childA.SubtaskPosition = 1
	parentDep := remoteTask("dep", 3)
	parent.Dependencies = []string{"dep"}

	for _, task := range []*schema.Task{parent, childA, childB, parentDep} {
		seedTask(t, database, task)
	}

	got, err := database.GetTask(ctx, testAccount, "parent")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected task, got nil")
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != "dep" {
		t.Errorf("dependencies = %v, want [dep]", got.Dependencies)
	}
	if len(got.Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(got.Subtasks))
	}
	if got.Subtasks[0].ID != "child-a" || got.Subtasks[1].ID != "child-b" {
		t.Errorf("subtasks out of order: %s, %s", got.Subtasks[0].ID, got.Subtasks[1].ID)
	}
}

func TestGetTaskQueryFailure(t *testing.T) {
	database := setupTestDB(t)
	// Closing the connection makes the next query fail with a real
	// backend error, which must surface as a QueryError.
	database.Close()

	_, err := database.GetTask(context.Background(), testAccount, "any")
	if !errors.Is(err, ErrRemoteQuery) {
		t.Fatalf("expected ErrRemoteQuery, got %v", err)
	}
	var qerr *QueryError
	if !errors.As(err, &qerr) || qerr.Op == "" {
		t.Errorf("query error must name the failing operation: %v", err)
	}
}

func TestUpsertTaskIdempotent(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	task := remoteTask("a", 0)
	seedTask(t, database, task)
	task.Title = "renamed"
	seedTask(t, database, task)

	count, err := database.TaskCount(ctx, testAccount)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after double upsert, got %d", count)
	}

	got, err := database.GetTask(ctx, testAccount, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "renamed" {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestDeleteTask(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	a := remoteTask("a", 0)
	b := remoteTask("b", 1)
	b.Dependencies = []string{"a"}
	seedTask(t, database, a)
	seedTask(t, database, b)

	if err := database.DeleteTask(ctx, testAccount, "a"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := database.DeleteTask(ctx, testAccount, "a"); err != nil {
		t.Fatalf("deleting an absent task must be a no-op, got %v", err)
	}

	got, err := database.GetTask(ctx, testAccount, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Dependencies) != 0 {
		t.Errorf("edges referencing the deleted task must be gone, got %v", got.Dependencies)
	}
}

func TestSyncMetadataUpsertKeepsOneRow(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	first := &SyncMetadata{
		TableName:    "tasks",
		RecordKey:    "t1",
		LastJSONHash: "A",
		LastDBHash:   "A",
	}
	if err := database.UpsertSyncMetadata(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	got1, err := database.GetSyncMetadata(ctx, "tasks", "t1")
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	second := &SyncMetadata{
		TableName:    "tasks",
		RecordKey:    "t1",
		LastJSONHash: "B",
		LastDBHash:   "A",
	}
	if err := database.UpsertSyncMetadata(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got2, err := database.GetSyncMetadata(ctx, "tasks", "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got2.ID != got1.ID {
		t.Errorf("upsert created a second row: id %d then %d", got1.ID, got2.ID)
	}
	if got2.LastJSONHash != "B" {
		t.Errorf("hash not updated: %+v", got2)
	}
	if !got2.LastSyncAt.After(got1.LastSyncAt) {
		t.Errorf("last_sync_at did not advance: %v then %v", got1.LastSyncAt, got2.LastSyncAt)
	}
}

func TestGetSyncMetadataMissing(t *testing.T) {
	database := setupTestDB(t)

	meta, err := database.GetSyncMetadata(context.Background(), "tasks", "never-seen")
	if err != nil {
		t.Fatalf("missing metadata must not be an error, got %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil, got %+v", meta)
	}
}

func TestListConflicts(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	rowsIn := []*SyncMetadata{
		{TableName: "tasks", RecordKey: "clean", LastJSONHash: "A", LastDBHash: "A"},
		{TableName: "tasks", RecordKey: "fought", LastJSONHash: "B", LastDBHash: "C", ConflictStatus: ConflictDetected},
	}
	for _, meta := range rowsIn {
		if err := database.UpsertSyncMetadata(ctx, meta); err != nil {
			t.Fatal(err)
		}
	}

	conflicts, err := database.ListConflicts(ctx, "tasks")
	if err != nil {
		t.Fatalf("ListConflicts failed: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].RecordKey != "fought" {
		t.Errorf("unexpected conflicts: %+v", conflicts)
	}
}
