package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/schema"
)

func newTestRepo(t *testing.T) *LocalRepository {
	t.Helper()
	return NewLocalRepository(filepath.Join(t.TempDir(), "tasks.json"), New())
}

func repoTask(id string, position int) schema.Task {
	return schema.Task{
		ID:           id,
		Title:        "Task " + id,
		Status:       schema.StatusPending,
		Priority:     schema.PriorityMedium,
		Dependencies: []string{},
		Position:     position,
		AccountID:    "acct-1",
	}
}

func TestLoadTasksMissingDocument(t *testing.T) {
	repo := newTestRepo(t)

	tasks, err := repo.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks on missing document must succeed, got %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected zero tasks, got %d", len(tasks))
	}
}

func TestLoadTasksEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo := NewLocalRepository(path, New())

	tasks, err := repo.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks on empty document must succeed, got %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected zero tasks from `{}`, got %d", len(tasks))
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	repo := newTestRepo(t)

	in := []schema.Task{repoTask("a", 0), repoTask("b", 1)}
	in[1].Dependencies = []string{"a"}

	if err := repo.SaveTasks(in); err != nil {
		t.Fatalf("SaveTasks failed: %v", err)
	}

	out, err := repo.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(out))
	}
	if out[1].Dependencies[0] != "a" {
		t.Errorf("dependencies not preserved: %+v", out[1])
	}
}

func TestSaveTasksRejectsDanglingDependency(t *testing.T) {
	repo := newTestRepo(t)

	task := repoTask("a", 0)
	task.Dependencies = []string{"ghost"}
	if err := repo.SaveTasks([]schema.Task{task}); err == nil {
		t.Fatal("dangling dependency must be rejected, not dropped")
	}
}

func TestSaveTasksBumpsMetadata(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.SaveTasks([]schema.Task{repoTask("a", 0)}); err != nil {
		t.Fatal(err)
	}
	doc1, err := repo.store.ReadDocument(repo.Path())
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveTasks([]schema.Task{repoTask("a", 0)}); err != nil {
		t.Fatal(err)
	}
	doc2, err := repo.store.ReadDocument(repo.Path())
	if err != nil {
		t.Fatal(err)
	}

	if doc1.Metadata == nil || doc2.Metadata == nil {
		t.Fatal("metadata block missing after save")
	}
	if doc2.Metadata.Version <= doc1.Metadata.Version {
		t.Errorf("version did not advance: %d then %d", doc1.Metadata.Version, doc2.Metadata.Version)
	}
}

func TestUpsertTask(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.SaveTasks([]schema.Task{repoTask("a", 0)}); err != nil {
		t.Fatal(err)
	}

	updated := repoTask("a", 0)
	updated.Title = "renamed"
	if err := repo.UpsertTask(updated); err != nil {
		t.Fatalf("UpsertTask update failed: %v", err)
	}
	if err := repo.UpsertTask(repoTask("b", 1)); err != nil {
		t.Fatalf("UpsertTask insert failed: %v", err)
	}

	tasks, err := repo.LoadTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Title != "renamed" {
		t.Errorf("update not applied: %+v", tasks[0])
	}
}

func TestRemoveTask(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.SaveTasks([]schema.Task{repoTask("a", 0), repoTask("b", 1)}); err != nil {
		t.Fatal(err)
	}

	if err := repo.RemoveTask("a"); err != nil {
		t.Fatalf("RemoveTask failed: %v", err)
	}
	if err := repo.RemoveTask("missing"); err != nil {
		t.Fatalf("removing an absent task must be a no-op, got %v", err)
	}

	tasks, err := repo.LoadTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != "b" {
		t.Errorf("unexpected tasks after remove: %+v", tasks)
	}
}
