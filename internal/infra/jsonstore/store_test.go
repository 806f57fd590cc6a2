package jsonstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "store.json"), nil, nil)
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return store
}

func TestStore_Contract(t *testing.T) {
	testutil.RunStoreTests(t, func(t *testing.T, clock domain.Clock, ids domain.IDGenerator) domain.Store {
		store := New(filepath.Join(t.TempDir(), "store.json"), clock, ids)
		if err := store.Initialize(); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		return store
	})
}

func TestStore_Initialize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "store.json")

	store := New(path, nil, nil)
	if store.IsInitialized() {
		t.Fatal("IsInitialized() = true before Initialize")
	}

	// Initialize should create the file
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}

	// Initialize again should be idempotent and keep data
	ctx := context.Background()
	if _, err := store.CreateProject(ctx, domain.NewProjectFields{Name: "web", Path: "/src/web"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() second call error = %v", err)
	}
	projects, err := store.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("ListProjects() = %d projects, want 1", len(projects))
	}
}

func TestStore_NotInitialized(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "store.json"), nil, nil)

	_, err := store.GetProject(context.Background(), "p")
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("GetProject() error = %v, want ErrNotInitialized", err)
	}
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	project, err := store.CreateProject(ctx, domain.NewProjectFields{Name: "web", Path: "/src/web"})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.CreateTask(ctx, project.ID, domain.NewTaskFields{Title: "t"}); err != nil {
				t.Errorf("CreateTask() error = %v", err)
			}
		}()
	}
	wg.Wait()

	cols, err := store.ListTasks(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if got := len(cols[domain.StatusTodo]); got != 10 {
		t.Errorf("ListTasks() todo = %d, want 10 (no lost writes)", got)
	}
}

func TestStore_SharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	writer := New(path, nil, nil)
	if err := writer.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	ctx := context.Background()
	project, err := writer.CreateProject(ctx, domain.NewProjectFields{Name: "web", Path: "/src/web"})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	reader := New(path, nil, nil)
	got, err := reader.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got == nil || got.Name != "web" {
		t.Errorf("GetProject() = %+v, want project web", got)
	}
}
