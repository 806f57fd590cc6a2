package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
)

// StepClock returns a time that advances by one second on every call.
type StepClock struct {
	Base time.Time
	n    int
	mu   sync.Mutex
}

// Now returns the next time.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.Base.Add(time.Duration(c.n) * time.Second)
}

// SeqIDs generates predictable UUID-shaped IDs: 00000001-..., 00000002-...
type SeqIDs struct {
	n  int
	mu sync.Mutex
}

// NewID returns the next ID.
func (g *SeqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%08x-0000-4000-8000-000000000000", g.n)
}

// StoreFactory creates an initialized store driven by the given clock and ID generator.
type StoreFactory func(t *testing.T, clock domain.Clock, ids domain.IDGenerator) domain.Store

// RunStoreTests exercises the behavior every domain.Store implementation shares.
func RunStoreTests(t *testing.T, factory StoreFactory) {
	t.Helper()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	setup := func(t *testing.T) (domain.Store, *domain.Project) {
		t.Helper()
		store := factory(t, &StepClock{Base: base}, &SeqIDs{})
		project, err := store.CreateProject(context.Background(), domain.NewProjectFields{
			Name:         "web",
			Path:         "~/src/web",
			ServerURL:    "http://localhost:3000",
			DispatchMode: domain.DispatchParallel,
			MaxParallel:  2,
		})
		require.NoError(t, err)
		return store, project
	}

	t.Run("CreateAndGetProject", func(t *testing.T) {
		store, project := setup(t)
		ctx := context.Background()

		assert.Equal(t, "00000001-0000-4000-8000-000000000000", project.ID)
		got, err := store.GetProject(ctx, project.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "web", got.Name)
		assert.Equal(t, "~/src/web", got.Path)
		assert.Equal(t, "http://localhost:3000", got.ServerURL)
		assert.Equal(t, domain.DispatchParallel, got.DispatchMode)
		assert.Equal(t, 2, got.MaxParallel)
		assert.False(t, got.TerminalOpen)
		assert.True(t, got.Created.Equal(project.Created))
	})

	t.Run("GetProjectNotFound", func(t *testing.T) {
		store, _ := setup(t)

		got, err := store.GetProject(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ListProjectsInRegistrationOrder", func(t *testing.T) {
		store, first := setup(t)
		ctx := context.Background()
		second, err := store.CreateProject(ctx, domain.NewProjectFields{Name: "api", Path: "/srv/api"})
		require.NoError(t, err)

		projects, err := store.ListProjects(ctx)
		require.NoError(t, err)
		require.Len(t, projects, 2)
		assert.Equal(t, first.ID, projects[0].ID)
		assert.Equal(t, second.ID, projects[1].ID)
	})

	t.Run("SetTerminalOpen", func(t *testing.T) {
		store, project := setup(t)
		ctx := context.Background()

		found, err := store.SetTerminalOpen(ctx, project.ID, true)
		require.NoError(t, err)
		assert.True(t, found)
		got, err := store.GetProject(ctx, project.ID)
		require.NoError(t, err)
		assert.True(t, got.TerminalOpen)

		found, err = store.SetTerminalOpen(ctx, "missing", true)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("CreateTask", func(t *testing.T) {
		store, project := setup(t)
		ctx := context.Background()

		task, err := store.CreateTask(ctx, project.ID, domain.NewTaskFields{Title: "Add login", Description: "OAuth", Mode: "plan"})
		require.NoError(t, err)
		assert.Equal(t, project.ID, task.ProjectID)
		assert.Equal(t, domain.StatusTodo, task.Status)
		assert.False(t, task.Dispatched)
		assert.False(t, task.Locked)

		got, err := store.GetTask(ctx, project.ID, task.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Add login", got.Title)
		assert.Equal(t, "OAuth", got.Description)
		assert.Equal(t, "plan", got.Mode)
		assert.True(t, got.Created.Equal(task.Created))
	})

	t.Run("CreateTaskUnknownProject", func(t *testing.T) {
		store, _ := setup(t)

		_, err := store.CreateTask(context.Background(), "missing", domain.NewTaskFields{Title: "x"})
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("GetTaskScopedToProject", func(t *testing.T) {
		store, project := setup(t)
		ctx := context.Background()
		other, err := store.CreateProject(ctx, domain.NewProjectFields{Name: "api", Path: "/srv/api"})
		require.NoError(t, err)
		task, err := store.CreateTask(ctx, project.ID, domain.NewTaskFields{Title: "x"})
		require.NoError(t, err)

		got, err := store.GetTask(ctx, other.ID, task.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("UpdateTaskAppliesPatch", func(t *testing.T) {
		store, project := setup(t)
		ctx := context.Background()
		task, err := store.CreateTask(ctx, project.ID, domain.NewTaskFields{Title: "x", Description: "keep"})
		require.NoError(t, err)

		updated, err := store.UpdateTask(ctx, project.ID, task.ID, domain.TaskPatch{
			Status:     domain.Ptr(domain.StatusInProgress),
			Dispatched: domain.Ptr(true),
			Locked:     domain.Ptr(true),
			Findings:   domain.Ptr("conflict"),
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, domain.StatusInProgress, updated.Status)
		assert.True(t, updated.Dispatched)
		assert.True(t, updated.Locked)
		assert.Equal(t, "conflict", updated.Findings)
		assert.Equal(t, "keep", updated.Description)
		assert.True(t, updated.Updated.After(task.Updated))

		got, err := store.GetTask(ctx, project.ID, task.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.Status, got.Status)
		assert.Equal(t, "conflict", got.Findings)
	})

	t.Run("UpdateTaskNotFound", func(t *testing.T) {
		store, project := setup(t)

		got, err := store.UpdateTask(context.Background(), project.ID, "missing", domain.TaskPatch{Title: domain.Ptr("x")})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ListTasksGroupedOldestFirst", func(t *testing.T) {
		store, project := setup(t)
		ctx := context.Background()
		var ids []string
		for _, title := range []string{"a", "b", "c"} {
			task, err := store.CreateTask(ctx, project.ID, domain.NewTaskFields{Title: title})
			require.NoError(t, err)
			ids = append(ids, task.ID)
		}
		_, err := store.UpdateTask(ctx, project.ID, ids[0], domain.TaskPatch{Status: domain.Ptr(domain.StatusInProgress)})
		require.NoError(t, err)
		_, err = store.UpdateTask(ctx, project.ID, ids[2], domain.TaskPatch{Status: domain.Ptr(domain.StatusInProgress)})
		require.NoError(t, err)

		cols, err := store.ListTasks(ctx, project.ID)
		require.NoError(t, err)
		for _, s := range domain.AllStatuses() {
			assert.NotNil(t, cols[s], "column %s", s)
		}
		require.Len(t, cols[domain.StatusInProgress], 2)
		assert.Equal(t, ids[0], cols[domain.StatusInProgress][0].ID)
		assert.Equal(t, ids[2], cols[domain.StatusInProgress][1].ID)
		require.Len(t, cols[domain.StatusTodo], 1)
		assert.Equal(t, ids[1], cols[domain.StatusTodo][0].ID)
		assert.Empty(t, cols[domain.StatusDone])
	})

	t.Run("DeleteTask", func(t *testing.T) {
		store, project := setup(t)
		ctx := context.Background()
		task, err := store.CreateTask(ctx, project.ID, domain.NewTaskFields{Title: "x"})
		require.NoError(t, err)

		found, err := store.DeleteTask(ctx, project.ID, task.ID)
		require.NoError(t, err)
		assert.True(t, found)

		found, err = store.DeleteTask(ctx, project.ID, task.ID)
		require.NoError(t, err)
		assert.False(t, found)

		got, err := store.GetTask(ctx, project.ID, task.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
