package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/testutil"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store := New(path, nil, nil)
	require.NoError(t, store.Initialize())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	testutil.RunStoreTests(t, func(t *testing.T, clock domain.Clock, ids domain.IDGenerator) domain.Store {
		store := New(filepath.Join(t.TempDir(), "crew-board.db"), clock, ids)
		require.NoError(t, store.Initialize())
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestStore_InMemory(t *testing.T) {
	store := newTestStore(t, ":memory:")
	ctx := context.Background()

	project, err := store.CreateProject(ctx, domain.NewProjectFields{Name: "web", Path: "/src/web"})
	require.NoError(t, err)
	task, err := store.CreateTask(ctx, project.ID, domain.NewTaskFields{Title: "x"})
	require.NoError(t, err)

	got, err := store.GetTask(ctx, project.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestOpenDB_Pragmas(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "crew-board.db"))

	var journalMode string
	require.NoError(t, store.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, store.db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var foreignKeys int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestMigrate_RecordsVersion(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "crew-board.db"))

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, len(migrations), version)

	// Re-running is a no-op
	require.NoError(t, migrate(context.Background(), store.db))
}

func TestMigrate_FromFirstVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crew-board.db")
	db, err := openDB(path)
	require.NoError(t, err)
	_, err = db.Exec(migrations[0])
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version=1")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO projects (id, name, path, created) VALUES ('p1', 'web', '/src/web', 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tasks (id, project_id, title, status, created, updated) VALUES ('t1', 'p1', 'old', 'todo', 1, 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store := newTestStore(t, path)
	task, err := store.GetTask(context.Background(), "p1", "t1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "old", task.Title)
	assert.False(t, task.Locked)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crew-board.db")
	ctx := context.Background()

	first := New(path, nil, nil)
	require.NoError(t, first.Initialize())
	project, err := first.CreateProject(ctx, domain.NewProjectFields{Name: "web", Path: "/src/web"})
	require.NoError(t, err)
	task, err := first.CreateTask(ctx, project.ID, domain.NewTaskFields{Title: "x"})
	require.NoError(t, err)
	_, err = first.UpdateTask(ctx, project.ID, task.ID, domain.TaskPatch{Dispatched: domain.Ptr(true)})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newTestStore(t, path)
	got, err := second.GetTask(ctx, project.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Dispatched)
	assert.True(t, got.Created.Equal(task.Created))
}

func TestStore_NotInitialized(t *testing.T) {
	store := New(":memory:", nil, nil)

	_, err := store.ListProjects(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.NoError(t, store.Close())
}
