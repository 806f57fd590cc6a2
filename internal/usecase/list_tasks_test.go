package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/testutil"
)

func TestListTasks_Execute(t *testing.T) {
	store := testutil.NewMockStore()
	store.AddProject("proj-1", "/src/web")
	store.AddTask("proj-1", "t1", domain.StatusTodo)
	store.AddTask("proj-1", "t2", domain.StatusInProgress)
	store.AddTask("proj-1", "t3", domain.StatusTodo)
	uc := NewListTasks(store, store)

	out, err := uc.Execute(context.Background(), ListTasksInput{ProjectID: "proj-1"})

	require.NoError(t, err)
	require.Len(t, out.Columns[domain.StatusTodo], 2)
	assert.Equal(t, "t1", out.Columns[domain.StatusTodo][0].ID)
	assert.Equal(t, "t3", out.Columns[domain.StatusTodo][1].ID)
	assert.Len(t, out.Columns[domain.StatusInProgress], 1)
	assert.Empty(t, out.Columns[domain.StatusDone])
}

func TestListTasks_Execute_StatusFilter(t *testing.T) {
	store := testutil.NewMockStore()
	store.AddProject("proj-1", "/src/web")
	store.AddTask("proj-1", "t1", domain.StatusTodo)
	store.AddTask("proj-1", "t2", domain.StatusInProgress)
	uc := NewListTasks(store, store)

	out, err := uc.Execute(context.Background(), ListTasksInput{ProjectID: "proj-1", Status: domain.StatusInProgress})

	require.NoError(t, err)
	assert.Empty(t, out.Columns[domain.StatusTodo])
	require.Len(t, out.Columns[domain.StatusInProgress], 1)
	assert.Equal(t, "t2", out.Columns[domain.StatusInProgress][0].ID)
}

func TestListTasks_Execute_Errors(t *testing.T) {
	store := testutil.NewMockStore()
	store.AddProject("proj-1", "/src/web")
	uc := NewListTasks(store, store)

	_, err := uc.Execute(context.Background(), ListTasksInput{ProjectID: "nope"})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = uc.Execute(context.Background(), ListTasksInput{ProjectID: "proj-1", Status: "blocked"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
