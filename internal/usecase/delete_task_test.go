package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
)

func TestDeleteTask_Execute(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddTask(env.project.ID, testTaskA, domain.StatusTodo)
	_, err := NewUpdateTask(env.orch).Execute(context.Background(), UpdateTaskInput{
		ProjectID: env.project.ID,
		TaskID:    testTaskA,
		Patch:     domain.TaskPatch{Status: domain.Ptr(domain.StatusInProgress)},
	})
	require.NoError(t, err)

	_, err = NewDeleteTask(env.orch).Execute(context.Background(), DeleteTaskInput{ProjectID: env.project.ID, TaskID: testTaskA})
	require.NoError(t, err)

	assert.Nil(t, env.store.Task(testTaskA))
	assert.False(t, env.orch.Registry().Has(testTaskA))
	assert.False(t, env.worktrees.Exists("aaaaaaaa"))
}

func TestDeleteTask_Execute_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewDeleteTask(env.orch).Execute(context.Background(), DeleteTaskInput{ProjectID: env.project.ID, TaskID: testTaskA})

	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
