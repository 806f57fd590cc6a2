package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
)

func TestShowTask_Execute(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddTask(env.project.ID, testTaskA, domain.StatusInProgress)
	env.store.AddTask(env.project.ID, testTaskB, domain.StatusTodo)
	_, err := NewDispatchTask(env.orch).Execute(context.Background(), DispatchTaskInput{ProjectID: env.project.ID, TaskID: testTaskA})
	require.NoError(t, err)
	uc := NewShowTask(env.store, env.orch.Registry())

	running, err := uc.Execute(context.Background(), ShowTaskInput{ProjectID: env.project.ID, TaskID: testTaskA})
	require.NoError(t, err)
	require.NotNil(t, running.Session)
	assert.Equal(t, "task-aaaaaaaa", running.Session.TabID)

	idle, err := uc.Execute(context.Background(), ShowTaskInput{ProjectID: env.project.ID, TaskID: testTaskB})
	require.NoError(t, err)
	assert.Equal(t, testTaskB, idle.Task.ID)
	assert.Nil(t, idle.Session)
}

func TestShowTask_Execute_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddTask(env.project.ID, testTaskA, domain.StatusTodo)
	uc := NewShowTask(env.store, nil)

	_, err := uc.Execute(context.Background(), ShowTaskInput{ProjectID: env.project.ID, TaskID: testTaskB})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	// Tasks are scoped to their project
	_, err = uc.Execute(context.Background(), ShowTaskInput{ProjectID: "other", TaskID: testTaskA})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
