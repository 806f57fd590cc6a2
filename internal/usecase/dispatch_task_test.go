package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
)

func TestDispatchTask_Execute_QueuedTask(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddTask(env.project.ID, testTaskA, domain.StatusInProgress)

	out, err := NewDispatchTask(env.orch).Execute(context.Background(), DispatchTaskInput{ProjectID: env.project.ID, TaskID: testTaskA})

	require.NoError(t, err)
	assert.Equal(t, "task-aaaaaaaa", out.Session.TabID)
	assert.Equal(t, testTaskA, out.Session.TaskID)
	assert.True(t, env.store.Task(testTaskA).Dispatched)
	assert.True(t, env.orch.Registry().Has(testTaskA))
}

func TestDispatchTask_Execute_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.Status
		dispatched bool
		wantErr    error
	}{
		{name: "todo", status: domain.StatusTodo, wantErr: domain.ErrTaskNotQueued},
		{name: "already dispatched", status: domain.StatusInProgress, dispatched: true, wantErr: domain.ErrTaskNotQueued},
		{name: "verify", status: domain.StatusVerify, wantErr: domain.ErrTaskNotQueued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			task := env.store.AddTask(env.project.ID, testTaskA, tt.status)
			task.Dispatched = tt.dispatched

			_, err := NewDispatchTask(env.orch).Execute(context.Background(), DispatchTaskInput{ProjectID: env.project.ID, TaskID: testTaskA})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, env.sessions.SpawnedIDs())
		})
	}
}
