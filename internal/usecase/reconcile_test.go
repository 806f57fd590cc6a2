package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
)

func TestReconcile_Execute_AdoptsByDefault(t *testing.T) {
	env := newTestEnv(t)
	task := env.store.AddTask(env.project.ID, testTaskA, domain.StatusInProgress)
	task.Dispatched = true
	env.sessions.Running["task-aaaaaaaa"] = true

	out, err := NewReconcile(env.orch).Execute(context.Background(), ReconcileInput{})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Result.Adopted)
	assert.Equal(t, 0, out.Result.Reset)
	assert.True(t, env.orch.Registry().Has(testTaskA))
}

func TestReconcile_Execute_Reset(t *testing.T) {
	env := newTestEnv(t)
	task := env.store.AddTask(env.project.ID, testTaskA, domain.StatusVerify)
	task.Dispatched = true
	env.sessions.Running["task-aaaaaaaa"] = true

	out, err := NewReconcile(env.orch).Execute(context.Background(), ReconcileInput{Strategy: domain.ReconcileReset})

	require.NoError(t, err)
	assert.Equal(t, 0, out.Result.Adopted)
	assert.Equal(t, 1, out.Result.Reset)
	assert.False(t, env.store.Task(testTaskA).Dispatched)
	assert.Contains(t, env.sessions.KilledIDs(), "task-aaaaaaaa")
}

func TestReconcile_Execute_UnknownStrategy(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewReconcile(env.orch).Execute(context.Background(), ReconcileInput{Strategy: "ignore"})

	assert.ErrorContains(t, err, "unknown reconcile strategy")
}
