package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/testutil"
)

func TestNewTask_Execute(t *testing.T) {
	store := testutil.NewMockStore()
	store.AddProject("proj-1", "/src/web")
	logger := &testutil.MockLogger{}
	uc := NewNewTask(store, store, logger)

	out, err := uc.Execute(context.Background(), NewTaskInput{
		ProjectID:   "proj-1",
		Title:       "  Fix login  ",
		Description: "Session cookie expires early\n",
		Mode:        "plan",
	})

	require.NoError(t, err)
	assert.Equal(t, "Fix login", out.Task.Title)
	assert.Equal(t, "Session cookie expires early", out.Task.Description)
	assert.Equal(t, "plan", out.Task.Mode)
	assert.Equal(t, domain.StatusTodo, out.Task.Status)
	assert.False(t, out.Task.Dispatched)
	assert.True(t, logger.Has("INFO", "task"))
}

func TestNewTask_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		projectID string
		title     string
		createErr error
		wantErr   error
	}{
		{name: "empty title", projectID: "proj-1", title: "   ", wantErr: domain.ErrEmptyTitle},
		{name: "unknown project", projectID: "nope", title: "x", wantErr: domain.ErrProjectNotFound},
		{name: "store failure", projectID: "proj-1", title: "x", createErr: errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStore()
			store.AddProject("proj-1", "/src/web")
			store.CreateErr = tt.createErr
			uc := NewNewTask(store, store, nil)

			_, err := uc.Execute(context.Background(), NewTaskInput{ProjectID: tt.projectID, Title: tt.title})

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.createErr != nil {
				assert.ErrorIs(t, err, tt.createErr)
			}
			assert.Empty(t, store.Tasks)
		})
	}
}
