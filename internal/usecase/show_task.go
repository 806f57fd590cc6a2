package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/domain"
)

// ShowTaskInput contains the parameters for showing a task.
type ShowTaskInput struct {
	ProjectID string // Project ID (required)
	TaskID    string // Task ID (required)
}

// ShowTaskOutput contains the task and its live session, if any.
type ShowTaskOutput struct {
	Task    *domain.Task
	Session *domain.SessionHandle // Nil when no session is registered
}

// ShowTask is the use case for displaying task details.
type ShowTask struct {
	tasks    domain.TaskStore
	sessions SessionLookup
}

// NewShowTask creates a new ShowTask use case.
func NewShowTask(tasks domain.TaskStore, sessions SessionLookup) *ShowTask {
	return &ShowTask{
		tasks:    tasks,
		sessions: sessions,
	}
}

// Execute retrieves the task.
func (uc *ShowTask) Execute(ctx context.Context, in ShowTaskInput) (*ShowTaskOutput, error) {
	task, err := uc.tasks.GetTask(ctx, in.ProjectID, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, in.TaskID)
	}

	return &ShowTaskOutput{
		Task:    task,
		Session: liveSession(uc.sessions, task.ID),
	}, nil
}
