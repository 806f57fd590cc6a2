package usecase

import (
	"context"
)

// DeleteTaskInput contains the parameters for deleting a task.
type DeleteTaskInput struct {
	ProjectID string // Project ID (required)
	TaskID    string // Task ID (required)
}

// DeleteTaskOutput contains the result of deleting a task.
type DeleteTaskOutput struct{}

// DeleteTask is the use case for deleting a task.
type DeleteTask struct {
	dispatcher Dispatcher
}

// NewDeleteTask creates a new DeleteTask use case.
func NewDeleteTask(dispatcher Dispatcher) *DeleteTask {
	return &DeleteTask{dispatcher: dispatcher}
}

// Execute stops the task's session, removes its worktree right away and
// deletes the task.
func (uc *DeleteTask) Execute(ctx context.Context, in DeleteTaskInput) (*DeleteTaskOutput, error) {
	if err := uc.dispatcher.Delete(ctx, in.ProjectID, in.TaskID); err != nil {
		return nil, err
	}
	return &DeleteTaskOutput{}, nil
}
