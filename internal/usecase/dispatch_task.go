package usecase

import (
	"context"

	"github.com/runoshun/crew-board/internal/domain"
)

// DispatchTaskInput contains the parameters for dispatching a queued task now.
type DispatchTaskInput struct {
	ProjectID string // Project ID (required)
	TaskID    string // Task ID (required)
}

// DispatchTaskOutput contains the result of dispatching a task.
type DispatchTaskOutput struct {
	Session domain.SessionHandle // The started session
}

// DispatchTask is the use case for starting a queued task without waiting for a slot.
type DispatchTask struct {
	dispatcher Dispatcher
}

// NewDispatchTask creates a new DispatchTask use case.
func NewDispatchTask(dispatcher Dispatcher) *DispatchTask {
	return &DispatchTask{dispatcher: dispatcher}
}

// Execute dispatches the task. Only in-progress tasks that are not yet
// dispatched qualify.
func (uc *DispatchTask) Execute(ctx context.Context, in DispatchTaskInput) (*DispatchTaskOutput, error) {
	h, err := uc.dispatcher.DispatchNow(ctx, in.ProjectID, in.TaskID)
	if err != nil {
		return nil, err
	}
	return &DispatchTaskOutput{Session: h}, nil
}
