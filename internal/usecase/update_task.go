package usecase

import (
	"context"

	"github.com/runoshun/crew-board/internal/domain"
)

// UpdateTaskInput contains the parameters for updating a task.
type UpdateTaskInput struct {
	ProjectID string           // Project ID (required)
	TaskID    string           // Task ID (required)
	Patch     domain.TaskPatch // Fields to change; a status change drives the pipeline
}

// UpdateTaskOutput contains the result of updating a task.
// Fields are ordered to minimize memory padding.
type UpdateTaskOutput struct {
	Task          *domain.Task        // Task after the update and its side effects
	Merge         *domain.MergeResult // Set when the transition merged the task branch
	DispatchError string              // Dispatch failure; the update itself succeeded
	TerminalTabID string              // Session name when a session was started
	Transition    string              // Transition kind (none, start, resume, reset, finish, close, close-unstarted)
	Dispatched    bool                // True if a session was started
}

// UpdateTask is the use case for editing a task and moving it between statuses.
type UpdateTask struct {
	dispatcher Dispatcher
}

// NewUpdateTask creates a new UpdateTask use case.
func NewUpdateTask(dispatcher Dispatcher) *UpdateTask {
	return &UpdateTask{dispatcher: dispatcher}
}

// Execute applies the patch and runs the side effects of the status change.
// A failed dispatch does not fail the update; it is reported in DispatchError.
func (uc *UpdateTask) Execute(ctx context.Context, in UpdateTaskInput) (*UpdateTaskOutput, error) {
	res, err := uc.dispatcher.Transition(ctx, in.ProjectID, in.TaskID, in.Patch)
	if err != nil {
		return nil, err
	}

	out := &UpdateTaskOutput{
		Task:       res.Task,
		Merge:      res.Merge,
		Transition: res.Kind.String(),
		Dispatched: res.Dispatched,
	}
	if res.Dispatched {
		out.TerminalTabID = domain.TabID(res.Task.ID)
	}
	if res.DispatchErr != nil {
		out.DispatchError = res.DispatchErr.Error()
	}
	return out, nil
}
