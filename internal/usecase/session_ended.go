package usecase

import (
	"context"
)

// SessionEndedInput contains the parameters for reporting an exited session.
type SessionEndedInput struct {
	ProjectID string // Project ID (required)
	TaskID    string // Task ID (required)
}

// SessionEndedOutput contains the result of handling a session exit.
type SessionEndedOutput struct {
	Released bool // True if an active-dispatch record was released
}

// SessionEnded is the use case called from the session script's exit trap.
// The task status is left untouched.
type SessionEnded struct {
	dispatcher Dispatcher
}

// NewSessionEnded creates a new SessionEnded use case.
func NewSessionEnded(dispatcher Dispatcher) *SessionEnded {
	return &SessionEnded{dispatcher: dispatcher}
}

// Execute releases the task's record and reprocesses the project's queue.
func (uc *SessionEnded) Execute(ctx context.Context, in SessionEndedInput) (*SessionEndedOutput, error) {
	released, err := uc.dispatcher.SessionEnded(ctx, in.ProjectID, in.TaskID)
	if err != nil {
		return nil, err
	}
	return &SessionEndedOutput{Released: released}, nil
}
