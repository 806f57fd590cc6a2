package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/domain"
)

// AttachSessionInput contains the parameters for attaching to a session.
type AttachSessionInput struct {
	TaskID string // Task ID or shortId (required)
}

// AttachSessionOutput is empty; a successful attach replaces the process.
type AttachSessionOutput struct{}

// AttachSession is the use case for attaching the terminal to a task's session.
type AttachSession struct {
	viewer domain.SessionViewer
}

// NewAttachSession creates a new AttachSession use case.
func NewAttachSession(viewer domain.SessionViewer) *AttachSession {
	return &AttachSession{viewer: viewer}
}

// Execute attaches to the session.
func (uc *AttachSession) Execute(ctx context.Context, in AttachSessionInput) (*AttachSessionOutput, error) {
	tabID, err := tabIDFor(in.TaskID)
	if err != nil {
		return nil, err
	}
	if err := uc.viewer.Attach(ctx, tabID); err != nil {
		return nil, fmt.Errorf("attach %s: %w", tabID, err)
	}
	return &AttachSessionOutput{}, nil
}
