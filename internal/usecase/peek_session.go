package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/domain"
)

// DefaultPeekLines is the number of lines shown when none is requested.
const DefaultPeekLines = 30

// PeekSessionInput contains the parameters for peeking at a session.
type PeekSessionInput struct {
	TaskID string // Task ID or shortId (required)
	Lines  int    // Number of lines; DefaultPeekLines when zero
}

// PeekSessionOutput contains the captured output.
type PeekSessionOutput struct {
	Output string
}

// PeekSession is the use case for showing the tail of a task's session.
type PeekSession struct {
	viewer domain.SessionViewer
}

// NewPeekSession creates a new PeekSession use case.
func NewPeekSession(viewer domain.SessionViewer) *PeekSession {
	return &PeekSession{viewer: viewer}
}

// Execute captures the session output.
func (uc *PeekSession) Execute(ctx context.Context, in PeekSessionInput) (*PeekSessionOutput, error) {
	tabID, err := tabIDFor(in.TaskID)
	if err != nil {
		return nil, err
	}
	lines := in.Lines
	if lines <= 0 {
		lines = DefaultPeekLines
	}

	out, err := uc.viewer.Peek(ctx, tabID, lines)
	if err != nil {
		return nil, fmt.Errorf("peek %s: %w", tabID, err)
	}
	return &PeekSessionOutput{Output: out}, nil
}

// tabIDFor accepts a full task ID or its shortId.
func tabIDFor(taskID string) (string, error) {
	shortID := domain.ShortID(taskID)
	if !domain.IsValidShortID(shortID) {
		return "", fmt.Errorf("%w: %q", domain.ErrTaskNotFound, taskID)
	}
	return domain.TabID(shortID), nil
}
