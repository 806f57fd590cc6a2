package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/domain"
)

// GetTerminalOpenInput contains the parameters for reading the terminal panel flag.
type GetTerminalOpenInput struct {
	ProjectID string // Project ID (required)
}

// TerminalOpenOutput contains the terminal panel flag.
type TerminalOpenOutput struct {
	Open bool
}

// GetTerminalOpen is the use case for reading a project's terminal panel flag.
type GetTerminalOpen struct {
	projects domain.ProjectStore
}

// NewGetTerminalOpen creates a new GetTerminalOpen use case.
func NewGetTerminalOpen(projects domain.ProjectStore) *GetTerminalOpen {
	return &GetTerminalOpen{projects: projects}
}

// Execute returns the flag.
func (uc *GetTerminalOpen) Execute(ctx context.Context, in GetTerminalOpenInput) (*TerminalOpenOutput, error) {
	project, err := uc.projects.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, in.ProjectID)
	}
	return &TerminalOpenOutput{Open: project.TerminalOpen}, nil
}

// SetTerminalOpenInput contains the parameters for writing the terminal panel flag.
type SetTerminalOpenInput struct {
	ProjectID string // Project ID (required)
	Open      bool
}

// SetTerminalOpen is the use case for persisting a project's terminal panel flag.
type SetTerminalOpen struct {
	projects domain.ProjectStore
}

// NewSetTerminalOpen creates a new SetTerminalOpen use case.
func NewSetTerminalOpen(projects domain.ProjectStore) *SetTerminalOpen {
	return &SetTerminalOpen{projects: projects}
}

// Execute stores the flag.
func (uc *SetTerminalOpen) Execute(ctx context.Context, in SetTerminalOpenInput) (*TerminalOpenOutput, error) {
	ok, err := uc.projects.SetTerminalOpen(ctx, in.ProjectID, in.Open)
	if err != nil {
		return nil, fmt.Errorf("set terminal open: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, in.ProjectID)
	}
	return &TerminalOpenOutput{Open: in.Open}, nil
}
