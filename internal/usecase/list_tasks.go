package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/domain"
)

// ListTasksInput contains the parameters for listing tasks.
type ListTasksInput struct {
	ProjectID string        // Project ID (required)
	Status    domain.Status // Only this column when set (optional)
}

// ListTasksOutput contains the result of listing tasks.
type ListTasksOutput struct {
	Columns domain.TaskColumns // Tasks grouped by status, oldest first
}

// ListTasks is the use case for listing a project's tasks.
type ListTasks struct {
	projects domain.ProjectStore
	tasks    domain.TaskStore
}

// NewListTasks creates a new ListTasks use case.
func NewListTasks(projects domain.ProjectStore, tasks domain.TaskStore) *ListTasks {
	return &ListTasks{
		projects: projects,
		tasks:    tasks,
	}
}

// Execute returns the project's tasks grouped by status.
func (uc *ListTasks) Execute(ctx context.Context, in ListTasksInput) (*ListTasksOutput, error) {
	if in.Status != "" && !in.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, in.Status)
	}
	if err := requireProject(ctx, uc.projects, in.ProjectID); err != nil {
		return nil, err
	}

	cols, err := uc.tasks.ListTasks(ctx, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if in.Status != "" {
		filtered := domain.NewTaskColumns()
		filtered[in.Status] = cols[in.Status]
		cols = filtered
	}
	return &ListTasksOutput{Columns: cols}, nil
}

// requireProject returns ErrProjectNotFound if the project does not exist.
func requireProject(ctx context.Context, projects domain.ProjectStore, projectID string) error {
	project, err := projects.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, projectID)
	}
	return nil
}
