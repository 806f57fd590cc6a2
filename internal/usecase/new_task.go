package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/runoshun/crew-board/internal/domain"
)

// NewTaskInput contains the parameters for creating a new task.
type NewTaskInput struct {
	ProjectID   string // Project ID (required)
	Title       string // Task title (required)
	Description string // Task description (optional)
	Mode        string // Agent mode passed to the command template (optional)
}

// NewTaskOutput contains the result of creating a new task.
type NewTaskOutput struct {
	Task *domain.Task // The created task
}

// NewTask is the use case for creating a new task.
type NewTask struct {
	projects domain.ProjectStore
	tasks    domain.TaskStore
	logger   domain.Logger
}

// NewNewTask creates a new NewTask use case.
func NewNewTask(projects domain.ProjectStore, tasks domain.TaskStore, logger domain.Logger) *NewTask {
	return &NewTask{
		projects: projects,
		tasks:    tasks,
		logger:   logger,
	}
}

// Execute creates a new task in todo with the given input.
func (uc *NewTask) Execute(ctx context.Context, in NewTaskInput) (*NewTaskOutput, error) {
	// Validate title
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}

	project, err := uc.projects.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, in.ProjectID)
	}

	task, err := uc.tasks.CreateTask(ctx, project.ID, domain.NewTaskFields{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Mode:        strings.TrimSpace(in.Mode),
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	// Log task creation
	if uc.logger != nil {
		uc.logger.Info(task.ID, "task", fmt.Sprintf("created: %q", task.Title))
	}

	return &NewTaskOutput{Task: task}, nil
}
