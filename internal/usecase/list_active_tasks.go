package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/domain"
)

// ActiveTask is an in-progress task with its project and session state.
// Fields are ordered to minimize memory padding.
type ActiveTask struct {
	Task        *domain.Task          `json:"task" yaml:"task"`
	Session     *domain.SessionHandle `json:"session,omitempty" yaml:"session,omitempty"`
	ProjectID   string                `json:"projectId" yaml:"projectId"`
	ProjectName string                `json:"projectName" yaml:"projectName"`
	ProjectPath string                `json:"projectPath" yaml:"projectPath"`
	Running     bool                  `json:"running" yaml:"running"` // A session is registered for the task
}

// ListActiveTasksInput contains the parameters for the agent overview.
type ListActiveTasksInput struct{}

// ListActiveTasksOutput contains every in-progress task across projects.
type ListActiveTasksOutput struct {
	Tasks []ActiveTask
}

// ListActiveTasks is the use case for the cross-project agent overview.
type ListActiveTasks struct {
	projects domain.ProjectStore
	tasks    domain.TaskStore
	sessions SessionLookup
}

// NewListActiveTasks creates a new ListActiveTasks use case.
func NewListActiveTasks(projects domain.ProjectStore, tasks domain.TaskStore, sessions SessionLookup) *ListActiveTasks {
	return &ListActiveTasks{
		projects: projects,
		tasks:    tasks,
		sessions: sessions,
	}
}

// Execute lists in-progress tasks in project registration order, oldest first.
func (uc *ListActiveTasks) Execute(ctx context.Context, _ ListActiveTasksInput) (*ListActiveTasksOutput, error) {
	projects, err := uc.projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	out := &ListActiveTasksOutput{Tasks: []ActiveTask{}}
	for _, p := range projects {
		cols, err := uc.tasks.ListTasks(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list tasks of %s: %w", p.Name, err)
		}
		for _, t := range cols[domain.StatusInProgress] {
			session := liveSession(uc.sessions, t.ID)
			out.Tasks = append(out.Tasks, ActiveTask{
				Task:        t,
				Session:     session,
				ProjectID:   p.ID,
				ProjectName: p.Name,
				ProjectPath: p.Path,
				Running:     session != nil,
			})
		}
	}
	return out, nil
}
