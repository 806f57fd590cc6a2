package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/domain"
)

// ProjectView is a project with its path status resolved.
// Fields are ordered to minimize memory padding.
type ProjectView struct {
	domain.Project `yaml:",inline"`
	Branch         string `json:"branch,omitempty" yaml:"branch,omitempty"` // Checked-out branch, empty if unknown
	PathValid      bool   `json:"pathValid" yaml:"pathValid"`               // Path is an existing directory
}

// ListProjectsInput contains the parameters for listing projects.
type ListProjectsInput struct{}

// ListProjectsOutput contains the result of listing projects.
type ListProjectsOutput struct {
	Projects []ProjectView
}

// ListProjects is the use case for listing registered projects.
type ListProjects struct {
	projects domain.ProjectStore
	repos    domain.RepoInspector
}

// NewListProjects creates a new ListProjects use case.
func NewListProjects(projects domain.ProjectStore, repos domain.RepoInspector) *ListProjects {
	return &ListProjects{
		projects: projects,
		repos:    repos,
	}
}

// Execute returns all projects in registration order.
func (uc *ListProjects) Execute(ctx context.Context, _ ListProjectsInput) (*ListProjectsOutput, error) {
	projects, err := uc.projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		view := ProjectView{Project: *p, PathValid: p.PathValid()}
		if view.PathValid && uc.repos != nil {
			// Best-effort: a detached HEAD or an unborn branch leaves Branch empty
			if branch, err := uc.repos.HeadBranch(p.ResolvedPath()); err == nil {
				view.Branch = branch
			}
		}
		views = append(views, view)
	}
	return &ListProjectsOutput{Projects: views}, nil
}
