package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/runoshun/crew-board/internal/domain"
)

// RegisterProjectInput contains the parameters for registering a project.
type RegisterProjectInput struct {
	Name         string              // Display name (required)
	Path         string              // Repository path, ~ allowed (required)
	ServerURL    string              // Dev server URL (optional)
	DispatchMode domain.DispatchMode // Overrides [dispatch] mode (optional)
	MaxParallel  int                 // Overrides [dispatch] max_parallel (optional)
}

// RegisterProjectOutput contains the result of registering a project.
type RegisterProjectOutput struct {
	Project *domain.Project
}

// RegisterProject is the use case for registering a repository as a project.
type RegisterProject struct {
	projects domain.ProjectStore
	repos    domain.RepoInspector
	logger   domain.Logger
}

// NewRegisterProject creates a new RegisterProject use case.
func NewRegisterProject(projects domain.ProjectStore, repos domain.RepoInspector, logger domain.Logger) *RegisterProject {
	return &RegisterProject{
		projects: projects,
		repos:    repos,
		logger:   logger,
	}
}

// Execute registers the project.
// An existing directory must be a git repository; a missing path is accepted
// and shows up as invalid in listings until it is created.
func (uc *RegisterProject) Execute(ctx context.Context, in RegisterProjectInput) (*RegisterProjectOutput, error) {
	name := strings.TrimSpace(in.Name)
	path := strings.TrimSpace(in.Path)
	if name == "" || path == "" {
		return nil, domain.ErrEmptyName
	}
	if in.DispatchMode != "" && !in.DispatchMode.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, in.DispatchMode)
	}
	if in.MaxParallel < 0 {
		return nil, fmt.Errorf("%w: max parallel must not be negative", domain.ErrInvalidMode)
	}

	resolved := domain.ExpandHome(path)
	if info, err := os.Stat(resolved); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", domain.ErrProjectPathInvalid, path)
		}
		if uc.repos != nil && !uc.repos.IsRepository(resolved) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotGitRepository, path)
		}
	}

	project, err := uc.projects.CreateProject(ctx, domain.NewProjectFields{
		Name:         name,
		Path:         path,
		ServerURL:    strings.TrimSpace(in.ServerURL),
		DispatchMode: in.DispatchMode,
		MaxParallel:  in.MaxParallel,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	if uc.logger != nil {
		uc.logger.Info("", "project", fmt.Sprintf("registered %q at %s", project.Name, project.Path))
	}
	return &RegisterProjectOutput{Project: project}, nil
}
