package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runoshun/crew-board/internal/client"
	"github.com/runoshun/crew-board/internal/domain"
)

// resolveProject returns the ID of the project matching ref.
// ref is a full ID, a unique ID prefix, or a project name.
func resolveProject(ctx context.Context, cl *client.Client, ref string) (string, error) {
	out, err := cl.ListProjects(ctx)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, p := range out.Projects {
		if p.ID == ref || p.Name == ref {
			return p.ID, nil
		}
		if strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p.ID)
		}
	}
	return pick(matches, ref, domain.ErrProjectNotFound)
}

// resolveTask returns the ID of the project's task matching ref.
// ref is a full ID or a unique ID prefix such as the shortId.
func resolveTask(ctx context.Context, cl *client.Client, projectID, ref string) (string, error) {
	cols, err := cl.ListTasks(ctx, projectID, "")
	if err != nil {
		return "", err
	}

	var matches []string
	for _, t := range cols.All() {
		if t.ID == ref {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}
	return pick(matches, ref, domain.ErrTaskNotFound)
}

// resolveTaskRef resolves a project reference and a task reference together.
func resolveTaskRef(ctx context.Context, cl *client.Client, projectRef, taskRef string) (projectID, taskID string, err error) {
	projectID, err = resolveProject(ctx, cl, projectRef)
	if err != nil {
		return "", "", err
	}
	taskID, err = resolveTask(ctx, cl, projectID, taskRef)
	if err != nil {
		return "", "", err
	}
	return projectID, taskID, nil
}

func pick(matches []string, ref string, notFound error) (string, error) {
	switch {
	case ref == "" || len(matches) == 0:
		return "", fmt.Errorf("%q: %w", ref, notFound)
	case len(matches) > 1:
		return "", fmt.Errorf("%q is ambiguous: matches %d entries", ref, len(matches))
	default:
		return matches[0], nil
	}
}
