// Package git provides read-only repository queries backed by go-git.
package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/runoshun/crew-board/internal/domain"
)

// Client answers repository queries without spawning git.
type Client struct{}

// NewClient creates a new git client.
func NewClient() *Client {
	return &Client{}
}

// Ensure Client implements domain.RepoInspector interface.
var _ domain.RepoInspector = (*Client)(nil)

// open opens the repository whose working tree root is path.
func open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(domain.ExpandHome(path), &git.PlainOpenOptions{
		DetectDotGit:          false,
		EnableDotGitCommonDir: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotGitRepository, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

// IsRepository returns true if path is the root of a git repository.
func (c *Client) IsRepository(path string) bool {
	_, err := open(path)
	return err == nil
}

// HeadBranch returns the short name of the checked-out branch.
// A detached HEAD is reported as "HEAD".
func (c *Client) HeadBranch(path string) (string, error) {
	repo, err := open(path)
	if err != nil {
		return "", err
	}
	ref, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target().Short(), nil
	}
	return "HEAD", nil
}

// IsClean returns true if no tracked file is modified, staged or deleted.
// Untracked files do not make the tree dirty.
func (c *Client) IsClean(path string) (bool, error) {
	repo, err := open(path)
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("worktree status: %w", err)
	}
	for _, st := range status {
		if st.Worktree == git.Untracked && st.Staging == git.Untracked {
			continue
		}
		if st.Worktree != git.Unmodified || st.Staging != git.Unmodified {
			return false, nil
		}
	}
	return true, nil
}
