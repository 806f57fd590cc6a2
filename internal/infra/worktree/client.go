// Package worktree provides git worktree operations.
package worktree

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/runoshun/crew-board/internal/domain"
)

// Client manages per-task git worktrees across projects.
// Merge and remove for one project are serialized; projects are independent.
// Fields are ordered to minimize memory padding.
type Client struct {
	repos        domain.RepoInspector // Used to refuse merging into a dirty working tree
	locks        map[string]*sync.Mutex
	worktreeDir  string // Directory where worktrees are created
	branchPrefix string // Prefix of task branches
	mu           sync.Mutex
}

// NewClient creates a new worktree client.
// worktreeDir is the directory where worktrees will be created.
func NewClient(worktreeDir, branchPrefix string, repos domain.RepoInspector) *Client {
	if branchPrefix == "" {
		branchPrefix = domain.DefaultBranchPrefix
	}
	return &Client{
		repos:        repos,
		locks:        make(map[string]*sync.Mutex),
		worktreeDir:  worktreeDir,
		branchPrefix: branchPrefix,
	}
}

// Ensure Client implements domain.WorktreeManager interface.
var _ domain.WorktreeManager = (*Client)(nil)

// lock acquires the mutex of a project repository.
func (c *Client) lock(projectPath string) func() {
	key := filepath.Clean(projectPath)
	c.mu.Lock()
	m, ok := c.locks[key]
	if !ok {
		m = &sync.Mutex{}
		c.locks[key] = m
	}
	c.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Path returns the worktree path for shortID.
func (c *Client) Path(shortID string) string {
	return domain.WorktreePath(c.worktreeDir, shortID)
}

// Branch returns the task branch for shortID.
func (c *Client) Branch(shortID string) string {
	return domain.BranchName(c.branchPrefix, shortID)
}

// Exists checks if the worktree directory for shortID exists.
// A worktree directory carries a .git file pointing at the main repository.
func (c *Client) Exists(shortID string) bool {
	if !domain.IsValidShortID(shortID) {
		return false
	}
	_, err := os.Stat(filepath.Join(c.Path(shortID), ".git"))
	return err == nil
}

// Create creates the worktree for shortID on a new branch from the project's HEAD.
// An existing worktree is reused; an existing branch is checked out again.
func (c *Client) Create(ctx context.Context, projectPath, shortID string) (string, error) {
	if !domain.IsValidShortID(shortID) {
		return "", fmt.Errorf("invalid short id: %q", shortID)
	}
	unlock := c.lock(projectPath)
	defer unlock()

	path := c.Path(shortID)
	if c.Exists(shortID) {
		return path, nil // Already exists, return path
	}
	if err := os.MkdirAll(c.worktreeDir, 0o750); err != nil {
		return "", fmt.Errorf("create worktree directory: %w", err)
	}

	branch := c.Branch(shortID)
	branchExists, err := c.branchExists(ctx, projectPath, branch)
	if err != nil {
		return "", err
	}

	// Build the git worktree add command
	var args []string
	if branchExists {
		args = []string{"worktree", "add", path, branch}
	} else {
		args = []string{"worktree", "add", "-b", branch, path, "HEAD"}
	}

	out, err := run(ctx, projectPath, args...)
	if err != nil {
		// Worktree is registered but directory is missing
		if !isStaleRegistration(out) {
			return "", fmt.Errorf("create worktree: %w: %s", err, out)
		}
		if perr := c.prune(ctx, projectPath); perr != nil {
			return "", fmt.Errorf("prune stale worktrees: %w", perr)
		}
		if out, err = run(ctx, projectPath, args...); err != nil {
			return "", fmt.Errorf("create worktree after prune: %w: %s", err, out)
		}
	}
	return path, nil
}

// isStaleRegistration reports whether git refused to add a worktree because a
// registration without directory still holds the path or branch.
func isStaleRegistration(out string) bool {
	for _, marker := range []string{"already registered", "missing but locked", "already checked out", "already used by worktree"} {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}

// Merge integrates the task branch into the project's checked-out branch.
// Pending worktree changes are committed first. A dirty main working tree or
// a conflicting merge yields a conflict result and leaves the repository as it was.
func (c *Client) Merge(ctx context.Context, projectPath, shortID, message string) (domain.MergeResult, error) {
	unlock := c.lock(projectPath)
	defer unlock()

	path := c.Path(shortID)
	if !c.Exists(shortID) {
		return domain.MergeResult{}, fmt.Errorf("worktree %s not found", path)
	}
	branch := c.Branch(shortID)

	if err := c.commitPending(ctx, path, message); err != nil {
		return domain.MergeResult{}, err
	}

	if c.repos != nil {
		clean, err := c.repos.IsClean(projectPath)
		if err != nil {
			return domain.MergeResult{}, fmt.Errorf("check working tree: %w", err)
		}
		if !clean {
			return domain.Conflict(fmt.Sprintf("cannot merge %s: %s has uncommitted changes", branch, projectPath)), nil
		}
	}

	out, err := run(ctx, projectPath, "merge", "--no-ff", "--no-edit", "-m", message, branch)
	if err == nil {
		return domain.Merged(), nil
	}
	if ctx.Err() != nil {
		_, _ = run(context.WithoutCancel(ctx), projectPath, "merge", "--abort")
		return domain.MergeResult{}, fmt.Errorf("merge cancelled: %w", ctx.Err())
	}

	files, _ := run(ctx, projectPath, "diff", "--name-only", "--diff-filter=U")
	if _, abortErr := run(ctx, projectPath, "merge", "--abort"); abortErr != nil && !strings.Contains(out, "CONFLICT") {
		// Nothing to abort: the merge failed before touching the tree.
		return domain.MergeResult{}, fmt.Errorf("merge %s: %w: %s", branch, err, strings.TrimSpace(out))
	}
	return domain.Conflict(conflictMessage(branch, files, out)), nil
}

// conflictMessage formats the findings note for a failed merge.
func conflictMessage(branch, files, output string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Merge conflict merging %s", branch)
	if names := strings.Fields(files); len(names) > 0 {
		fmt.Fprintf(&b, " (conflicting files: %s)", strings.Join(names, ", "))
	}
	b.WriteString(":\n")
	b.WriteString(strings.TrimSpace(output))
	return b.String()
}

// commitPending commits uncommitted changes of the worktree.
func (c *Client) commitPending(ctx context.Context, worktreePath, message string) error {
	if out, err := run(ctx, worktreePath, "add", "-A"); err != nil {
		return fmt.Errorf("stage worktree changes: %w: %s", err, out)
	}
	// Exit code 1 means there are staged changes
	_, err := run(ctx, worktreePath, "diff", "--cached", "--quiet")
	if err == nil {
		return nil
	}
	if !isExitCode(err, 1) {
		return fmt.Errorf("check staged changes: %w", err)
	}
	if out, err := run(ctx, worktreePath, "commit", "-m", "WIP: "+message); err != nil {
		return fmt.Errorf("commit worktree changes: %w: %s", err, out)
	}
	return nil
}

// Remove force-deletes the worktree, prunes stale entries and deletes the
// branch if it is fully merged. Removing an absent worktree is a no-op.
func (c *Client) Remove(ctx context.Context, projectPath, shortID string) error {
	if !domain.IsValidShortID(shortID) {
		return fmt.Errorf("invalid short id: %q", shortID)
	}
	unlock := c.lock(projectPath)
	defer unlock()

	path := c.Path(shortID)
	if _, err := os.Stat(path); err == nil {
		out, err := run(ctx, projectPath, "worktree", "remove", "--force", "--force", path)
		if err != nil && !strings.Contains(out, "is not a working tree") {
			return fmt.Errorf("remove worktree: %w: %s", err, out)
		}
		// Not registered with this repository: drop the directory.
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove worktree directory: %w", err)
		}
	}
	if err := c.prune(ctx, projectPath); err != nil {
		return err
	}

	branch := c.Branch(shortID)
	exists, err := c.branchExists(ctx, projectPath, branch)
	if err != nil || !exists {
		return err
	}
	// -d refuses unmerged branches, which keeps unmerged work reachable.
	_, _ = run(ctx, projectPath, "branch", "-d", branch)
	return nil
}

// List returns the worktrees registered with a project.
// Entries on a task branch carry the task's shortId.
func (c *Client) List(ctx context.Context, projectPath string) ([]domain.WorktreeInfo, error) {
	out, err := run(ctx, projectPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w: %s", err, out)
	}
	worktrees, err := parseWorktreeList(out)
	if err != nil {
		return nil, err
	}
	for i, wt := range worktrees {
		if shortID, ok := strings.CutPrefix(wt.Branch, c.branchPrefix); ok && domain.IsValidShortID(shortID) {
			worktrees[i].ShortID = shortID
		}
	}
	return worktrees, nil
}

// parseWorktreeList parses the porcelain output of git worktree list.
// Format:
//
//	worktree /path/to/worktree
//	HEAD abc123
//	branch refs/heads/branch-name
//	<blank line>
func parseWorktreeList(output string) ([]domain.WorktreeInfo, error) {
	var worktrees []domain.WorktreeInfo
	var current domain.WorktreeInfo

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "":
			if current.Path != "" {
				worktrees = append(worktrees, current)
			}
			current = domain.WorktreeInfo{}
		}
	}

	// Handle last entry if no trailing newline
	if current.Path != "" {
		worktrees = append(worktrees, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse worktree list: %w", err)
	}
	return worktrees, nil
}

// prune removes stale worktree entries.
func (c *Client) prune(ctx context.Context, projectPath string) error {
	if out, err := run(ctx, projectPath, "worktree", "prune"); err != nil {
		return fmt.Errorf("prune worktrees: %w: %s", err, out)
	}
	return nil
}

// branchExists checks if a branch exists in the repository.
func (c *Client) branchExists(ctx context.Context, projectPath, branch string) (bool, error) {
	_, err := run(ctx, projectPath, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if err == nil {
		return true, nil
	}
	// Exit code 1 means branch doesn't exist
	if isExitCode(err, 1) {
		return false, nil
	}
	return false, fmt.Errorf("check branch exists: %w", err)
}

// run executes git in dir and returns the combined output.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

func isExitCode(err error, code int) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == code
}
