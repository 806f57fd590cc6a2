package worktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary git repository for testing.
func setupTestRepo(t *testing.T) (repoRoot, worktreeDir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	tmpDir := t.TempDir()
	repoRoot = filepath.Join(tmpDir, "repo")
	worktreeDir = filepath.Join(tmpDir, "worktrees")
	require.NoError(t, os.MkdirAll(repoRoot, 0o755))

	gitCmd(t, repoRoot, "init")
	gitCmd(t, repoRoot, "config", "user.email", "test@example.com")
	gitCmd(t, repoRoot, "config", "user.name", "Test User")

	// Create initial commit (required for worktrees)
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "README.md"), []byte("# Test\n"), 0o644))
	gitCmd(t, repoRoot, "add", ".")
	gitCmd(t, repoRoot, "commit", "-m", "Initial commit")

	return repoRoot, worktreeDir
}

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func newTestClient(worktreeDir string) *Client {
	return NewClient(worktreeDir, "crew/", &testutil.MockRepoInspector{Clean: true})
}

func TestClient_Create_NewBranch(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)

	path, err := client.Create(context.Background(), repoRoot, "3f2a9c1e")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(worktreeDir, "3f2a9c1e"), path)
	assert.True(t, client.Exists("3f2a9c1e"))
	assert.FileExists(t, filepath.Join(path, "README.md"))
	assert.Equal(t, "crew/3f2a9c1e", gitCmd(t, path, "rev-parse", "--abbrev-ref", "HEAD"))

	worktrees, err := client.List(context.Background(), repoRoot)
	require.NoError(t, err)
	require.Len(t, worktrees, 2)
	assert.Equal(t, "crew/3f2a9c1e", worktrees[1].Branch)
	assert.Equal(t, "3f2a9c1e", worktrees[1].ShortID)
	assert.Empty(t, worktrees[0].ShortID, "the main worktree is not a task")
}

func TestClient_Create_Reuses(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)
	ctx := context.Background()

	first, err := client.Create(ctx, repoRoot, "3f2a9c1e")
	require.NoError(t, err)
	second, err := client.Create(ctx, repoRoot, "3f2a9c1e")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClient_Create_ExistingBranchAfterRemovedDirectory(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)
	ctx := context.Background()

	path, err := client.Create(ctx, repoRoot, "3f2a9c1e")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(path, "work.txt"), []byte("work\n"), 0o644))
	gitCmd(t, path, "add", ".")
	gitCmd(t, path, "commit", "-m", "work")

	// Directory vanished but git still has it registered
	require.NoError(t, os.RemoveAll(path))
	assert.False(t, client.Exists("3f2a9c1e"))

	path, err = client.Create(ctx, repoRoot, "3f2a9c1e")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(path, "work.txt"), "existing branch is checked out again")
}

func TestClient_Create_InvalidShortID(t *testing.T) {
	_, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)

	_, err := client.Create(context.Background(), "/tmp", "../etc")
	assert.Error(t, err)
	assert.False(t, client.Exists("../etc"))
}

func TestClient_Merge_Clean(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)
	ctx := context.Background()

	path, err := client.Create(ctx, repoRoot, "3f2a9c1e")
	require.NoError(t, err)
	// Uncommitted work is committed by Merge
	require.NoError(t, os.WriteFile(filepath.Join(path, "feature.txt"), []byte("feature\n"), 0o644))

	result, err := client.Merge(ctx, repoRoot, "3f2a9c1e", "Merge task 3f2a9c1e: Feature")

	require.NoError(t, err)
	assert.True(t, result.Merged)
	assert.Empty(t, result.ConflictMsg)
	assert.FileExists(t, filepath.Join(repoRoot, "feature.txt"))
	assert.Equal(t, "Merge task 3f2a9c1e: Feature", gitCmd(t, repoRoot, "log", "-1", "--format=%s"))
}

func TestClient_Merge_Conflict(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)
	ctx := context.Background()

	path, err := client.Create(ctx, repoRoot, "3f2a9c1e")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(path, "README.md"), []byte("# From task\n"), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "README.md"), []byte("# From main\n"), 0o644))
	gitCmd(t, repoRoot, "commit", "-am", "main change")

	headBefore := gitCmd(t, repoRoot, "rev-parse", "HEAD")
	statusBefore := gitCmd(t, repoRoot, "status", "--porcelain")

	result, err := client.Merge(ctx, repoRoot, "3f2a9c1e", "Merge task 3f2a9c1e")

	require.NoError(t, err, "conflicts are data, not errors")
	assert.False(t, result.Merged)
	assert.True(t, result.IsConflict())
	assert.Contains(t, result.ConflictMsg, "README.md")
	assert.Contains(t, result.ConflictMsg, "crew/3f2a9c1e")

	assert.Equal(t, headBefore, gitCmd(t, repoRoot, "rev-parse", "HEAD"))
	assert.Equal(t, statusBefore, gitCmd(t, repoRoot, "status", "--porcelain"))
	content, err := os.ReadFile(filepath.Join(repoRoot, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# From main\n", string(content))
}

func TestClient_Merge_DirtyMainTree(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := NewClient(worktreeDir, "crew/", &testutil.MockRepoInspector{Clean: false})
	ctx := context.Background()

	_, err := client.Create(ctx, repoRoot, "3f2a9c1e")
	require.NoError(t, err)

	result, err := client.Merge(ctx, repoRoot, "3f2a9c1e", "Merge task")

	require.NoError(t, err)
	assert.True(t, result.IsConflict())
	assert.Contains(t, result.ConflictMsg, "uncommitted changes")
}

func TestClient_Merge_MissingWorktree(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)

	_, err := client.Merge(context.Background(), repoRoot, "3f2a9c1e", "Merge task")
	assert.Error(t, err)
}

func TestClient_Remove_Idempotent(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)
	ctx := context.Background()

	path, err := client.Create(ctx, repoRoot, "3f2a9c1e")
	require.NoError(t, err)
	// Dirty worktrees are removed as well
	require.NoError(t, os.WriteFile(filepath.Join(path, "scratch.txt"), []byte("x"), 0o644))

	require.NoError(t, client.Remove(ctx, repoRoot, "3f2a9c1e"))
	require.NoError(t, client.Remove(ctx, repoRoot, "3f2a9c1e"))

	assert.False(t, client.Exists("3f2a9c1e"))
	assert.NoDirExists(t, path)
	// Unchanged branch is fully merged and therefore deleted
	exists, err := client.branchExists(ctx, repoRoot, "crew/3f2a9c1e")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_Remove_KeepsUnmergedBranch(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)
	ctx := context.Background()

	path, err := client.Create(ctx, repoRoot, "3f2a9c1e")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(path, "work.txt"), []byte("work\n"), 0o644))
	gitCmd(t, path, "add", ".")
	gitCmd(t, path, "commit", "-m", "unmerged work")

	require.NoError(t, client.Remove(ctx, repoRoot, "3f2a9c1e"))

	exists, err := client.branchExists(ctx, repoRoot, "crew/3f2a9c1e")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestClient_Remove_NeverCreated(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)

	assert.NoError(t, client.Remove(context.Background(), repoRoot, "deadbeef"))
}

func TestClient_Merge_ConcurrentSameProject(t *testing.T) {
	repoRoot, worktreeDir := setupTestRepo(t)
	client := newTestClient(worktreeDir)
	ctx := context.Background()

	ids := []string{"0000aaa1", "0000aaa2", "0000aaa3", "0000aaa4"}
	for _, id := range ids {
		path, err := client.Create(ctx, repoRoot, id)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(path, id+".txt"), []byte(id+"\n"), 0o644))
	}

	results := make([]bool, len(ids))
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			res, err := client.Merge(ctx, repoRoot, id, "Merge task "+id)
			results[i], errs[i] = res.Merged, err
		}(i, id)
	}
	wg.Wait()

	for i, id := range ids {
		require.NoError(t, errs[i], id)
		assert.True(t, results[i], id)
		assert.FileExists(t, filepath.Join(repoRoot, id+".txt"))
	}
	assert.Empty(t, gitCmd(t, repoRoot, "status", "--porcelain"))
}

func TestClient_Lock_PerProject(t *testing.T) {
	client := NewClient(t.TempDir(), "", nil)

	unlockA := client.lock("/repos/a")

	// Another project is independent
	done := make(chan struct{})
	go func() {
		client.lock("/repos/b")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another project blocked")
	}

	// The same project waits for the holder
	acquired := make(chan struct{})
	go func() {
		client.lock("/repos/a/")()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("lock on the same project did not wait")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over")
	}
}

func TestParseWorktreeList(t *testing.T) {
	output := "worktree /repo\nHEAD abc123\nbranch refs/heads/main\n\n" +
		"worktree /wt/3f2a9c1e\nHEAD def456\nbranch refs/heads/crew/3f2a9c1e\n\n" +
		"worktree /wt/detached\nHEAD 789abc\ndetached"

	worktrees, err := parseWorktreeList(output)

	require.NoError(t, err)
	require.Len(t, worktrees, 3)
	assert.Equal(t, domain.WorktreeInfo{Path: "/repo", Branch: "main"}, worktrees[0])
	assert.Equal(t, domain.WorktreeInfo{Path: "/wt/3f2a9c1e", Branch: "crew/3f2a9c1e"}, worktrees[1])
	assert.Equal(t, domain.WorktreeInfo{Path: "/wt/detached"}, worktrees[2])
}

func TestConflictMessage(t *testing.T) {
	msg := conflictMessage("crew/abc", "a.go\nb.go\n", "CONFLICT (content): Merge conflict in a.go\n")
	assert.Equal(t, "Merge conflict merging crew/abc (conflicting files: a.go, b.go):\nCONFLICT (content): Merge conflict in a.go", msg)
}
