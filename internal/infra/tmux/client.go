// Package tmux provides tmux session management.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/runoshun/crew-board/internal/domain"
)

// ExecFunc is the function signature for syscall.Exec.
// It is used to allow testing of the Attach method.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Client manages the tmux sessions dispatched tasks run in.
// All sessions live on a private socket so they never mix with the user's tmux.
// Fields are ordered to minimize memory padding.
type Client struct {
	execFunc   ExecFunc // Function to use for exec (default: syscall.Exec)
	socketPath string   // Path to the tmux socket
	configPath string   // Path to tmux configuration
}

// NewClient creates a new tmux client.
// socketPath is the path to the tmux socket (typically <dataDir>/tmux.sock).
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		configPath: filepath.Join(filepath.Dir(socketPath), "tmux.conf"),
		execFunc:   syscall.Exec,
	}
}

// SetExecFunc sets the exec function for testing purposes.
func (c *Client) SetExecFunc(fn ExecFunc) {
	c.execFunc = fn
}

// Ensure Client implements domain.SessionManager interface.
var _ domain.SessionManager = (*Client)(nil)

// tmuxConfig keeps finished panes from lingering and scrollback large enough
// to read an agent's output.
const tmuxConfig = `set -g remain-on-exit off
set -g history-limit 50000
set -g mouse on
`

// ensureConfig writes the tmux configuration if it does not exist yet.
func (c *Client) ensureConfig() error {
	if _, err := os.Stat(c.configPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o750); err != nil {
		return fmt.Errorf("create tmux directory: %w", err)
	}
	if err := os.WriteFile(c.configPath, []byte(tmuxConfig), 0o600); err != nil {
		return fmt.Errorf("write tmux config: %w", err)
	}
	return nil
}

// SpawnPty creates a detached session named tabID running cmd in cwd.
func (c *Client) SpawnPty(ctx context.Context, tabID, cmd, cwd string) error {
	running, err := c.IsRunning(ctx, tabID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if running {
		return domain.ErrSessionRunning
	}
	if err := c.ensureConfig(); err != nil {
		return err
	}

	// tmux -S <socket> -f <config> new-session -d -s <name> -c <dir> <command>
	args := []string{
		"-S", c.socketPath,
		"-f", c.configPath,
		"new-session",
		"-d",        // Detached
		"-s", tabID, // Session name
		"-c", cwd,   // Working directory
	}
	if cmd != "" {
		args = append(args, cmd)
	}

	tmuxCmd := exec.CommandContext(ctx, "tmux", args...)
	tmuxCmd.Dir = cwd
	if out, err := tmuxCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("start session: %w: %s", err, string(out))
	}
	return nil
}

// Kill terminates a session.
// It first sends SIGTERM to the processes running in the session's panes,
// then kills the session itself. Killing an absent session is a no-op.
func (c *Client) Kill(ctx context.Context, tabID string) error {
	running, err := c.IsRunning(ctx, tabID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !running {
		return nil // Session already stopped, nothing to do
	}

	// tmux -S <socket> list-panes -t <name> -F '#{pane_pid}'
	listCmd := exec.CommandContext(ctx, "tmux", //nolint:gosec // tabID follows the task-<shortId> naming convention
		"-S", c.socketPath,
		"list-panes",
		"-t", tabID,
		"-F", "#{pane_pid}",
	)
	if out, err := listCmd.Output(); err == nil && len(out) > 0 {
		for _, pid := range strings.Split(strings.TrimSpace(string(out)), "\n") {
			if pid == "" {
				continue
			}
			// The process might have already exited
			_ = exec.CommandContext(ctx, "pkill", "-TERM", "-P", pid).Run()
		}
	}

	// tmux -S <socket> kill-session -t <name>
	cmd := exec.CommandContext(ctx, "tmux", "-S", c.socketPath, "kill-session", "-t", tabID) //nolint:gosec // tabID follows the task-<shortId> naming convention
	if out, err := cmd.CombinedOutput(); err != nil {
		// Child process termination may have closed the session already
		stillRunning, checkErr := c.IsRunning(ctx, tabID)
		if checkErr != nil || stillRunning {
			return fmt.Errorf("kill session: %w: %s", err, string(out))
		}
	}
	return nil
}

// IsRunning checks if a session is running.
func (c *Client) IsRunning(ctx context.Context, tabID string) (bool, error) {
	// tmux -S <socket> has-session -t <name>
	// Exit code 0 = exists, 1 = doesn't exist
	cmd := exec.CommandContext(ctx, "tmux", //nolint:gosec // tabID follows the task-<shortId> naming convention
		"-S", c.socketPath,
		"has-session",
		"-t", "="+tabID,
	)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// No session, or no server on the socket
			return false, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return false, fmt.Errorf("find tmux: %w", err)
		}
		return false, nil
	}
	return true, nil
}

// Peek captures the last lines of a session's pane.
func (c *Client) Peek(ctx context.Context, tabID string, lines int) (string, error) {
	running, err := c.IsRunning(ctx, tabID)
	if err != nil {
		return "", fmt.Errorf("check session: %w", err)
	}
	if !running {
		return "", domain.ErrNoSession
	}

	// tmux -S <socket> capture-pane -t <name> -p -S -<lines>
	cmd := exec.CommandContext(ctx, "tmux", //nolint:gosec // tabID follows the task-<shortId> naming convention
		"-S", c.socketPath,
		"capture-pane",
		"-t", tabID,
		"-p",
		"-S", fmt.Sprintf("-%d", lines),
	)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("peek session: %w", err)
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

// Attach attaches to a running session.
// This replaces the current process with tmux.
func (c *Client) Attach(ctx context.Context, tabID string) error {
	running, err := c.IsRunning(ctx, tabID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !running {
		return domain.ErrNoSession
	}

	tmuxPath, err := exec.LookPath("tmux")
	if err != nil {
		return fmt.Errorf("find tmux: %w", err)
	}

	// tmux -S <socket> -f <config> attach -t <name>
	argv := []string{"tmux", "-S", c.socketPath, "-f", c.configPath, "attach", "-t", tabID}
	if err := c.execFunc(tmuxPath, argv, os.Environ()); err != nil {
		return fmt.Errorf("attach session: %w", err)
	}

	// This line should never be reached
	return nil
}
