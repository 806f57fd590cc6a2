package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StoreInitializer initializes the data store.
type StoreInitializer interface {
	// Initialize creates the store if it doesn't exist.
	Initialize() error
}

// TaskStore manages task persistence.
type TaskStore interface {
	// GetTask retrieves a task. Returns nil if not found.
	GetTask(ctx context.Context, projectID, taskID string) (*Task, error)

	// UpdateTask applies a partial update. Returns nil if not found.
	UpdateTask(ctx context.Context, projectID, taskID string, patch TaskPatch) (*Task, error)

	// DeleteTask removes a task. Returns false if not found.
	DeleteTask(ctx context.Context, projectID, taskID string) (bool, error)

	// ListTasks returns the project's tasks grouped by status, oldest first.
	ListTasks(ctx context.Context, projectID string) (TaskColumns, error)

	// CreateTask creates a task in status todo.
	CreateTask(ctx context.Context, projectID string, fields NewTaskFields) (*Task, error)
}

// ProjectStore manages project persistence.
type ProjectStore interface {
	// GetProject retrieves a project. Returns nil if not found.
	GetProject(ctx context.Context, projectID string) (*Project, error)

	// ListProjects returns all projects ordered by registration time.
	ListProjects(ctx context.Context) ([]*Project, error)

	// CreateProject registers a project.
	CreateProject(ctx context.Context, fields NewProjectFields) (*Project, error)

	// SetTerminalOpen persists the terminal panel flag. Returns false if not found.
	SetTerminalOpen(ctx context.Context, projectID string, open bool) (bool, error)
}

// Store combines task and project persistence.
type Store interface {
	TaskStore
	ProjectStore
	StoreInitializer
	Close() error
}

// SessionHandle identifies a live terminal session.
// Fields are ordered to minimize memory padding.
type SessionHandle struct {
	Started   time.Time `json:"started" yaml:"started"`
	TabID     string    `json:"tabId" yaml:"tabId"`         // Caller-chosen correlation key (tmux session name)
	TaskID    string    `json:"taskId" yaml:"taskId"`       // Task the session runs
	ProjectID string    `json:"projectId" yaml:"projectId"` // Project of the task
	Dir       string    `json:"dir" yaml:"dir"`             // Working directory (worktree path)
}

// SessionManager spawns and terminates the terminal sessions dispatched tasks run in.
type SessionManager interface {
	// SpawnPty starts cmd in cwd under the session name tabID.
	SpawnPty(ctx context.Context, tabID, cmd, cwd string) error

	// Kill terminates the session. Killing an absent session is a no-op.
	Kill(ctx context.Context, tabID string) error

	// IsRunning checks if a session is running.
	IsRunning(ctx context.Context, tabID string) (bool, error)
}

// SessionViewer gives a local user access to a task's session.
type SessionViewer interface {
	// Peek returns the last lines of the session's output.
	Peek(ctx context.Context, tabID string, lines int) (string, error)

	// Attach connects the terminal to the session. It does not return on success.
	Attach(ctx context.Context, tabID string) error
}

// MergeResult is the outcome of integrating a task branch.
// Exactly one of the two states holds: Merged, or a conflict with ConflictMsg set.
type MergeResult struct {
	ConflictMsg string `json:"conflictMsg,omitempty" yaml:"conflictMsg,omitempty"`
	Merged      bool   `json:"merged" yaml:"merged"`
}

// Merged returns a successful merge result.
func Merged() MergeResult {
	return MergeResult{Merged: true}
}

// Conflict returns a merge result carrying the conflict description.
func Conflict(msg string) MergeResult {
	return MergeResult{ConflictMsg: msg}
}

// IsConflict returns true if the merge did not happen.
func (r MergeResult) IsConflict() bool {
	return !r.Merged
}

// WorktreeManager manages per-task git worktrees.
type WorktreeManager interface {
	// Create creates (or reuses) the worktree for shortID from the project's HEAD.
	Create(ctx context.Context, projectPath, shortID string) (path string, err error)

	// Exists checks if the worktree for shortID exists. Pure query.
	Exists(shortID string) bool

	// Merge integrates the task branch into the project's current branch.
	// Conflicts are returned as data, never as an error.
	Merge(ctx context.Context, projectPath, shortID, message string) (MergeResult, error)

	// Remove deletes the worktree. Removing an absent worktree is a no-op.
	Remove(ctx context.Context, projectPath, shortID string) error

	// Path returns the worktree path for shortID.
	Path(shortID string) string

	// List returns the worktrees registered with the project repository.
	List(ctx context.Context, projectPath string) ([]WorktreeInfo, error)
}

// WorktreeInfo is a worktree registered with a project repository.
// ShortID is set only for task branches.
type WorktreeInfo struct {
	Path    string `json:"path" yaml:"path"`
	Branch  string `json:"branch" yaml:"branch"`
	ShortID string `json:"shortId,omitempty" yaml:"shortId,omitempty"`
}

// RepoInspector provides read-only repository queries.
type RepoInspector interface {
	// IsRepository returns true if path is the root of a git repository.
	IsRepository(path string) bool

	// HeadBranch returns the short name of the checked-out branch.
	HeadBranch(path string) (string, error)

	// IsClean returns true if the working tree has no changes.
	IsClean(path string) (bool, error)
}

// Notifier broadcasts status messages. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Logger writes categorized log entries, optionally scoped to a task.
// An empty taskID logs to the global log only.
type Logger interface {
	Debug(taskID, category, msg string)
	Info(taskID, category, msg string)
	Warn(taskID, category, msg string)
	Error(taskID, category, msg string)
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (defaults + global + data dir).
	Load() (*Config, error)

	// Sources returns the config files Load reads, in merge order.
	Sources() []ConfigSource
}

// ConfigSource describes one config file.
type ConfigSource struct {
	Path   string `json:"path" yaml:"path"`
	Exists bool   `json:"exists" yaml:"exists"`
}

// ConfigManager manages configuration files.
type ConfigManager interface {
	// Init writes a commented config template. Fails with ErrConfigExists.
	Init() (string, error)

	// Path returns the path Init writes to.
	Path() string
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// IDGenerator generates entity IDs.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random UUIDv4 IDs.
type UUIDGenerator struct{}

// NewID returns a new random UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
