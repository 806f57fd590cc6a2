// Package testutil provides shared test utilities and mock implementations.
// The mocks are goroutine-safe because the orchestrator calls them from
// background goroutines.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/runoshun/crew-board/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockStore is an in-memory test double for domain.Store.
// Fields are ordered to minimize memory padding.
type MockStore struct {
	Projects    map[string]*domain.Project
	Tasks       map[string]*domain.Task
	GetErr      error
	UpdateErr   error
	ListErr     error
	DeleteErr   error
	CreateErr   error
	AfterUpdate func(patch domain.TaskPatch) // Runs after every successful UpdateTask, outside the lock
	Updates     []domain.TaskPatch           // Every patch passed to UpdateTask
	now         time.Time
	seq         int
	mu          sync.Mutex
}

var _ domain.Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore with initialized maps.
func NewMockStore() *MockStore {
	return &MockStore{
		Projects: make(map[string]*domain.Project),
		Tasks:    make(map[string]*domain.Task),
		now:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Initialize does nothing.
func (m *MockStore) Initialize() error { return nil }

// Close does nothing.
func (m *MockStore) Close() error { return nil }

// AddProject inserts a project pointing at path.
func (m *MockStore) AddProject(id, path string) *domain.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &domain.Project{ID: id, Name: id, Path: path, Created: m.tick()}
	m.Projects[id] = p
	return p
}

// AddTask inserts a task. Tasks added later sort later.
func (m *MockStore) AddTask(projectID, id string, status domain.Status) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	t := &domain.Task{ID: id, ProjectID: projectID, Title: "Task " + id, Status: status, Created: now, Updated: now}
	m.Tasks[id] = t
	return t
}

// Task returns a copy of a stored task, or nil.
func (m *MockStore) Task(id string) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// UpdateCount returns the number of UpdateTask calls.
func (m *MockStore) UpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Updates)
}

func (m *MockStore) tick() time.Time {
	m.seq++
	return m.now.Add(time.Duration(m.seq) * time.Second)
}

// GetTask retrieves a task.
func (m *MockStore) GetTask(_ context.Context, projectID, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	t, ok := m.Tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// UpdateTask applies a patch. Like the real stores it fails on a done context.
func (m *MockStore) UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	t, err := m.updateTask(ctx, projectID, taskID, patch)
	if err == nil && t != nil && m.AfterUpdate != nil {
		m.AfterUpdate(patch)
	}
	return t, err
}

func (m *MockStore) updateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, patch)
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := m.Tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return nil, nil
	}
	patch.Apply(t)
	t.Updated = m.tick()
	cp := *t
	return &cp, nil
}

// DeleteTask removes a task.
func (m *MockStore) DeleteTask(_ context.Context, projectID, taskID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return false, m.DeleteErr
	}
	t, ok := m.Tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return false, nil
	}
	delete(m.Tasks, taskID)
	return true, nil
}

// ListTasks returns the project's tasks grouped by status, oldest first.
func (m *MockStore) ListTasks(_ context.Context, projectID string) (domain.TaskColumns, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var tasks []*domain.Task
	for _, t := range m.Tasks {
		if t.ProjectID == projectID {
			cp := *t
			tasks = append(tasks, &cp)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Created.Before(tasks[j].Created) })
	cols := domain.NewTaskColumns()
	for _, t := range tasks {
		cols.Add(t)
	}
	return cols, nil
}

// CreateTask creates a task in status todo.
func (m *MockStore) CreateTask(_ context.Context, projectID string, fields domain.NewTaskFields) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	now := m.tick()
	t := &domain.Task{
		ID:          fmt.Sprintf("task%04d-0000-0000-0000-000000000000", m.seq),
		ProjectID:   projectID,
		Title:       fields.Title,
		Description: fields.Description,
		Mode:        fields.Mode,
		Status:      domain.StatusTodo,
		Created:     now,
		Updated:     now,
	}
	m.Tasks[t.ID] = t
	cp := *t
	return &cp, nil
}

// GetProject retrieves a project.
func (m *MockStore) GetProject(_ context.Context, projectID string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.Projects[projectID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// ListProjects returns all projects ordered by registration time.
func (m *MockStore) ListProjects(_ context.Context) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	projects := make([]*domain.Project, 0, len(m.Projects))
	for _, p := range m.Projects {
		cp := *p
		projects = append(projects, &cp)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Created.Before(projects[j].Created) })
	return projects, nil
}

// CreateProject registers a project.
func (m *MockStore) CreateProject(_ context.Context, fields domain.NewProjectFields) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	p := &domain.Project{
		ID:           fmt.Sprintf("proj%04d", m.seq+1),
		Name:         fields.Name,
		Path:         fields.Path,
		ServerURL:    fields.ServerURL,
		DispatchMode: fields.DispatchMode,
		MaxParallel:  fields.MaxParallel,
		Created:      m.tick(),
	}
	m.Projects[p.ID] = p
	cp := *p
	return &cp, nil
}

// SetTerminalOpen persists the terminal panel flag.
func (m *MockStore) SetTerminalOpen(_ context.Context, projectID string, open bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return false, m.UpdateErr
	}
	p, ok := m.Projects[projectID]
	if !ok {
		return false, nil
	}
	p.TerminalOpen = open
	return true, nil
}

// MockWorktreeManager is a test double for domain.WorktreeManager.
// Fields are ordered to minimize memory padding.
type MockWorktreeManager struct {
	Existing     map[string]bool
	MergeResults map[string]domain.MergeResult // Per shortID; default Merged
	CreateErr    error
	MergeErr     error
	RemoveErr    error
	ListErr      error
	Created      []string
	MergeCalls   []string
	Removed      []string
	Dir          string
	CreateDelay  time.Duration
	mu           sync.Mutex
}

var _ domain.WorktreeManager = (*MockWorktreeManager)(nil)

// NewMockWorktreeManager creates a new MockWorktreeManager.
func NewMockWorktreeManager() *MockWorktreeManager {
	return &MockWorktreeManager{
		Existing:     make(map[string]bool),
		MergeResults: make(map[string]domain.MergeResult),
		Dir:          "/tmp/worktrees",
	}
}

// Create records the call and marks the worktree as existing.
func (m *MockWorktreeManager) Create(ctx context.Context, _, shortID string) (string, error) {
	if m.CreateDelay > 0 {
		select {
		case <-time.After(m.CreateDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, shortID)
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.Existing[shortID] = true
	return filepath.Join(m.Dir, shortID), nil
}

// Exists reports whether the worktree was created and not removed.
func (m *MockWorktreeManager) Exists(shortID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Existing[shortID]
}

// Merge returns the configured result.
func (m *MockWorktreeManager) Merge(ctx context.Context, _, shortID, _ string) (domain.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MergeCalls = append(m.MergeCalls, shortID)
	if m.MergeErr != nil {
		return domain.MergeResult{}, m.MergeErr
	}
	if err := ctx.Err(); err != nil {
		return domain.MergeResult{}, fmt.Errorf("merge cancelled: %w", err)
	}
	if r, ok := m.MergeResults[shortID]; ok {
		return r, nil
	}
	return domain.Merged(), nil
}

// Remove records the call and marks the worktree as absent.
func (m *MockWorktreeManager) Remove(_ context.Context, _, shortID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, shortID)
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.Existing, shortID)
	return nil
}

// Path returns the worktree path for shortID.
func (m *MockWorktreeManager) Path(shortID string) string {
	return filepath.Join(m.Dir, shortID)
}

// List returns every existing worktree on a task branch, sorted by shortID.
func (m *MockWorktreeManager) List(_ context.Context, _ string) ([]domain.WorktreeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	ids := make([]string, 0, len(m.Existing))
	for id := range m.Existing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	infos := make([]domain.WorktreeInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, domain.WorktreeInfo{
			Path:    filepath.Join(m.Dir, id),
			Branch:  domain.DefaultBranchPrefix + id,
			ShortID: id,
		})
	}
	return infos, nil
}

// RemovedCount returns the number of Remove calls.
func (m *MockWorktreeManager) RemovedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Removed)
}

// MockSessionManager is a test double for domain.SessionManager.
// Fields are ordered to minimize memory padding.
type MockSessionManager struct {
	Running    map[string]bool
	OnSpawn    func(tabID string) // Runs after a successful spawn, outside the lock
	SpawnErr   error
	KillErr    error
	RunningErr error
	Spawned    []string
	Killed     []string
	Commands   []string
	mu         sync.Mutex
}

var _ domain.SessionManager = (*MockSessionManager)(nil)

// NewMockSessionManager creates a new MockSessionManager.
func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{Running: make(map[string]bool)}
}

// SpawnPty records the call and marks the session as running.
func (m *MockSessionManager) SpawnPty(_ context.Context, tabID, cmd, _ string) error {
	if err := m.spawn(tabID, cmd); err != nil {
		return err
	}
	if m.OnSpawn != nil {
		m.OnSpawn(tabID)
	}
	return nil
}

func (m *MockSessionManager) spawn(tabID, cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SpawnErr != nil {
		return m.SpawnErr
	}
	if m.Running[tabID] {
		return domain.ErrSessionRunning
	}
	m.Spawned = append(m.Spawned, tabID)
	m.Commands = append(m.Commands, cmd)
	m.Running[tabID] = true
	return nil
}

// Kill records the call and marks the session as stopped.
func (m *MockSessionManager) Kill(_ context.Context, tabID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Killed = append(m.Killed, tabID)
	if m.KillErr != nil {
		return m.KillErr
	}
	delete(m.Running, tabID)
	return nil
}

// IsRunning reports whether the session was spawned and not killed.
func (m *MockSessionManager) IsRunning(_ context.Context, tabID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RunningErr != nil {
		return false, m.RunningErr
	}
	return m.Running[tabID], nil
}

// SpawnedIDs returns a copy of the spawned session names.
func (m *MockSessionManager) SpawnedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Spawned...)
}

// KilledIDs returns a copy of the killed session names.
func (m *MockSessionManager) KilledIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Killed...)
}

// MockNotifier is a test double for domain.Notifier.
type MockNotifier struct {
	NotifyErr error
	Messages  []string
	mu        sync.Mutex
}

// Notify records the message.
func (m *MockNotifier) Notify(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
	return m.NotifyErr
}

// Sent returns a copy of the recorded messages.
func (m *MockNotifier) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Messages...)
}

// LogEntry is a message recorded by MockLogger.
type LogEntry struct {
	Level    string
	TaskID   string
	Category string
	Msg      string
}

// MockLogger is a test double for domain.Logger.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

func (m *MockLogger) log(level, taskID, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, TaskID: taskID, Category: category, Msg: msg})
}

// Debug records a debug entry.
func (m *MockLogger) Debug(taskID, category, msg string) { m.log("DEBUG", taskID, category, msg) }

// Info records an info entry.
func (m *MockLogger) Info(taskID, category, msg string) { m.log("INFO", taskID, category, msg) }

// Warn records a warn entry.
func (m *MockLogger) Warn(taskID, category, msg string) { m.log("WARN", taskID, category, msg) }

// Error records an error entry.
func (m *MockLogger) Error(taskID, category, msg string) { m.log("ERROR", taskID, category, msg) }

// Has returns true if an entry with level and category was recorded.
func (m *MockLogger) Has(level, category string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.Level == level && e.Category == category {
			return true
		}
	}
	return false
}

// MockScriptWriter is a test double for dispatch.ScriptWriter.
type MockScriptWriter struct {
	WriteErr error
	Removed  []string
	mu       sync.Mutex
}

// Write returns a fake script path.
func (m *MockScriptWriter) Write(_ *domain.Project, task *domain.Task, _ string, _ domain.AgentConfig) (string, error) {
	if m.WriteErr != nil {
		return "", m.WriteErr
	}
	return "/tmp/scripts/task-" + task.ShortID() + ".sh", nil
}

// Remove records the call.
func (m *MockScriptWriter) Remove(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, taskID)
}

// MockRepoInspector is a test double for domain.RepoInspector.
type MockRepoInspector struct {
	Repos    map[string]bool
	Branch   string
	HeadErr  error
	Clean    bool
	CleanErr error
}

// IsRepository reports whether path was registered as a repository.
func (m *MockRepoInspector) IsRepository(path string) bool {
	return m.Repos[path]
}

// HeadBranch returns the configured branch.
func (m *MockRepoInspector) HeadBranch(_ string) (string, error) {
	return m.Branch, m.HeadErr
}

// IsClean returns the configured clean state.
func (m *MockRepoInspector) IsClean(_ string) (bool, error) {
	return m.Clean, m.CleanErr
}

// MockSessionViewer is a test double for domain.SessionViewer.
// Fields are ordered to minimize memory padding.
type MockSessionViewer struct {
	Output    string
	PeekErr   error
	AttachErr error
	Peeked    []string
	Attached  []string
	Lines     int
	mu        sync.Mutex
}

var _ domain.SessionViewer = (*MockSessionViewer)(nil)

// Peek records the call and returns the configured output.
func (m *MockSessionViewer) Peek(_ context.Context, tabID string, lines int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Peeked = append(m.Peeked, tabID)
	m.Lines = lines
	if m.PeekErr != nil {
		return "", m.PeekErr
	}
	return m.Output, nil
}

// Attach records the call.
func (m *MockSessionViewer) Attach(_ context.Context, tabID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attached = append(m.Attached, tabID)
	return m.AttachErr
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config     *domain.Config
	LoadErr    error
	SourceList []domain.ConfigSource
}

var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// Load returns the configured config, or the defaults.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Config == nil {
		return domain.NewDefaultConfig(), nil
	}
	return m.Config, nil
}

// Sources returns the configured sources.
func (m *MockConfigLoader) Sources() []domain.ConfigSource {
	return m.SourceList
}

// MockConfigManager is a test double for domain.ConfigManager.
type MockConfigManager struct {
	ConfigPath string
	InitErr    error
	InitCalled bool
}

var _ domain.ConfigManager = (*MockConfigManager)(nil)

// Init records the call.
func (m *MockConfigManager) Init() (string, error) {
	m.InitCalled = true
	if m.InitErr != nil {
		return "", m.InitErr
	}
	return m.ConfigPath, nil
}

// Path returns the configured path.
func (m *MockConfigManager) Path() string {
	return m.ConfigPath
}
