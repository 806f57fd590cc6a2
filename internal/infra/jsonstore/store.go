// Package jsonstore provides a JSON file-based implementation of domain.Store.
package jsonstore

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/runoshun/crew-board/internal/domain"
)

// storeVersion is written to the meta section of new files.
const storeVersion = 1

// storeData represents the JSON file structure.
// Fields are ordered to minimize memory padding.
type storeData struct {
	Projects map[string]*domain.Project `json:"projects"`
	Tasks    map[string]*domain.Task    `json:"tasks"`
	Meta     meta                       `json:"meta"`
}

// meta contains store metadata.
type meta struct {
	Version int `json:"version"`
}

// Store implements domain.Store using a JSON file.
// Every operation reads the file under a flock, so several processes can share it.
type Store struct {
	clock    domain.Clock
	ids      domain.IDGenerator
	path     string
	lockPath string
}

// New creates a new Store for the given file path.
// The file does not need to exist; Initialize creates it.
func New(path string, clock domain.Clock, ids domain.IDGenerator) *Store {
	if clock == nil {
		clock = domain.RealClock{}
	}
	if ids == nil {
		ids = domain.UUIDGenerator{}
	}
	return &Store{
		clock:    clock,
		ids:      ids,
		path:     path,
		lockPath: path + ".lock",
	}
}

// Ensure Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// GetProject retrieves a project by ID.
func (s *Store) GetProject(_ context.Context, projectID string) (*domain.Project, error) {
	var project *domain.Project
	err := s.withLock(func(data *storeData) error {
		if p, ok := data.Projects[projectID]; ok {
			project = p
			project.ID = projectID
		}
		return nil
	})
	return project, err
}

// ListProjects returns all projects ordered by registration time.
func (s *Store) ListProjects(_ context.Context) ([]*domain.Project, error) {
	projects := []*domain.Project{}
	err := s.withLock(func(data *storeData) error {
		for id, p := range data.Projects {
			p.ID = id
			projects = append(projects, p)
		}
		return nil
	})

	// Sort for consistent ordering
	slices.SortFunc(projects, func(a, b *domain.Project) int {
		return cmp.Or(a.Created.Compare(b.Created), cmp.Compare(a.ID, b.ID))
	})
	return projects, err
}

// CreateProject registers a project.
func (s *Store) CreateProject(_ context.Context, fields domain.NewProjectFields) (*domain.Project, error) {
	project := &domain.Project{
		ID:           s.ids.NewID(),
		Name:         fields.Name,
		Path:         fields.Path,
		ServerURL:    fields.ServerURL,
		DispatchMode: fields.DispatchMode,
		MaxParallel:  fields.MaxParallel,
		Created:      s.clock.Now(),
	}
	err := s.withLockWrite(func(data *storeData) error {
		data.Projects[project.ID] = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// SetTerminalOpen persists the terminal panel flag.
func (s *Store) SetTerminalOpen(_ context.Context, projectID string, open bool) (bool, error) {
	found := false
	err := s.withLockWrite(func(data *storeData) error {
		if p, ok := data.Projects[projectID]; ok {
			p.TerminalOpen = open
			found = true
		}
		return nil
	})
	return found, err
}

// GetTask retrieves a task of a project.
func (s *Store) GetTask(_ context.Context, projectID, taskID string) (*domain.Task, error) {
	var task *domain.Task
	err := s.withLock(func(data *storeData) error {
		if t, ok := data.Tasks[taskID]; ok && t.ProjectID == projectID {
			task = t
			task.ID = taskID
		}
		return nil
	})
	return task, err
}

// ListTasks returns the project's tasks grouped by status, oldest first.
func (s *Store) ListTasks(_ context.Context, projectID string) (domain.TaskColumns, error) {
	var tasks []*domain.Task
	err := s.withLock(func(data *storeData) error {
		for id, t := range data.Tasks {
			if t.ProjectID != projectID {
				continue
			}
			t.ID = id
			tasks = append(tasks, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		return cmp.Or(a.Created.Compare(b.Created), cmp.Compare(a.ID, b.ID))
	})
	cols := domain.NewTaskColumns()
	for _, t := range tasks {
		cols.Add(t)
	}
	return cols, nil
}

// CreateTask creates a task in status todo.
func (s *Store) CreateTask(_ context.Context, projectID string, fields domain.NewTaskFields) (*domain.Task, error) {
	now := s.clock.Now()
	task := &domain.Task{
		ID:          s.ids.NewID(),
		ProjectID:   projectID,
		Title:       fields.Title,
		Description: fields.Description,
		Mode:        fields.Mode,
		Status:      domain.StatusTodo,
		Created:     now,
		Updated:     now,
	}
	err := s.withLockWrite(func(data *storeData) error {
		if _, ok := data.Projects[projectID]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, projectID)
		}
		data.Tasks[task.ID] = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask applies a partial update.
func (s *Store) UpdateTask(_ context.Context, projectID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	var task *domain.Task
	err := s.withLockWrite(func(data *storeData) error {
		t, ok := data.Tasks[taskID]
		if !ok || t.ProjectID != projectID {
			return nil
		}
		patch.Apply(t)
		t.Updated = s.clock.Now()
		t.ID = taskID
		copied := *t
		task = &copied
		return nil
	})
	return task, err
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(_ context.Context, projectID, taskID string) (bool, error) {
	found := false
	err := s.withLockWrite(func(data *storeData) error {
		if t, ok := data.Tasks[taskID]; ok && t.ProjectID == projectID {
			delete(data.Tasks, taskID)
			found = true
		}
		return nil
	})
	return found, err
}

// IsInitialized checks if the store file exists.
func (s *Store) IsInitialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Initialize creates an empty store file if it doesn't exist.
func (s *Store) Initialize() error {
	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	// Check if file already exists
	if _, err := os.Stat(s.path); err == nil {
		return nil // Already exists
	}

	// Create empty store
	data := &storeData{
		Meta:     meta{Version: storeVersion},
		Projects: make(map[string]*domain.Project),
		Tasks:    make(map[string]*domain.Task),
	}

	return s.write(data)
}

// Close is a no-op; the file is not held open between operations.
func (s *Store) Close() error {
	return nil
}

// withLock executes fn with a shared (read) lock.
func (s *Store) withLock(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	return fn(data)
}

// withLockWrite executes fn with an exclusive (write) lock and writes the result.
func (s *Store) withLockWrite(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	if err := fn(data); err != nil {
		return err
	}

	return s.write(data)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	// Ensure lock file directory exists
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

func (s *Store) read() (*storeData, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotInitialized
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var data storeData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}

	// Ensure maps are initialized
	if data.Projects == nil {
		data.Projects = make(map[string]*domain.Project)
	}
	if data.Tasks == nil {
		data.Tasks = make(map[string]*domain.Task)
	}

	return &data, nil
}

func (s *Store) write(data *storeData) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
