// Package sqlitestore provides a SQLite implementation of domain.Store.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/runoshun/crew-board/internal/domain"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		path          TEXT NOT NULL,
		server_url    TEXT NOT NULL DEFAULT '',
		dispatch_mode TEXT NOT NULL DEFAULT '',
		max_parallel  INTEGER NOT NULL DEFAULT 0,
		terminal_open INTEGER NOT NULL DEFAULT 0,
		created       INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		mode        TEXT NOT NULL DEFAULT '',
		findings    TEXT NOT NULL DEFAULT '',
		human_steps TEXT NOT NULL DEFAULT '',
		agent_log   TEXT NOT NULL DEFAULT '',
		dispatched  INTEGER NOT NULL DEFAULT 0,
		created     INTEGER NOT NULL,
		updated     INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_project_created ON tasks(project_id, created);`,
	`ALTER TABLE tasks ADD COLUMN locked INTEGER NOT NULL DEFAULT 0;`,
}

const taskColumns = `id, project_id, title, description, status, mode, findings, human_steps, agent_log, dispatched, locked, created, updated`

const projectColumns = `id, name, path, server_url, dispatch_mode, max_parallel, terminal_open, created`

// Store implements domain.Store on a SQLite database.
// Fields are ordered to minimize memory padding.
type Store struct {
	clock domain.Clock
	ids   domain.IDGenerator
	db    *sql.DB
	path  string
	mu    sync.Mutex // Guards db during Initialize/Close
}

// New creates a Store for the database at path. Initialize opens it.
// path may be ":memory:" for tests.
func New(path string, clock domain.Clock, ids domain.IDGenerator) *Store {
	if clock == nil {
		clock = domain.RealClock{}
	}
	if ids == nil {
		ids = domain.UUIDGenerator{}
	}
	return &Store{path: path, clock: clock, ids: ids}
}

// Ensure Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// Initialize opens the database and applies pending migrations.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	if s.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	db, err := openDB(s.path)
	if err != nil {
		return err
	}
	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// openDB opens a SQLite database at path with WAL journal mode, a busy
// timeout and foreign keys enabled, and verifies the connection.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s on %s: %w", pragma, path, err)
		}
	}
	return db, nil
}

// migrate applies the migrations newer than the database's user_version.
func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		if _, err := db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", i+1)); err != nil {
			return fmt.Errorf("record schema version %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, domain.ErrNotInitialized
	}
	return s.db, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*domain.Project, error) {
	var (
		p        domain.Project
		mode     string
		terminal bool
		created  int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Path, &p.ServerURL, &mode, &p.MaxParallel, &terminal, &created); err != nil {
		return nil, err
	}
	p.DispatchMode = domain.DispatchMode(mode)
	p.TerminalOpen = terminal
	p.Created = time.Unix(0, created)
	return &p, nil
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		t                domain.Task
		status           string
		created, updated int64
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status, &t.Mode,
		&t.Findings, &t.HumanSteps, &t.AgentLog, &t.Dispatched, &t.Locked, &created, &updated); err != nil {
		return nil, err
	}
	t.Status = domain.Status(status)
	t.Created = time.Unix(0, created)
	t.Updated = time.Unix(0, updated)
	return &t, nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	p, err := scanProject(db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by registration time.
func (s *Store) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []*domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// CreateProject registers a project.
func (s *Store) CreateProject(ctx context.Context, fields domain.NewProjectFields) (*domain.Project, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	p := &domain.Project{
		ID:           s.ids.NewID(),
		Name:         fields.Name,
		Path:         fields.Path,
		ServerURL:    fields.ServerURL,
		DispatchMode: fields.DispatchMode,
		MaxParallel:  fields.MaxParallel,
		Created:      s.clock.Now(),
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Path, p.ServerURL, string(p.DispatchMode), p.MaxParallel, p.TerminalOpen, p.Created.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// SetTerminalOpen persists the terminal panel flag.
func (s *Store) SetTerminalOpen(ctx context.Context, projectID string, open bool) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `UPDATE projects SET terminal_open = ? WHERE id = ?`, open, projectID)
	if err != nil {
		return false, fmt.Errorf("set terminal open: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set terminal open: %w", err)
	}
	return n > 0, nil
}

// GetTask retrieves a task of a project.
func (s *Store) GetTask(ctx context.Context, projectID, taskID string) (*domain.Task, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	t, err := scanTask(db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return t, nil
}

// ListTasks returns the project's tasks grouped by status, oldest first.
func (s *Store) ListTasks(ctx context.Context, projectID string) (domain.TaskColumns, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols := domain.NewTaskColumns()
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		cols.Add(t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return cols, nil
}

// CreateTask creates a task in status todo.
func (s *Store) CreateTask(ctx context.Context, projectID string, fields domain.NewTaskFields) (*domain.Task, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	t := &domain.Task{
		ID:          s.ids.NewID(),
		ProjectID:   projectID,
		Title:       fields.Title,
		Description: fields.Description,
		Mode:        fields.Mode,
		Status:      domain.StatusTodo,
		Created:     now,
		Updated:     now,
	}
	if err := insertTask(ctx, db, t); err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func insertTask(ctx context.Context, db *sql.DB, t *domain.Task) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status), t.Mode,
		t.Findings, t.HumanSteps, t.AgentLog, t.Dispatched, t.Locked, t.Created.UnixNano(), t.Updated.UnixNano())
	return err
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// UpdateTask applies a partial update inside a transaction.
func (s *Store) UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := scanTask(tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}

	patch.Apply(t)
	t.Updated = s.clock.Now()
	_, err = tx.ExecContext(ctx, `UPDATE tasks SET
		title = ?, description = ?, status = ?, mode = ?, findings = ?, human_steps = ?,
		agent_log = ?, dispatched = ?, locked = ?, updated = ?
		WHERE id = ?`,
		t.Title, t.Description, string(t.Status), t.Mode, t.Findings, t.HumanSteps,
		t.AgentLog, t.Dispatched, t.Locked, t.Updated.UnixNano(), t.ID)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return t, nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, projectID, taskID string) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID)
	if err != nil {
		return false, fmt.Errorf("delete task %s: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return n > 0, nil
}
