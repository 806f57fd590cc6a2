// Package app provides the dependency injection container for the application.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runoshun/crew-board/internal/client"
	"github.com/runoshun/crew-board/internal/dispatch"
	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/infra/config"
	"github.com/runoshun/crew-board/internal/infra/git"
	"github.com/runoshun/crew-board/internal/infra/jsonstore"
	"github.com/runoshun/crew-board/internal/infra/logging"
	"github.com/runoshun/crew-board/internal/infra/metrics"
	"github.com/runoshun/crew-board/internal/infra/notify"
	"github.com/runoshun/crew-board/internal/infra/sqlitestore"
	"github.com/runoshun/crew-board/internal/infra/tmux"
	"github.com/runoshun/crew-board/internal/infra/worktree"
	"github.com/runoshun/crew-board/internal/server"
	"github.com/runoshun/crew-board/internal/usecase"
)

// Paths holds the resolved file locations.
type Paths struct {
	DataDir     string // Root of all crew-board state
	SocketPath  string // tmux socket
	StorePath   string // SQLite database or JSON file
	WorktreeDir string // Directory of task worktrees
}

// newPaths resolves locations from the data directory and the configuration.
func newPaths(dataDir string, cfg *domain.Config) Paths {
	storePath := domain.ExpandHome(cfg.Store.Path)
	if storePath == "" {
		name := domain.DBFileName
		if cfg.Store.Driver == domain.StoreDriverJSON {
			name = domain.JSONFileName
		}
		storePath = filepath.Join(dataDir, name)
	}
	worktreeDir := domain.ExpandHome(cfg.Worktree.Dir)
	if worktreeDir == "" {
		worktreeDir = domain.DefaultWorktreeDir(dataDir)
	}
	return Paths{
		DataDir:     dataDir,
		SocketPath:  filepath.Join(dataDir, "tmux.sock"),
		StorePath:   storePath,
		WorktreeDir: worktreeDir,
	}
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Clock         domain.Clock
	Repos         domain.RepoInspector
	Worktrees     domain.WorktreeManager
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager
	GlobalConfig  domain.ConfigManager

	// Pointer fields
	Sessions        *tmux.Client
	Notifier        *notify.Command
	TaskLog         *logging.Logger
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	MetricsRegistry *prometheus.Registry
	AppConfig       *domain.Config

	store domain.Store
	orch  *dispatch.Orchestrator

	// Configuration
	Paths Paths

	mu sync.Mutex
}

// New creates a new Container for the data directory.
// The store is opened lazily by OpenStore.
func New(dataDir string) (*Container, error) {
	if dataDir == "" {
		dataDir = domain.DefaultDataDir()
	}
	loader := config.NewLoader(dataDir)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	return newContainer(dataDir, loader, config.NewGlobalManager(), cfg), nil
}

// NewWithLoader creates a Container with a custom config loader.
// This is useful for testing.
func NewWithLoader(dataDir string, loader *config.Loader) (*Container, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	return newContainer(dataDir, loader, &config.Manager{}, cfg), nil
}

func newContainer(dataDir string, loader *config.Loader, global domain.ConfigManager, cfg *domain.Config) *Container {
	paths := newPaths(dataDir, cfg)
	repos := git.NewClient()
	reg, m := metrics.NewRegistry()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.Log.Level),
	}))

	return &Container{
		Clock:           domain.RealClock{},
		Repos:           repos,
		Worktrees:       worktree.NewClient(paths.WorktreeDir, cfg.Worktree.BranchPrefix, repos),
		ConfigLoader:    loader,
		ConfigManager:   config.NewManager(dataDir),
		GlobalConfig:    global,
		Sessions:        tmux.NewClient(paths.SocketPath),
		Notifier:        notify.NewCommand(cfg.Notify),
		TaskLog:         logging.New(dataDir, logging.ParseLevel(cfg.Log.Level)),
		Logger:          logger,
		Metrics:         m,
		MetricsRegistry: reg,
		AppConfig:       cfg,
		Paths:           paths,
	}
}

// OpenStore opens and initializes the configured store.
func (c *Container) OpenStore() (domain.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return c.store, nil
	}

	var store domain.Store
	switch c.AppConfig.Store.Driver {
	case domain.StoreDriverJSON:
		store = jsonstore.New(c.Paths.StorePath, c.Clock, domain.UUIDGenerator{})
	default:
		store = sqlitestore.New(c.Paths.StorePath, c.Clock, domain.UUIDGenerator{})
	}
	if err := store.Initialize(); err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.AppConfig.Store.Driver, err)
	}
	c.store = store
	return store, nil
}

// Orchestrator returns the dispatch orchestrator, creating it on first use.
// OpenStore must have succeeded.
func (c *Container) Orchestrator() *dispatch.Orchestrator {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.orch != nil {
		return c.orch
	}
	c.orch = dispatch.New(dispatch.Options{
		Tasks:     c.store,
		Projects:  c.store,
		Worktrees: c.Worktrees,
		Sessions:  c.Sessions,
		Notifier:  c.Notifier,
		Logger:    c.TaskLog,
		Observer:  c.Metrics,
		Scripts:   dispatch.NewLauncher(c.Paths.DataDir, "", c.AppConfig.Worktree.BranchPrefix).WithServer(c.AppConfig.Server.Addr),
		Clock:     c.Clock,
		Config:    c.AppConfig,
	})
	return c.orch
}

// Reload applies a reloaded configuration to the running components.
// Store, worktree and server settings take effect on the next start.
func (c *Container) Reload(cfg *domain.Config) {
	c.mu.Lock()
	c.AppConfig = cfg
	orch := c.orch
	c.mu.Unlock()

	c.Notifier.Reload(cfg.Notify)
	c.TaskLog.SetLevel(logging.ParseLevel(cfg.Log.Level))
	if orch != nil {
		orch.Reload(cfg)
	}
}

// Client returns an API client for the configured server address.
func (c *Container) Client(addr string) *client.Client {
	if addr == "" {
		addr = c.AppConfig.Server.Addr
	}
	return client.New(addr)
}

// Close releases the orchestrator, the store and the log files.
func (c *Container) Close() error {
	c.mu.Lock()
	orch, store := c.orch, c.store
	c.mu.Unlock()

	if orch != nil {
		orch.Close()
	}
	var errs []error
	if store != nil {
		errs = append(errs, store.Close())
	}
	errs = append(errs, c.TaskLog.Close())
	return errors.Join(errs...)
}

// UseCase factory methods

// ServerUseCases returns the use cases served over HTTP.
// OpenStore must have succeeded.
func (c *Container) ServerUseCases() server.UseCases {
	orch := c.Orchestrator()
	return server.UseCases{
		RegisterProject: usecase.NewRegisterProject(c.store, c.Repos, c.TaskLog),
		ListProjects:    usecase.NewListProjects(c.store, c.Repos),
		NewTask:         usecase.NewNewTask(c.store, c.store, c.TaskLog),
		ListTasks:       usecase.NewListTasks(c.store, c.store),
		ShowTask:        usecase.NewShowTask(c.store, orch.Registry()),
		UpdateTask:      usecase.NewUpdateTask(orch),
		DeleteTask:      usecase.NewDeleteTask(orch),
		DispatchTask:    usecase.NewDispatchTask(orch),
		SessionEnded:    usecase.NewSessionEnded(orch),
		GetTerminalOpen: usecase.NewGetTerminalOpen(c.store),
		SetTerminalOpen: usecase.NewSetTerminalOpen(c.store),
		ListActiveTasks: usecase.NewListActiveTasks(c.store, c.store, orch.Registry()),
	}
}

// ReconcileUseCase returns a new Reconcile use case.
func (c *Container) ReconcileUseCase() *usecase.Reconcile {
	return usecase.NewReconcile(c.Orchestrator())
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigLoader)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager, c.GlobalConfig)
}

// PeekSessionUseCase returns a new PeekSession use case.
func (c *Container) PeekSessionUseCase() *usecase.PeekSession {
	return usecase.NewPeekSession(c.Sessions)
}

// AttachSessionUseCase returns a new AttachSession use case.
func (c *Container) AttachSessionUseCase() *usecase.AttachSession {
	return usecase.NewAttachSession(c.Sessions)
}
