package domain

import "errors"

// Domain errors.
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrProjectNotFound    = errors.New("project not found")
	ErrTaskNotQueued      = errors.New("task is not queued")
	ErrAlreadyDispatched  = errors.New("task is already dispatched")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidMode        = errors.New("invalid dispatch mode")
	ErrProjectPathInvalid = errors.New("project path is not an existing directory")
	ErrSessionRunning     = errors.New("session already running")
	ErrNoSession          = errors.New("no running session")
	ErrNotGitRepository   = errors.New("not a git repository")
	ErrEmptyTitle         = errors.New("title cannot be empty")
	ErrEmptyName          = errors.New("name and path are required")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
	ErrConfigExists       = errors.New("config file already exists")
	ErrNotInitialized     = errors.New("store not initialized")
	ErrDispatchTimeout    = errors.New("dispatch timed out")
	ErrDispatchAborted    = errors.New("dispatch aborted")
	ErrServerUnavailable  = errors.New("crew-board server is not reachable (run 'crew-board serve')")
)
