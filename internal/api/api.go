// Package api defines the JSON wire format shared by the HTTP server and client.
package api

import (
	"errors"
	"net/http"

	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/usecase"
)

// Error codes carried in ErrorResponse.
const (
	CodeTaskNotFound      = "TASK_NOT_FOUND"
	CodeProjectNotFound   = "PROJECT_NOT_FOUND"
	CodeNoSession         = "NO_SESSION"
	CodeTaskNotQueued     = "TASK_NOT_QUEUED"
	CodeAlreadyDispatched = "ALREADY_DISPATCHED"
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidMode       = "INVALID_MODE"
	CodeEmptyTitle        = "EMPTY_TITLE"
	CodeEmptyName         = "EMPTY_NAME"
	CodeNoFields          = "NO_FIELDS_TO_UPDATE"
	CodePathInvalid       = "PROJECT_PATH_INVALID"
	CodeNotGitRepository  = "NOT_GIT_REPOSITORY"
	CodeDispatchTimeout   = "DISPATCH_TIMEOUT"
	CodeInvalidJSON       = "INVALID_JSON"
	CodeInternal          = "INTERNAL"
)

// errorCodes maps domain errors to their code and HTTP status.
var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrTaskNotFound, CodeTaskNotFound, http.StatusNotFound},
	{domain.ErrProjectNotFound, CodeProjectNotFound, http.StatusNotFound},
	{domain.ErrNoSession, CodeNoSession, http.StatusNotFound},
	{domain.ErrTaskNotQueued, CodeTaskNotQueued, http.StatusConflict},
	{domain.ErrAlreadyDispatched, CodeAlreadyDispatched, http.StatusConflict},
	{domain.ErrInvalidStatus, CodeInvalidStatus, http.StatusBadRequest},
	{domain.ErrInvalidMode, CodeInvalidMode, http.StatusBadRequest},
	{domain.ErrEmptyTitle, CodeEmptyTitle, http.StatusBadRequest},
	{domain.ErrEmptyName, CodeEmptyName, http.StatusBadRequest},
	{domain.ErrNoFieldsToUpdate, CodeNoFields, http.StatusBadRequest},
	{domain.ErrProjectPathInvalid, CodePathInvalid, http.StatusBadRequest},
	{domain.ErrNotGitRepository, CodeNotGitRepository, http.StatusBadRequest},
	{domain.ErrDispatchTimeout, CodeDispatchTimeout, http.StatusGatewayTimeout},
}

// Classify returns the HTTP status and code for err.
func Classify(err error) (status int, code string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// ErrorForCode returns the domain error behind code, or nil if the code is unknown.
func ErrorForCode(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Name         string              `json:"name"`
	Path         string              `json:"path"`
	ServerURL    string              `json:"serverUrl,omitempty"`
	DispatchMode domain.DispatchMode `json:"dispatchMode,omitempty"`
	MaxParallel  int                 `json:"maxParallel,omitempty"`
}

// ProjectResponse wraps a single project.
type ProjectResponse struct {
	Project *domain.Project `json:"project"`
}

// ProjectsResponse is the body of GET /api/projects.
type ProjectsResponse struct {
	Projects []usecase.ProjectView `json:"projects"`
}

// CreateTaskRequest is the body of POST /api/projects/{id}/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Mode        string `json:"mode,omitempty"`
}

// TasksResponse is the body of GET /api/projects/{id}/tasks.
type TasksResponse struct {
	Columns domain.TaskColumns `json:"columns"`
}

// TaskResponse wraps a task and its live session.
type TaskResponse struct {
	Task    *domain.Task          `json:"task"`
	Session *domain.SessionHandle `json:"session,omitempty"`
}

// UpdateTaskResponse is the body of PATCH /api/projects/{id}/tasks/{taskId}.
// Fields are ordered to minimize memory padding.
type UpdateTaskResponse struct {
	Task          *domain.Task        `json:"task"`
	Merge         *domain.MergeResult `json:"merge,omitempty"`
	DispatchError string              `json:"dispatchError,omitempty"`
	TerminalTabID string              `json:"terminalTabId,omitempty"`
	Transition    string              `json:"transition"`
	Dispatched    bool                `json:"dispatched"`
}

// DispatchResponse is the body of POST .../dispatch.
type DispatchResponse struct {
	Session domain.SessionHandle `json:"session"`
}

// SessionEndedResponse is the body of POST .../session-ended.
type SessionEndedResponse struct {
	Released bool `json:"released"`
}

// TerminalOpen is the request and response body of /api/projects/{id}/terminal-open.
type TerminalOpen struct {
	Open bool `json:"open"`
}

// ActiveTasksResponse is the body of GET /api/agent/tasks.
type ActiveTasksResponse struct {
	Tasks []usecase.ActiveTask `json:"tasks"`
}

// SuccessResponse acknowledges an operation without a result.
type SuccessResponse struct {
	Success bool `json:"success"`
}
