// Package client is the HTTP client the CLI uses to talk to a running server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/runoshun/crew-board/internal/api"
	"github.com/runoshun/crew-board/internal/domain"
)

// DefaultTimeout bounds a single request. Transitions merge synchronously,
// so it is longer than a typical API call.
const DefaultTimeout = 2 * time.Minute

// Client is the crew-board API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the server listening on addr (host:port or URL).
func New(addr string) *Client {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		BaseURL:    strings.TrimRight(base, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// APIError is a non-2xx response. It unwraps to the matching domain error.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap returns the domain error behind the code, if any.
func (e *APIError) Unwrap() error {
	return api.ErrorForCode(e.Code)
}

// do performs a request and decodes a JSON response into target.
func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w: %s", domain.ErrServerUnavailable, c.BaseURL)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return parseResponse(resp, target)
}

// parseResponse decodes the body into target, or the error body into an APIError.
func parseResponse(resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		var errResp api.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return &APIError{Status: resp.StatusCode, Code: errResp.Code, Message: errResp.Error}
		}
		return &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func taskPath(projectID, taskID string) string {
	return "/api/projects/" + url.PathEscape(projectID) + "/tasks/" + url.PathEscape(taskID)
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// ListProjects returns all projects.
func (c *Client) ListProjects(ctx context.Context) (*api.ProjectsResponse, error) {
	var out api.ProjectsResponse
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject registers a project.
func (c *Client) CreateProject(ctx context.Context, req api.CreateProjectRequest) (*domain.Project, error) {
	var out api.ProjectResponse
	if err := c.do(ctx, http.MethodPost, "/api/projects", req, &out); err != nil {
		return nil, err
	}
	return out.Project, nil
}

// ListTasks returns a project's tasks by status. An empty status returns every column.
func (c *Client) ListTasks(ctx context.Context, projectID string, status domain.Status) (domain.TaskColumns, error) {
	path := "/api/projects/" + url.PathEscape(projectID) + "/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out api.TasksResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

// CreateTask creates a task in todo.
func (c *Client) CreateTask(ctx context.Context, projectID string, req api.CreateTaskRequest) (*domain.Task, error) {
	var out api.TaskResponse
	if err := c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(projectID)+"/tasks", req, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

// GetTask returns a task and its live session.
func (c *Client) GetTask(ctx context.Context, projectID, taskID string) (*api.TaskResponse, error) {
	var out api.TaskResponse
	if err := c.do(ctx, http.MethodGet, taskPath(projectID, taskID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask applies a partial update, running any transition it implies.
func (c *Client) UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (*api.UpdateTaskResponse, error) {
	var out api.UpdateTaskResponse
	if err := c.do(ctx, http.MethodPatch, taskPath(projectID, taskID), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	return c.do(ctx, http.MethodDelete, taskPath(projectID, taskID), nil, nil)
}

// DispatchTask dispatches a queued task now.
func (c *Client) DispatchTask(ctx context.Context, projectID, taskID string) (domain.SessionHandle, error) {
	var out api.DispatchResponse
	if err := c.do(ctx, http.MethodPost, taskPath(projectID, taskID)+"/dispatch", nil, &out); err != nil {
		return domain.SessionHandle{}, err
	}
	return out.Session, nil
}

// SessionEnded reports that a task's session exited.
func (c *Client) SessionEnded(ctx context.Context, projectID, taskID string) (bool, error) {
	var out api.SessionEndedResponse
	if err := c.do(ctx, http.MethodPost, taskPath(projectID, taskID)+"/session-ended", nil, &out); err != nil {
		return false, err
	}
	return out.Released, nil
}

// GetTerminalOpen returns the terminal panel flag of a project.
func (c *Client) GetTerminalOpen(ctx context.Context, projectID string) (bool, error) {
	var out api.TerminalOpen
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(projectID)+"/terminal-open", nil, &out); err != nil {
		return false, err
	}
	return out.Open, nil
}

// SetTerminalOpen stores the terminal panel flag of a project.
func (c *Client) SetTerminalOpen(ctx context.Context, projectID string, open bool) (bool, error) {
	var out api.TerminalOpen
	if err := c.do(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(projectID)+"/terminal-open", api.TerminalOpen{Open: open}, &out); err != nil {
		return false, err
	}
	return out.Open, nil
}

// ListActiveTasks returns every in-progress task across projects.
func (c *Client) ListActiveTasks(ctx context.Context) (*api.ActiveTasksResponse, error) {
	var out api.ActiveTasksResponse
	if err := c.do(ctx, http.MethodGet, "/api/agent/tasks", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
