package client

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/api"
	"github.com/runoshun/crew-board/internal/domain"
)

// recordedRequest is what the fake server saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

func newTestServer(t *testing.T, status int, response any) (*Client, *recordedRequest) {
	t.Helper()
	got := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*got = recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery, Body: string(body)}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL), got
}

func TestNew_AddressForms(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:7420", New("127.0.0.1:7420").BaseURL)
	assert.Equal(t, "https://board.local", New("https://board.local/").BaseURL)
}

func TestClient_UpdateTask(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, api.UpdateTaskResponse{
		Task:          &domain.Task{ID: "t1", Status: domain.StatusInProgress, Dispatched: true},
		TerminalTabID: "task-t1",
		Transition:    "start",
		Dispatched:    true,
	})

	out, err := c.UpdateTask(context.Background(), "p1", "t1", domain.TaskPatch{Status: domain.Ptr(domain.StatusInProgress)})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, got.Method)
	assert.Equal(t, "/api/projects/p1/tasks/t1", got.Path)
	assert.JSONEq(t, `{"status":"in-progress"}`, got.Body)
	assert.True(t, out.Dispatched)
	assert.Equal(t, "task-t1", out.TerminalTabID)
}

func TestClient_ListTasks_StatusQuery(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, api.TasksResponse{Columns: domain.TaskColumns{
		domain.StatusInProgress: {{ID: "t1", Status: domain.StatusInProgress}},
	}})

	cols, err := c.ListTasks(context.Background(), "p1", domain.StatusInProgress)

	require.NoError(t, err)
	assert.Equal(t, "status=in-progress", got.Query)
	require.Len(t, cols[domain.StatusInProgress], 1)
}

func TestClient_PathEscaping(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, api.SuccessResponse{Success: true})

	require.NoError(t, c.DeleteTask(context.Background(), "p/1", "t 1"))

	assert.Equal(t, "/api/projects/p%2F1/tasks/t%201", got.Path)
}

func TestClient_APIErrorUnwraps(t *testing.T) {
	c, _ := newTestServer(t, http.StatusConflict, api.ErrorResponse{Error: "task is not queued", Code: api.CodeTaskNotQueued})

	_, err := c.DispatchTask(context.Background(), "p1", "t1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTaskNotQueued)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "task is not queued", err.Error())
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	err := New(srv.URL).Health(context.Background())

	assert.ErrorContains(t, err, "status 502")
}

func TestClient_ServerUnavailable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = New(addr).ListProjects(context.Background())

	assert.ErrorIs(t, err, domain.ErrServerUnavailable)
}

func TestClient_TerminalOpen(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, api.TerminalOpen{Open: true})

	open, err := c.SetTerminalOpen(context.Background(), "p1", true)

	require.NoError(t, err)
	assert.True(t, open)
	assert.Equal(t, "/api/projects/p1/terminal-open", got.Path)
	assert.JSONEq(t, `{"open":true}`, got.Body)
}
