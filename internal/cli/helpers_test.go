package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/app"
	"github.com/runoshun/crew-board/internal/infra/config"
	"github.com/runoshun/crew-board/internal/server"
)

// testEnv runs commands against a real server backed by a temporary data directory.
type testEnv struct {
	c       *app.Container
	url     string
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestContainer(t)

	_, err := env.c.OpenStore()
	require.NoError(t, err)
	srv := server.New(env.c.ServerUseCases(), nil, nil, server.Config{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	env.url = ts.URL
	return env
}

// newTestContainer creates a container without a server.
func newTestContainer(t *testing.T) *testEnv {
	t.Helper()
	return newTestContainerAt(t, t.TempDir())
}

// newTestContainerAt creates a container for an existing data directory.
func newTestContainerAt(t *testing.T, dataDir string) *testEnv {
	t.Helper()
	c, err := app.NewWithLoader(dataDir, config.NewLoaderWithGlobalDir(dataDir, ""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return &testEnv{c: c, dataDir: dataDir}
}

// run executes the root command with args and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand(e.c, "test")
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	if e.url != "" {
		args = append([]string{"--server", e.url}, args...)
	}
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// mustRun executes the command and fails the test on error.
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	require.NoError(t, err, "stderr: %s", stderr)
	return out
}

var createdTaskPattern = regexp.MustCompile(`Created task ([0-9a-f]{8}):`)

// createTask creates a task and returns its shortId.
func (e *testEnv) createTask(t *testing.T, project, title string) string {
	t.Helper()
	out := e.mustRun(t, "task", "new", project, "--title", title)
	m := createdTaskPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "unexpected output: %s", out)
	return m[1]
}
