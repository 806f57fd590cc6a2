package usecase

import (
	"testing"
	"time"

	"github.com/runoshun/crew-board/internal/dispatch"
	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/testutil"
)

const (
	testTaskA = "aaaaaaaa-0000-4000-8000-000000000001"
	testTaskB = "bbbbbbbb-0000-4000-8000-000000000002"
)

type testEnv struct {
	store     *testutil.MockStore
	worktrees *testutil.MockWorktreeManager
	sessions  *testutil.MockSessionManager
	logger    *testutil.MockLogger
	orch      *dispatch.Orchestrator
	project   *domain.Project
}

// newTestEnv wires a real orchestrator to in-memory doubles.
// The project path is a temp dir so dispatch considers it valid.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := domain.NewDefaultConfig()
	cfg.Dispatch.CleanupGrace = domain.Duration(time.Hour)
	cfg.Dispatch.Timeout = domain.Duration(time.Second)

	env := &testEnv{
		store:     testutil.NewMockStore(),
		worktrees: testutil.NewMockWorktreeManager(),
		sessions:  testutil.NewMockSessionManager(),
		logger:    &testutil.MockLogger{},
	}
	env.project = env.store.AddProject("proj-1", t.TempDir())
	env.orch = dispatch.New(dispatch.Options{
		Tasks:     env.store,
		Projects:  env.store,
		Worktrees: env.worktrees,
		Sessions:  env.sessions,
		Notifier:  &testutil.MockNotifier{},
		Logger:    env.logger,
		Scripts:   &testutil.MockScriptWriter{},
		Config:    cfg,
	})
	t.Cleanup(env.orch.Close)
	return env
}
