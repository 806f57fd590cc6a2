package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
)

type reloadRecorder struct {
	configs []*domain.Config
	errs    []error
	mu      sync.Mutex
}

func (r *reloadRecorder) reload(cfg *domain.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
}

func (r *reloadRecorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *reloadRecorder) last() *domain.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.configs) == 0 {
		return nil
	}
	return r.configs[len(r.configs)-1]
}

func (r *reloadRecorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func startWatcher(t *testing.T, dataDir string) *reloadRecorder {
	t.Helper()
	rec := &reloadRecorder{}
	watcher := NewWatcher(NewLoaderWithGlobalDir(dataDir, ""), rec.reload, rec.fail)
	watcher.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	// Give the watcher time to register its directories
	time.Sleep(50 * time.Millisecond)
	return rec
}

func TestWatcher_ReloadsOnCreate(t *testing.T) {
	dataDir := t.TempDir()
	rec := startWatcher(t, dataDir)

	writeConfig(t, dataDir, "[dispatch]\nmax_parallel = 7\n")

	assert.Eventually(t, func() bool {
		cfg := rec.last()
		return cfg != nil && cfg.Dispatch.MaxParallel == 7
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_ReloadsOnRenameReplace(t *testing.T) {
	dataDir := t.TempDir()
	writeConfig(t, dataDir, "[dispatch]\nmax_parallel = 2\n")
	rec := startWatcher(t, dataDir)

	tmp := filepath.Join(dataDir, "config.toml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("[dispatch]\nmax_parallel = 9\n"), 0o644))
	require.NoError(t, os.Rename(tmp, filepath.Join(dataDir, domain.ConfigFileName)))

	assert.Eventually(t, func() bool {
		cfg := rec.last()
		return cfg != nil && cfg.Dispatch.MaxParallel == 9
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dataDir := t.TempDir()
	rec := startWatcher(t, dataDir)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "crew-board.db"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Nil(t, rec.last())
}

func TestWatcher_ReportsLoadErrors(t *testing.T) {
	dataDir := t.TempDir()
	rec := startWatcher(t, dataDir)

	writeConfig(t, dataDir, "[dispatch\n")

	assert.Eventually(t, func() bool { return rec.errCount() > 0 }, 3*time.Second, 20*time.Millisecond)
	assert.Nil(t, rec.last())
}
