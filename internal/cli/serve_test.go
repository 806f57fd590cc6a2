package cli

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/client"
	"github.com/runoshun/crew-board/internal/domain"
)

func TestRunServe(t *testing.T) {
	env := newTestContainer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, env.c, l, serveOptions{Reconcile: domain.ReconcileAdopt, Watch: true})
	}()

	cl := client.New(l.Addr().String())
	require.Eventually(t, func() bool {
		return cl.Health(context.Background()) == nil
	}, 5*time.Second, 20*time.Millisecond)

	out, err := cl.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Projects)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestRunServe_UnknownReconcileStrategy(t *testing.T) {
	env := newTestContainer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = runServe(context.Background(), env.c, l, serveOptions{Reconcile: "merge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown reconcile strategy")
}
