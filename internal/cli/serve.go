package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/runoshun/crew-board/internal/app"
	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/infra/config"
	"github.com/runoshun/crew-board/internal/infra/metrics"
	"github.com/runoshun/crew-board/internal/server"
	"github.com/runoshun/crew-board/internal/usecase"
)

// newServeCommand creates the serve command.
func newServeCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Addr      string
		Reconcile string
		NoWatch   bool
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dispatch server",
		Long: `Run the HTTP server that owns the task store and the dispatch pipeline.

On start, tasks marked as dispatched are reconciled with the terminal
sessions that are still alive:
  adopt  live sessions are adopted; stale flags are cleared (default)
  reset  every flag is cleared and leftover sessions are killed
Worktrees left behind by done or deleted tasks are scheduled for cleanup,
and every project's queue is processed afterwards.

The configuration files are watched; agent, notify, dispatch and log
settings are applied without a restart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr := opts.Addr
			if addr == "" {
				addr = c.AppConfig.Server.Addr
			}
			strategy := opts.Reconcile
			if strategy == "" {
				strategy = c.AppConfig.Dispatch.Reconcile
			}

			l, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			// Session callbacks must reach this listener
			c.AppConfig.Server.Addr = l.Addr().String()
			return runServe(cmd.Context(), c, l, serveOptions{
				Reconcile: strategy,
				Watch:     !opts.NoWatch,
				Mirror:    cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default: [server] addr)")
	cmd.Flags().StringVar(&opts.Reconcile, "reconcile", "", "Startup reconciliation: adopt or reset (default: [dispatch] reconcile)")
	cmd.Flags().BoolVar(&opts.NoWatch, "no-watch", false, "Do not reload configuration on change")

	return cmd
}

// serveOptions controls runServe.
type serveOptions struct {
	Mirror    io.Writer // Receives a copy of the task log
	Reconcile string
	Watch     bool
}

// runServe opens the store, reconciles, and serves on l until ctx is done.
func runServe(ctx context.Context, c *app.Container, l net.Listener, opts serveOptions) error {
	if _, err := c.OpenStore(); err != nil {
		_ = l.Close()
		return err
	}
	if opts.Mirror != nil {
		c.TaskLog.SetMirror(opts.Mirror)
	}

	out, err := c.ReconcileUseCase().Execute(ctx, usecase.ReconcileInput{Strategy: opts.Reconcile})
	if err != nil {
		_ = l.Close()
		return fmt.Errorf("reconcile: %w", err)
	}
	c.TaskLog.Info("", "serve", fmt.Sprintf("reconciled: adopted=%d reset=%d dispatched=%d orphans=%d",
		out.Result.Adopted, out.Result.Reset, out.Result.Dispatched, out.Result.Orphans))

	srv := server.New(c.ServerUseCases(), metrics.HandlerFor(c.MetricsRegistry), c.Logger, server.Config{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Logger.Info("listening", "addr", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	if opts.Watch {
		g.Go(func() error {
			w := config.NewWatcher(c.ConfigLoader, func(cfg *domain.Config) {
				c.Reload(cfg)
				c.TaskLog.Info("", "config", "reloaded")
				for _, warning := range cfg.Warnings {
					c.TaskLog.Warn("", "config", warning)
				}
			}, func(err error) {
				c.TaskLog.Error("", "config", fmt.Sprintf("reload failed: %v", err))
			})
			return w.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		// The parent context is already done; drain with a fresh one.
		return srv.Shutdown(context.WithoutCancel(gctx))
	})

	return g.Wait()
}
