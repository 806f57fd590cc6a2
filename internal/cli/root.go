// Package cli provides the command-line interface for crew-board.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/crew-board/internal/app"
	"github.com/runoshun/crew-board/internal/client"
)

// Command group IDs.
const (
	groupSetup = "setup"
	groupTask  = "task"
	groupRun   = "run"
)

// serverFlag is the persistent flag selecting the server the CLI talks to.
const serverFlag = "server"

// NewRootCommand creates the root command for crew-board.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "crew-board",
		Short: "Kanban task dispatcher for autonomous coding agents",
		Long: `crew-board drives kanban tasks through a pipeline in which an
autonomous coding agent works on each task inside an isolated git worktree
and terminal session.

Moving a task to in-progress queues it. Queued tasks are dispatched as
slots free up, according to the project's dispatch mode. Finished work is
merged back into the project and its worktree is removed after a grace
period.

Run 'crew-board serve' first; the other commands talk to the server.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip for some commands
			if cmd.Name() == "_session-ended" || cmd.Name() == "init" {
				return nil
			}

			// Skip if container is nil (e.g. in tests)
			if c == nil {
				return nil
			}

			for _, w := range c.AppConfig.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
	}

	root.PersistentFlags().String(serverFlag, "", "Server address (default: [server] addr)")

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Commands:"},
		&cobra.Group{ID: groupRun, Title: "Session Commands:"},
	)

	serveCmd := newServeCommand(c)
	serveCmd.GroupID = groupSetup
	projectCmd := newProjectCommand(c)
	projectCmd.GroupID = groupSetup
	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	taskCmd := newTaskCommand(c)
	taskCmd.GroupID = groupTask
	activeCmd := newActiveCommand(c)
	activeCmd.GroupID = groupTask

	peekCmd := newPeekCommand(c)
	peekCmd.GroupID = groupRun
	attachCmd := newAttachCommand(c)
	attachCmd.GroupID = groupRun

	root.AddCommand(
		serveCmd,
		projectCmd,
		configCmd,
		taskCmd,
		activeCmd,
		peekCmd,
		attachCmd,
		newSessionEndedCommand(c),
	)

	return root
}

// apiClient returns a client for the --server address or the configured one.
func apiClient(cmd *cobra.Command, c *app.Container) *client.Client {
	var addr string
	if f := cmd.Flag(serverFlag); f != nil {
		addr = f.Value.String()
	}
	return c.Client(addr)
}
