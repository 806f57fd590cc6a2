package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runoshun/crew-board/internal/app"
	"github.com/runoshun/crew-board/internal/usecase"
)

// sessionEndedTimeout bounds the exit-trap report so a dead server never
// holds the terminal open.
const sessionEndedTimeout = 10 * time.Second

// newPeekCommand creates the peek command.
func newPeekCommand(c *app.Container) *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "peek <task>",
		Short: "Show the last lines of a task's session",
		Long: `Show the last lines of the terminal session a task runs in.

The task is referenced by ID or shortId. The session is read directly from
the local tmux server; the crew-board server is not contacted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.PeekSessionUseCase().Execute(cmd.Context(), usecase.PeekSessionInput{
				TaskID: args[0],
				Lines:  lines,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", usecase.DefaultPeekLines, "Number of lines")

	return cmd
}

// newAttachCommand creates the attach command.
func newAttachCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach <task>",
		Short: "Attach to a task's session",
		Long: `Attach the terminal to the session a task runs in.

Detach with the tmux prefix key followed by d. The session keeps running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.AttachSessionUseCase().Execute(cmd.Context(), usecase.AttachSessionInput{TaskID: args[0]})
			return err
		},
	}
	return cmd
}

// newSessionEndedCommand creates the hidden _session-ended command.
// The session script's EXIT trap runs it.
func newSessionEndedCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "_session-ended <project-id> <task-id> [exit-code]",
		Short:  "Report that a task's session exited (internal)",
		Hidden: true,
		Args:   cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, taskID := args[0], args[1]
			code := "-"
			if len(args) == 3 {
				code = args[2]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), sessionEndedTimeout)
			defer cancel()

			released, err := apiClient(cmd, c).SessionEnded(ctx, projectID, taskID)
			if err != nil {
				// The trap must not fail the agent's shell; the next
				// reconciliation clears the record instead.
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "crew-board: could not report session end: %v\n", err)
				return nil
			}
			c.TaskLog.Info(taskID, "session", fmt.Sprintf("exited (code %s, released=%t)", code, released))
			return nil
		},
	}
	return cmd
}
