package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/runoshun/crew-board/internal/app"
	"github.com/runoshun/crew-board/internal/usecase"
)

// newActiveCommand creates the active command.
func newActiveCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "active",
		Short: "List in-progress tasks across all projects",
		Long: `List every in-progress task across all projects.

RUNNING is yes when a terminal session is registered for the task.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			out, err := apiClient(cmd, c).ListActiveTasks(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format == formatYAML {
				return writeYAML(w, out.Tasks)
			}
			return printActive(w, out.Tasks, styled(w))
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table or yaml")

	return cmd
}

// printActive prints the agent overview as a table.
func printActive(w io.Writer, tasks []usecase.ActiveTask, color bool) error {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, "No active tasks.")
		return nil
	}

	rows := make([][]string, 0, len(tasks))
	for _, a := range tasks {
		running, session := "no", "-"
		if a.Running {
			running = "yes"
		}
		if a.Session != nil {
			session = a.Session.TabID
		}
		rows = append(rows, []string{a.Task.ShortID(), a.ProjectName, taskState(a.Task), running, session, oneLine(a.Task.Title)})
	}
	return writeTable(w, color, []string{"ID", "PROJECT", "STATE", "RUNNING", "SESSION", "TITLE"}, rows)
}
