package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runoshun/crew-board/internal/api"
	"github.com/runoshun/crew-board/internal/app"
	"github.com/runoshun/crew-board/internal/domain"
)

// newTaskCommand creates the task command.
func newTaskCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage tasks",
		Long: `Create tasks and move them across the board.

Projects are referenced by name, ID or ID prefix. Tasks are referenced
by ID or ID prefix (the 8-character shortId is shown by 'task list').`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(newTaskNewCommand(c))
	cmd.AddCommand(newTaskListCommand(c))
	cmd.AddCommand(newTaskShowCommand(c))
	cmd.AddCommand(newTaskEditCommand(c))
	cmd.AddCommand(newTaskMoveCommand(c))
	cmd.AddCommand(newTaskDispatchCommand(c))
	cmd.AddCommand(newTaskDeleteCommand(c))

	return cmd
}

// newTaskNewCommand creates the task new subcommand.
func newTaskNewCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title       string
		Description string
		Mode        string
	}

	cmd := &cobra.Command{
		Use:   "new <project>",
		Short: "Create a new task",
		Long: `Create a new task in the todo column.

The description becomes the agent's prompt body. The mode is passed to
the [agent] command template as {{.Mode}}.

Examples:
  crew-board task new web --title "Fix login redirect"

  # Description with HEREDOC
  crew-board task new web --title "Add rate limit" --body "$(cat <<'EOF'
Limit /api/login to 5 requests per minute per IP.
EOF
)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := apiClient(cmd, c)
			projectID, err := resolveProject(cmd.Context(), cl, args[0])
			if err != nil {
				return err
			}
			task, err := cl.CreateTask(cmd.Context(), projectID, api.CreateTaskRequest{
				Title:       opts.Title,
				Description: opts.Description,
				Mode:        opts.Mode,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", task.ShortID(), task.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&opts.Description, "body", "", "Task description")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Agent mode")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// newTaskListCommand creates the task list subcommand.
func newTaskListCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Status string
		Format string
	}

	cmd := &cobra.Command{
		Use:     "list <project>",
		Aliases: []string{"ls"},
		Short:   "List a project's tasks by column",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.Format); err != nil {
				return err
			}
			cl := apiClient(cmd, c)
			projectID, err := resolveProject(cmd.Context(), cl, args[0])
			if err != nil {
				return err
			}
			cols, err := cl.ListTasks(cmd.Context(), projectID, domain.Status(opts.Status))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.Format == formatYAML {
				return writeYAML(w, cols)
			}
			return printColumns(w, cols, styled(w))
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Only this column: todo, in-progress, verify or done")
	cmd.Flags().StringVarP(&opts.Format, "output", "o", formatTable, "Output format: table or yaml")

	return cmd
}

// printColumns prints every non-empty column as a table under a header.
func printColumns(w io.Writer, cols domain.TaskColumns, color bool) error {
	printed := false
	for _, status := range domain.AllStatuses() {
		tasks := cols[status]
		if len(tasks) == 0 {
			continue
		}
		if printed {
			_, _ = fmt.Fprintln(w)
		}
		printed = true

		_, _ = fmt.Fprintln(w, paint(color, headerStyle, fmt.Sprintf("%s (%d)", status.Display(), len(tasks))))
		rows := make([][]string, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, []string{t.ShortID(), taskState(t), orDash(t.Mode), oneLine(t.Title)})
		}
		if err := writeTable(w, false, []string{"ID", "STATE", "MODE", "TITLE"}, rows); err != nil {
			return err
		}
	}
	if !printed {
		_, _ = fmt.Fprintln(w, "No tasks found.")
	}
	return nil
}

// taskState summarizes the dispatch flags of a task.
func taskState(t *domain.Task) string {
	switch {
	case t.IsQueued():
		return "queued"
	case t.Status == domain.StatusInProgress && t.Dispatched:
		return "dispatched"
	case t.Locked:
		return "locked"
	default:
		return "-"
	}
}

// oneLine collapses newlines and tabs so a value fits in a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// newTaskShowCommand creates the task show subcommand.
func newTaskShowCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <project> <task>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			cl := apiClient(cmd, c)
			projectID, taskID, err := resolveTaskRef(cmd.Context(), cl, args[0], args[1])
			if err != nil {
				return err
			}
			out, err := cl.GetTask(cmd.Context(), projectID, taskID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format == formatYAML {
				return writeYAML(w, out)
			}
			printTask(w, out.Task, out.Session, styled(w))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table or yaml")

	return cmd
}

// printTask prints a task with its session in a human-readable form.
func printTask(w io.Writer, t *domain.Task, session *domain.SessionHandle, color bool) {
	label := func(s string) string { return paint(color, dimStyle, s) }

	_, _ = fmt.Fprintf(w, "%s %s\n", paint(color, headerStyle, t.ShortID()), t.Title)
	_, _ = fmt.Fprintf(w, "%s %s\n", label("ID:     "), t.ID)
	_, _ = fmt.Fprintf(w, "%s %s\n", label("Status: "), t.Status.Display())
	_, _ = fmt.Fprintf(w, "%s %s\n", label("State:  "), taskState(t))
	if t.Mode != "" {
		_, _ = fmt.Fprintf(w, "%s %s\n", label("Mode:   "), t.Mode)
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", label("Created:"), t.Created.Local().Format(time.DateTime))
	_, _ = fmt.Fprintf(w, "%s %s\n", label("Updated:"), t.Updated.Local().Format(time.DateTime))
	if session != nil {
		_, _ = fmt.Fprintf(w, "%s %s in %s (since %s)\n", label("Session:"),
			paint(color, okStyle, session.TabID), session.Dir, session.Started.Local().Format(time.DateTime))
	}

	sections := []struct {
		title string
		body  string
	}{
		{"Description", t.Description},
		{"Findings", t.Findings},
		{"Human steps", t.HumanSteps},
		{"Agent log", t.AgentLog},
	}
	for _, s := range sections {
		if s.body == "" {
			continue
		}
		_, _ = fmt.Fprintf(w, "\n%s\n%s\n", paint(color, headerStyle, s.title), strings.TrimRight(s.body, "\n"))
	}
}

// newTaskEditCommand creates the task edit subcommand.
func newTaskEditCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title       string
		Description string
		Mode        string
		HumanSteps  string
		AgentLog    string
	}

	cmd := &cobra.Command{
		Use:   "edit <project> <task>",
		Short: "Edit task fields",
		Long: `Edit task fields without changing its status.

Only the flags given are changed. Use 'task move' to change the status.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &opts.Title
			}
			if flags.Changed("body") {
				patch.Description = &opts.Description
			}
			if flags.Changed("mode") {
				patch.Mode = &opts.Mode
			}
			if flags.Changed("human-steps") {
				patch.HumanSteps = &opts.HumanSteps
			}
			if flags.Changed("agent-log") {
				patch.AgentLog = &opts.AgentLog
			}
			if patch.IsEmpty() {
				return domain.ErrNoFieldsToUpdate
			}

			cl := apiClient(cmd, c)
			projectID, taskID, err := resolveTaskRef(cmd.Context(), cl, args[0], args[1])
			if err != nil {
				return err
			}
			out, err := cl.UpdateTask(cmd.Context(), projectID, taskID, patch)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", out.Task.ShortID())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "New title")
	cmd.Flags().StringVar(&opts.Description, "body", "", "New description")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "New agent mode")
	cmd.Flags().StringVar(&opts.HumanSteps, "human-steps", "", "Steps left for a human")
	cmd.Flags().StringVar(&opts.AgentLog, "agent-log", "", "Agent log")

	return cmd
}

// newTaskMoveCommand creates the task move subcommand.
func newTaskMoveCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <project> <task> <status>",
		Short: "Move a task to another column",
		Long: `Move a task to another column and run the side effects of the move.

  todo         abort any running session and reset the task
  in-progress  queue the task; it is dispatched when a slot is free
  verify       merge the task branch and stop the session
  done         merge (from in-progress) and schedule worktree cleanup

A merge conflict does not fail the move; it is recorded in the task's
findings and printed here.`,
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{"todo", "in-progress", "verify", "done"},
		RunE: func(cmd *cobra.Command, args []string) error {
			status := domain.Status(args[2])
			if !status.IsValid() {
				return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, args[2])
			}

			cl := apiClient(cmd, c)
			projectID, taskID, err := resolveTaskRef(cmd.Context(), cl, args[0], args[1])
			if err != nil {
				return err
			}
			out, err := cl.UpdateTask(cmd.Context(), projectID, taskID, domain.TaskPatch{Status: &status})
			if err != nil {
				return err
			}

			printMove(cmd.OutOrStdout(), cmd.ErrOrStderr(), out)
			return nil
		},
	}
	return cmd
}

// printMove reports the outcome of a status change.
func printMove(w, errw io.Writer, out *api.UpdateTaskResponse) {
	_, _ = fmt.Fprintf(w, "Moved task %s to %s\n", out.Task.ShortID(), out.Task.Status)
	if out.Merge != nil {
		if out.Merge.Merged {
			_, _ = fmt.Fprintln(w, "Merged task branch")
		} else if out.Merge.ConflictMsg != "" {
			_, _ = fmt.Fprintf(errw, "Merge failed: %s\n", out.Merge.ConflictMsg)
		}
	}
	switch {
	case out.Dispatched:
		_, _ = fmt.Fprintf(w, "Dispatched in session %s\n", out.TerminalTabID)
	case out.DispatchError != "":
		_, _ = fmt.Fprintf(errw, "Dispatch failed: %s\n", out.DispatchError)
	case out.Task.IsQueued():
		_, _ = fmt.Fprintln(w, "Queued; waiting for a free slot")
	}
}

// newTaskDispatchCommand creates the task dispatch subcommand.
func newTaskDispatchCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch <project> <task>",
		Short: "Dispatch a queued task now",
		Long: `Dispatch a queued in-progress task immediately, ignoring the
project's slot limit.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := apiClient(cmd, c)
			projectID, taskID, err := resolveTaskRef(cmd.Context(), cl, args[0], args[1])
			if err != nil {
				return err
			}
			session, err := cl.DispatchTask(cmd.Context(), projectID, taskID)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dispatched task %s in session %s (%s)\n",
				domain.ShortID(taskID), session.TabID, session.Dir)
			return nil
		},
	}
	return cmd
}

// newTaskDeleteCommand creates the task delete subcommand.
func newTaskDeleteCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <project> <task>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Long: `Delete a task. A running session is aborted and the task's worktree
and session script are removed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := apiClient(cmd, c)
			projectID, taskID, err := resolveTaskRef(cmd.Context(), cl, args[0], args[1])
			if err != nil {
				return err
			}
			if err := cl.DeleteTask(cmd.Context(), projectID, taskID); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", domain.ShortID(taskID))
			return nil
		},
	}
	return cmd
}
