package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/runoshun/crew-board/internal/api"
	"github.com/runoshun/crew-board/internal/app"
	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/usecase"
)

// newProjectCommand creates the project command.
func newProjectCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
		Long:    `Register repositories as projects and inspect them.`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(newProjectAddCommand(c))
	cmd.AddCommand(newProjectListCommand(c))
	cmd.AddCommand(newProjectTerminalCommand(c))

	return cmd
}

// newProjectAddCommand creates the project add subcommand.
func newProjectAddCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Name        string
		ServerURL   string
		Mode        string
		MaxParallel int
	}

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a repository as a project",
		Long: `Register a git repository as a project.

The path may start with ~. The name defaults to the last path element.

Examples:
  # Register with sequential dispatch (one agent at a time)
  crew-board project add ~/src/web

  # Allow three agents to run at once
  crew-board project add ~/src/api --name api --mode parallel --max-parallel 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := opts.Name
			if name == "" {
				name = filepath.Base(domain.ExpandHome(args[0]))
			}
			project, err := apiClient(cmd, c).CreateProject(cmd.Context(), api.CreateProjectRequest{
				Name:         name,
				Path:         args[0],
				ServerURL:    opts.ServerURL,
				DispatchMode: domain.DispatchMode(opts.Mode),
				MaxParallel:  opts.MaxParallel,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered project %s (%s)\n", project.Name, project.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Display name (default: directory name)")
	cmd.Flags().StringVar(&opts.ServerURL, "server-url", "", "Dev server URL shown on the board")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Dispatch mode: sequential or parallel (default: [dispatch] mode)")
	cmd.Flags().IntVar(&opts.MaxParallel, "max-parallel", 0, "Slots for parallel mode (default: [dispatch] max_parallel)")

	return cmd
}

// newProjectListCommand creates the project list subcommand.
func newProjectListCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			out, err := apiClient(cmd, c).ListProjects(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format == formatYAML {
				return writeYAML(w, out.Projects)
			}
			return printProjects(w, out.Projects, styled(w))
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table or yaml")

	return cmd
}

// printProjects prints projects as a table.
func printProjects(w io.Writer, projects []usecase.ProjectView, color bool) error {
	if len(projects) == 0 {
		_, _ = fmt.Fprintln(w, "No projects registered.")
		return nil
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		mode := string(p.DispatchMode)
		if p.DispatchMode == domain.DispatchParallel && p.MaxParallel > 0 {
			mode = fmt.Sprintf("%s(%d)", mode, p.MaxParallel)
		}
		path := p.Path
		if !p.PathValid {
			path += " (missing)"
		}
		rows = append(rows, []string{domain.ShortID(p.ID), p.Name, orDash(mode), orDash(p.Branch), path})
	}
	return writeTable(w, color, []string{"ID", "NAME", "MODE", "BRANCH", "PATH"}, rows)
}

// newProjectTerminalCommand creates the project terminal subcommand.
func newProjectTerminalCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terminal <project> [open|closed]",
		Short: "Show or set the terminal panel state",
		Long: `Show or set whether the board keeps the project's terminal panel open.

Without a state argument the current state is printed.`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"open", "closed"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := apiClient(cmd, c)
			projectID, err := resolveProject(cmd.Context(), cl, args[0])
			if err != nil {
				return err
			}
			var open bool
			if len(args) == 1 {
				open, err = cl.GetTerminalOpen(cmd.Context(), projectID)
			} else {
				switch args[1] {
				case "open":
					open, err = cl.SetTerminalOpen(cmd.Context(), projectID, true)
				case "closed":
					open, err = cl.SetTerminalOpen(cmd.Context(), projectID, false)
				default:
					return fmt.Errorf("invalid state %q (use open or closed)", args[1])
				}
			}
			if err != nil {
				return err
			}

			state := "closed"
			if open {
				state = "open"
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		},
	}
	return cmd
}
