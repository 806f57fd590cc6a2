package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/runoshun/crew-board/internal/domain"
)

// ScriptWriter renders the script a dispatched session runs.
type ScriptWriter interface {
	// Write renders the session script and returns its path.
	Write(project *domain.Project, task *domain.Task, worktree string, agent domain.AgentConfig) (string, error)

	// Remove deletes the session script of a task. Missing scripts are ignored.
	Remove(taskID string)
}

// Launcher writes session scripts into the data directory.
type Launcher struct {
	dataDir      string
	bin          string // crew-board binary used for the _session-ended callback
	branchPrefix string
	server       string // Server address passed to the callback; empty uses the configured one
}

var _ ScriptWriter = (*Launcher)(nil)

// NewLauncher creates a launcher. An empty bin falls back to the running executable.
func NewLauncher(dataDir, bin, branchPrefix string) *Launcher {
	if bin == "" {
		exe, err := os.Executable()
		if err != nil {
			// Fallback to the PATH lookup
			exe = domain.AppName
		}
		bin = exe
	}
	return &Launcher{dataDir: dataDir, bin: bin, branchPrefix: branchPrefix}
}

// WithServer sets the server address the callback reports to.
func (l *Launcher) WithServer(addr string) *Launcher {
	l.server = addr
	return l
}

// scriptTemplateData holds the data for script template execution.
type scriptTemplateData struct {
	AgentCommand string
	Prompt       string
	Bin          string
	DataDir      string
	Server       string
	ProjectID    string
	TaskID       string
}

// Write renders the session script with the embedded prompt.
func (l *Launcher) Write(project *domain.Project, task *domain.Task, worktree string, agent domain.AgentConfig) (string, error) {
	shortID := task.ShortID()
	command, prompt, err := agent.RenderAgent(domain.CommandData{
		TaskID:      task.ID,
		ShortID:     shortID,
		Title:       task.Title,
		Description: task.Description,
		Mode:        task.Mode,
		Worktree:    worktree,
		Branch:      domain.BranchName(l.branchPrefix, shortID),
		ProjectPath: project.ResolvedPath(),
	})
	if err != nil {
		return "", fmt.Errorf("render agent command: %w", err)
	}

	tmpl := template.Must(template.New("script").Parse(scriptTemplate))
	var script strings.Builder
	if err := tmpl.Execute(&script, scriptTemplateData{
		AgentCommand: command,
		Prompt:       prompt,
		Bin:          l.bin,
		DataDir:      l.dataDir,
		Server:       l.server,
		ProjectID:    project.ID,
		TaskID:       task.ID,
	}); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	path := domain.ScriptPath(l.dataDir, shortID)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create scripts directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(script.String()), 0o700); err != nil { //nolint:gosec // executable script requires execute permission
		return "", fmt.Errorf("write script file: %w", err)
	}
	return path, nil
}

// Remove deletes the session script of a task.
func (l *Launcher) Remove(taskID string) {
	_ = os.Remove(domain.ScriptPath(l.dataDir, domain.ShortID(taskID)))
}

// scriptTemplate is the template for the session script.
// The prompt is embedded using a heredoc to avoid escaping issues.
const scriptTemplate = `#!/bin/bash
set -o pipefail

# Embedded prompt
read -r -d '' PROMPT << 'END_OF_PROMPT'
{{.Prompt}}
END_OF_PROMPT
export PROMPT
export CREW_BOARD_HOME="{{.DataDir}}"

# Callback on session termination
SESSION_ENDED() {
  local code=$?
  "{{.Bin}}"{{if .Server}} --server "{{.Server}}"{{end}} _session-ended {{.ProjectID}} {{.TaskID}} "$code" || true
}

# Signal handling
trap SESSION_ENDED EXIT    # Both normal and abnormal exit
trap 'exit 130' INT        # Ctrl+C -> exit code 130
trap 'exit 143' TERM       # kill -> exit code 143
trap 'exit 129' HUP        # hangup -> exit code 129

# Run agent
{{.AgentCommand}}
`
