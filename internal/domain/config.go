package domain

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// ConfigTemplate returns the commented config file written by `config init`.
func ConfigTemplate() string {
	return configTemplateContent
}

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings []string       `toml:"-"`
	Notify   NotifyConfig   `toml:"notify"`
	Agent    AgentConfig    `toml:"agent"`
	Server   ServerConfig   `toml:"server"`
	Store    StoreConfig    `toml:"store"`
	Worktree WorktreeConfig `toml:"worktree"`
	Log      LogConfig      `toml:"log"`
	Dispatch DispatchConfig `toml:"dispatch"`
}

// ServerConfig holds settings from the [server] section.
type ServerConfig struct {
	Addr string `toml:"addr,omitempty"` // Listen address of `serve` and target of the CLI client
}

// StoreConfig holds settings from the [store] section.
type StoreConfig struct {
	Driver string `toml:"driver,omitempty"` // "sqlite" (default) or "json"
	Path   string `toml:"path,omitempty"`   // Store file (default: <dataDir>/crew-board.db or board.json)
}

// Store drivers.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverJSON   = "json"
)

// DispatchConfig holds settings from the [dispatch] section.
// Fields are ordered to minimize memory padding.
type DispatchConfig struct {
	Mode         DispatchMode `toml:"mode,omitempty"`          // Default project mode: sequential or parallel
	Reconcile    string       `toml:"reconcile,omitempty"`     // Startup reconciliation: adopt or reset
	Timeout      Duration     `toml:"timeout,omitempty"`       // Bound for dispatch/merge/spawn calls
	CleanupGrace Duration     `toml:"cleanup_grace,omitempty"` // Delay before a finished worktree is removed
	MaxParallel  int          `toml:"max_parallel,omitempty"`  // Default slot count for parallel projects
}

// Reconciliation strategies.
const (
	ReconcileAdopt = "adopt" // Adopt live sessions into the registry
	ReconcileReset = "reset" // Reset every dispatched flag and kill leftovers
)

// AgentConfig holds settings from the [agent] section.
type AgentConfig struct {
	Command string `toml:"command,omitempty"` // Command template run in the session
	Prompt  string `toml:"prompt,omitempty"`  // Prompt template
}

// WorktreeConfig holds settings from the [worktree] section.
type WorktreeConfig struct {
	Dir          string `toml:"dir,omitempty"`           // Worktree directory (default: <dataDir>/worktrees)
	BranchPrefix string `toml:"branch_prefix,omitempty"` // Branch prefix (default: crew/)
}

// NotifyConfig holds settings from the [notify] section.
type NotifyConfig struct {
	Command string   `toml:"command,omitempty"` // Executable; empty disables notifications
	Args    []string `toml:"args,omitempty"`    // Arguments; {{.Message}} is expanded
	Timeout Duration `toml:"timeout,omitempty"` // Bound for one notification
}

// LogConfig holds settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // Log level: debug, info, warn, error
}

// Log levels accepted by [log] level.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// IsValidLogLevel returns true if level is a known log level.
func IsValidLogLevel(level string) bool {
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// Default configuration values.
const (
	DefaultServerAddr    = "127.0.0.1:4317"
	DefaultStoreDriver   = StoreDriverSQLite
	DefaultBranchPrefix  = "crew/"
	DefaultLogLevel      = LogLevelInfo
	DefaultMaxParallel   = 3
	DefaultTimeout       = 60 * time.Second
	DefaultCleanupGrace  = 10 * time.Minute
	DefaultNotifyTimeout = 10 * time.Second

	DefaultAgentCommand = `claude --dangerously-skip-permissions "$PROMPT"`
	DefaultAgentPrompt  = `You are working on the task "{{.Title}}" in the git worktree {{.Worktree}}.
{{if .Description}}
{{.Description}}
{{end}}{{if .Mode}}
Mode: {{.Mode}}
{{end}}
Commit your work on the current branch when you are finished.`
)

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: DefaultServerAddr},
		Store:  StoreConfig{Driver: DefaultStoreDriver},
		Dispatch: DispatchConfig{
			Mode:         DispatchSequential,
			MaxParallel:  DefaultMaxParallel,
			Timeout:      Duration(DefaultTimeout),
			CleanupGrace: Duration(DefaultCleanupGrace),
			Reconcile:    ReconcileAdopt,
		},
		Agent: AgentConfig{
			Command: DefaultAgentCommand,
			Prompt:  DefaultAgentPrompt,
		},
		Worktree: WorktreeConfig{BranchPrefix: DefaultBranchPrefix},
		Notify:   NotifyConfig{Timeout: Duration(DefaultNotifyTimeout)},
		Log:      LogConfig{Level: DefaultLogLevel},
	}
}

// Policy returns the concurrency policy of a project.
// Project settings override the configured defaults.
func (c *DispatchConfig) Policy(p *Project) (mode DispatchMode, slots int) {
	mode = c.Mode
	if p != nil && p.DispatchMode.IsValid() {
		mode = p.DispatchMode
	}
	if mode != DispatchParallel {
		return DispatchSequential, 1
	}
	slots = c.MaxParallel
	if p != nil && p.MaxParallel > 0 {
		slots = p.MaxParallel
	}
	if slots < 1 {
		slots = 1
	}
	return DispatchParallel, slots
}

// Duration is a time.Duration that reads and writes TOML strings like "10m".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// CommandData holds data for rendering agent commands and prompts.
type CommandData struct {
	TaskID      string
	ShortID     string
	Title       string
	Description string
	Mode        string
	Worktree    string // Worktree path the session runs in
	Branch      string
	ProjectPath string
	Prompt      string // Rendered prompt (only available to the command template)
}

// RenderAgent renders the prompt and command templates of the agent config.
func (a AgentConfig) RenderAgent(data CommandData) (command, prompt string, err error) {
	promptTmpl := a.Prompt
	if promptTmpl == "" {
		promptTmpl = DefaultAgentPrompt
	}
	prompt, err = expandString(promptTmpl, data)
	if err != nil {
		return "", "", fmt.Errorf("render prompt: %w", err)
	}

	cmdTmpl := a.Command
	if cmdTmpl == "" {
		cmdTmpl = DefaultAgentCommand
	}
	data.Prompt = prompt
	command, err = expandString(cmdTmpl, data)
	if err != nil {
		return "", "", fmt.Errorf("render command: %w", err)
	}
	return strings.TrimSpace(command), strings.TrimSpace(prompt), nil
}

// expandString executes a text/template against data.
func expandString(s string, data CommandData) (string, error) {
	tmpl, err := template.New("agent").Parse(s)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
