package domain

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DispatchMode selects how many tasks of a project may run at once.
type DispatchMode string

const (
	DispatchSequential DispatchMode = "sequential" // At most one dispatched task
	DispatchParallel   DispatchMode = "parallel"   // At most MaxParallel dispatched tasks
)

// IsValid returns true if the mode is a known value.
func (m DispatchMode) IsValid() bool {
	return m == DispatchSequential || m == DispatchParallel
}

// Project represents a registered repository tasks are dispatched into.
// Fields are ordered to minimize memory padding.
type Project struct {
	Created      time.Time    `json:"created" yaml:"created"`                         // Registration time
	ID           string       `json:"id" yaml:"id"`                                   // Project ID (UUID)
	Name         string       `json:"name" yaml:"name"`                               // Display name
	Path         string       `json:"path" yaml:"path"`                               // Repository path as registered (may start with ~)
	ServerURL    string       `json:"serverUrl,omitempty" yaml:"serverUrl,omitempty"` // Optional dev server URL
	DispatchMode DispatchMode `json:"dispatchMode,omitempty" yaml:"dispatchMode,omitempty"`
	MaxParallel  int          `json:"maxParallel,omitempty" yaml:"maxParallel,omitempty"`
	TerminalOpen bool         `json:"terminalOpen" yaml:"terminalOpen"` // UI terminal panel state
}

// ResolvedPath returns the project path with a leading ~ expanded to $HOME.
func (p *Project) ResolvedPath() string {
	return ExpandHome(p.Path)
}

// PathValid returns true if the resolved path is an existing directory.
func (p *Project) PathValid() bool {
	info, err := os.Stat(p.ResolvedPath())
	return err == nil && info.IsDir()
}

// NewProjectFields holds the caller-supplied fields for project registration.
type NewProjectFields struct {
	Name         string
	Path         string
	ServerURL    string
	DispatchMode DispatchMode
	MaxParallel  int
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := os.Getenv("HOME")
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return path
		}
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
