package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/runoshun/crew-board/internal/domain"
)

// Ensure Manager implements domain.ConfigManager.
var _ domain.ConfigManager = (*Manager)(nil)

// Manager writes the commented config template to one config file.
type Manager struct {
	path string // Config file Init writes to
}

// NewManager creates a Manager for the config file in the data directory.
func NewManager(dataDir string) *Manager {
	return &Manager{path: domain.DataConfigPath(dataDir)}
}

// NewGlobalManager creates a Manager for the global config file.
func NewGlobalManager() *Manager {
	dir := defaultGlobalConfigDir()
	if dir == "" {
		return &Manager{}
	}
	return &Manager{path: filepath.Join(dir, domain.ConfigFileName)}
}

// Path returns the path Init writes to.
func (m *Manager) Path() string {
	return m.path
}

// Init creates the config file from the default template.
// An existing file is never overwritten.
func (m *Manager) Init() (string, error) {
	if m.path == "" {
		return "", fmt.Errorf("config directory not available")
	}
	// Check if file already exists
	if _, err := os.Stat(m.path); err == nil {
		return m.path, domain.ErrConfigExists
	}

	// Create parent directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(m.path, []byte(domain.ConfigTemplate()), 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return m.path, nil
}
