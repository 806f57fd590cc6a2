// Package config provides configuration loading functionality.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/crew-board/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	dataDir       string // Path to the data directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/crew-board)
}

// NewLoader creates a new Loader.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(dataDir, globalConfDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// Paths returns the config files Load reads, in merge order.
func (l *Loader) Paths() []string {
	var paths []string
	if l.globalConfDir != "" {
		paths = append(paths, filepath.Join(l.globalConfDir, domain.ConfigFileName))
	}
	return append(paths, domain.DataConfigPath(l.dataDir))
}

// Sources returns the config files Load reads and whether they exist.
func (l *Loader) Sources() []domain.ConfigSource {
	paths := l.Paths()
	sources := make([]domain.ConfigSource, 0, len(paths))
	for _, path := range paths {
		_, err := os.Stat(path)
		sources = append(sources, domain.ConfigSource{Path: path, Exists: err == nil})
	}
	return sources
}

// Load returns the merged configuration.
// Merge order: default <- global <- data dir (later takes precedence).
func (l *Loader) Load() (*domain.Config, error) {
	base := domain.NewDefaultConfig()
	for _, path := range l.Paths() {
		override, err := l.loadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		base = mergeConfigs(base, override)
	}
	return base, nil
}

// loadFile loads a configuration from a file.
// Unknown keys and invalid enum values are reported as warnings.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg domain.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	warnings := unknownKeyWarnings(data)
	warnings = append(warnings, validate(&cfg)...)
	sort.Strings(warnings)
	for i, w := range warnings {
		warnings[i] = fmt.Sprintf("%s: %s", path, w)
	}
	cfg.Warnings = warnings
	return &cfg, nil
}

// unknownKeyWarnings decodes strictly and turns every unknown key into a warning.
func unknownKeyWarnings(data []byte) []string {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var strict domain.Config
	err := dec.Decode(&strict)

	var missing *toml.StrictMissingError
	if !errors.As(err, &missing) {
		return nil
	}
	warnings := make([]string, 0, len(missing.Errors))
	for _, e := range missing.Errors {
		key := e.Key()
		if len(key) == 1 {
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", key[0]))
			continue
		}
		section := strings.Join(key[:len(key)-1], ".")
		warnings = append(warnings, fmt.Sprintf("unknown key in [%s]: %s", section, key[len(key)-1]))
	}
	return warnings
}

// validate clears invalid enum values so the merge keeps the previous layer's value.
func validate(cfg *domain.Config) []string {
	var warnings []string
	if cfg.Dispatch.Mode != "" && !cfg.Dispatch.Mode.IsValid() {
		warnings = append(warnings, fmt.Sprintf("invalid value in [dispatch]: mode = %q", cfg.Dispatch.Mode))
		cfg.Dispatch.Mode = ""
	}
	switch cfg.Dispatch.Reconcile {
	case "", domain.ReconcileAdopt, domain.ReconcileReset:
	default:
		warnings = append(warnings, fmt.Sprintf("invalid value in [dispatch]: reconcile = %q", cfg.Dispatch.Reconcile))
		cfg.Dispatch.Reconcile = ""
	}
	if cfg.Dispatch.MaxParallel < 0 {
		warnings = append(warnings, fmt.Sprintf("invalid value in [dispatch]: max_parallel = %d", cfg.Dispatch.MaxParallel))
		cfg.Dispatch.MaxParallel = 0
	}
	switch cfg.Store.Driver {
	case "", domain.StoreDriverSQLite, domain.StoreDriverJSON:
	default:
		warnings = append(warnings, fmt.Sprintf("invalid value in [store]: driver = %q", cfg.Store.Driver))
		cfg.Store.Driver = ""
	}
	if cfg.Log.Level != "" && !domain.IsValidLogLevel(cfg.Log.Level) {
		warnings = append(warnings, fmt.Sprintf("invalid value in [log]: level = %q", cfg.Log.Level))
		cfg.Log.Level = ""
	}
	return warnings
}

// mergeConfigs merges two configs, with override taking precedence.
// Zero values in override leave the base value untouched.
func mergeConfigs(base, override *domain.Config) *domain.Config {
	result := *base
	result.Warnings = append(append([]string{}, base.Warnings...), override.Warnings...)

	if override.Server.Addr != "" {
		result.Server.Addr = override.Server.Addr
	}
	if override.Store.Driver != "" {
		result.Store.Driver = override.Store.Driver
	}
	if override.Store.Path != "" {
		result.Store.Path = override.Store.Path
	}
	if override.Dispatch.Mode != "" {
		result.Dispatch.Mode = override.Dispatch.Mode
	}
	if override.Dispatch.Reconcile != "" {
		result.Dispatch.Reconcile = override.Dispatch.Reconcile
	}
	if override.Dispatch.Timeout > 0 {
		result.Dispatch.Timeout = override.Dispatch.Timeout
	}
	if override.Dispatch.CleanupGrace > 0 {
		result.Dispatch.CleanupGrace = override.Dispatch.CleanupGrace
	}
	if override.Dispatch.MaxParallel > 0 {
		result.Dispatch.MaxParallel = override.Dispatch.MaxParallel
	}
	if override.Agent.Command != "" {
		result.Agent.Command = override.Agent.Command
	}
	if override.Agent.Prompt != "" {
		result.Agent.Prompt = override.Agent.Prompt
	}
	if override.Worktree.Dir != "" {
		result.Worktree.Dir = override.Worktree.Dir
	}
	if override.Worktree.BranchPrefix != "" {
		result.Worktree.BranchPrefix = override.Worktree.BranchPrefix
	}
	if override.Notify.Command != "" {
		result.Notify.Command = override.Notify.Command
		// Arguments belong to the command they were written for
		result.Notify.Args = append([]string{}, override.Notify.Args...)
	} else if len(override.Notify.Args) > 0 {
		result.Notify.Args = append([]string{}, override.Notify.Args...)
	}
	if override.Notify.Timeout > 0 {
		result.Notify.Timeout = override.Notify.Timeout
	}
	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	return &result
}
