package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Directory and file names for crew-board.
const (
	AppName        = "crew-board"     // Directory name for config and data
	ConfigFileName = "config.toml"    // Config file name
	DBFileName     = "crew-board.db"  // SQLite store file name
	JSONFileName   = "board.json"     // JSON store file name
	GlobalLogName  = "crew-board.log" // Global log file name
	DataDirEnv     = "CREW_BOARD_HOME"
)

// ShortID returns the fixed-length prefix of a task ID.
// IDs shorter than ShortIDLength are returned unchanged.
func ShortID(taskID string) string {
	if len(taskID) <= ShortIDLength {
		return taskID
	}
	return taskID[:ShortIDLength]
}

// TabID returns the terminal session key for a task.
// Format: task-<shortId>
func TabID(taskID string) string {
	return "task-" + ShortID(taskID)
}

// BranchName returns the branch name for a worktree.
// Format: <prefix><shortId>
func BranchName(prefix, shortID string) string {
	return prefix + shortID
}

// WorktreePath returns the path of the worktree for shortID.
func WorktreePath(worktreeDir, shortID string) string {
	return filepath.Join(worktreeDir, shortID)
}

// ScriptPath returns the path to the session script of a task.
func ScriptPath(dataDir, shortID string) string {
	return filepath.Join(dataDir, "scripts", fmt.Sprintf("task-%s.sh", shortID))
}

// TaskLogPath returns the path to the task log file.
func TaskLogPath(dataDir, shortID string) string {
	return filepath.Join(dataDir, "logs", fmt.Sprintf("task-%s.log", shortID))
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", GlobalLogName)
}

// DefaultWorktreeDir returns the default worktree directory.
func DefaultWorktreeDir(dataDir string) string {
	return filepath.Join(dataDir, "worktrees")
}

// DataConfigPath returns the config path inside the data directory.
func DataConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// GlobalConfigDir returns the global config directory.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, AppName)
}

// GlobalConfigPath returns the global config path.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalConfigDir(configHome), ConfigFileName)
}

// DefaultDataDir returns $CREW_BOARD_HOME, or $XDG_DATA_HOME/crew-board,
// or ~/.local/share/crew-board.
func DefaultDataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return ExpandHome(dir)
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// shortIDPattern matches valid short IDs (hex prefix of a UUID).
var shortIDPattern = regexp.MustCompile(`^[0-9a-zA-Z-]{1,` + fmt.Sprint(ShortIDLength) + `}$`)

// IsValidShortID returns true if s is safe to use in paths and branch names.
func IsValidShortID(s string) bool {
	return shortIDPattern.MatchString(s)
}
