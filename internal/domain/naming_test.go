package domain

import (
	"path/filepath"
	"testing"
)

func TestShortID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"uuid", "3f2a9c1e-7b4d-4e2a-9f00-1234567890ab", "3f2a9c1e"},
		{"exactly eight", "abcdef12", "abcdef12"},
		{"shorter", "abc", "abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortID(tt.id); got != tt.want {
				t.Errorf("ShortID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestTabID(t *testing.T) {
	got := TabID("3f2a9c1e-7b4d-4e2a-9f00-1234567890ab")
	want := "task-3f2a9c1e"
	if got != want {
		t.Errorf("TabID() = %q, want %q", got, want)
	}
}

func TestBranchName(t *testing.T) {
	got := BranchName("crew/", "3f2a9c1e")
	want := "crew/3f2a9c1e"
	if got != want {
		t.Errorf("BranchName() = %q, want %q", got, want)
	}
}

func TestWorktreePath(t *testing.T) {
	got := WorktreePath("/data/worktrees", "3f2a9c1e")
	want := "/data/worktrees/3f2a9c1e"
	if got != want {
		t.Errorf("WorktreePath() = %q, want %q", got, want)
	}
}

func TestScriptPath(t *testing.T) {
	got := ScriptPath("/data", "3f2a9c1e")
	want := "/data/scripts/task-3f2a9c1e.sh"
	if got != want {
		t.Errorf("ScriptPath() = %q, want %q", got, want)
	}
}

func TestLogPaths(t *testing.T) {
	if got, want := TaskLogPath("/data", "3f2a9c1e"), "/data/logs/task-3f2a9c1e.log"; got != want {
		t.Errorf("TaskLogPath() = %q, want %q", got, want)
	}
	if got, want := GlobalLogPath("/data"), "/data/logs/crew-board.log"; got != want {
		t.Errorf("GlobalLogPath() = %q, want %q", got, want)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	got := GlobalConfigPath("/home/user/.config")
	want := "/home/user/.config/crew-board/config.toml"
	if got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestDefaultDataDir(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv(DataDirEnv, "/tmp/board")
		if got := DefaultDataDir(); got != "/tmp/board" {
			t.Errorf("DefaultDataDir() = %q, want %q", got, "/tmp/board")
		}
	})

	t.Run("xdg data home", func(t *testing.T) {
		t.Setenv(DataDirEnv, "")
		t.Setenv("XDG_DATA_HOME", "/xdg")
		if got, want := DefaultDataDir(), filepath.Join("/xdg", AppName); got != want {
			t.Errorf("DefaultDataDir() = %q, want %q", got, want)
		}
	})
}

func TestIsValidShortID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"3f2a9c1e", true},
		{"abc", true},
		{"", false},
		{"../etc", false},
		{"a b", false},
		{"123456789", false},
	}
	for _, tt := range tests {
		if got := IsValidShortID(tt.id); got != tt.want {
			t.Errorf("IsValidShortID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
