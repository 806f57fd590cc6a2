package domain

import (
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultServerAddr)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, "sqlite")
	}
	if cfg.Dispatch.Mode != DispatchSequential {
		t.Errorf("Dispatch.Mode = %q, want %q", cfg.Dispatch.Mode, DispatchSequential)
	}
	if cfg.Dispatch.CleanupGrace.Std() != 10*time.Minute {
		t.Errorf("Dispatch.CleanupGrace = %v, want 10m", cfg.Dispatch.CleanupGrace.Std())
	}
	if cfg.Notify.Timeout.Std() != DefaultNotifyTimeout {
		t.Errorf("Notify.Timeout = %v, want %v", cfg.Notify.Timeout.Std(), DefaultNotifyTimeout)
	}
	if cfg.Notify.Timeout.Std() != 10*time.Second {
		t.Errorf("Notify.Timeout = %v, want 10s", cfg.Notify.Timeout.Std())
	}
	if cfg.Worktree.BranchPrefix != "crew/" {
		t.Errorf("Worktree.BranchPrefix = %q, want %q", cfg.Worktree.BranchPrefix, "crew/")
	}
}

func TestDispatchConfig_Policy(t *testing.T) {
	cfg := DispatchConfig{Mode: DispatchSequential, MaxParallel: 3}

	tests := []struct {
		name      string
		project   *Project
		wantMode  DispatchMode
		wantSlots int
	}{
		{"nil project uses default", nil, DispatchSequential, 1},
		{"project without mode", &Project{}, DispatchSequential, 1},
		{"parallel uses default slots", &Project{DispatchMode: DispatchParallel}, DispatchParallel, 3},
		{"parallel with own slots", &Project{DispatchMode: DispatchParallel, MaxParallel: 5}, DispatchParallel, 5},
		{"sequential ignores slots", &Project{DispatchMode: DispatchSequential, MaxParallel: 5}, DispatchSequential, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, slots := cfg.Policy(tt.project)
			if mode != tt.wantMode || slots != tt.wantSlots {
				t.Errorf("Policy() = (%s, %d), want (%s, %d)", mode, slots, tt.wantMode, tt.wantSlots)
			}
		})
	}

	zero := DispatchConfig{Mode: DispatchParallel}
	if _, slots := zero.Policy(nil); slots != 1 {
		t.Errorf("Policy() slots = %d with zero MaxParallel, want 1", slots)
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90s")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("Std() = %v, want 90s", d.Std())
	}
	b, _ := d.MarshalText()
	if string(b) != "1m30s" {
		t.Errorf("MarshalText() = %q, want %q", b, "1m30s")
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("UnmarshalText() error = nil for invalid input")
	}
}

func TestAgentConfig_RenderAgent(t *testing.T) {
	a := AgentConfig{
		Command: `agent --mode {{.Mode}} "$PROMPT"`,
		Prompt:  `{{.Title}}: {{.Description}} ({{.Worktree}})`,
	}
	cmd, prompt, err := a.RenderAgent(CommandData{
		Title:       "Fix login",
		Description: "Users cannot log in",
		Mode:        "fast",
		Worktree:    "/wt/abc",
	})
	if err != nil {
		t.Fatalf("RenderAgent() error = %v", err)
	}
	if cmd != `agent --mode fast "$PROMPT"` {
		t.Errorf("command = %q", cmd)
	}
	if prompt != "Fix login: Users cannot log in (/wt/abc)" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestAgentConfig_RenderAgentDefaults(t *testing.T) {
	cmd, prompt, err := AgentConfig{}.RenderAgent(CommandData{Title: "Task", Worktree: "/wt"})
	if err != nil {
		t.Fatalf("RenderAgent() error = %v", err)
	}
	if cmd != DefaultAgentCommand {
		t.Errorf("command = %q, want default", cmd)
	}
	if !strings.Contains(prompt, `"Task"`) || strings.Contains(prompt, "Mode:") {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestAgentConfig_RenderAgentInvalidTemplate(t *testing.T) {
	_, _, err := AgentConfig{Prompt: "{{.Nope"}.RenderAgent(CommandData{})
	if err == nil {
		t.Error("RenderAgent() error = nil for invalid template")
	}
}

func TestConfigTemplate(t *testing.T) {
	tmpl := ConfigTemplate()
	for _, section := range []string{"[server]", "[store]", "[dispatch]", "[agent]", "[worktree]", "[notify]", "[log]"} {
		if !strings.Contains(tmpl, section) {
			t.Errorf("template missing %s", section)
		}
	}
}
