package notify

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
)

func TestExpandArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "message placeholder",
			args: []string{"message", "send", "--text", "{{.Message}}"},
			want: []string{"message", "send", "--text", "✅ *Fix* → done"},
		},
		{
			name: "placeholder inside argument",
			args: []string{"--body=crew: {{.Message}}"},
			want: []string{"--body=crew: ✅ *Fix* → done"},
		},
		{
			name: "appended when unreferenced",
			args: []string{"-u", "low"},
			want: []string{"-u", "low", "✅ *Fix* → done"},
		},
		{
			name: "no args",
			args: nil,
			want: []string{"✅ *Fix* → done"},
		},
		{
			name:    "broken template",
			args:    []string{"{{.Message"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandArgs(tt.args, "✅ *Fix* → done")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommand_Notify(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}
	out := filepath.Join(t.TempDir(), "message.txt")
	notifier := NewCommand(domain.NotifyConfig{
		Command: "sh",
		Args:    []string{"-c", `printf '%s' "$1" > ` + out, "notify", "{{.Message}}"},
	})

	require.NoError(t, notifier.Notify(context.Background(), "✅ *Fix* → done"))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "✅ *Fix* → done", string(content))
}

func TestCommand_Notify_Disabled(t *testing.T) {
	notifier := NewCommand(domain.NotifyConfig{})

	assert.False(t, notifier.Enabled())
	assert.NoError(t, notifier.Notify(context.Background(), "ignored"))
}

func TestCommand_Notify_Failure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}
	notifier := NewCommand(domain.NotifyConfig{Command: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})

	err := notifier.Notify(context.Background(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCommand_Notify_Timeout(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}
	notifier := NewCommand(domain.NotifyConfig{Command: "sh", Args: []string{"-c", "sleep 5", "{{.Message}}"}})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := notifier.Notify(ctx, "msg")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestCommand_Reload(t *testing.T) {
	notifier := NewCommand(domain.NotifyConfig{})
	notifier.Reload(domain.NotifyConfig{Command: "true"})

	assert.True(t, notifier.Enabled())
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), "msg"))
}
