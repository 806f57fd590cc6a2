// Package notify provides notifiers that broadcast task status messages.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/runoshun/crew-board/internal/domain"
)

const waitDelay = time.Second

// Command runs a configured executable for every message.
// Arguments are text/template strings; {{.Message}} expands to the message.
// An empty command disables notifications.
type Command struct {
	cfg domain.NotifyConfig
	mu  sync.RWMutex
}

// NewCommand creates a command notifier.
func NewCommand(cfg domain.NotifyConfig) *Command {
	return &Command{cfg: cfg}
}

// Ensure Command implements domain.Notifier interface.
var _ domain.Notifier = (*Command)(nil)

// Reload replaces the notifier settings.
func (c *Command) Reload(cfg domain.NotifyConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// Enabled returns true if a command is configured.
func (c *Command) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Command != ""
}

// Notify runs the command with the message expanded into its arguments.
// The message is appended as the last argument when no argument references it.
func (c *Command) Notify(ctx context.Context, message string) error {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()
	if cfg.Command == "" {
		return nil
	}

	args, err := expandArgs(cfg.Args, message)
	if err != nil {
		return err
	}

	// #nosec G204 - the command comes from the user's configuration
	cmd := exec.CommandContext(ctx, cfg.Command, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	// Children that keep the output pipe open must not outlive the context
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("notify %s: %w", cfg.Command, ctx.Err())
		}
		return fmt.Errorf("notify %s: %w: %s", cfg.Command, err, strings.TrimSpace(out.String()))
	}
	return nil
}

// expandArgs renders each argument template with the message.
func expandArgs(args []string, message string) ([]string, error) {
	data := struct{ Message string }{Message: message}
	expanded := make([]string, 0, len(args)+1)
	referenced := false
	for _, arg := range args {
		if strings.Contains(arg, "{{") {
			tmpl, err := template.New("arg").Option("missingkey=error").Parse(arg)
			if err != nil {
				return nil, fmt.Errorf("parse notify argument %q: %w", arg, err)
			}
			var b strings.Builder
			if err := tmpl.Execute(&b, data); err != nil {
				return nil, fmt.Errorf("render notify argument %q: %w", arg, err)
			}
			expanded = append(expanded, b.String())
			referenced = referenced || strings.Contains(arg, ".Message")
			continue
		}
		expanded = append(expanded, arg)
	}
	if !referenced {
		expanded = append(expanded, message)
	}
	return expanded, nil
}

// Nop discards every message.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, string) error { return nil }
