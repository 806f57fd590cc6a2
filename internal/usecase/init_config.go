package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/domain"
)

// InitConfigInput contains the parameters for writing a config template.
type InitConfigInput struct {
	Global bool // Write the global config instead of the data-dir config
}

// InitConfigOutput contains the result of writing a config template.
type InitConfigOutput struct {
	Path string // The file that was written
}

// InitConfig is the use case for creating a commented config file.
type InitConfig struct {
	local  domain.ConfigManager
	global domain.ConfigManager
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(local, global domain.ConfigManager) *InitConfig {
	return &InitConfig{
		local:  local,
		global: global,
	}
}

// Execute writes the template. An existing file is never overwritten.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	manager := uc.local
	if in.Global {
		manager = uc.global
	}
	if manager == nil {
		return nil, fmt.Errorf("global config directory is not available")
	}

	path, err := manager.Init()
	if err != nil {
		return nil, err
	}
	return &InitConfigOutput{Path: path}, nil
}
