package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/crew-board/internal/domain"
)

// ShowConfigInput contains the parameters for showing the configuration.
type ShowConfigInput struct{}

// ShowConfigOutput contains the effective configuration and where it came from.
type ShowConfigOutput struct {
	Config   *domain.Config
	Sources  []domain.ConfigSource // Files in merge order
	Warnings []string              // Unknown keys and invalid values
}

// ShowConfig is the use case for displaying the effective configuration.
type ShowConfig struct {
	loader domain.ConfigLoader
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(loader domain.ConfigLoader) *ShowConfig {
	return &ShowConfig{loader: loader}
}

// Execute loads the merged configuration.
func (uc *ShowConfig) Execute(_ context.Context, _ ShowConfigInput) (*ShowConfigOutput, error) {
	cfg, err := uc.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &ShowConfigOutput{
		Config:   cfg,
		Sources:  uc.loader.Sources(),
		Warnings: cfg.Warnings,
	}, nil
}
