package providers

import (
	"github.com/samber/do/v2"

	"github.com/brickcomplete/brickcomplete-server/internal/config"
	"github.com/brickcomplete/brickcomplete-server/internal/logger"
	"github.com/brickcomplete/brickcomplete-server/internal/metadata/instructions"
	"github.com/brickcomplete/brickcomplete-server/internal/metadata/rebrickable"
)

// RebrickableClientHandle wraps the Rebrickable client with shutdown capability.
// Client is nil when the upstream source is disabled.
type RebrickableClientHandle struct {
	*rebrickable.Client
}

// Shutdown implements do.Shutdownable.
func (h *RebrickableClientHandle) Shutdown() error {
	if h.Client != nil {
		h.Client.Close()
	}
	return nil
}

// ProvideRebrickableClient provides the upstream inventory client.
func ProvideRebrickableClient(i do.Injector) (*RebrickableClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Rebrickable.Enabled {
		log.Info("Rebrickable fallback disabled, unknown sets resolve to placeholders")
		return &RebrickableClientHandle{}, nil
	}

	client := rebrickable.New(rebrickable.Options{
		BaseURL: cfg.Rebrickable.BaseURL,
		APIKey:  cfg.Rebrickable.APIKey,
	}, log.WithComponent("rebrickable"))
	log.Info("Rebrickable client initialized", "base_url", cfg.Rebrickable.BaseURL)

	return &RebrickableClientHandle{Client: client}, nil
}

// InstructionsClientHandle wraps the instructions scraper with shutdown capability.
type InstructionsClientHandle struct {
	*instructions.Client
}

// Shutdown implements do.Shutdownable.
func (h *InstructionsClientHandle) Shutdown() error {
	h.Client.Close()
	return nil
}

// ProvideInstructionsClient provides the building instructions client.
func ProvideInstructionsClient(i do.Injector) (*InstructionsClientHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	client := instructions.New(instructions.Options{}, log.WithComponent("instructions"))
	log.Info("Instructions client initialized")

	return &InstructionsClientHandle{Client: client}, nil
}
