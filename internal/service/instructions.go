package service

import (
	"context"
	"log/slog"

	"github.com/brickcomplete/brickcomplete-server/internal/metadata/instructions"
)

// InstructionSource checks for and scrapes building instructions.
type InstructionSource interface {
	CheckAvailability(ctx context.Context, setNumber string) *instructions.Availability
	FetchImages(ctx context.Context, setNumber string) *instructions.Images
}

// InstructionService looks up building instructions for sets.
// Upstream failures are reported inside the results rather than as errors.
type InstructionService struct {
	source InstructionSource
	logger *slog.Logger
}

// NewInstructionService creates a new instruction service.
func NewInstructionService(source InstructionSource, logger *slog.Logger) *InstructionService {
	return &InstructionService{source: source, logger: logger}
}

// CheckInstructions reports whether LEGO publishes instructions for a set.
func (s *InstructionService) CheckInstructions(ctx context.Context, rawSetNumber string) (*instructions.Availability, error) {
	setNumber, err := cleanSetNumber(rawSetNumber)
	if err != nil {
		return nil, err
	}
	result := s.source.CheckAvailability(ctx, setNumber)
	if result.Error != "" {
		s.logger.Debug("instruction check failed", "set_number", setNumber, "error", result.Error)
	}
	return result, nil
}

// InstructionImages returns the scanned instruction pages of a set.
func (s *InstructionService) InstructionImages(ctx context.Context, rawSetNumber string) (*instructions.Images, error) {
	setNumber, err := cleanSetNumber(rawSetNumber)
	if err != nil {
		return nil, err
	}
	result := s.source.FetchImages(ctx, setNumber)
	if !result.Success {
		s.logger.Debug("instruction images unavailable", "set_number", setNumber, "error", result.Error)
	}
	return result, nil
}
