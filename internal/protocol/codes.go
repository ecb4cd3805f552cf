package protocol

import (
	"errors"

	"colonysim.ai/internal/sim/world"
)

// CodeFor maps a world error onto a reply code.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, world.ErrInsufficientResources):
		return ErrNoResource
	case errors.Is(err, world.ErrOccupied), errors.Is(err, world.ErrNoSite):
		return ErrConflict
	case errors.Is(err, world.ErrNotBuilt):
		return ErrNotBuilt
	case errors.Is(err, world.ErrUnknownPlayer),
		errors.Is(err, world.ErrUnknownAgent),
		errors.Is(err, world.ErrUnknownStructure):
		return ErrInvalidTarget
	case errors.Is(err, world.ErrUnknownBuilding),
		errors.Is(err, world.ErrUnknownUnit),
		errors.Is(err, world.ErrUnknownAction):
		return ErrBadRequest
	case errors.Is(err, world.ErrStopped):
		return ErrUnavailable
	}
	return ErrInternal
}
