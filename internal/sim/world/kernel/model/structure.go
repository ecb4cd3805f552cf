package model

import (
	"fmt"

	"colonysim.ai/internal/sim/world/kernel/grid"
)

type SID uint64

type Kind uint8

const (
	KindTree Kind = iota + 1
	KindOre
	KindBuilding
)

func (k Kind) String() string {
	switch k {
	case KindTree:
		return "TREE"
	case KindOre:
		return "ORE"
	case KindBuilding:
		return "BUILDING"
	default:
		return fmt.Sprintf("KIND(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindTree, KindOre, KindBuilding} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown structure kind %q", s)
}

type BuildingType string

const (
	BaseCamp    BuildingType = "BASE_CAMP"
	Pantry      BuildingType = "PANTRY"
	Farm        BuildingType = "FARM"
	LumberCamp  BuildingType = "LUMBER_CAMP"
	MinerCamp   BuildingType = "MINER_CAMP"
	HunterCamp  BuildingType = "HUNTER_CAMP"
	SoldierCamp BuildingType = "SOLDIER_CAMP"
)

type BuildState uint8

const (
	Placed BuildState = iota
	UnderConstruction
	Built
)

func (s BuildState) String() string {
	switch s {
	case Placed:
		return "PLACED"
	case UnderConstruction:
		return "UNDER_CONSTRUCTION"
	case Built:
		return "BUILT"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

type OreInfo struct {
	Type ResourceType
}

type BuildingInfo struct {
	Type          BuildingType
	PlayerID      PlayerID
	Costs         Amounts
	MaxHealth     float64
	BuildDuration float64
	BuildTime     float64
	WorkerCount   int
	State         BuildState
}

type Structure struct {
	SID         SID
	Kind        Kind
	Coords      grid.Cell
	Points      []grid.Cell // relative to Coords, orientation already applied
	Orientation grid.Orientation
	Health      float64

	Ore      *OreInfo
	Building *BuildingInfo

	// OnRemoved is invoked at most once, when the structure leaves the world.
	OnRemoved func(*Structure)

	removed bool
}

// NewStructure rotates the base footprint by o.
func NewStructure(sid SID, kind Kind, coords grid.Cell, footprint []grid.Cell, o grid.Orientation, health float64) *Structure {
	return &Structure{
		SID:         sid,
		Kind:        kind,
		Coords:      coords,
		Points:      o.RotateAll(footprint),
		Orientation: o,
		Health:      health,
	}
}

// Cells returns the absolute cells of the footprint.
func (s *Structure) Cells() []grid.Cell {
	out := make([]grid.Cell, len(s.Points))
	for i, p := range s.Points {
		out[i] = s.Coords.Add(p)
	}
	return out
}

func (s *Structure) Removed() bool { return s.removed }

// MarkRemoved flips the removed flag and reports whether this call did it.
func (s *Structure) MarkRemoved() bool {
	if s.removed {
		return false
	}
	s.removed = true
	return true
}

// Yield is the resource an agent extracts from the structure, if any.
func (s *Structure) Yield() ResourceType {
	switch s.Kind {
	case KindTree:
		return Wood
	case KindOre:
		if s.Ore != nil {
			return s.Ore.Type
		}
	case KindBuilding:
		if s.Building != nil && s.Building.Type == Farm {
			return Food
		}
	}
	return ResNone
}

// Depletable reports whether gathering damages the structure.
func (s *Structure) Depletable() bool {
	return s.Kind == KindTree || s.Kind == KindOre
}

func (s *Structure) IsBuilt() bool {
	return s.Building != nil && s.Building.State == Built
}

func (s *Structure) IsType(types ...BuildingType) bool {
	if s.Building == nil {
		return false
	}
	for _, t := range types {
		if s.Building.Type == t {
			return true
		}
	}
	return false
}
