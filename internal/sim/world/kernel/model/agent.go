package model

import "colonysim.ai/internal/sim/world/kernel/grid"

type HID uint64

type UnitKind string

type AgentState uint8

const (
	StateIdle AgentState = iota
	StateMoving
	StateWorking
)

func (s AgentState) String() string {
	switch s {
	case StateMoving:
		return "MOVING"
	case StateWorking:
		return "WORKING"
	default:
		return "IDLE"
	}
}

type WorkKind uint8

const (
	WorkIdle WorkKind = iota
	WorkGathering
	WorkBuilding
	WorkHunting
	WorkFighting
)

func (w WorkKind) String() string {
	switch w {
	case WorkGathering:
		return "GATHERING"
	case WorkBuilding:
		return "BUILDING"
	case WorkHunting:
		return "HUNTING"
	case WorkFighting:
		return "FIGHTING"
	default:
		return "IDLE"
	}
}

type GatherPhase uint8

const (
	PhaseGathering GatherPhase = iota
	PhaseDepositing
)

func (p GatherPhase) String() string {
	if p == PhaseDepositing {
		return "DEPOSITING"
	}
	return "GATHERING"
}

type Agent struct {
	HID      HID
	Kind     UnitKind
	PlayerID PlayerID

	Location grid.Vec2
	Path     []grid.Vec2
	Progress float64

	State       AgentState
	Work        WorkKind
	GatherPhase GatherPhase

	Carried        Amounts
	Capacity       float64
	GatherSpeed    float64
	DepositSpeed   float64
	Speed          float64
	Specialization []ResourceType

	Resource  ResourceType
	Target    *grid.Cell
	TargetSID SID
	Depot     *grid.Cell
	DepotSID  SID
	// DepotTypes lists the building types accepted as drop-off for Resource.
	DepotTypes []BuildingType
	// GoingToWork is true while the current path leads to Target rather than Depot.
	GoingToWork bool
}

func (a *Agent) Specialized(r ResourceType) bool {
	for _, s := range a.Specialization {
		if s == r {
			return true
		}
	}
	return false
}

func (a *Agent) CarriedTotal() float64 {
	return a.Carried.Total()
}

// Cell returns the cell containing the agent.
func (a *Agent) Cell(cellSize float64) grid.Cell {
	return a.Location.Cell(cellSize)
}
