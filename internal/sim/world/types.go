package world

import (
	"errors"

	"colonysim.ai/internal/sim/world/kernel/model"
)

var (
	ErrOccupied              = errors.New("footprint occupied")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrUnknownPlayer         = errors.New("unknown player")
	ErrUnknownAgent          = errors.New("unknown agent")
	ErrUnknownStructure      = errors.New("unknown structure")
	ErrUnknownBuilding       = errors.New("unknown building type")
	ErrUnknownUnit           = errors.New("unknown unit kind")
	ErrUnknownAction         = errors.New("unknown action")
	ErrNotBuilt              = errors.New("building not built")
	ErrNoSite                = errors.New("no free site")
	ErrStopped               = errors.New("world stopped")
)

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick       uint64   `json:"tick"`
	Commands   []string `json:"commands,omitempty"`
	Agents     int      `json:"agents"`
	Structures int      `json:"structures"`
	Digest     string   `json:"digest"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "PLACE_BUILDING"
	SID     uint64         `json:"sid,omitempty"`
	Pos     [2]int         `json:"pos"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Action is one button of a built building.
type Action struct {
	ID       string
	Kind     string // "SPAWN" or "RESEARCH"
	Costs    model.Amounts
	Produces string
	Invoke   func() error
}

const (
	ActionSpawn    = "SPAWN"
	ActionResearch = "RESEARCH"
)

// Stats are cumulative counters for the metrics endpoint.
type Stats struct {
	Tick       uint64             `json:"tick"`
	Players    int                `json:"players"`
	Agents     int                `json:"agents"`
	Structures int                `json:"structures"`
	Chunks     int                `json:"chunks"`
	Deposited  map[string]float64 `json:"deposited"`
	DepotHits  int                `json:"depot_hits"`
}
