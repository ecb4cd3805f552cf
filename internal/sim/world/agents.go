package world

import (
	"fmt"
	"sort"

	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/logic/pathfind"
)

// SpawnAgent creates an idle agent of kind for pid at location at.
func (w *World) SpawnAgent(pid model.PlayerID, kind model.UnitKind, at grid.Vec2) (*model.Agent, error) {
	if w.players[pid] == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, pid)
	}
	def, ok := w.catalogs.Units.ByID[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, kind)
	}
	w.nextHID++
	a := &model.Agent{
		HID:            model.HID(w.nextHID),
		Kind:           kind,
		PlayerID:       pid,
		Location:       at,
		Carried:        model.Amounts{},
		Capacity:       def.Capacity,
		GatherSpeed:    def.GatherSpeed,
		DepositSpeed:   def.DepositSpeed,
		Speed:          def.Speed,
		Specialization: append([]model.ResourceType(nil), def.Specialties...),
	}
	w.agents[a.HID] = a
	w.index.AddAgent(a, w.agentChunk(a))
	return a, nil
}

func (w *World) agentChunk(a *model.Agent) grid.ChunkKey {
	return a.Cell(w.cfg.CellSize).Chunk(w.cfg.ChunkSize)
}

// RemoveAgent drops an agent, releasing any construction slot it holds.
func (w *World) RemoveAgent(hid model.HID) bool {
	a := w.agents[hid]
	if a == nil {
		return false
	}
	w.machine.Release(a)
	w.index.RemoveAgent(a)
	delete(w.agents, hid)
	return true
}

// GoTo sends an agent to cell and assigns the job found there. A target
// that cannot be reached leaves the agent idle and is not an error.
func (w *World) GoTo(hid model.HID, cell grid.Cell) (bool, error) {
	a := w.agents[hid]
	if a == nil {
		return false, fmt.Errorf("%w: %d", ErrUnknownAgent, hid)
	}
	return w.machine.GoTo(a, cell), nil
}

func (w *World) Agent(hid model.HID) *model.Agent {
	return w.agents[hid]
}

// Agents returns every agent sorted by hid.
func (w *World) Agents() []*model.Agent {
	out := make([]*model.Agent, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HID < out[j].HID })
	return out
}

func (w *World) AgentsInRadius(center grid.Vec2, r float64) []*model.Agent {
	return w.index.AgentsInRadius(center, r, w.cfg.CellSize)
}

func (w *World) AgentsInRect(min, max grid.Vec2) []*model.Agent {
	return w.index.AgentsInRect(min, max, w.cfg.CellSize)
}

// rebucket moves a to the chunk it now stands in.
func (w *World) rebucket(a *model.Agent) {
	to := w.agentChunk(a)
	if from, ok := w.index.AgentChunk(a.HID); ok {
		w.index.MoveAgent(a, from, to)
		return
	}
	w.index.AddAgent(a, to)
}

// FindPath runs the pathfinder over the world terrain.
func (w *World) FindPath(from, to grid.Cell) ([]grid.Cell, bool) {
	res := pathfind.Find(from, to, w.chunks, w.pathOptions())
	return res.Path, res.Found
}

func (w *World) NearestDepot(from grid.Cell, types []model.BuildingType) (*model.Structure, []grid.Cell, bool) {
	return w.depots.Nearest(from, types)
}

// spawnPoint picks the first passable free cell on the ring just outside a
// building's footprint, falling back to its centre.
func (w *World) spawnPoint(s *model.Structure) grid.Vec2 {
	b := grid.Bounds(s.Cells())
	ring := grid.R(b.Min.X-1, b.Min.Y-1, b.Max.X+1, b.Max.Y+1)
	for _, c := range ring.Points() {
		if b.Contains(c) {
			continue
		}
		if w.chunks.Passable(c) && w.index.At(c) == nil {
			return c.Center(w.cfg.CellSize)
		}
	}
	return s.Coords.Center(w.cfg.CellSize)
}
