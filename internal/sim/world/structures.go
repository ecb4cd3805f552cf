package world

import (
	"fmt"
	"sort"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/world/feature/lifecycle"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
)

func (w *World) allocSID() model.SID {
	w.nextSID++
	return model.SID(w.nextSID)
}

// TryPlace registers s when every footprint cell is free. Nothing is charged.
func (w *World) TryPlace(s *model.Structure) bool {
	if s == nil || s.Removed() {
		return false
	}
	if s.SID != 0 {
		if _, dup := w.structures[s.SID]; dup {
			return false
		}
	}
	if !w.index.TryPlace(s) {
		return false
	}
	if s.SID == 0 {
		s.SID = w.allocSID()
	} else if uint64(s.SID) > w.nextSID {
		w.nextSID = uint64(s.SID)
	}
	w.structures[s.SID] = s
	w.bindRemoval(s)
	if s.Kind == model.KindBuilding {
		w.invalidateDepots()
	}
	return true
}

func (w *World) bindRemoval(s *model.Structure) {
	s.OnRemoved = w.onRemoved
}

func (w *World) onRemoved(s *model.Structure) {
	w.index.Remove(s)
	delete(w.structures, s.SID)
	if s.Kind == model.KindBuilding {
		w.invalidateDepots()
	}
	actor := "world"
	if s.Building != nil {
		actor = playerActor(s.Building.PlayerID)
	}
	w.audit("REMOVE_STRUCTURE", actor, s, "", map[string]any{"kind": s.Kind.String()})
}

func (w *World) invalidateDepots() {
	if w.depots.Cache != nil {
		w.depots.Cache.Invalidate()
	}
}

// CountCategory is used by the seeder to cap resource density.
func (w *World) CountCategory(k grid.ChunkKey, kind model.Kind) int {
	return w.index.CountCategory(k, kind)
}

// PlaceResource places a tree or ore node. Failure is silent.
func (w *World) PlaceResource(def catalogs.ResourceDef, at grid.Cell, o grid.Orientation) bool {
	s := model.NewStructure(0, def.StructureKind, at, def.Cells, o, def.Health)
	if def.StructureKind == model.KindOre {
		s.Ore = &model.OreInfo{Type: def.Resource}
	}
	return w.TryPlace(s)
}

// ensureChunks generates the chunks under cells so seeding runs before a
// building claims them.
func (w *World) ensureChunks(cells []grid.Cell) {
	n := w.cfg.ChunkSize
	for _, c := range cells {
		w.chunks.Chunk(c.Chunk(n))
	}
}

// PlaceBuilding charges the player and places a building of type t centred on at.
func (w *World) PlaceBuilding(pid model.PlayerID, t model.BuildingType, at grid.Cell, o grid.Orientation) (*model.Structure, error) {
	p := w.players[pid]
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, pid)
	}
	def, ok := w.catalogs.Buildings.ByID[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuilding, t)
	}
	if !p.CanAfford(def.Cost) {
		return nil, fmt.Errorf("place %s: %w", t, ErrInsufficientResources)
	}

	s := w.newBuilding(p, def, at, o)
	w.ensureChunks(s.Cells())
	if !w.TryPlace(s) {
		return nil, fmt.Errorf("place %s at %d,%d: %w", t, at.X, at.Y, ErrOccupied)
	}
	p.Debit(def.Cost)
	w.audit("PLACE_BUILDING", playerActor(pid), s, "", map[string]any{"type": string(t)})
	return s, nil
}

func (w *World) newBuilding(p *model.Player, def catalogs.BuildingDef, at grid.Cell, o grid.Orientation) *model.Structure {
	maxHealth := def.Health * p.BuildingHealthMult
	s := model.NewStructure(0, model.KindBuilding, at, def.Cells, o, maxHealth)
	s.Building = &model.BuildingInfo{
		Type:          def.ID,
		PlayerID:      p.PID,
		Costs:         def.Cost.Clone(),
		MaxHealth:     maxHealth,
		BuildDuration: def.BuildDuration,
	}
	if def.PreBuilt {
		s.Building.State = model.Built
		s.Building.BuildTime = def.BuildDuration
	}
	return s
}

// RemoveStructure removes a structure and reports whether it was present.
func (w *World) RemoveStructure(sid model.SID) bool {
	s := w.structures[sid]
	if s == nil || !s.MarkRemoved() {
		return false
	}
	if s.OnRemoved != nil {
		s.OnRemoved(s)
	}
	return true
}

// DamageBuilding reduces a building's health and reports whether it was destroyed.
func (w *World) DamageBuilding(sid model.SID, amount float64) (bool, error) {
	s := w.structures[sid]
	if s == nil || s.Building == nil {
		return false, fmt.Errorf("%w: %d", ErrUnknownStructure, sid)
	}
	return lifecycle.Damage(s, amount), nil
}

func (w *World) Structure(sid model.SID) *model.Structure {
	return w.structures[sid]
}

func (w *World) StructureAt(c grid.Cell) *model.Structure {
	return w.index.At(c)
}

// Structures returns every structure sorted by sid.
func (w *World) Structures() []*model.Structure {
	return w.index.All()
}

// StructuresInChunk returns the structures bucketed under k, sorted by sid.
func (w *World) StructuresInChunk(k grid.ChunkKey) []*model.Structure {
	list := append([]*model.Structure(nil), w.index.InChunk(k)...)
	sort.Slice(list, func(i, j int) bool { return list[i].SID < list[j].SID })
	return list
}

// buildingsBySID lists every building, including ones still under construction.
func (w *World) buildingsBySID() []*model.Structure {
	var out []*model.Structure
	for _, s := range w.structures {
		if s.Building != nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SID < out[j].SID })
	return out
}
