package world

import (
	"fmt"
	"sort"

	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
)

// AddPlayer creates a player with the configured starter ledger.
func (w *World) AddPlayer(name string) model.PlayerID {
	w.nextPID++
	pid := model.PlayerID(w.nextPID)
	if name == "" {
		name = playerActor(pid)
	}
	w.players[pid] = model.NewPlayer(pid, name, w.cfg.StarterResources, w.cfg.LockedResources)
	w.audit("ADD_PLAYER", playerActor(pid), nil, "", map[string]any{"name": name})
	return pid
}

func (w *World) Player(pid model.PlayerID) *model.Player {
	return w.players[pid]
}

// Players returns every player sorted by id.
func (w *World) Players() []*model.Player {
	out := make([]*model.Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// siteRadius bounds the colony site search around Config.BaseCamp, in chunks.
const siteRadius = 4

// FoundColony adds a player and places its base camp on the nearest site to
// Config.BaseCamp whose footprint is passable and free.
func (w *World) FoundColony(name string) (model.PlayerID, *model.Structure, error) {
	def, ok := w.catalogs.Buildings.ByID[model.BaseCamp]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnknownBuilding, model.BaseCamp)
	}
	site, ok := w.findSite(w.cfg.BaseCamp, def.Cells, siteRadius*w.cfg.ChunkSize)
	if !ok {
		return 0, nil, ErrNoSite
	}
	pid := w.AddPlayer(name)
	camp, err := w.PlaceBuilding(pid, model.BaseCamp, site, grid.North)
	if err != nil {
		return pid, nil, err
	}
	return pid, camp, nil
}

// findSite scans rings of growing Chebyshev radius, row-major within a ring.
func (w *World) findSite(center grid.Cell, footprint []grid.Cell, radius int) (grid.Cell, bool) {
	for r := 0; r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx != -r && dx != r && dy != -r && dy != r {
					continue
				}
				c := center.Add(grid.C(dx, dy))
				if w.siteFree(c, footprint) {
					return c, true
				}
			}
		}
	}
	return grid.Cell{}, false
}

func (w *World) siteFree(at grid.Cell, footprint []grid.Cell) bool {
	for _, p := range footprint {
		c := at.Add(p)
		if !w.chunks.Passable(c) || w.index.At(c) != nil {
			return false
		}
	}
	return true
}

func (w *World) owner(s *model.Structure) (*model.Player, error) {
	if s.Building == nil {
		return nil, ErrNotBuilt
	}
	p := w.players[s.Building.PlayerID]
	if p == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, s.Building.PlayerID)
	}
	return p, nil
}
