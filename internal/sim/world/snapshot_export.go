package world

import (
	"sort"

	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/terrain/store"
)

// ExportSnapshot captures the full state, in-flight agent jobs included.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    w.tick.Load(),
		},
		Seed:          w.cfg.Seed,
		TickRate:      w.cfg.TickRateHz,
		ChunkSize:     w.cfg.ChunkSize,
		CellSize:      w.cfg.CellSize,
		CatalogDigest: w.catalogs.Digest(),
		NextSID:       w.nextSID,
		NextHID:       w.nextHID,
		NextPID:       w.nextPID,
		Chunks:        store.ExportLoadedChunks(w.chunks.Chunks, w.chunks.LoadedChunkKeys()),
	}
	for _, p := range w.Players() {
		snap.Players = append(snap.Players, exportPlayer(p))
	}
	for _, s := range w.Structures() {
		snap.Structures = append(snap.Structures, exportStructure(s))
	}
	// Bucket order, so an import rebuilds the same update order.
	for _, k := range w.index.AgentChunks() {
		for _, a := range w.index.AgentsIn(k) {
			snap.Agents = append(snap.Agents, exportAgent(a))
		}
	}
	return snap
}

func resourceNames(rs []model.ResourceType) []string {
	if len(rs) == 0 {
		return nil
	}
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}

func exportPlayer(p *model.Player) snapshot.PlayerV1 {
	out := snapshot.PlayerV1{
		PID:                uint32(p.PID),
		Name:               p.Name,
		Resources:          p.Resources.ByName(),
		BuildMult:          p.BuildMult,
		BuildingHealthMult: p.BuildingHealthMult,
	}
	for id := range p.Technologies {
		out.Technologies = append(out.Technologies, id)
	}
	sort.Strings(out.Technologies)
	if len(p.GatherMult) > 0 {
		out.GatherMult = map[string]float64{}
		for r, m := range p.GatherMult {
			out.GatherMult[r.String()] = m
		}
	}
	for _, r := range model.AllResources {
		if p.Locked[r] {
			out.Locked = append(out.Locked, r.String())
		}
	}
	return out
}

func exportStructure(s *model.Structure) snapshot.StructureV1 {
	out := snapshot.StructureV1{
		SID:         uint64(s.SID),
		Kind:        s.Kind.String(),
		Coords:      s.Coords.ToArray(),
		Orientation: int(s.Orientation),
		Health:      s.Health,
	}
	out.Points = make([][2]int, len(s.Points))
	for i, p := range s.Points {
		out.Points[i] = p.ToArray()
	}
	if s.Ore != nil {
		out.Ore = s.Ore.Type.String()
	}
	if b := s.Building; b != nil {
		out.DefID = string(b.Type)
		out.Building = &snapshot.BuildingV1{
			Type:          string(b.Type),
			PlayerID:      uint32(b.PlayerID),
			Costs:         b.Costs.ByName(),
			MaxHealth:     b.MaxHealth,
			BuildDuration: b.BuildDuration,
			BuildTime:     b.BuildTime,
			WorkerCount:   b.WorkerCount,
			State:         int(b.State),
		}
	}
	return out
}

func cellPtr(c *grid.Cell) *[2]int {
	if c == nil {
		return nil
	}
	v := c.ToArray()
	return &v
}

func exportAgent(a *model.Agent) snapshot.AgentV1 {
	out := snapshot.AgentV1{
		HID:            uint64(a.HID),
		Kind:           string(a.Kind),
		PlayerID:       uint32(a.PlayerID),
		Location:       [2]float64{a.Location.X, a.Location.Y},
		Progress:       a.Progress,
		State:          int(a.State),
		Work:           int(a.Work),
		GatherPhase:    int(a.GatherPhase),
		Carried:        a.Carried.ByName(),
		Capacity:       a.Capacity,
		GatherSpeed:    a.GatherSpeed,
		DepositSpeed:   a.DepositSpeed,
		Speed:          a.Speed,
		Specialization: resourceNames(a.Specialization),
		Target:         cellPtr(a.Target),
		TargetSID:      uint64(a.TargetSID),
		Depot:          cellPtr(a.Depot),
		DepotSID:       uint64(a.DepotSID),
		GoingToWork:    a.GoingToWork,
	}
	if a.Resource != model.ResNone {
		out.Resource = a.Resource.String()
	}
	for _, p := range a.Path {
		out.Path = append(out.Path, [2]float64{p.X, p.Y})
	}
	for _, t := range a.DepotTypes {
		out.DepotTypes = append(out.DepotTypes, string(t))
	}
	return out
}
