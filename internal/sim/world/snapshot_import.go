package world

import (
	"fmt"

	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/spatial"
	"colonysim.ai/internal/sim/world/terrain/store"
)

// ImportSnapshot replaces the world state with snap. The world must have
// been created with the snapshot's seed and chunk size.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if snap.Seed != w.cfg.Seed {
		return fmt.Errorf("snapshot seed %d does not match world seed %d", snap.Seed, w.cfg.Seed)
	}
	if snap.ChunkSize != w.cfg.ChunkSize {
		return fmt.Errorf("snapshot chunk size %d does not match world chunk size %d", snap.ChunkSize, w.cfg.ChunkSize)
	}
	if snap.CatalogDigest != "" && snap.CatalogDigest != w.catalogs.Digest() {
		w.log.Printf("snapshot catalog digest %s differs from loaded catalogs", snap.CatalogDigest)
	}

	chunks, err := store.ImportChunks(w.gen, snap.Chunks)
	if err != nil {
		return err
	}

	players := map[model.PlayerID]*model.Player{}
	for _, pv := range snap.Players {
		p, err := importPlayer(pv)
		if err != nil {
			return err
		}
		players[p.PID] = p
	}

	index := spatial.New(w.cfg.ChunkSize)
	structures := map[model.SID]*model.Structure{}
	for _, sv := range snap.Structures {
		s, err := importStructure(sv)
		if err != nil {
			return err
		}
		if _, dup := structures[s.SID]; dup || !index.TryPlace(s) {
			return fmt.Errorf("snapshot structure %d overlaps another", s.SID)
		}
		structures[s.SID] = s
	}

	agents := map[model.HID]*model.Agent{}
	order := make([]*model.Agent, 0, len(snap.Agents))
	for _, av := range snap.Agents {
		a, err := importAgent(av)
		if err != nil {
			return err
		}
		if _, dup := agents[a.HID]; dup {
			return fmt.Errorf("snapshot agent %d appears twice", a.HID)
		}
		agents[a.HID] = a
		order = append(order, a)
	}

	w.setChunkStore(chunks)
	w.index = index
	w.depots.Source = index
	w.structures = structures
	w.agents = agents
	w.players = players
	for _, s := range structures {
		w.bindRemoval(s)
	}
	for _, a := range order {
		w.index.AddAgent(a, w.agentChunk(a))
	}
	w.nextSID = snap.NextSID
	w.nextHID = snap.NextHID
	w.nextPID = snap.NextPID
	w.tick.Store(snap.Header.Tick)
	w.invalidateDepots()
	w.publishStats()
	return nil
}

func parseResources(names []string) ([]model.ResourceType, error) {
	var out []model.ResourceType
	for _, n := range names {
		r, err := model.ParseResource(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func importPlayer(pv snapshot.PlayerV1) (*model.Player, error) {
	res, err := model.AmountsFromNames(pv.Resources)
	if err != nil {
		return nil, fmt.Errorf("snapshot player %d: %w", pv.PID, err)
	}
	locked, err := parseResources(pv.Locked)
	if err != nil {
		return nil, fmt.Errorf("snapshot player %d: %w", pv.PID, err)
	}
	p := model.NewPlayer(model.PlayerID(pv.PID), pv.Name, res, locked)
	for _, id := range pv.Technologies {
		p.Technologies[id] = true
	}
	gm, err := model.AmountsFromNames(pv.GatherMult)
	if err != nil {
		return nil, fmt.Errorf("snapshot player %d: %w", pv.PID, err)
	}
	for r, m := range gm {
		p.GatherMult[r] = m
	}
	p.BuildMult = pv.BuildMult
	p.BuildingHealthMult = pv.BuildingHealthMult
	return p, nil
}

func importStructure(sv snapshot.StructureV1) (*model.Structure, error) {
	kind, err := model.ParseKind(sv.Kind)
	if err != nil {
		return nil, fmt.Errorf("snapshot structure %d: %w", sv.SID, err)
	}
	s := &model.Structure{
		SID:         model.SID(sv.SID),
		Kind:        kind,
		Coords:      grid.CellFromArray(sv.Coords),
		Orientation: grid.Orientation(sv.Orientation),
		Health:      sv.Health,
	}
	s.Points = make([]grid.Cell, len(sv.Points))
	for i, p := range sv.Points {
		s.Points[i] = grid.CellFromArray(p)
	}
	if sv.Ore != "" {
		r, err := model.ParseResource(sv.Ore)
		if err != nil {
			return nil, fmt.Errorf("snapshot structure %d: %w", sv.SID, err)
		}
		s.Ore = &model.OreInfo{Type: r}
	}
	if bv := sv.Building; bv != nil {
		costs, err := model.AmountsFromNames(bv.Costs)
		if err != nil {
			return nil, fmt.Errorf("snapshot structure %d: %w", sv.SID, err)
		}
		s.Building = &model.BuildingInfo{
			Type:          model.BuildingType(bv.Type),
			PlayerID:      model.PlayerID(bv.PlayerID),
			Costs:         costs,
			MaxHealth:     bv.MaxHealth,
			BuildDuration: bv.BuildDuration,
			BuildTime:     bv.BuildTime,
			WorkerCount:   bv.WorkerCount,
			State:         model.BuildState(bv.State),
		}
	}
	return s, nil
}

func cellFromPtr(v *[2]int) *grid.Cell {
	if v == nil {
		return nil
	}
	c := grid.CellFromArray(*v)
	return &c
}

func importAgent(av snapshot.AgentV1) (*model.Agent, error) {
	carried, err := model.AmountsFromNames(av.Carried)
	if err != nil {
		return nil, fmt.Errorf("snapshot agent %d: %w", av.HID, err)
	}
	spec, err := parseResources(av.Specialization)
	if err != nil {
		return nil, fmt.Errorf("snapshot agent %d: %w", av.HID, err)
	}
	a := &model.Agent{
		HID:            model.HID(av.HID),
		Kind:           model.UnitKind(av.Kind),
		PlayerID:       model.PlayerID(av.PlayerID),
		Location:       grid.Vec2{X: av.Location[0], Y: av.Location[1]},
		Progress:       av.Progress,
		State:          model.AgentState(av.State),
		Work:           model.WorkKind(av.Work),
		GatherPhase:    model.GatherPhase(av.GatherPhase),
		Carried:        carried,
		Capacity:       av.Capacity,
		GatherSpeed:    av.GatherSpeed,
		DepositSpeed:   av.DepositSpeed,
		Speed:          av.Speed,
		Specialization: spec,
		Target:         cellFromPtr(av.Target),
		TargetSID:      model.SID(av.TargetSID),
		Depot:          cellFromPtr(av.Depot),
		DepotSID:       model.SID(av.DepotSID),
		GoingToWork:    av.GoingToWork,
	}
	if av.Resource != "" {
		r, err := model.ParseResource(av.Resource)
		if err != nil {
			return nil, fmt.Errorf("snapshot agent %d: %w", av.HID, err)
		}
		a.Resource = r
	}
	for _, p := range av.Path {
		a.Path = append(a.Path, grid.Vec2{X: p[0], Y: p[1]})
	}
	for _, t := range av.DepotTypes {
		a.DepotTypes = append(a.DepotTypes, model.BuildingType(t))
	}
	return a, nil
}
