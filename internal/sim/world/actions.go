package world

import (
	"fmt"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/world/kernel/model"
)

// BuildingActions lists the spawn and research buttons of a building.
// Buildings that are not built expose none.
func (w *World) BuildingActions(sid model.SID) ([]Action, error) {
	s := w.structures[sid]
	if s == nil || s.Building == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStructure, sid)
	}
	if !s.IsBuilt() {
		return nil, nil
	}
	p, err := w.owner(s)
	if err != nil {
		return nil, err
	}

	var out []Action
	for _, u := range w.catalogs.UnitsFor(s.Building.Type) {
		u := u
		out = append(out, Action{
			ID:       ActionSpawn + "_" + string(u.ID),
			Kind:     ActionSpawn,
			Costs:    u.Cost.Clone(),
			Produces: string(u.ID),
			Invoke:   func() error { return w.spawnFrom(s, p, u) },
		})
	}
	for _, t := range w.catalogs.TechnologiesFor(s.Building.Type) {
		if p.Technologies[t.ID] {
			continue
		}
		t := t
		out = append(out, Action{
			ID:       ActionResearch + "_" + t.ID,
			Kind:     ActionResearch,
			Costs:    t.Cost.Clone(),
			Produces: t.ID,
			Invoke:   func() error { return w.research(s, p, t) },
		})
	}
	return out, nil
}

// InvokeAction runs the action id of building sid.
func (w *World) InvokeAction(sid model.SID, id string) error {
	actions, err := w.BuildingActions(sid)
	if err != nil {
		return err
	}
	for _, a := range actions {
		if a.ID == id {
			return a.Invoke()
		}
	}
	if s := w.structures[sid]; s != nil && !s.IsBuilt() {
		return fmt.Errorf("%s: %w", id, ErrNotBuilt)
	}
	return fmt.Errorf("%w: %s", ErrUnknownAction, id)
}

func (w *World) spawnFrom(s *model.Structure, p *model.Player, u catalogs.UnitDef) error {
	if s.Removed() || !s.IsBuilt() {
		return ErrNotBuilt
	}
	if !p.Debit(u.Cost) {
		return fmt.Errorf("spawn %s: %w", u.ID, ErrInsufficientResources)
	}
	a, err := w.SpawnAgent(p.PID, u.ID, w.spawnPoint(s))
	if err != nil {
		p.Resources.Add(u.Cost)
		return err
	}
	w.audit("SPAWN_AGENT", playerActor(p.PID), s, "", map[string]any{"hid": uint64(a.HID), "kind": string(u.ID)})
	return nil
}

func (w *World) research(s *model.Structure, p *model.Player, t catalogs.TechnologyDef) error {
	if s.Removed() || !s.IsBuilt() {
		return ErrNotBuilt
	}
	if p.Technologies[t.ID] {
		return fmt.Errorf("%w: %s already researched", ErrUnknownAction, t.ID)
	}
	if !p.Debit(t.Cost) {
		return fmt.Errorf("research %s: %w", t.ID, ErrInsufficientResources)
	}
	w.applyTechnology(p, t)
	w.audit("RESEARCH", playerActor(p.PID), s, "", map[string]any{"technology": t.ID})
	return nil
}

func (w *World) applyTechnology(p *model.Player, t catalogs.TechnologyDef) {
	p.Technologies[t.ID] = true
	for r, m := range t.Gather {
		p.GatherMult[r] = m
	}
	if t.BuildMultiplier > 0 {
		p.BuildMult = t.BuildMultiplier
	}
	if m := t.BuildingHealthMultiplier; m > 0 {
		p.BuildingHealthMult *= m
		for _, s := range w.structures {
			if s.Building == nil || s.Building.PlayerID != p.PID {
				continue
			}
			s.Building.MaxHealth *= m
			s.Health *= m
		}
	}
	for _, r := range t.Unlocked {
		delete(p.Locked, r)
	}
}
