package world

import (
	"testing"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/terrain/gen"
)

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

// flatConfig yields an all-plains world with no resource seeding.
func flatConfig() Config {
	return Config{
		ID:         "test",
		Seed:       42,
		TickRateHz: 10,
		ChunkSize:  16,
		CellSize:   16,
		Bands:      gen.Bands{Fallback: gen.Plain},
		StarterResources: model.Amounts{
			model.Food:  300,
			model.Wood:  300,
			model.Stone: 100,
		},
		LockedResources: []model.ResourceType{model.Vulcan, model.Crystal},
	}
}

func newWorld(t *testing.T, cfg Config) *World {
	t.Helper()
	w, err := New(cfg, loadCatalogs(t))
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func mustPlace(t *testing.T, w *World, pid model.PlayerID, bt model.BuildingType, at grid.Cell) *model.Structure {
	t.Helper()
	s, err := w.PlaceBuilding(pid, bt, at, grid.North)
	if err != nil {
		t.Fatalf("place %s: %v", bt, err)
	}
	return s
}

func mustSpawn(t *testing.T, w *World, pid model.PlayerID, kind model.UnitKind, at grid.Cell) *model.Agent {
	t.Helper()
	a, err := w.SpawnAgent(pid, kind, at.Center(w.cfg.CellSize))
	if err != nil {
		t.Fatalf("spawn %s: %v", kind, err)
	}
	return a
}

type memTickLog struct{ entries []TickLogEntry }

func (l *memTickLog) WriteTick(e TickLogEntry) error {
	l.entries = append(l.entries, e)
	return nil
}

type memAudit struct{ entries []AuditEntry }

func (l *memAudit) WriteAudit(e AuditEntry) error {
	l.entries = append(l.entries, e)
	return nil
}

func (l *memAudit) actions() map[string]int {
	out := map[string]int{}
	for _, e := range l.entries {
		out[e.Action]++
	}
	return out
}
