package seed

import (
	"testing"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/spatial"
	"colonysim.ai/internal/sim/world/terrain/gen"
	"colonysim.ai/internal/sim/world/terrain/store"
)

type indexPlacer struct {
	idx  *spatial.Index
	next model.SID
}

func (p *indexPlacer) CountCategory(k grid.ChunkKey, kind model.Kind) int {
	return p.idx.CountCategory(k, kind)
}

func (p *indexPlacer) PlaceResource(def catalogs.ResourceDef, at grid.Cell, o grid.Orientation) bool {
	p.next++
	s := model.NewStructure(p.next, def.StructureKind, at, def.Cells, o, def.Health)
	return p.idx.TryPlace(s)
}

func forestChunk(k grid.ChunkKey, size int) *store.Chunk {
	ch := &store.Chunk{Key: k, Size: size, Biomes: make([]gen.Biome, size*size)}
	for i := range ch.Biomes {
		ch.Biomes[i] = gen.Forest
	}
	return ch
}

var tree = catalogs.ResourceDef{
	ID:            "TREE",
	StructureKind: model.KindTree,
	Resource:      model.Wood,
	Health:        200,
	Cells:         grid.R(-1, -1, 1, 1).Points(),
}

func TestOffsets(t *testing.T) {
	got := Offsets(5)
	want := []int{0, -1, 1, -2, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Offsets(5)=%v want %v", got, want)
		}
	}
	if len(Offsets(1)) != 1 || len(Offsets(4)) != 4 {
		t.Fatalf("bad offset lengths")
	}
}

func TestPopulate_RespectsCountThreshold(t *testing.T) {
	p := &indexPlacer{idx: spatial.New(16)}
	s := &Seeder{
		Seed:   9,
		Rules:  map[gen.Biome][]Rule{gen.Forest: {{Resource: tree, Threshold: 1, SearchArea: 3, CountThreshold: 5}}},
		Placer: p,
	}
	s.Populate(forestChunk(grid.ChunkKey{}, 16))
	if got := p.idx.CountCategory(grid.ChunkKey{}, model.KindTree); got != 5 {
		t.Fatalf("trees=%d want 5", got)
	}
	// A neighbouring chunk sees the five trees and stays empty.
	s.Populate(forestChunk(grid.ChunkKey{CX: 1}, 16))
	if got := p.idx.CountCategory(grid.ChunkKey{CX: 1}, model.KindTree); got != 0 {
		t.Fatalf("neighbour trees=%d want 0", got)
	}
	if p.idx.Orphans() != 0 {
		t.Fatalf("orphaned entries after seeding")
	}
}

func TestPopulate_Deterministic(t *testing.T) {
	run := func() []grid.Cell {
		p := &indexPlacer{idx: spatial.New(16)}
		s := &Seeder{
			Seed:   4,
			Rules:  map[gen.Biome][]Rule{gen.Forest: {{Resource: tree, Threshold: 0.05, SearchArea: 1, CountThreshold: 100}}},
			Placer: p,
		}
		s.Populate(forestChunk(grid.ChunkKey{CX: -2, CY: 3}, 16))
		var out []grid.Cell
		for _, st := range p.idx.All() {
			out = append(out, st.Coords)
		}
		return out
	}
	a, b := run(), run()
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("placements %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("placement %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPopulate_IneligibleBiomeUntouched(t *testing.T) {
	p := &indexPlacer{idx: spatial.New(8)}
	s := &Seeder{
		Seed:   1,
		Rules:  map[gen.Biome][]Rule{gen.Mountain: {{Resource: tree, Threshold: 1, SearchArea: 1, CountThreshold: 100}}},
		Placer: p,
	}
	s.Populate(forestChunk(grid.ChunkKey{}, 8))
	if p.idx.StructureCount() != 0 {
		t.Fatalf("seeded a biome without rules")
	}
}
