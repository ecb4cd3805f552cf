package depot

import (
	"testing"

	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/logic/pathfind"
)

type fixedSource []*model.Structure

func (s fixedSource) Buildings(types ...model.BuildingType) []*model.Structure {
	var out []*model.Structure
	for _, t := range types {
		for _, b := range s {
			if b.Building.Type == t {
				out = append(out, b)
			}
		}
	}
	return out
}

func building(sid model.SID, t model.BuildingType, at grid.Cell, st model.BuildState) *model.Structure {
	s := model.NewStructure(sid, model.KindBuilding, at, []grid.Cell{{}}, grid.North, 100)
	s.Building = &model.BuildingInfo{Type: t, State: st}
	return s
}

func open() pathfind.Terrain {
	return pathfind.TerrainFunc(func(grid.Cell) bool { return true })
}

func TestNearest_SkipsUnbuiltAndPicksShortest(t *testing.T) {
	src := fixedSource{
		building(1, model.BaseCamp, grid.C(12, 0), model.Built),
		building(2, model.Farm, grid.C(3, 0), model.UnderConstruction),
		building(3, model.Farm, grid.C(6, 0), model.Built),
	}
	f := &Finder{Source: src, Terrain: open()}
	got, path, ok := f.Nearest(grid.C(0, 0), []model.BuildingType{model.BaseCamp, model.Farm})
	if !ok || got.SID != 3 {
		t.Fatalf("nearest=%v ok=%v want sid 3", got, ok)
	}
	if len(path) != 7 {
		t.Fatalf("path len=%d want 7", len(path))
	}
}

func TestNearest_TiesKeepFirst(t *testing.T) {
	src := fixedSource{
		building(1, model.BaseCamp, grid.C(4, 0), model.Built),
		building(2, model.BaseCamp, grid.C(-4, 0), model.Built),
	}
	f := &Finder{Source: src, Terrain: open()}
	got, _, ok := f.Nearest(grid.C(0, 0), []model.BuildingType{model.BaseCamp})
	if !ok || got.SID != 1 {
		t.Fatalf("tie should keep first candidate, got %v", got)
	}
}

func TestNearest_UnreachableSkipped(t *testing.T) {
	lava := grid.C(10, 10)
	terrain := pathfind.TerrainFunc(func(c grid.Cell) bool { return grid.Chebyshev(c, lava) != 1 })
	src := fixedSource{building(1, model.BaseCamp, lava, model.Built)}
	f := &Finder{Source: src, Terrain: terrain}
	if _, _, ok := f.Nearest(grid.C(0, 0), []model.BuildingType{model.BaseCamp}); ok {
		t.Fatalf("enclosed depot must be unreachable")
	}
}

func TestNearest_CacheRevalidates(t *testing.T) {
	a := building(1, model.BaseCamp, grid.C(2, 0), model.Built)
	b := building(2, model.BaseCamp, grid.C(5, 0), model.Built)
	memo := NewMemo()
	f := &Finder{Source: fixedSource{a, b}, Terrain: open(), Cache: memo}
	types := []model.BuildingType{model.BaseCamp}

	if got, _, _ := f.Nearest(grid.C(0, 0), types); got != a {
		t.Fatalf("want a")
	}
	if got, _, _ := f.Nearest(grid.C(0, 0), types); got != a || memo.Hits != 1 {
		t.Fatalf("expected cache hit, hits=%d", memo.Hits)
	}
	a.MarkRemoved()
	if got, _, _ := f.Nearest(grid.C(0, 0), types); got != b {
		t.Fatalf("removed depot served from cache")
	}
}
