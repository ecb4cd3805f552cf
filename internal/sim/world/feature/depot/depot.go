// Package depot picks the drop-off building an agent should walk to.
package depot

import (
	"strings"

	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/logic/pathfind"
)

type BuildingSource interface {
	Buildings(types ...model.BuildingType) []*model.Structure
}

type Key struct {
	From  grid.Cell
	Types string
}

func KeyFor(from grid.Cell, types []model.BuildingType) Key {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return Key{From: from, Types: strings.Join(parts, ",")}
}

type Entry struct {
	Depot *model.Structure
	Path  []grid.Cell
}

// Cache memoizes nearest-depot answers. Implementations decide their own
// lifetime; the finder revalidates cached depots before returning them.
type Cache interface {
	Get(k Key) (Entry, bool)
	Put(k Key, e Entry)
	Invalidate()
}

// Memo is a plain map cache, cleared by Invalidate.
type Memo struct {
	m    map[Key]Entry
	Hits int
}

func NewMemo() *Memo { return &Memo{m: map[Key]Entry{}} }

func (c *Memo) Get(k Key) (Entry, bool) {
	e, ok := c.m[k]
	if ok {
		c.Hits++
	}
	return e, ok
}

func (c *Memo) Put(k Key, e Entry) { c.m[k] = e }

func (c *Memo) Invalidate() {
	if len(c.m) > 0 {
		c.m = map[Key]Entry{}
	}
}

type Finder struct {
	Source  BuildingSource
	Terrain pathfind.Terrain
	Options pathfind.Options
	Cache   Cache
}

// Nearest returns the built depot of one of types with the shortest
// reachable path from from. Equal lengths keep the earlier candidate.
func (f *Finder) Nearest(from grid.Cell, types []model.BuildingType) (*model.Structure, []grid.Cell, bool) {
	var key Key
	if f.Cache != nil {
		key = KeyFor(from, types)
		if e, ok := f.Cache.Get(key); ok && e.Depot != nil && !e.Depot.Removed() && e.Depot.IsBuilt() {
			return e.Depot, append([]grid.Cell(nil), e.Path...), true
		}
	}

	var best *model.Structure
	var bestPath []grid.Cell
	for _, b := range f.Source.Buildings(types...) {
		if b.Removed() || !b.IsBuilt() {
			continue
		}
		res := pathfind.Find(from, b.Coords, f.Terrain, f.Options)
		if !res.Found {
			continue
		}
		if best == nil || len(res.Path) < len(bestPath) {
			best = b
			bestPath = res.Path
		}
	}
	if best == nil {
		return nil, nil, false
	}
	if f.Cache != nil {
		f.Cache.Put(key, Entry{Depot: best, Path: bestPath})
	}
	return best, append([]grid.Cell(nil), bestPath...), true
}
