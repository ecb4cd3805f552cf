// Package spatial tracks which cell each structure occupies and buckets
// structures and agents by chunk.
package spatial

import (
	"sort"

	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
)

type Index struct {
	chunkSize int

	cells      map[grid.Cell]*model.Structure
	occupied   map[grid.ChunkKey]map[grid.Cell]struct{}
	structures map[grid.ChunkKey][]*model.Structure
	buildings  map[model.BuildingType][]*model.Structure
	agents     map[grid.ChunkKey][]*model.Agent
	agentAt    map[model.HID]grid.ChunkKey
}

func New(chunkSize int) *Index {
	return &Index{
		chunkSize:  chunkSize,
		cells:      map[grid.Cell]*model.Structure{},
		occupied:   map[grid.ChunkKey]map[grid.Cell]struct{}{},
		structures: map[grid.ChunkKey][]*model.Structure{},
		buildings:  map[model.BuildingType][]*model.Structure{},
		agents:     map[grid.ChunkKey][]*model.Agent{},
		agentAt:    map[model.HID]grid.ChunkKey{},
	}
}

func (x *Index) ChunkSize() int { return x.chunkSize }

// Free reports whether every cell is unoccupied.
func (x *Index) Free(cells []grid.Cell) bool {
	for _, c := range cells {
		if _, ok := x.cells[c]; ok {
			return false
		}
	}
	return true
}

// TryPlace registers s only when its whole footprint is free.
func (x *Index) TryPlace(s *model.Structure) bool {
	cells := s.Cells()
	if !x.Free(cells) {
		return false
	}
	seen := make(map[grid.Cell]struct{}, len(cells))
	for _, c := range cells {
		if _, dup := seen[c]; dup {
			return false
		}
		seen[c] = struct{}{}
	}
	for _, c := range cells {
		x.cells[c] = s
		k := c.Chunk(x.chunkSize)
		b := x.occupied[k]
		if b == nil {
			b = map[grid.Cell]struct{}{}
			x.occupied[k] = b
		}
		b[c] = struct{}{}
	}
	k := s.Coords.Chunk(x.chunkSize)
	x.structures[k] = append(x.structures[k], s)
	if s.Building != nil {
		x.buildings[s.Building.Type] = append(x.buildings[s.Building.Type], s)
	}
	return true
}

// Remove unregisters s. Entries already missing, or cells now owned by
// another structure, are left alone.
func (x *Index) Remove(s *model.Structure) {
	if s == nil {
		return
	}
	for _, c := range s.Cells() {
		if x.cells[c] != s {
			continue
		}
		delete(x.cells, c)
		k := c.Chunk(x.chunkSize)
		if b := x.occupied[k]; b != nil {
			delete(b, c)
			if len(b) == 0 {
				delete(x.occupied, k)
			}
		}
	}
	k := s.Coords.Chunk(x.chunkSize)
	if list := removeStructure(x.structures[k], s); len(list) == 0 {
		delete(x.structures, k)
	} else {
		x.structures[k] = list
	}
	if s.Building != nil {
		t := s.Building.Type
		if list := removeStructure(x.buildings[t], s); len(list) == 0 {
			delete(x.buildings, t)
		} else {
			x.buildings[t] = list
		}
	}
}

func removeStructure(list []*model.Structure, s *model.Structure) []*model.Structure {
	for i, v := range list {
		if v == s {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

func (x *Index) At(c grid.Cell) *model.Structure {
	return x.cells[c]
}

func (x *Index) InChunk(k grid.ChunkKey) []*model.Structure {
	return x.structures[k]
}

func (x *Index) CountCategory(k grid.ChunkKey, kind model.Kind) int {
	n := 0
	for _, s := range x.structures[k] {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// Buildings returns the buildings of the given types in type order, then
// placement order within each type.
func (x *Index) Buildings(types ...model.BuildingType) []*model.Structure {
	var out []*model.Structure
	for _, t := range types {
		out = append(out, x.buildings[t]...)
	}
	return out
}

// OccupiedIn returns the occupied cells of chunk k in row-major order.
func (x *Index) OccupiedIn(k grid.ChunkKey) []grid.Cell {
	b := x.occupied[k]
	out := make([]grid.Cell, 0, len(b))
	for c := range b {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// All returns every registered structure sorted by SID.
func (x *Index) All() []*model.Structure {
	var out []*model.Structure
	for _, list := range x.structures {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SID < out[j].SID })
	return out
}

func (x *Index) StructureCount() int {
	n := 0
	for _, list := range x.structures {
		n += len(list)
	}
	return n
}

func (x *Index) OccupiedCount() int { return len(x.cells) }

// Orphans counts bucket entries that no longer agree with the cell map.
func (x *Index) Orphans() int {
	n := 0
	for k, b := range x.occupied {
		for c := range b {
			s := x.cells[c]
			if s == nil || c.Chunk(x.chunkSize) != k {
				n++
			}
		}
	}
	for _, list := range x.structures {
		for _, s := range list {
			for _, c := range s.Cells() {
				if x.cells[c] != s {
					n++
				}
			}
		}
	}
	return n
}
