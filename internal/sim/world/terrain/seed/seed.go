// Package seed scatters trees and ores over freshly generated chunks.
package seed

import (
	"fmt"
	"math/rand"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/logic/mathx"
	"colonysim.ai/internal/sim/world/terrain/gen"
	"colonysim.ai/internal/sim/world/terrain/store"
)

// Placer is the world side of seeding. PlaceResource must fail silently when
// the footprint is taken.
type Placer interface {
	CountCategory(k grid.ChunkKey, kind model.Kind) int
	PlaceResource(def catalogs.ResourceDef, at grid.Cell, o grid.Orientation) bool
}

type Rule struct {
	Resource       catalogs.ResourceDef
	Threshold      float64
	SearchArea     int
	CountThreshold int
}

type Seeder struct {
	Seed   int64
	Rules  map[gen.Biome][]Rule
	Placer Placer
}

// Compile resolves tuning rules against the resource catalog, keeping file order per biome.
func Compile(rules []tuning.Rule, res catalogs.ResourceCatalog) (map[gen.Biome][]Rule, error) {
	out := map[gen.Biome][]Rule{}
	for i, r := range rules {
		b, err := gen.ParseBiome(r.Biome)
		if err != nil {
			return nil, fmt.Errorf("seeding[%d]: %w", i, err)
		}
		def, ok := res.ByID[r.Resource]
		if !ok {
			return nil, fmt.Errorf("seeding[%d]: unknown resource %q", i, r.Resource)
		}
		out[b] = append(out[b], Rule{
			Resource:       def,
			Threshold:      r.Threshold,
			SearchArea:     r.SearchArea,
			CountThreshold: r.CountThreshold,
		})
	}
	return out, nil
}

// Offsets returns the first n values of 0, -1, 1, -2, 2, ...
func Offsets(n int) []int {
	out := make([]int, 0, n)
	for i := 0; len(out) < n; i++ {
		if i == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, -i)
		if len(out) < n {
			out = append(out, i)
		}
	}
	return out
}

// Nearby counts structures of kind in the area x area block of chunks around k.
// Only chunks already holding structures contribute; nothing is generated.
func Nearby(p Placer, k grid.ChunkKey, kind model.Kind, area int) int {
	offs := Offsets(area)
	n := 0
	for _, dy := range offs {
		for _, dx := range offs {
			n += p.CountCategory(grid.ChunkKey{CX: k.CX + dx, CY: k.CY + dy}, kind)
		}
	}
	return n
}

// Populate is deterministic per chunk: the random stream depends only on
// the world seed and the chunk key, never on generation order.
func (s *Seeder) Populate(ch *store.Chunk) {
	if s.Placer == nil || len(s.Rules) == 0 {
		return
	}
	rng := rand.New(rand.NewSource(mathx.SeedFor(s.Seed, ch.Key.CX, ch.Key.CY)))
	origin := ch.Origin()
	for y := 0; y < ch.Size; y++ {
		for x := 0; x < ch.Size; x++ {
			rules := s.Rules[ch.Get(x, y)]
			for _, r := range rules {
				if rng.Float64() >= r.Threshold {
					continue
				}
				if Nearby(s.Placer, ch.Key, r.Resource.StructureKind, r.SearchArea) >= r.CountThreshold {
					continue
				}
				o := grid.RandomOrientation(rng)
				if s.Placer.PlaceResource(r.Resource, origin.Add(grid.C(x, y)), o) {
					break
				}
			}
		}
	}
}

var _ store.Populator = (*Seeder)(nil)
