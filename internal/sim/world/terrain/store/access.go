package store

import (
	"sort"

	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/terrain/gen"
)

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func (s *ChunkStore) BiomeAt(c grid.Cell) gen.Biome {
	n := s.ChunkSize()
	local := c.Mod(n)
	ch := s.Chunk(c.Chunk(n))
	return ch.Get(local.X, local.Y)
}

func (s *ChunkStore) Passable(c grid.Cell) bool {
	return s.BiomeAt(c).Passable()
}

// Chunk returns the biome chunk at k, generating and populating it on first use.
func (s *ChunkStore) Chunk(k ChunkKey) *Chunk {
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	n := s.ChunkSize()
	ch := &Chunk{
		Key:    k,
		Size:   n,
		Biomes: make([]gen.Biome, n*n),
	}
	s.GenerateChunk(ch)
	ch.seal()
	// Registered before populating so a misbehaving populator cannot regenerate it.
	s.Chunks[k] = ch
	if s.Populator != nil {
		s.Populator.Populate(ch)
	}
	return ch
}

// QueryArea stitches w*h chunks starting at origin into one grid indexed
// [row][col], rows growing with Y.
func (s *ChunkStore) QueryArea(origin ChunkKey, w, h int) [][]gen.Biome {
	if w <= 0 || h <= 0 {
		return nil
	}
	n := s.ChunkSize()
	out := make([][]gen.Biome, h*n)
	for i := range out {
		out[i] = make([]gen.Biome, w*n)
	}
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			ch := s.Chunk(ChunkKey{CX: origin.CX + dx, CY: origin.CY + dy})
			for y := 0; y < n; y++ {
				copy(out[dy*n+y][dx*n:(dx+1)*n], ch.Biomes[y*n:(y+1)*n])
			}
		}
	}
	return out
}
