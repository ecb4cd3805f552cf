package store

import "colonysim.ai/internal/sim/world/terrain/gen"

func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	sample := s.Gen.Noise.Chunk(ch.Key.CX, ch.Key.CY)
	n := ch.Size
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			ch.Biomes[x+y*n] = s.Gen.Bands.Classify(sample.At(x, y))
		}
	}
}

// BiomeCounts tallies biomes across the loaded chunks.
func (s *ChunkStore) BiomeCounts() map[gen.Biome]int {
	out := map[gen.Biome]int{}
	for _, ch := range s.Chunks {
		for _, b := range ch.Biomes {
			out[b]++
		}
	}
	return out
}
