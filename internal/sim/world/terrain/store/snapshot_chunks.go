package store

import (
	"fmt"

	snapv1 "colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/world/terrain/gen"
)

// ExportLoadedChunks converts loaded chunk data into snapshot chunks.
func ExportLoadedChunks(chunks map[ChunkKey]*Chunk, keys []ChunkKey) []snapv1.ChunkV1 {
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := chunks[k]
		if ch == nil {
			continue
		}
		biomes := make([]uint8, len(ch.Biomes))
		for i, b := range ch.Biomes {
			biomes[i] = uint8(b)
		}
		out = append(out, snapv1.ChunkV1{
			CX:     k.CX,
			CY:     k.CY,
			Size:   ch.Size,
			Biomes: biomes,
		})
	}
	return out
}

// ImportChunks rebuilds a chunk store from snapshot chunks. Each chunk must
// match the terrain g generates for it. Imported chunks are not populated
// again; their structures come from the snapshot.
func ImportChunks(g WorldGen, chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	store := NewChunkStore(g)
	n := store.ChunkSize()
	for _, ch := range chunks {
		if ch.Size != n {
			return nil, fmt.Errorf("snapshot chunk size mismatch: got %d want %d", ch.Size, n)
		}
		if len(ch.Biomes) != n*n {
			return nil, fmt.Errorf("snapshot chunk biomes length mismatch: got %d want %d", len(ch.Biomes), n*n)
		}
		k := ChunkKey{CX: ch.CX, CY: ch.CY}
		biomes := make([]gen.Biome, len(ch.Biomes))
		for i, b := range ch.Biomes {
			biomes[i] = gen.Biome(b)
		}
		c := &Chunk{
			Key:    k,
			Size:   n,
			Biomes: biomes,
		}
		c.seal()
		want := &Chunk{Key: k, Size: n, Biomes: make([]gen.Biome, n*n)}
		store.GenerateChunk(want)
		want.seal()
		if c.hash != want.hash {
			return nil, fmt.Errorf("snapshot chunk %d,%d does not match generated terrain", k.CX, k.CY)
		}
		store.Chunks[k] = c
	}
	return store, nil
}
