package world

import (
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/terrain/gen"
	"colonysim.ai/internal/sim/world/terrain/store"
)

func (w *World) BiomeAt(c grid.Cell) gen.Biome { return w.chunks.BiomeAt(c) }

func (w *World) Passable(c grid.Cell) bool { return w.chunks.Passable(c) }

// QueryArea returns the biomes of w*h chunks from origin, generating them on demand.
func (w *World) QueryArea(origin grid.ChunkKey, width, height int) [][]gen.Biome {
	return w.chunks.QueryArea(origin, width, height)
}

func (w *World) Chunk(k grid.ChunkKey) *store.Chunk { return w.chunks.Chunk(k) }

func (w *World) LoadedChunkKeys() []grid.ChunkKey { return w.chunks.LoadedChunkKeys() }
