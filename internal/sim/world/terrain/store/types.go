package store

import (
	"crypto/sha256"

	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/terrain/gen"
	"colonysim.ai/internal/sim/world/terrain/noise"
)

type ChunkKey = grid.ChunkKey

type Chunk struct {
	Key    ChunkKey
	Size   int
	Biomes []gen.Biome // len = Size*Size, row-major

	hash [32]byte
}

func (c *Chunk) index(x, y int) int {
	return x + y*c.Size
}

func (c *Chunk) Get(x, y int) gen.Biome {
	return c.Biomes[c.index(x, y)]
}

func (c *Chunk) Origin() grid.Cell {
	return c.Key.Origin(c.Size)
}

// Digest is the sha256 of the biome bytes, fixed when the chunk is built.
func (c *Chunk) Digest() [32]byte { return c.hash }

func (c *Chunk) seal() {
	buf := make([]byte, len(c.Biomes))
	for i, b := range c.Biomes {
		buf[i] = byte(b)
	}
	c.hash = sha256.Sum256(buf)
}

// Populator seeds structures into a freshly generated chunk. It is called
// exactly once per chunk and must not request other chunks from the store.
type Populator interface {
	Populate(ch *Chunk)
}

type WorldGen struct {
	Noise *noise.Field
	Bands gen.Bands
}

type ChunkStore struct {
	Gen       WorldGen
	Chunks    map[ChunkKey]*Chunk
	Populator Populator
}

func NewChunkStore(g WorldGen) *ChunkStore {
	return &ChunkStore{
		Gen:    g,
		Chunks: map[ChunkKey]*Chunk{},
	}
}

func (s *ChunkStore) ChunkSize() int {
	return s.Gen.Noise.ChunkSize()
}
