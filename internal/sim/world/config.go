package world

import (
	"fmt"

	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/terrain/gen"
	"colonysim.ai/internal/sim/world/terrain/noise"
)

type Config struct {
	ID         string
	Seed       int64
	TickRateHz int
	ChunkSize  int
	CellSize   float64

	// Operational parameters. These are included in snapshots for resume.
	SnapshotEveryTicks int
	MaxPathExpansions  int

	// Noise.Seed and Noise.ChunkSize are overwritten from Seed and ChunkSize.
	Noise noise.Params
	// A zero Bands (no list, LAVA fallback) selects gen.DefaultBands.
	Bands gen.Bands
	// Seeding rules; nil disables resource seeding.
	Seeding []tuning.Rule

	StarterResources model.Amounts
	LockedResources  []model.ResourceType
	// BaseCamp is where colony sites are searched from.
	BaseCamp grid.Cell
}

func (c *Config) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = noise.DefaultChunkSize
	}
	if c.CellSize <= 0 {
		c.CellSize = 16
	}
	if c.SnapshotEveryTicks < 0 {
		c.SnapshotEveryTicks = 0
	}
	if len(c.Bands.List) == 0 && c.Bands.Fallback == gen.Lava {
		c.Bands = gen.DefaultBands()
	}
	c.Noise.Seed = c.Seed
	c.Noise.ChunkSize = c.ChunkSize
	if c.StarterResources == nil {
		c.StarterResources = model.Amounts{}
	}
}

// ConfigFromTuning resolves tuning names into a world config.
func ConfigFromTuning(id string, t tuning.Tuning) (Config, error) {
	cfg := Config{
		ID:                 id,
		Seed:               t.Seed,
		TickRateHz:         t.TickRateHz,
		ChunkSize:          t.ChunkSize,
		CellSize:           t.CellSize,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		MaxPathExpansions:  t.MaxPathExpansions,
		Noise: noise.Params{
			Octaves:       t.Noise.Octaves,
			Persistence:   t.Noise.Persistence,
			Lacunarity:    t.Noise.Lacunarity,
			Scale:         t.Noise.Scale,
			Amplitude:     t.Noise.Amplitude,
			SignedOctaves: t.Noise.SignedOctaves,
		},
		Seeding:  t.Seeds,
		BaseCamp: grid.C(t.BaseCamp.X, t.BaseCamp.Y),
	}

	for _, b := range t.Biomes.Bands {
		biome, err := gen.ParseBiome(b.Biome)
		if err != nil {
			return cfg, fmt.Errorf("biomes: %w", err)
		}
		cfg.Bands.List = append(cfg.Bands.List, gen.Band{Min: b.Min, Biome: biome})
	}
	if t.Biomes.Fallback != "" {
		fb, err := gen.ParseBiome(t.Biomes.Fallback)
		if err != nil {
			return cfg, fmt.Errorf("biomes: %w", err)
		}
		cfg.Bands.Fallback = fb
	}
	if err := cfg.Bands.Validate(); err != nil {
		return cfg, fmt.Errorf("biomes: %w", err)
	}

	starter, err := model.AmountsFromNames(t.StarterResources)
	if err != nil {
		return cfg, fmt.Errorf("starter_resources: %w", err)
	}
	cfg.StarterResources = starter
	for _, s := range t.LockedResources {
		r, err := model.ParseResource(s)
		if err != nil {
			return cfg, fmt.Errorf("locked_resources: %w", err)
		}
		cfg.LockedResources = append(cfg.LockedResources, r)
	}
	return cfg, nil
}
