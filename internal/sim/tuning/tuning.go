package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int     `yaml:"tick_rate_hz"`
	Seed               int64   `yaml:"seed"`
	ChunkSize          int     `yaml:"chunk_size"`
	CellSize           float64 `yaml:"cell_size"`
	SnapshotEveryTicks int     `yaml:"snapshot_every_ticks"`
	MaxPathExpansions  int     `yaml:"max_path_expansions"`

	Noise  Noise  `yaml:"noise"`
	Biomes Biomes `yaml:"biomes"`
	Seeds  []Rule `yaml:"seeding"`

	StarterResources map[string]float64 `yaml:"starter_resources"`
	// LockedResources cannot be gathered until a technology unlocks them.
	LockedResources []string `yaml:"locked_resources"`
	BaseCamp        Cell     `yaml:"base_camp"`
}

type Noise struct {
	Octaves       int     `yaml:"octaves"`
	Persistence   float64 `yaml:"persistence"`
	Lacunarity    float64 `yaml:"lacunarity"`
	Scale         float64 `yaml:"scale"`
	Amplitude     float64 `yaml:"amplitude"`
	SignedOctaves bool    `yaml:"signed_octaves"`
}

type Band struct {
	Min   float64 `yaml:"min"`
	Biome string  `yaml:"biome"`
}

type Biomes struct {
	Bands    []Band `yaml:"bands"`
	Fallback string `yaml:"fallback"`
}

// Rule seeds one resource kind into one biome.
type Rule struct {
	Biome          string  `yaml:"biome"`
	Resource       string  `yaml:"resource"`
	Threshold      float64 `yaml:"threshold"`
	SearchArea     int     `yaml:"search_area"`
	CountThreshold int     `yaml:"count_threshold"`
}

type Cell struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         10,
		Seed:               1,
		ChunkSize:          32,
		CellSize:           16,
		SnapshotEveryTicks: 3000,
		MaxPathExpansions:  300,
		Noise: Noise{
			Octaves:     4,
			Persistence: 2,
			Lacunarity:  2,
			Scale:       100,
			Amplitude:   1,
		},
		Biomes: Biomes{
			Bands: []Band{
				{Min: 4.5, Biome: "SNOWY_PEAK"},
				{Min: 2.5, Biome: "MOUNTAIN"},
				{Min: 1.0, Biome: "FOREST"},
				{Min: -1.0, Biome: "PLAIN"},
				{Min: -2.5, Biome: "MUSHROOM_FOREST"},
				{Min: -4.0, Biome: "VOLCANO"},
			},
			Fallback: "LAVA",
		},
		Seeds: []Rule{
			{Biome: "FOREST", Resource: "TREE", Threshold: 0.03, SearchArea: 3, CountThreshold: 40},
			{Biome: "PLAIN", Resource: "TREE", Threshold: 0.002, SearchArea: 3, CountThreshold: 6},
			{Biome: "MOUNTAIN", Resource: "STONE_ORE", Threshold: 0.004, SearchArea: 3, CountThreshold: 6},
			{Biome: "MOUNTAIN", Resource: "IRON_ORE", Threshold: 0.002, SearchArea: 3, CountThreshold: 6},
			{Biome: "MOUNTAIN", Resource: "COPPER_ORE", Threshold: 0.002, SearchArea: 3, CountThreshold: 6},
			{Biome: "MOUNTAIN", Resource: "GOLD_ORE", Threshold: 0.001, SearchArea: 3, CountThreshold: 6},
			{Biome: "SNOWY_PEAK", Resource: "CRYSTAL_ORE", Threshold: 0.002, SearchArea: 3, CountThreshold: 4},
			{Biome: "VOLCANO", Resource: "VULCAN_ORE", Threshold: 0.003, SearchArea: 3, CountThreshold: 4},
		},
		StarterResources: map[string]float64{"FOOD": 300, "WOOD": 300, "STONE": 100},
		LockedResources:  []string{"VULCAN", "CRYSTAL"},
	}
}

// applyDefaults fills zero values from Defaults. An explicit empty seeding
// list is kept and disables resource seeding.
func (t *Tuning) applyDefaults() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.ChunkSize <= 0 {
		t.ChunkSize = d.ChunkSize
	}
	if t.CellSize <= 0 {
		t.CellSize = d.CellSize
	}
	if t.SnapshotEveryTicks < 0 {
		t.SnapshotEveryTicks = 0
	}
	if t.MaxPathExpansions <= 0 {
		t.MaxPathExpansions = d.MaxPathExpansions
	}
	if t.Noise.Octaves <= 0 {
		t.Noise.Octaves = d.Noise.Octaves
	}
	if t.Noise.Persistence == 0 {
		t.Noise.Persistence = d.Noise.Persistence
	}
	if t.Noise.Lacunarity == 0 {
		t.Noise.Lacunarity = d.Noise.Lacunarity
	}
	if t.Noise.Scale == 0 {
		t.Noise.Scale = d.Noise.Scale
	}
	if t.Noise.Amplitude == 0 {
		t.Noise.Amplitude = d.Noise.Amplitude
	}
	if len(t.Biomes.Bands) == 0 {
		t.Biomes.Bands = d.Biomes.Bands
	}
	if t.Biomes.Fallback == "" {
		t.Biomes.Fallback = d.Biomes.Fallback
	}
	if t.Seeds == nil {
		t.Seeds = d.Seeds
	}
	if t.StarterResources == nil {
		t.StarterResources = d.StarterResources
	}
	if t.LockedResources == nil {
		t.LockedResources = d.LockedResources
	}
}

func (t Tuning) Validate() error {
	for i, r := range t.Seeds {
		if r.Threshold < 0 || r.Threshold > 1 {
			return fmt.Errorf("seeding[%d]: threshold %v outside [0,1]", i, r.Threshold)
		}
		if r.SearchArea <= 0 {
			return fmt.Errorf("seeding[%d]: search_area must be positive", i)
		}
	}
	if t.Noise.Scale == 0 {
		return errors.New("noise.scale must be non-zero")
	}
	return nil
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
