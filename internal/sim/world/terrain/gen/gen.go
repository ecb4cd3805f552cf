package gen

import (
	"fmt"
	"strings"
)

type Biome uint8

const (
	Lava Biome = iota
	Volcano
	MushroomForest
	Plain
	Forest
	Mountain
	SnowyPeak
)

// Obstacle is the only biome agents cannot walk on.
const Obstacle = Lava

var biomeNames = [...]string{
	Lava:           "LAVA",
	Volcano:        "VOLCANO",
	MushroomForest: "MUSHROOM_FOREST",
	Plain:          "PLAIN",
	Forest:         "FOREST",
	Mountain:       "MOUNTAIN",
	SnowyPeak:      "SNOWY_PEAK",
}

func (b Biome) String() string {
	if int(b) < len(biomeNames) {
		return biomeNames[b]
	}
	return fmt.Sprintf("BIOME(%d)", int(b))
}

func (b Biome) Passable() bool { return b != Obstacle }

// Glyph is the single-character form used by map dumps.
func (b Biome) Glyph() byte {
	switch b {
	case SnowyPeak:
		return '^'
	case Mountain:
		return 'M'
	case Forest:
		return 'T'
	case Plain:
		return '.'
	case MushroomForest:
		return 'm'
	case Volcano:
		return 'V'
	default:
		return '~'
	}
}

func ParseBiome(s string) (Biome, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range biomeNames {
		if n == want {
			return Biome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown biome %q", s)
}

// Band maps every noise value strictly greater than Min to Biome.
type Band struct {
	Min   float64
	Biome Biome
}

// Bands is ordered by descending Min. Values below every band fall to Fallback.
type Bands struct {
	List     []Band
	Fallback Biome
}

func DefaultBands() Bands {
	return Bands{
		List: []Band{
			{Min: 4.5, Biome: SnowyPeak},
			{Min: 2.5, Biome: Mountain},
			{Min: 1.0, Biome: Forest},
			{Min: -1.0, Biome: Plain},
			{Min: -2.5, Biome: MushroomForest},
			{Min: -4.0, Biome: Volcano},
		},
		Fallback: Lava,
	}
}

func (b Bands) Validate() error {
	for i := 1; i < len(b.List); i++ {
		if b.List[i].Min >= b.List[i-1].Min {
			return fmt.Errorf("biome bands not descending at %d: %v >= %v", i, b.List[i].Min, b.List[i-1].Min)
		}
	}
	return nil
}

func (b Bands) Classify(v float64) Biome {
	for _, band := range b.List {
		if v > band.Min {
			return band.Biome
		}
	}
	return b.Fallback
}
