package grid

import "math/rand"

// Orientation is a quarter-turn applied to a footprint. North leaves the
// footprint unchanged.
type Orientation int

const (
	North Orientation = iota
	East
	South
	West
)

func (o Orientation) String() string {
	switch o {
	case North:
		return "NORTH"
	case East:
		return "EAST"
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	default:
		return "UNKNOWN"
	}
}

// NormalizeOrientation accepts either quarter-turns or degrees (multiples of
// 90) and returns a value in [North, West].
func NormalizeOrientation(r int) Orientation {
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return Orientation(r)
}

func RandomOrientation(rng *rand.Rand) Orientation {
	return Orientation(rng.Intn(4))
}

// Rotate returns the footprint point turned by o: East swaps the components,
// South negates them, West does both.
func (o Orientation) Rotate(p Cell) Cell {
	switch o & 3 {
	case East:
		return p.Invert()
	case South:
		return p.Opposite()
	case West:
		return p.Invert().Opposite()
	default:
		return p
	}
}

// RotateAll rotates a copy of points.
func (o Orientation) RotateAll(points []Cell) []Cell {
	out := make([]Cell, len(points))
	for i, p := range points {
		out[i] = o.Rotate(p)
	}
	return out
}
