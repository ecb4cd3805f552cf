package grid

import (
	"math"

	"colonysim.ai/internal/sim/world/logic/mathx"
)

// Cell is an integer world-cell coordinate. It is comparable and used as a map key.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func C(x, y int) Cell { return Cell{X: x, Y: y} }

func (c Cell) Add(o Cell) Cell { return Cell{X: c.X + o.X, Y: c.Y + o.Y} }
func (c Cell) Sub(o Cell) Cell { return Cell{X: c.X - o.X, Y: c.Y - o.Y} }
func (c Cell) Mul(k int) Cell { return Cell{X: c.X * k, Y: c.Y * k} }
func (c Cell) Invert() Cell { return Cell{X: c.Y, Y: c.X} }
func (c Cell) Opposite() Cell { return Cell{X: -c.X, Y: -c.Y} }
func (c Cell) ToArray() [2]int { return [2]int{c.X, c.Y} }
func CellFromArray(a [2]int) Cell { return Cell{X: a[0], Y: a[1]} }

// FloorDiv divides both components rounding toward negative infinity.
func (c Cell) FloorDiv(n int) Cell {
	return Cell{X: mathx.FloorDiv(c.X, n), Y: mathx.FloorDiv(c.Y, n)}
}

// Mod is the non-negative component-wise remainder.
func (c Cell) Mod(n int) Cell {
	return Cell{X: mathx.Mod(c.X, n), Y: mathx.Mod(c.Y, n)}
}

func (c Cell) Chunk(size int) ChunkKey {
	d := c.FloorDiv(size)
	return ChunkKey{CX: d.X, CY: d.Y}
}

// Center returns the world position of the middle of the cell.
func (c Cell) Center(cellSize float64) Vec2 {
	return Vec2{X: (float64(c.X) + 0.5) * cellSize, Y: (float64(c.Y) + 0.5) * cellSize}
}

func Manhattan(a, b Cell) int {
	return mathx.AbsInt(a.X-b.X) + mathx.AbsInt(a.Y-b.Y)
}

func Chebyshev(a, b Cell) int {
	return mathx.MaxInt(mathx.AbsInt(a.X-b.X), mathx.AbsInt(a.Y-b.Y))
}

type ChunkKey struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
}

// Origin is the first cell of the chunk.
func (k ChunkKey) Origin(size int) Cell {
	return Cell{X: k.CX * size, Y: k.CY * size}
}

func (k ChunkKey) Less(o ChunkKey) bool {
	if k.CX != o.CX {
		return k.CX < o.CX
	}
	return k.CY < o.CY
}

// Vec2 is a continuous world position.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }
func (v Vec2) Dist(o Vec2) float64 { return math.Hypot(v.X-o.X, v.Y-o.Y) }
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{X: v.X + (o.X-v.X)*t, Y: v.Y + (o.Y-v.Y)*t}
}

// Cell returns the cell containing v.
func (v Vec2) Cell(cellSize float64) Cell {
	return Cell{X: int(math.Floor(v.X / cellSize)), Y: int(math.Floor(v.Y / cellSize))}
}

// Rect is an inclusive cell rectangle.
type Rect struct {
	Min Cell
	Max Cell
}

func R(x1, y1, x2, y2 int) Rect { return Rect{Min: Cell{X: x1, Y: y1}, Max: Cell{X: x2, Y: y2}} }

func (r Rect) Contains(c Cell) bool {
	return r.Min.X <= c.X && c.X <= r.Max.X && r.Min.Y <= c.Y && c.Y <= r.Max.Y
}

// Points lists every cell of r in row-major order.
func (r Rect) Points() []Cell {
	out := make([]Cell, 0, (r.Max.X-r.Min.X+1)*(r.Max.Y-r.Min.Y+1))
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		for x := r.Min.X; x <= r.Max.X; x++ {
			out = append(out, Cell{X: x, Y: y})
		}
	}
	return out
}

// Bounds returns the smallest Rect containing every point.
func Bounds(points []Cell) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	r := Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	return r
}
