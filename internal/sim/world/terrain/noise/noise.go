// Package noise implements seeded 2-D gradient noise sampled in fixed-size
// chunks. Chunk samples are raw fractal sums; they are never normalized.
package noise

import (
	"math"
	"math/rand"
	"sync"
)

const DefaultChunkSize = 32

type Params struct {
	Seed        int64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	Scale       float64
	Amplitude   float64
	ChunkSize   int

	// SignedOctaves remaps every octave sample v to 2v-1 before summing.
	SignedOctaves bool
}

func (p *Params) applyDefaults() {
	if p.Octaves <= 0 {
		p.Octaves = 1
	}
	if p.Persistence == 0 {
		p.Persistence = 1
	}
	if p.Lacunarity == 0 {
		p.Lacunarity = 1
	}
	if p.Scale == 0 {
		p.Scale = 1
	}
	if p.Amplitude == 0 {
		p.Amplitude = 1
	}
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
}

type Key struct{ CX, CY int }

// Sample is one generated chunk. Values is row-major: Values[x+y*size].
// Min and Max are kept for diagnostics only.
type Sample struct {
	Size   int
	Values []float64
	Min    float64
	Max    float64
}

func (s *Sample) At(x, y int) float64 {
	return s.Values[x+y*s.Size]
}

type Field struct {
	p Params

	xOffset float64
	yOffset float64

	perm      [512]int
	gradients [256][2]float64

	mu     sync.RWMutex
	chunks map[Key]*Sample
}

func New(p Params) *Field {
	p.applyDefaults()
	f := &Field{p: p, chunks: map[Key]*Sample{}}

	rng := rand.New(rand.NewSource(p.Seed))
	f.xOffset = float64(rng.Intn(200) - 100)
	f.yOffset = float64(rng.Intn(200) - 100)

	perm := rng.Perm(256)
	for i := 0; i < 512; i++ {
		f.perm[i] = perm[i&255]
	}
	for i := range f.gradients {
		f.gradients[i] = [2]float64{rng.Float64()*2 - 1, rng.Float64()*2 - 1}
	}
	return f
}

func (f *Field) Params() Params { return f.p }

func (f *Field) ChunkSize() int { return f.p.ChunkSize }

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func (f *Field) grad(h int, x, y float64) float64 {
	g := f.gradients[f.perm[h]&255]
	return g[0]*x + g[1]*y
}

// Noise returns the single-octave gradient noise value at (x, y).
func (f *Field) Noise(x, y float64) float64 {
	fx := math.Floor(x)
	fy := math.Floor(y)
	X := int(fx) & 255
	Y := int(fy) & 255
	xf := x - fx
	yf := y - fy

	u := fade(xf)
	v := fade(yf)

	aa := f.perm[X] + Y
	ab := f.perm[X] + Y + 1
	ba := f.perm[X+1] + Y
	bb := f.perm[X+1] + Y + 1

	nAA := f.grad(aa, xf, yf)
	nAB := f.grad(ab, xf, yf-1)
	nBA := f.grad(ba, xf-1, yf)
	nBB := f.grad(bb, xf-1, yf-1)

	x1 := lerp(nAA, nBA, u)
	x2 := lerp(nAB, nBB, u)
	return lerp(x1, x2, v)
}

// Fractal sums Octaves layers of noise at world cell (wx, wy).
func (f *Field) Fractal(wx, wy int) float64 {
	amp := f.p.Amplitude
	freq := 1.0
	sum := 0.0
	for o := 0; o < f.p.Octaves; o++ {
		px := (float64(wx)+f.xOffset)/f.p.Scale*freq + f.xOffset
		py := (float64(wy)+f.yOffset)/f.p.Scale*freq + f.yOffset
		v := f.Noise(px, py)
		if f.p.SignedOctaves {
			v = 2*v - 1
		}
		sum += v * amp
		amp *= f.p.Persistence
		freq *= f.p.Lacunarity
	}
	return sum
}

// Chunk returns the memoized sample for chunk (cx, cy), generating it on first use.
func (f *Field) Chunk(cx, cy int) *Sample {
	k := Key{CX: cx, CY: cy}
	f.mu.RLock()
	s, ok := f.chunks[k]
	f.mu.RUnlock()
	if ok {
		return s
	}

	s = f.generate(cx, cy)

	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.chunks[k]; ok {
		return prev
	}
	f.chunks[k] = s
	return s
}

func (f *Field) generate(cx, cy int) *Sample {
	n := f.p.ChunkSize
	s := &Sample{
		Size:   n,
		Values: make([]float64, n*n),
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			v := f.Fractal(cx*n+x, cy*n+y)
			s.Values[x+y*n] = v
			if v < s.Min {
				s.Min = v
			}
			if v > s.Max {
				s.Max = v
			}
		}
	}
	return s
}

// Loaded reports how many chunks are memoized.
func (f *Field) Loaded() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.chunks)
}
