// Package pathfind runs bounded A* over the infinite cell grid.
package pathfind

import (
	"container/heap"

	"colonysim.ai/internal/sim/world/kernel/grid"
)

const DefaultMaxExpansions = 300

type Terrain interface {
	Passable(c grid.Cell) bool
}

// TerrainFunc adapts a plain function to Terrain.
type TerrainFunc func(c grid.Cell) bool

func (f TerrainFunc) Passable(c grid.Cell) bool { return f(c) }

type Options struct {
	// MaxExpansions bounds the number of nodes taken off the open set.
	MaxExpansions int
}

type Result struct {
	Path     []grid.Cell
	Expanded int
	Found    bool
}

// Steps is the number of moves along the path.
func (r Result) Steps() int {
	if len(r.Path) == 0 {
		return 0
	}
	return len(r.Path) - 1
}

// Fixed neighbour order: orthogonal first, then diagonals.
var neighborOffsets = [...]grid.Cell{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 1, Y: -1},
	{X: 1, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: -1},
}

type pathNode struct {
	cell   grid.Cell
	g      int
	f      int
	seq    uint64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Find searches from start to goal. Cells whose terrain is impassable are
// never entered; structure occupancy is not consulted.
func Find(start, goal grid.Cell, t Terrain, opts Options) Result {
	max := opts.MaxExpansions
	if max <= 0 {
		max = DefaultMaxExpansions
	}
	if start == goal {
		return Result{Path: []grid.Cell{start}, Found: true}
	}

	var seq uint64
	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{cell: start, f: grid.Manhattan(start, goal), seq: seq})
	gScore := map[grid.Cell]int{start: 0}
	closed := make(map[grid.Cell]struct{})

	expanded := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if _, seen := closed[current.cell]; seen {
			continue
		}
		if expanded >= max {
			break
		}
		expanded++
		closed[current.cell] = struct{}{}
		if current.cell == goal {
			return Result{Path: reconstructPath(current), Expanded: expanded, Found: true}
		}

		for _, d := range neighborOffsets {
			next := current.cell.Add(d)
			if _, seen := closed[next]; seen {
				continue
			}
			if !t.Passable(next) {
				continue
			}
			tentativeG := current.g + 1
			if prev, ok := gScore[next]; ok && tentativeG >= prev {
				continue
			}
			gScore[next] = tentativeG
			seq++
			heap.Push(open, &pathNode{
				cell:   next,
				g:      tentativeG,
				f:      tentativeG + grid.Manhattan(next, goal),
				seq:    seq,
				parent: current,
			})
		}
	}
	return Result{Expanded: expanded}
}

func reconstructPath(end *pathNode) []grid.Cell {
	path := make([]grid.Cell, 0, end.g+1)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.cell)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// CellCenters converts waypoints into world coordinates at cell centres.
func CellCenters(path []grid.Cell, cellSize float64) []grid.Vec2 {
	out := make([]grid.Vec2, len(path))
	for i, c := range path {
		out[i] = c.Center(cellSize)
	}
	return out
}
