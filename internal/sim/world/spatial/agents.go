package spatial

import (
	"sort"

	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
)

// AddAgent buckets a under chunk k.
func (x *Index) AddAgent(a *model.Agent, k grid.ChunkKey) {
	if prev, ok := x.agentAt[a.HID]; ok {
		x.dropAgent(a, prev)
	}
	x.agents[k] = append(x.agents[k], a)
	x.agentAt[a.HID] = k
}

// MoveAgent rebuckets a when it crossed a chunk border.
func (x *Index) MoveAgent(a *model.Agent, from, to grid.ChunkKey) {
	if from == to {
		return
	}
	x.dropAgent(a, from)
	x.agents[to] = append(x.agents[to], a)
	x.agentAt[a.HID] = to
}

// RemoveAgent drops a from every bucket it appears in.
func (x *Index) RemoveAgent(a *model.Agent) {
	for k := range x.agents {
		x.dropAgent(a, k)
	}
	delete(x.agentAt, a.HID)
}

func (x *Index) dropAgent(a *model.Agent, k grid.ChunkKey) {
	list := x.agents[k]
	out := list[:0]
	for _, v := range list {
		if v != a {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		delete(x.agents, k)
		return
	}
	x.agents[k] = out
}

func (x *Index) AgentChunk(hid model.HID) (grid.ChunkKey, bool) {
	k, ok := x.agentAt[hid]
	return k, ok
}

func (x *Index) AgentsIn(k grid.ChunkKey) []*model.Agent {
	return x.agents[k]
}

// AgentChunks returns the chunks holding agents, sorted.
func (x *Index) AgentChunks() []grid.ChunkKey {
	keys := make([]grid.ChunkKey, 0, len(x.agents))
	for k := range x.agents {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// AgentsInRect returns agents whose location lies in [min, max], sorted by
// hid. It scans whichever is smaller: the chunks the rectangle overlaps or
// the chunks holding agents.
func (x *Index) AgentsInRect(min, max grid.Vec2, cellSize float64) []*model.Agent {
	if max.X < min.X {
		min.X, max.X = max.X, min.X
	}
	if max.Y < min.Y {
		min.Y, max.Y = max.Y, min.Y
	}
	lo := min.Cell(cellSize).Chunk(x.chunkSize)
	hi := max.Cell(cellSize).Chunk(x.chunkSize)
	inside := func(a *model.Agent) bool {
		p := a.Location
		return p.X >= min.X && p.X <= max.X && p.Y >= min.Y && p.Y <= max.Y
	}
	var out []*model.Agent
	span := (int64(hi.CX) - int64(lo.CX) + 1) * (int64(hi.CY) - int64(lo.CY) + 1)
	if span > int64(len(x.agents)) {
		// Wide rectangles walk the occupied buckets instead of the span.
		for k, list := range x.agents {
			if k.CX < lo.CX || k.CX > hi.CX || k.CY < lo.CY || k.CY > hi.CY {
				continue
			}
			for _, a := range list {
				if inside(a) {
					out = append(out, a)
				}
			}
		}
	} else {
		for cy := lo.CY; cy <= hi.CY; cy++ {
			for cx := lo.CX; cx <= hi.CX; cx++ {
				for _, a := range x.agents[grid.ChunkKey{CX: cx, CY: cy}] {
					if inside(a) {
						out = append(out, a)
					}
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HID < out[j].HID })
	return out
}

func (x *Index) AgentsInRadius(center grid.Vec2, r, cellSize float64) []*model.Agent {
	box := x.AgentsInRect(grid.Vec2{X: center.X - r, Y: center.Y - r}, grid.Vec2{X: center.X + r, Y: center.Y + r}, cellSize)
	out := box[:0]
	for _, a := range box {
		if a.Location.Dist(center) <= r {
			out = append(out, a)
		}
	}
	return out
}
