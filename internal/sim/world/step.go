package world

import (
	"colonysim.ai/internal/sim/world/feature/lifecycle"
	"colonysim.ai/internal/sim/world/kernel/model"
)

// Update advances the simulation by dt seconds: construction first, in sid
// order, then agents chunk by chunk in sorted chunk order.
func (w *World) Update(dt float64) {
	nowTick := w.tick.Load()
	w.invalidateDepots()

	for _, s := range w.buildingsBySID() {
		b := s.Building
		if b.State == model.Built {
			continue
		}
		mult := 1.0
		if p := w.players[b.PlayerID]; p != nil {
			mult = p.BuildMultiplier()
		}
		lifecycle.AdvanceConstruction(b, dt, mult)
		if b.State == model.Built {
			w.invalidateDepots()
			w.audit("BUILT", playerActor(b.PlayerID), s, "", map[string]any{"type": string(b.Type)})
		}
	}

	done := make(map[model.HID]bool, len(w.agents))
	for _, k := range w.index.AgentChunks() {
		// MoveAgent rewrites the bucket, so walk a copy.
		bucket := append([]*model.Agent(nil), w.index.AgentsIn(k)...)
		for _, a := range bucket {
			if done[a.HID] || w.agents[a.HID] != a {
				continue
			}
			done[a.HID] = true
			w.machine.Update(a, dt)
			w.rebucket(a)
		}
	}

	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:       nowTick,
			Commands:   append([]string(nil), w.applied...),
			Agents:     len(w.agents),
			Structures: len(w.structures),
			Digest:     w.Digest(),
		})
	}
	w.applied = w.applied[:0]

	// Snapshot every N ticks, starting after tick 0.
	if w.snapshotSink != nil && nowTick != 0 && w.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
			snap := w.ExportSnapshot()
			select {
			case w.snapshotSink <- snap:
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	w.tick.Add(1)
	w.publishStats()
}
