// Package lifecycle applies damage and construction progress to structures.
package lifecycle

import "colonysim.ai/internal/sim/world/kernel/model"

// DepleteResource subtracts amount from the structure's health. When health
// reaches zero the removal callback runs, exactly once, and true is returned.
// Calls on an already removed structure report false.
func DepleteResource(s *model.Structure, amount float64) bool {
	if s == nil || s.Removed() {
		return false
	}
	s.Health -= amount
	if s.Health > 0 {
		return false
	}
	if !s.MarkRemoved() {
		return false
	}
	if s.OnRemoved != nil {
		s.OnRemoved(s)
	}
	return true
}

// Damage is DepleteResource for any structure kind, buildings included.
func Damage(s *model.Structure, amount float64) bool {
	return DepleteResource(s, amount)
}

// AdvanceConstruction accrues dt*workers*multiplier of build time. It must run
// before the tick's worker count changes.
func AdvanceConstruction(b *model.BuildingInfo, dt, multiplier float64) {
	if b == nil || b.State == model.Built {
		return
	}
	progress := dt * float64(b.WorkerCount) * multiplier
	if progress <= 0 {
		return
	}
	b.BuildTime += progress
	if b.State == model.Placed {
		b.State = model.UnderConstruction
	}
	if b.BuildTime >= b.BuildDuration {
		b.State = model.Built
	}
}

// AddWorkers adjusts the worker count, never below zero.
func AddWorkers(b *model.BuildingInfo, delta int) {
	if b == nil {
		return
	}
	b.WorkerCount += delta
	if b.WorkerCount < 0 {
		b.WorkerCount = 0
	}
}

// Progress is the completed fraction of construction in [0, 1].
func Progress(b *model.BuildingInfo) float64 {
	if b == nil {
		return 0
	}
	if b.State == model.Built {
		return 1
	}
	if b.BuildDuration <= 0 {
		return 0
	}
	return clamp01(b.BuildTime / b.BuildDuration)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
