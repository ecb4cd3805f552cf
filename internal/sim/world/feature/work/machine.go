// Package work drives agents through movement, gathering, depositing and
// construction jobs.
package work

import (
	"math"

	"colonysim.ai/internal/sim/world/feature/lifecycle"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/logic/pathfind"
)

// Env is the slice of the world an agent can see.
type Env interface {
	Player(pid model.PlayerID) *model.Player
	StructureAt(c grid.Cell) *model.Structure
	Structure(sid model.SID) *model.Structure
	FindPath(from, to grid.Cell) ([]grid.Cell, bool)
	NearestDepot(from grid.Cell, types []model.BuildingType) (*model.Structure, []grid.Cell, bool)
}

type EventKind uint8

const (
	EventArrived EventKind = iota + 1
	EventPhase
	EventDeposited
	EventIdle
)

type Event struct {
	Kind     EventKind
	Phase    model.GatherPhase
	Resource model.ResourceType
	Amount   float64
}

const defaultMaxSteps = 64

type Machine struct {
	Env      Env
	CellSize float64
	// MaxSteps bounds phase handlers per Update so zero-time cycles terminate.
	MaxSteps int
	// Observe, when set, receives every state event.
	Observe func(a *model.Agent, ev Event)
}

func (m *Machine) emit(a *model.Agent, ev Event) {
	if m.Observe != nil {
		m.Observe(a, ev)
	}
}

// Update spends dt seconds of the agent's time. Each handler returns the
// unused budget; the loop stops once it is spent or nothing progressed.
func (m *Machine) Update(a *model.Agent, dt float64) {
	max := m.MaxSteps
	if max <= 0 {
		max = defaultMaxSteps
	}
	budget := dt
	for i := 0; i < max && budget > 0; i++ {
		left, progressed := m.step(a, budget)
		budget = left
		if !progressed {
			return
		}
	}
}

func (m *Machine) step(a *model.Agent, budget float64) (float64, bool) {
	switch a.State {
	case model.StateMoving:
		left, arrived := m.move(a, budget)
		if arrived {
			m.arrive(a)
		}
		return left, true
	case model.StateWorking:
		switch a.Work {
		case model.WorkGathering:
			if a.GatherPhase == model.PhaseGathering {
				return m.gather(a, budget)
			}
			return m.deposit(a, budget)
		case model.WorkBuilding:
			m.tend(a)
			return budget, false
		default:
			// Hunting and fighting have no behaviour yet.
			return budget, false
		}
	default:
		return budget, false
	}
}

func (m *Machine) agentCell(a *model.Agent) grid.Cell {
	return a.Location.Cell(m.CellSize)
}

// move advances along the path and reports leftover time and arrival.
func (m *Machine) move(a *model.Agent, budget float64) (float64, bool) {
	n := len(a.Path)
	if n <= 1 {
		if n == 1 {
			a.Location = a.Path[0]
		}
		return budget, true
	}
	if a.Speed <= 0 {
		return 0, false
	}
	end := float64(n - 1)
	old := a.Progress
	a.Progress += budget * a.Speed
	if a.Progress >= end {
		a.Progress = end
		a.Location = a.Path[n-1]
		return budget - (end-old)/a.Speed, true
	}
	i := int(math.Floor(a.Progress))
	a.Location = a.Path[i].Lerp(a.Path[i+1], a.Progress-float64(i))
	return 0, false
}

func (m *Machine) arrive(a *model.Agent) {
	a.Path = nil
	a.Progress = 0
	m.emit(a, Event{Kind: EventArrived})
	if a.Work == model.WorkIdle {
		m.idle(a)
		return
	}
	a.State = model.StateWorking
	switch a.Work {
	case model.WorkBuilding:
		s := m.Env.Structure(a.TargetSID)
		if s == nil || s.Removed() || s.Building == nil || s.IsBuilt() {
			m.idle(a)
			return
		}
		lifecycle.AddWorkers(s.Building, 1)
	case model.WorkGathering:
		phase := model.PhaseDepositing
		if a.GoingToWork {
			phase = model.PhaseGathering
		}
		m.setPhase(a, phase)
	}
}

func (m *Machine) setPhase(a *model.Agent, p model.GatherPhase) {
	if a.GatherPhase != p {
		a.GatherPhase = p
		m.emit(a, Event{Kind: EventPhase, Phase: p})
	}
}

func (m *Machine) idle(a *model.Agent) {
	a.State = model.StateIdle
	a.Work = model.WorkIdle
	a.Path = nil
	a.Progress = 0
	m.emit(a, Event{Kind: EventIdle})
}

func (m *Machine) source(a *model.Agent) *model.Structure {
	s := m.Env.Structure(a.TargetSID)
	if s == nil || s.Removed() {
		return nil
	}
	return s
}

// gatherEpsilon absorbs float drift from summing many small tick steps, so a
// load or a source that is full to within it counts as full.
const gatherEpsilon = 1e-9

func (m *Machine) gather(a *model.Agent, budget float64) (float64, bool) {
	src := m.source(a)
	if src == nil {
		m.toDepot(a)
		return budget, true
	}
	p := m.Env.Player(a.PlayerID)
	rate := a.GatherSpeed
	if p != nil {
		rate *= p.GatherMultiplier(a.Resource)
	}
	if a.Specialized(a.Resource) {
		rate *= 2
	}
	if rate <= 0 {
		return budget, false
	}
	if a.Carried == nil {
		a.Carried = model.Amounts{}
	}

	room := a.Capacity - a.CarriedTotal()
	if room <= gatherEpsilon {
		m.toDepot(a)
		return budget, true
	}
	amount := budget * rate
	left := 0.0
	if amount >= room-gatherEpsilon {
		amount = room
		left = math.Max(budget-room/rate, 0)
	}
	if src.Depletable() && amount >= src.Health-gatherEpsilon {
		amount = src.Health
		left = math.Max(budget-amount/rate, 0)
	}
	a.Carried[a.Resource] += amount

	destroyed := false
	if src.Depletable() {
		destroyed = lifecycle.DepleteResource(src, amount)
	}
	if destroyed || a.CarriedTotal() >= a.Capacity-gatherEpsilon {
		m.toDepot(a)
	}
	return left, true
}

func (m *Machine) deposit(a *model.Agent, budget float64) (float64, bool) {
	p := m.Env.Player(a.PlayerID)
	if p == nil || a.DepositSpeed <= 0 {
		return budget, false
	}
	for _, r := range model.AllResources {
		have := a.Carried[r]
		if have <= 0 {
			continue
		}
		amount := math.Min(budget*a.DepositSpeed, have)
		p.Credit(r, amount)
		if amount == have {
			delete(a.Carried, r)
		} else {
			a.Carried[r] = have - amount
		}
		budget -= amount / a.DepositSpeed
		m.emit(a, Event{Kind: EventDeposited, Resource: r, Amount: amount})
		if budget <= 0 {
			break
		}
	}
	if a.CarriedTotal() > 0 {
		return 0, true
	}
	m.setPhase(a, model.PhaseGathering)
	if m.source(a) == nil || a.Target == nil {
		m.idle(a)
		return math.Max(budget, 0), true
	}
	m.route(a, *a.Target, true)
	return math.Max(budget, 0), true
}

// tend keeps the agent at its construction site and releases it once the
// building is done or gone.
func (m *Machine) tend(a *model.Agent) {
	s := m.Env.Structure(a.TargetSID)
	if s == nil || s.Removed() || s.Building == nil {
		m.idle(a)
		return
	}
	if s.IsBuilt() {
		lifecycle.AddWorkers(s.Building, -1)
		m.idle(a)
	}
}

// toDepot switches to the depositing phase and heads for the nearest depot.
// With nothing carried and no source left the agent goes idle.
func (m *Machine) toDepot(a *model.Agent) {
	if a.CarriedTotal() <= 0 && m.source(a) == nil {
		m.idle(a)
		return
	}
	m.setPhase(a, model.PhaseDepositing)
	d, path, ok := m.Env.NearestDepot(m.agentCell(a), a.DepotTypes)
	if !ok {
		m.idle(a)
		return
	}
	c := d.Coords
	a.Depot = &c
	a.DepotSID = d.SID
	m.follow(a, path, false)
}

func (m *Machine) route(a *model.Agent, to grid.Cell, toWork bool) bool {
	path, ok := m.Env.FindPath(m.agentCell(a), to)
	if !ok {
		m.idle(a)
		return false
	}
	m.follow(a, path, toWork)
	return true
}

func (m *Machine) follow(a *model.Agent, path []grid.Cell, toWork bool) {
	a.Path = pathfind.CellCenters(path, m.CellSize)
	a.Progress = 0
	a.GoingToWork = toWork
	a.State = model.StateMoving
}

// GoTo redirects the agent to cell, dropping its current path and phase.
// It reports whether a route was found; unreachable targets leave the agent idle.
func (m *Machine) GoTo(a *model.Agent, cell grid.Cell) bool {
	m.Release(a)

	a.Path = nil
	a.Progress = 0
	a.GatherPhase = model.PhaseGathering
	a.Work = model.WorkIdle
	a.Resource = model.ResNone
	a.DepotTypes = nil
	a.Depot = nil
	a.DepotSID = 0
	a.TargetSID = 0
	target := cell
	a.Target = &target

	if s := m.Env.StructureAt(cell); s != nil {
		a.TargetSID = s.SID
		m.classify(a, s)
	}
	return m.route(a, cell, true)
}

func (m *Machine) classify(a *model.Agent, s *model.Structure) {
	if s.Building != nil && !s.IsBuilt() {
		a.Work = model.WorkBuilding
		return
	}
	types := DepotTypesFor(s)
	if types == nil {
		return
	}
	r := s.Yield()
	if p := m.Env.Player(a.PlayerID); p == nil || !p.CanGather(r) {
		return
	}
	a.Work = model.WorkGathering
	a.Resource = r
	a.DepotTypes = types
}

// Release frees the construction slot held by an agent stationed at a site.
func (m *Machine) Release(a *model.Agent) {
	if a.Work != model.WorkBuilding || a.State != model.StateWorking {
		return
	}
	if s := m.Env.Structure(a.TargetSID); s != nil && s.Building != nil && !s.Removed() {
		lifecycle.AddWorkers(s.Building, -1)
	}
}

// DepotTypesFor lists the buildings that accept what s yields, or nil when
// s is not a gathering job.
func DepotTypesFor(s *model.Structure) []model.BuildingType {
	switch s.Kind {
	case model.KindTree:
		return []model.BuildingType{model.BaseCamp, model.LumberCamp}
	case model.KindOre:
		return []model.BuildingType{model.BaseCamp, model.MinerCamp}
	case model.KindBuilding:
		if s.Building != nil && s.Building.Type == model.Farm && s.IsBuilt() {
			return []model.BuildingType{model.BaseCamp, model.Farm, model.Pantry}
		}
	}
	return nil
}
