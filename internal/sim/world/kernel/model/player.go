package model

type PlayerID uint32

type Player struct {
	PID       PlayerID
	Name      string
	Resources Amounts

	// Technologies holds the identifiers unlocked so far.
	Technologies map[string]bool

	GatherMult         map[ResourceType]float64
	BuildMult          float64
	BuildingHealthMult float64
	// Locked resources cannot be gathered until a technology unlocks them.
	Locked map[ResourceType]bool
}

func NewPlayer(pid PlayerID, name string, starter Amounts, locked []ResourceType) *Player {
	p := &Player{
		PID:                pid,
		Name:               name,
		Resources:          starter.Clone(),
		Technologies:       map[string]bool{},
		GatherMult:         map[ResourceType]float64{},
		BuildMult:          1,
		BuildingHealthMult: 1,
		Locked:             map[ResourceType]bool{},
	}
	for _, r := range locked {
		p.Locked[r] = true
	}
	return p
}

func (p *Player) GatherMultiplier(r ResourceType) float64 {
	if m, ok := p.GatherMult[r]; ok && m > 0 {
		return m
	}
	return 1
}

func (p *Player) BuildMultiplier() float64 {
	if p.BuildMult > 0 {
		return p.BuildMult
	}
	return 1
}

func (p *Player) CanGather(r ResourceType) bool {
	return r != ResNone && !p.Locked[r]
}

func (p *Player) CanAfford(cost Amounts) bool {
	return p.Resources.Covers(cost)
}

// Debit subtracts cost when affordable and reports whether it did.
func (p *Player) Debit(cost Amounts) bool {
	if !p.CanAfford(cost) {
		return false
	}
	p.Resources.Sub(cost)
	return true
}

func (p *Player) Credit(r ResourceType, v float64) {
	p.Resources[r] += v
}
