package protocol

import (
	"sort"

	"colonysim.ai/internal/sim/world/feature/lifecycle"
	"colonysim.ai/internal/sim/world/kernel/model"
)

// OBS (server -> client): the observing player's colony.
type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	WorldID         string `json:"world_id"`

	Player     PlayerView      `json:"player"`
	Structures []StructureView `json:"structures"`
	Agents     []AgentView     `json:"agents"`
}

type PlayerView struct {
	PID          uint32             `json:"pid"`
	Name         string             `json:"name"`
	Resources    map[string]float64 `json:"resources"`
	Technologies []string           `json:"technologies"`
}

type StructureView struct {
	SID      uint64  `json:"sid"`
	Kind     string  `json:"kind"`
	Type     string  `json:"type,omitempty"`
	Owner    uint32  `json:"owner,omitempty"`
	Coords   [2]int  `json:"coords"`
	Health   float64 `json:"health"`
	State    string  `json:"state,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	Workers  int     `json:"workers,omitempty"`
	Yields   string  `json:"yields,omitempty"`
}

type AgentView struct {
	HID      uint64             `json:"hid"`
	Kind     string             `json:"kind"`
	Owner    uint32             `json:"owner"`
	Location [2]float64         `json:"location"`
	State    string             `json:"state"`
	Work     string             `json:"work"`
	Phase    string             `json:"phase,omitempty"`
	Resource string             `json:"resource,omitempty"`
	Carried  map[string]float64 `json:"carried,omitempty"`
	Target   *[2]int            `json:"target,omitempty"`
}

func NewPlayerView(p *model.Player) PlayerView {
	techs := make([]string, 0, len(p.Technologies))
	for id := range p.Technologies {
		techs = append(techs, id)
	}
	sort.Strings(techs)
	return PlayerView{
		PID:          uint32(p.PID),
		Name:         p.Name,
		Resources:    p.Resources.ByName(),
		Technologies: techs,
	}
}

func NewStructureView(s *model.Structure) StructureView {
	v := StructureView{
		SID:    uint64(s.SID),
		Kind:   s.Kind.String(),
		Coords: s.Coords.ToArray(),
		Health: s.Health,
	}
	if r := s.Yield(); r != model.ResNone {
		v.Yields = r.String()
	}
	if b := s.Building; b != nil {
		v.Type = string(b.Type)
		v.Owner = uint32(b.PlayerID)
		v.State = b.State.String()
		v.Progress = lifecycle.Progress(b)
		v.Workers = b.WorkerCount
	}
	return v
}

func NewAgentView(a *model.Agent) AgentView {
	v := AgentView{
		HID:      uint64(a.HID),
		Kind:     string(a.Kind),
		Owner:    uint32(a.PlayerID),
		Location: [2]float64{a.Location.X, a.Location.Y},
		State:    a.State.String(),
		Work:     a.Work.String(),
	}
	if a.Work == model.WorkGathering {
		v.Phase = a.GatherPhase.String()
		v.Resource = a.Resource.String()
	}
	if len(a.Carried) > 0 {
		v.Carried = a.Carried.ByName()
	}
	if a.Target != nil {
		t := a.Target.ToArray()
		v.Target = &t
	}
	return v
}
