package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"colonysim.ai/internal/protocol"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func asJSON(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func raw(t *testing.T, s string) any {
	t.Helper()
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	cases := []struct {
		schema string
		doc    string
		ok     bool
	}{
		{"hello.schema.json", `{"type":"HELLO","protocol_version":"1.0","player_name":"bot1","capabilities":{"max_queue":8}}`, true},
		{"hello.schema.json", `{"type":"HELLO","protocol_version":"1.0","player_name":""}`, false},
		{"cmd.schema.json", `{"type":"CMD","protocol_version":"1.0","id":"c1","cmd":"PLACE_BUILDING","building":"FARM","cell":[4,-2],"orientation":1}`, true},
		{"cmd.schema.json", `{"type":"CMD","protocol_version":"1.0","id":"c2","cmd":"PLACE_BUILDING","building":"FARM"}`, false},
		{"cmd.schema.json", `{"type":"CMD","protocol_version":"1.0","id":"c3","cmd":"GOTO","hid":3,"cell":[1,1]}`, true},
		{"cmd.schema.json", `{"type":"CMD","protocol_version":"1.0","id":"c4","cmd":"INVOKE_ACTION","sid":1,"action_id":"SPAWN_COLONIST"}`, true},
		{"cmd.schema.json", `{"type":"CMD","protocol_version":"1.0","id":"c5","cmd":"DANCE"}`, false},
		{"ack.schema.json", `{"type":"ACK","protocol_version":"1.0","ack_for":"c1","accepted":false,"code":"E_NO_RESOURCE"}`, true},
		{"ack.schema.json", `{"type":"ACK","protocol_version":"1.0","ack_for":"c1","accepted":false,"code":"E_WHAT"}`, false},
	}
	for _, c := range cases {
		err := compile(t, c.schema).Validate(raw(t, c.doc))
		if (err == nil) != c.ok {
			t.Fatalf("%s %s: ok=%v err=%v", c.schema, c.doc, c.ok, err)
		}
	}
}

func TestSchemas_ValidateServerMessages(t *testing.T) {
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "5f0c7d1e-1111-4222-8333-944455556666",
		WorldID:         "w1",
		PlayerID:        1,
		BaseCampSID:     12,
		WorldParams:     protocol.WorldParams{TickRateHz: 10, ChunkSize: 32, CellSize: 16, Seed: 1337},
		Catalogs:        protocol.CatalogDigests{BuildingsDigest: "a", ResourcesDigest: "b", UnitsDigest: "c", TechnologiesDigest: "d"},
	}
	if err := compile(t, "welcome.schema.json").Validate(asJSON(t, welcome)); err != nil {
		t.Fatalf("welcome: %v", err)
	}

	p := model.NewPlayer(1, "p", model.Amounts{model.Food: 300, model.Wood: 50}, nil)
	p.Technologies["FORESTRY"] = true

	camp := model.NewStructure(1, model.KindBuilding, grid.C(0, 0), []grid.Cell{grid.C(0, 0)}, grid.North, 2000)
	camp.Building = &model.BuildingInfo{Type: model.BaseCamp, PlayerID: 1, MaxHealth: 2000, BuildDuration: 10, BuildTime: 4, State: model.UnderConstruction}
	tree := model.NewStructure(2, model.KindTree, grid.C(5, 5), []grid.Cell{grid.C(0, 0)}, grid.North, 200)

	target := grid.C(5, 5)
	a := &model.Agent{
		HID: 3, Kind: "COLONIST", PlayerID: 1,
		Location: grid.Vec2{X: 8, Y: 8}, State: model.StateMoving,
		Work: model.WorkGathering, Resource: model.Wood,
		Carried: model.Amounts{model.Wood: 4}, Target: &target,
	}

	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            9,
		WorldID:         "w1",
		Player:          protocol.NewPlayerView(p),
		Structures:      []protocol.StructureView{protocol.NewStructureView(camp), protocol.NewStructureView(tree)},
		Agents:          []protocol.AgentView{protocol.NewAgentView(a)},
	}
	if err := compile(t, "obs.schema.json").Validate(asJSON(t, obs)); err != nil {
		t.Fatalf("obs: %v", err)
	}

	ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: "c1", Accepted: true, ServerTick: 9, SID: 4}
	if err := compile(t, "ack.schema.json").Validate(asJSON(t, ack)); err != nil {
		t.Fatalf("ack: %v", err)
	}
}
