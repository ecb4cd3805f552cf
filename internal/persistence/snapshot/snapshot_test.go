package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func sample() SnapshotV1 {
	target := [2]int{3, 4}
	return SnapshotV1{
		Header:    Header{Version: Version, WorldID: "w1", Tick: 120},
		Seed:      42,
		TickRate:  10,
		ChunkSize: 8,
		CellSize:  16,
		NextSID:   7,
		Chunks:    []ChunkV1{{CX: 1, CY: -1, Size: 8, Biomes: make([]uint8, 64)}},
		Players:   []PlayerV1{{PID: 1, Name: "p", Resources: map[string]float64{"WOOD": 12.5}, BuildMult: 1, BuildingHealthMult: 1}},
		Structures: []StructureV1{{
			SID: 3, Kind: "BUILDING", Coords: [2]int{0, 0}, Points: [][2]int{{0, 0}},
			Building: &BuildingV1{Type: "FARM", PlayerID: 1, BuildDuration: 60, BuildTime: 12, WorkerCount: 1, State: 1},
		}},
		Agents: []AgentV1{{HID: 1, Kind: "COLONIST", PlayerID: 1, Path: [][2]float64{{8, 8}, {24, 8}}, Progress: 0.5, Target: &target}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sample()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Header.Tick != 120 || got.Seed != 42 || len(got.Chunks[0].Biomes) != 64 {
		t.Fatalf("unexpected snapshot: %+v", got.Header)
	}
	if b := got.Structures[0].Building; b == nil || b.BuildTime != 12 || b.WorkerCount != 1 {
		t.Fatalf("building progress lost: %+v", b)
	}
	if a := got.Agents[0]; a.Progress != 0.5 || a.Target == nil || *a.Target != [2]int{3, 4} || len(a.Path) != 2 {
		t.Fatalf("agent state lost: %+v", a)
	}
}

func TestWriteReadAndLatest(t *testing.T) {
	dir := t.TempDir()
	for _, tick := range []uint64{5, 120, 30} {
		s := sample()
		s.Header.Tick = tick
		if err := WriteSnapshot(PathFor(dir, tick), s); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.snap.zst"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	latest := Latest(dir)
	if latest != PathFor(dir, 120) {
		t.Fatalf("latest=%s", latest)
	}
	h, err := ReadHeader(latest)
	if err != nil || h.Tick != 120 || h.WorldID != "w1" {
		t.Fatalf("header=%+v err=%v", h, err)
	}
	snap, err := ReadSnapshot(latest)
	if err != nil || snap.Header.Tick != 120 {
		t.Fatalf("read: %v", err)
	}
	if Latest(filepath.Join(dir, "missing")) != "" {
		t.Fatalf("missing dir should yield empty path")
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	s := sample()
	s.Header.Version = 9
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(&buf); err == nil {
		t.Fatalf("expected version error")
	}
}
