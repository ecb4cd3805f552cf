package model

import (
	"testing"

	"colonysim.ai/internal/sim/world/kernel/grid"
)

func TestNewStructure_AppliesOrientation(t *testing.T) {
	fp := []grid.Cell{grid.C(0, 0), grid.C(1, 0), grid.C(2, -1)}
	cases := []struct {
		o    grid.Orientation
		want []grid.Cell
	}{
		{grid.North, []grid.Cell{grid.C(0, 0), grid.C(1, 0), grid.C(2, -1)}},
		{grid.East, []grid.Cell{grid.C(0, 0), grid.C(0, 1), grid.C(-1, 2)}},
		{grid.South, []grid.Cell{grid.C(0, 0), grid.C(-1, 0), grid.C(-2, 1)}},
		{grid.West, []grid.Cell{grid.C(0, 0), grid.C(0, -1), grid.C(1, -2)}},
	}
	for _, tc := range cases {
		s := NewStructure(1, KindTree, grid.C(10, 10), fp, tc.o, 200)
		for i, p := range s.Points {
			if p != tc.want[i] {
				t.Fatalf("%v: point %d = %v want %v", tc.o, i, p, tc.want[i])
			}
		}
		if got := s.Cells()[2]; got != grid.C(10, 10).Add(tc.want[2]) {
			t.Fatalf("%v: absolute cell = %v", tc.o, got)
		}
	}
	if fp[2] != grid.C(2, -1) {
		t.Fatalf("base footprint mutated: %v", fp)
	}
}

func TestStructure_MarkRemovedOnce(t *testing.T) {
	s := NewStructure(1, KindOre, grid.C(0, 0), []grid.Cell{{}}, grid.North, 500)
	if !s.MarkRemoved() || s.MarkRemoved() || !s.Removed() {
		t.Fatalf("MarkRemoved must succeed exactly once")
	}
}

func TestPlayer_DebitChecksBalance(t *testing.T) {
	p := NewPlayer(1, "p", Amounts{Wood: 100, Stone: 10}, []ResourceType{Crystal})
	if p.Debit(Amounts{Wood: 50, Stone: 25}) {
		t.Fatalf("debit should fail when short")
	}
	if p.Resources[Wood] != 100 || p.Resources[Stone] != 10 {
		t.Fatalf("failed debit changed ledger: %v", p.Resources)
	}
	if !p.Debit(Amounts{Wood: 50, Stone: 10}) {
		t.Fatalf("debit should succeed")
	}
	if p.Resources[Wood] != 50 || p.Resources[Stone] != 0 {
		t.Fatalf("ledger after debit: %v", p.Resources)
	}
	if p.CanGather(Crystal) || !p.CanGather(Iron) || p.CanGather(ResNone) {
		t.Fatalf("locked resources")
	}
	if p.GatherMultiplier(Wood) != 1 || p.BuildMultiplier() != 1 {
		t.Fatalf("default multipliers must be 1")
	}
}

func TestParseResource(t *testing.T) {
	for _, r := range AllResources {
		got, err := ParseResource(r.String())
		if err != nil || got != r {
			t.Fatalf("ParseResource(%q)=%v,%v", r, got, err)
		}
	}
	if _, err := ParseResource("coal"); err == nil {
		t.Fatalf("expected error")
	}
	a, err := AmountsFromNames(map[string]float64{"wood": 3})
	if err != nil || a[Wood] != 3 {
		t.Fatalf("AmountsFromNames: %v %v", a, err)
	}
}
