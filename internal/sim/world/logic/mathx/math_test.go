package mathx

import "testing"

func TestFloorDivAndMod(t *testing.T) {
	cases := []struct {
		a, b    int
		div, md int
	}{
		{a: 0, b: 32, div: 0, md: 0},
		{a: 31, b: 32, div: 0, md: 31},
		{a: 32, b: 32, div: 1, md: 0},
		{a: -1, b: 32, div: -1, md: 31},
		{a: -32, b: 32, div: -1, md: 0},
		{a: -33, b: 32, div: -2, md: 31},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.div {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.div)
		}
		if got := Mod(c.a, c.b); got != c.md {
			t.Fatalf("Mod(%d,%d)=%d want %d", c.a, c.b, got, c.md)
		}
	}
}

func TestHash2_Stable(t *testing.T) {
	if Hash2(7, 3, -4) != Hash2(7, 3, -4) {
		t.Fatalf("Hash2 not stable")
	}
	if Hash2(7, 3, -4) == Hash2(7, -4, 3) {
		t.Fatalf("Hash2 should not be symmetric")
	}
	if SeedFor(7, 1, 1) < 0 {
		t.Fatalf("SeedFor must be non-negative")
	}
}
