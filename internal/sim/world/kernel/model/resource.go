package model

import (
	"fmt"
	"strings"
)

type ResourceType uint8

const (
	ResNone ResourceType = iota
	Food
	Wood
	Stone
	Iron
	Copper
	Gold
	Vulcan
	Crystal
)

// AllResources is the fixed ledger order.
var AllResources = []ResourceType{Food, Wood, Stone, Iron, Copper, Gold, Vulcan, Crystal}

var resourceNames = [...]string{
	ResNone: "NONE",
	Food:    "FOOD",
	Wood:    "WOOD",
	Stone:   "STONE",
	Iron:    "IRON",
	Copper:  "COPPER",
	Gold:    "GOLD",
	Vulcan:  "VULCAN",
	Crystal: "CRYSTAL",
}

func (r ResourceType) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return fmt.Sprintf("RESOURCE(%d)", int(r))
}

func ParseResource(s string) (ResourceType, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for _, r := range AllResources {
		if resourceNames[r] == want {
			return r, nil
		}
	}
	return ResNone, fmt.Errorf("unknown resource %q", s)
}

func (r ResourceType) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *ResourceType) UnmarshalText(b []byte) error {
	v, err := ParseResource(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Amounts is a resource ledger. Missing keys read as zero.
type Amounts map[ResourceType]float64

func (a Amounts) Clone() Amounts {
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Covers reports whether a holds at least cost of every resource.
func (a Amounts) Covers(cost Amounts) bool {
	for r, v := range cost {
		if a[r] < v {
			return false
		}
	}
	return true
}

func (a Amounts) Add(o Amounts) {
	for r, v := range o {
		a[r] += v
	}
}

func (a Amounts) Sub(o Amounts) {
	for r, v := range o {
		a[r] -= v
	}
}

func (a Amounts) Total() float64 {
	t := 0.0
	for _, v := range a {
		t += v
	}
	return t
}

// ByName renders the ledger with resource names as keys, skipping zeros.
func (a Amounts) ByName() map[string]float64 {
	out := make(map[string]float64, len(a))
	for _, r := range AllResources {
		if v := a[r]; v != 0 {
			out[r.String()] = v
		}
	}
	return out
}

func AmountsFromNames(m map[string]float64) (Amounts, error) {
	out := make(Amounts, len(m))
	for k, v := range m {
		r, err := ParseResource(k)
		if err != nil {
			return nil, err
		}
		out[r] = v
	}
	return out, nil
}
