package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
)

type Catalogs struct {
	Buildings    BuildingCatalog
	Resources    ResourceCatalog
	Units        UnitCatalog
	Technologies TechnologyCatalog
}

// Footprint is either an inclusive rectangle or an explicit point list,
// relative to the structure centre.
type Footprint struct {
	Rect   *[4]int  `json:"rect,omitempty"`
	Points [][2]int `json:"points,omitempty"`
}

func (f Footprint) Cells() []grid.Cell {
	if f.Rect != nil {
		r := *f.Rect
		return grid.R(r[0], r[1], r[2], r[3]).Points()
	}
	out := make([]grid.Cell, len(f.Points))
	for i, p := range f.Points {
		out[i] = grid.CellFromArray(p)
	}
	return out
}

type BuildingCatalog struct {
	ByID   map[model.BuildingType]BuildingDef
	Order  []model.BuildingType
	Digest string
}

type BuildingDef struct {
	ID            model.BuildingType `json:"id"`
	Costs         map[string]float64 `json:"costs"`
	Health        float64            `json:"health"`
	BuildDuration float64            `json:"build_duration"`
	Footprint     Footprint          `json:"footprint"`
	// PreBuilt buildings start Built and are granted, not bought.
	PreBuilt bool `json:"pre_built,omitempty"`

	Cost  model.Amounts `json:"-"`
	Cells []grid.Cell   `json:"-"`
}

type ResourceCatalog struct {
	ByID   map[string]ResourceDef
	Order  []string
	Digest string
}

type ResourceDef struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // "TREE","ORE"
	Yields    string    `json:"yields"`
	Health    float64   `json:"health"`
	Footprint Footprint `json:"footprint"`

	StructureKind model.Kind         `json:"-"`
	Resource      model.ResourceType `json:"-"`
	Cells         []grid.Cell        `json:"-"`
}

type UnitCatalog struct {
	ByID   map[model.UnitKind]UnitDef
	Order  []model.UnitKind
	Digest string
}

type UnitDef struct {
	ID             model.UnitKind     `json:"id"`
	Building       model.BuildingType `json:"building"`
	Costs          map[string]float64 `json:"costs"`
	Health         float64            `json:"health"`
	Capacity       float64            `json:"capacity"`
	GatherSpeed    float64            `json:"gather_speed"`
	DepositSpeed   float64            `json:"deposit_speed"`
	Speed          float64            `json:"speed"`
	Specialization []string           `json:"specialization,omitempty"`

	Cost        model.Amounts        `json:"-"`
	Specialties []model.ResourceType `json:"-"`
}

type TechnologyCatalog struct {
	ByID   map[string]TechnologyDef
	Order  []string
	Digest string
}

type TechnologyDef struct {
	ID       string             `json:"id"`
	Building model.BuildingType `json:"building"`
	Costs    map[string]float64 `json:"costs"`

	GatherMultiplier         map[string]float64 `json:"gather_multiplier,omitempty"`
	BuildMultiplier          float64            `json:"build_multiplier,omitempty"`
	BuildingHealthMultiplier float64            `json:"building_health_multiplier,omitempty"`
	Unlocks                  []string           `json:"unlocks,omitempty"`

	Cost     model.Amounts                  `json:"-"`
	Gather   map[model.ResourceType]float64 `json:"-"`
	Unlocked []model.ResourceType           `json:"-"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBuildings(filepath.Join(configDir, "buildings.json"), &c.Buildings); err != nil {
		return nil, err
	}
	if err := loadResources(filepath.Join(configDir, "resources.json"), &c.Resources); err != nil {
		return nil, err
	}
	if err := loadUnits(filepath.Join(configDir, "units.json"), &c.Units, &c.Buildings); err != nil {
		return nil, err
	}
	if err := loadTechnologies(filepath.Join(configDir, "technologies.json"), &c.Technologies, &c.Buildings); err != nil {
		return nil, err
	}
	return &c, nil
}

// Digest combines every catalog digest in a fixed order.
func (c *Catalogs) Digest() string {
	h := sha256.New()
	for _, d := range []string{c.Buildings.Digest, c.Resources.Digest, c.Units.Digest, c.Technologies.Digest} {
		h.Write([]byte(d))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// UnitsFor lists the units a building can spawn, in catalog order.
func (c *Catalogs) UnitsFor(t model.BuildingType) []UnitDef {
	var out []UnitDef
	for _, id := range c.Units.Order {
		if u := c.Units.ByID[id]; u.Building == t {
			out = append(out, u)
		}
	}
	return out
}

// TechnologiesFor lists the technologies researched at a building, in catalog order.
func (c *Catalogs) TechnologiesFor(t model.BuildingType) []TechnologyDef {
	var out []TechnologyDef
	for _, id := range c.Technologies.Order {
		if d := c.Technologies.ByID[id]; d.Building == t {
			out = append(out, d)
		}
	}
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBuildings(path string, out *BuildingCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []BuildingDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("buildings.json: %w", err)
	}
	out.ByID = map[model.BuildingType]BuildingDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("buildings.json: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("buildings.json: duplicate id %s", d.ID)
		}
		if d.Health <= 0 {
			return fmt.Errorf("buildings.json: %s: health must be positive", d.ID)
		}
		cost, err := model.AmountsFromNames(d.Costs)
		if err != nil {
			return fmt.Errorf("buildings.json: %s: %w", d.ID, err)
		}
		d.Cost = cost
		d.Cells = d.Footprint.Cells()
		if len(d.Cells) == 0 {
			return fmt.Errorf("buildings.json: %s: empty footprint", d.ID)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	if _, ok := out.ByID[model.BaseCamp]; !ok {
		return fmt.Errorf("buildings.json: missing %s", model.BaseCamp)
	}
	sort.Slice(out.Order, func(i, j int) bool { return out.Order[i] < out.Order[j] })
	return nil
}

func loadResources(path string, out *ResourceCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ResourceDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("resources.json: %w", err)
	}
	out.ByID = map[string]ResourceDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("resources.json: empty id")
		}
		kind, err := model.ParseKind(d.Kind)
		if err != nil || kind == model.KindBuilding {
			return fmt.Errorf("resources.json: %s: bad kind %q", d.ID, d.Kind)
		}
		r, err := model.ParseResource(d.Yields)
		if err != nil {
			return fmt.Errorf("resources.json: %s: %w", d.ID, err)
		}
		if d.Health <= 0 {
			return fmt.Errorf("resources.json: %s: health must be positive", d.ID)
		}
		d.StructureKind = kind
		d.Resource = r
		d.Cells = d.Footprint.Cells()
		if len(d.Cells) == 0 {
			return fmt.Errorf("resources.json: %s: empty footprint", d.ID)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	sort.Strings(out.Order)
	return nil
}

func loadUnits(path string, out *UnitCatalog, buildings *BuildingCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []UnitDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("units.json: %w", err)
	}
	out.ByID = map[model.UnitKind]UnitDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("units.json: empty id")
		}
		if _, ok := buildings.ByID[d.Building]; !ok {
			return fmt.Errorf("units.json: %s: unknown building %q", d.ID, d.Building)
		}
		cost, err := model.AmountsFromNames(d.Costs)
		if err != nil {
			return fmt.Errorf("units.json: %s: %w", d.ID, err)
		}
		d.Cost = cost
		for _, s := range d.Specialization {
			r, err := model.ParseResource(s)
			if err != nil {
				return fmt.Errorf("units.json: %s: %w", d.ID, err)
			}
			d.Specialties = append(d.Specialties, r)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	sort.Slice(out.Order, func(i, j int) bool { return out.Order[i] < out.Order[j] })
	return nil
}

func loadTechnologies(path string, out *TechnologyCatalog, buildings *BuildingCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// No technologies is a valid world.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			out.ByID = map[string]TechnologyDef{}
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []TechnologyDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("technologies.json: %w", err)
	}
	out.ByID = map[string]TechnologyDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("technologies.json: empty id")
		}
		if _, ok := buildings.ByID[d.Building]; !ok {
			return fmt.Errorf("technologies.json: %s: unknown building %q", d.ID, d.Building)
		}
		cost, err := model.AmountsFromNames(d.Costs)
		if err != nil {
			return fmt.Errorf("technologies.json: %s: %w", d.ID, err)
		}
		d.Cost = cost
		d.Gather = map[model.ResourceType]float64{}
		for k, v := range d.GatherMultiplier {
			r, err := model.ParseResource(k)
			if err != nil {
				return fmt.Errorf("technologies.json: %s: %w", d.ID, err)
			}
			d.Gather[r] = v
		}
		for _, s := range d.Unlocks {
			r, err := model.ParseResource(s)
			if err != nil {
				return fmt.Errorf("technologies.json: %s: %w", d.ID, err)
			}
			d.Unlocked = append(d.Unlocked, r)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	sort.Strings(out.Order)
	return nil
}
