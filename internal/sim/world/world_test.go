package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/terrain/gen"
)

func TestPlaceBuilding_ChargesAndRejects(t *testing.T) {
	w := newWorld(t, flatConfig())
	pid := w.AddPlayer("p")
	p := w.Player(pid)

	farm := mustPlace(t, w, pid, model.Farm, grid.C(10, 0))
	if got := p.Resources[model.Wood]; got != 250 {
		t.Fatalf("wood after farm=%v want 250", got)
	}
	if farm.Building.State != model.Placed || farm.Health != 300 {
		t.Fatalf("unexpected farm: state=%v health=%v", farm.Building.State, farm.Health)
	}
	if w.StructureAt(grid.C(11, 1)) != farm {
		t.Fatalf("footprint corner not indexed")
	}

	if _, err := w.PlaceBuilding(pid, model.Farm, grid.C(11, 0), grid.North); !errors.Is(err, ErrOccupied) {
		t.Fatalf("overlap err=%v", err)
	}
	if got := p.Resources[model.Wood]; got != 250 {
		t.Fatalf("failed placement charged: wood=%v", got)
	}

	p.Resources[model.Wood] = 10
	if _, err := w.PlaceBuilding(pid, model.Farm, grid.C(30, 0), grid.North); !errors.Is(err, ErrInsufficientResources) {
		t.Fatalf("poor err=%v", err)
	}
	if w.StructureAt(grid.C(30, 0)) != nil {
		t.Fatalf("unaffordable farm was placed")
	}

	if _, err := w.PlaceBuilding(99, model.Farm, grid.C(40, 0), grid.North); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("unknown player err=%v", err)
	}
}

func TestBaseCamp_PreBuiltAndFree(t *testing.T) {
	w := newWorld(t, flatConfig())
	pid := w.AddPlayer("p")
	camp := mustPlace(t, w, pid, model.BaseCamp, grid.C(0, 0))
	if !camp.IsBuilt() {
		t.Fatalf("base camp should start built")
	}
	if got := w.Player(pid).Resources[model.Food]; got != 300 {
		t.Fatalf("base camp charged food: %v", got)
	}
	if len(camp.Cells()) != 25 {
		t.Fatalf("base camp cells=%d", len(camp.Cells()))
	}
}

func TestFarmLoop_FoodRisesAndPhasesAlternate(t *testing.T) {
	w := newWorld(t, flatConfig())
	pid := w.AddPlayer("p")
	mustPlace(t, w, pid, model.BaseCamp, grid.C(0, 0))
	farm := mustPlace(t, w, pid, model.Farm, grid.C(8, 0))
	farm.Building.State = model.Built

	a := mustSpawn(t, w, pid, "COLONIST", grid.C(3, 0))
	if ok, err := w.GoTo(a.HID, farm.Coords); err != nil || !ok {
		t.Fatalf("goto farm ok=%v err=%v", ok, err)
	}
	if a.Work != model.WorkGathering || a.Resource != model.Food {
		t.Fatalf("farm job not assigned: work=%v res=%v", a.Work, a.Resource)
	}

	start := w.Player(pid).Resources[model.Food]
	prev := a.GatherPhase
	changes := 0
	for i := 0; i < 200; i++ {
		w.Update(1)
		if a.GatherPhase != prev {
			changes++
			prev = a.GatherPhase
		}
	}
	if got := w.Player(pid).Resources[model.Food]; got <= start {
		t.Fatalf("food did not rise: start=%v now=%v", start, got)
	}
	if changes < 2 {
		t.Fatalf("phase changes=%d want >= 2", changes)
	}
	if a.CarriedTotal() > a.Capacity {
		t.Fatalf("carried %v over capacity %v", a.CarriedTotal(), a.Capacity)
	}
	if w.Stats().Deposited["FOOD"] <= 0 {
		t.Fatalf("deposits not counted: %+v", w.Stats().Deposited)
	}
}

func TestConstruction_WorkerBuildsAndIsReleased(t *testing.T) {
	w := newWorld(t, flatConfig())
	pid := w.AddPlayer("p")
	camp := mustPlace(t, w, pid, model.BaseCamp, grid.C(0, 0))
	farm := mustPlace(t, w, pid, model.Farm, grid.C(10, 0))

	if err := w.InvokeAction(camp.SID, "SPAWN_COLONIST"); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	agents := w.Agents()
	if len(agents) != 1 {
		t.Fatalf("agents=%d", len(agents))
	}
	a := agents[0]
	if ok, _ := w.GoTo(a.HID, farm.Coords); !ok {
		t.Fatalf("farm unreachable")
	}
	if a.Work != model.WorkBuilding {
		t.Fatalf("work=%v want building", a.Work)
	}

	for i := 0; i < 5; i++ {
		w.Update(1)
	}
	if farm.Building.WorkerCount != 1 || farm.Building.State != model.UnderConstruction {
		t.Fatalf("after arrival: workers=%d state=%v", farm.Building.WorkerCount, farm.Building.State)
	}

	for i := 0; i < 75; i++ {
		w.Update(1)
	}
	if !farm.IsBuilt() {
		t.Fatalf("farm not built: %v/%v", farm.Building.BuildTime, farm.Building.BuildDuration)
	}
	if farm.Building.WorkerCount != 0 || a.State != model.StateIdle {
		t.Fatalf("worker not released: workers=%d state=%v", farm.Building.WorkerCount, a.State)
	}
}

func TestGoTo_RedirectReleasesWorker(t *testing.T) {
	w := newWorld(t, flatConfig())
	pid := w.AddPlayer("p")
	farm := mustPlace(t, w, pid, model.Farm, grid.C(4, 0))
	a := mustSpawn(t, w, pid, "COLONIST", grid.C(0, 0))

	if _, err := w.GoTo(a.HID, farm.Coords); err != nil {
		t.Fatal(err)
	}
	w.Update(1)
	if farm.Building.WorkerCount != 1 {
		t.Fatalf("workers=%d want 1", farm.Building.WorkerCount)
	}
	if _, err := w.GoTo(a.HID, grid.C(-5, -5)); err != nil {
		t.Fatal(err)
	}
	if farm.Building.WorkerCount != 0 {
		t.Fatalf("redirect kept worker slot: %d", farm.Building.WorkerCount)
	}

	if _, err := w.GoTo(12345, grid.C(0, 0)); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("unknown agent err=%v", err)
	}
}

func TestBuildingActions(t *testing.T) {
	w := newWorld(t, flatConfig())
	pid := w.AddPlayer("p")
	p := w.Player(pid)
	camp := mustPlace(t, w, pid, model.BaseCamp, grid.C(0, 0))
	farm := mustPlace(t, w, pid, model.Farm, grid.C(10, 0))

	actions, err := w.BuildingActions(camp.SID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"SPAWN_COLONIST", "RESEARCH_BUILDING_HEALTH", "RESEARCH_BUILDING_TIME", "RESEARCH_EXTRA_MATERIALS"}
	if len(actions) != len(want) {
		t.Fatalf("actions=%d want %d", len(actions), len(want))
	}
	for i, a := range actions {
		if a.ID != want[i] {
			t.Fatalf("action[%d]=%s want %s", i, a.ID, want[i])
		}
	}

	if got, _ := w.BuildingActions(farm.SID); len(got) != 0 {
		t.Fatalf("unbuilt farm exposes %d actions", len(got))
	}
	if err := w.InvokeAction(farm.SID, "SPAWN_FARMER"); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("unbuilt invoke err=%v", err)
	}

	// Short on resources: nothing is debited.
	before := p.Resources.Clone()
	if err := w.InvokeAction(camp.SID, "RESEARCH_BUILDING_HEALTH"); !errors.Is(err, ErrInsufficientResources) {
		t.Fatalf("research err=%v", err)
	}
	for _, r := range model.AllResources {
		if p.Resources[r] != before[r] {
			t.Fatalf("%s changed on failed research", r)
		}
	}

	p.Resources.Add(model.Amounts{model.Food: 400, model.Wood: 300, model.Stone: 300})
	if err := w.InvokeAction(camp.SID, "RESEARCH_BUILDING_HEALTH"); err != nil {
		t.Fatalf("research: %v", err)
	}
	if camp.Building.MaxHealth != 4000 || camp.Health != 4000 || farm.Building.MaxHealth != 600 {
		t.Fatalf("health not doubled: camp=%v/%v farm=%v", camp.Health, camp.Building.MaxHealth, farm.Building.MaxHealth)
	}
	actions, _ = w.BuildingActions(camp.SID)
	for _, a := range actions {
		if a.ID == "RESEARCH_BUILDING_HEALTH" {
			t.Fatalf("researched technology still offered")
		}
	}
	pantry := mustPlace(t, w, pid, model.Pantry, grid.C(0, 10))
	if pantry.Health != 1100 {
		t.Fatalf("new building health=%v want 1100", pantry.Health)
	}
	if err := w.InvokeAction(camp.SID, "RESEARCH_BUILDING_HEALTH"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("second research err=%v", err)
	}
}

func TestExtraMaterials_UnlocksResources(t *testing.T) {
	w := newWorld(t, flatConfig())
	pid := w.AddPlayer("p")
	p := w.Player(pid)
	camp := mustPlace(t, w, pid, model.BaseCamp, grid.C(0, 0))
	if p.CanGather(model.Crystal) {
		t.Fatalf("crystal should start locked")
	}
	p.Resources.Add(model.Amounts{model.Stone: 400, model.Iron: 400, model.Gold: 300})
	if err := w.InvokeAction(camp.SID, "RESEARCH_EXTRA_MATERIALS"); err != nil {
		t.Fatal(err)
	}
	if !p.CanGather(model.Crystal) || !p.CanGather(model.Vulcan) {
		t.Fatalf("extra materials did not unlock")
	}
}

func TestRemoveAndDamage(t *testing.T) {
	w := newWorld(t, flatConfig())
	audit := &memAudit{}
	w.SetAuditLogger(audit)
	pid := w.AddPlayer("p")
	farm := mustPlace(t, w, pid, model.Farm, grid.C(0, 0))
	lumber := mustPlace(t, w, pid, model.LumberCamp, grid.C(10, 0))

	if !w.RemoveStructure(farm.SID) {
		t.Fatalf("remove reported false")
	}
	if w.RemoveStructure(farm.SID) {
		t.Fatalf("second remove reported true")
	}
	if w.StructureAt(grid.C(0, 0)) != nil || w.Structure(farm.SID) != nil {
		t.Fatalf("farm still indexed")
	}

	destroyed, err := w.DamageBuilding(lumber.SID, 100)
	if err != nil || destroyed {
		t.Fatalf("partial damage destroyed=%v err=%v", destroyed, err)
	}
	destroyed, err = w.DamageBuilding(lumber.SID, 1000)
	if err != nil || !destroyed {
		t.Fatalf("lethal damage destroyed=%v err=%v", destroyed, err)
	}
	if w.StructureAt(grid.C(10, 0)) != nil {
		t.Fatalf("destroyed camp still indexed")
	}
	if _, err := w.DamageBuilding(lumber.SID, 1); !errors.Is(err, ErrUnknownStructure) {
		t.Fatalf("damage removed err=%v", err)
	}
	if got := audit.actions()["REMOVE_STRUCTURE"]; got != 2 {
		t.Fatalf("remove audits=%d want 2", got)
	}
	if w.index.Orphans() != 0 {
		t.Fatalf("index has orphans")
	}
}

func TestSelection(t *testing.T) {
	w := newWorld(t, flatConfig())
	pid := w.AddPlayer("p")
	a := mustSpawn(t, w, pid, "COLONIST", grid.C(0, 0))
	b := mustSpawn(t, w, pid, "COLONIST", grid.C(3, 0))
	mustSpawn(t, w, pid, "COLONIST", grid.C(40, 40))

	near := w.AgentsInRadius(a.Location, 3*16)
	if len(near) != 2 || near[0] != a || near[1] != b {
		t.Fatalf("radius selection=%d", len(near))
	}
	box := w.AgentsInRect(grid.Vec2{X: 700, Y: 700}, grid.Vec2{X: 0, Y: 0})
	if len(box) != 3 {
		t.Fatalf("rect selection=%d want 3", len(box))
	}
	if !w.RemoveAgent(b.HID) || w.RemoveAgent(b.HID) {
		t.Fatalf("remove agent not idempotent")
	}
	if got := w.AgentsInRadius(a.Location, 3*16); len(got) != 1 {
		t.Fatalf("removed agent still selected")
	}
}

func TestAgentsRebucketAcrossChunks(t *testing.T) {
	w := newWorld(t, flatConfig())
	pid := w.AddPlayer("p")
	a := mustSpawn(t, w, pid, "COLONIST", grid.C(1, 1))
	if ok, _ := w.GoTo(a.HID, grid.C(40, 1)); !ok {
		t.Fatalf("no path")
	}
	for i := 0; i < 10; i++ {
		w.Update(1)
	}
	k, ok := w.index.AgentChunk(a.HID)
	if !ok || k != (grid.ChunkKey{CX: 2, CY: 0}) {
		t.Fatalf("agent bucket=%v ok=%v", k, ok)
	}
	if a.State != model.StateIdle {
		t.Fatalf("state=%v want idle after plain move", a.State)
	}
}

func TestFoundColony(t *testing.T) {
	w := newWorld(t, flatConfig())
	p1, camp1, err := w.FoundColony("a")
	if err != nil {
		t.Fatal(err)
	}
	p2, camp2, err := w.FoundColony("b")
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 || camp1.Coords == camp2.Coords {
		t.Fatalf("colonies share a site")
	}
	if camp1.Coords != (grid.Cell{}) {
		t.Fatalf("first camp at %v want origin", camp1.Coords)
	}
	if !camp2.IsBuilt() || camp2.Building.PlayerID != p2 {
		t.Fatalf("second camp wrong: %+v", camp2.Building)
	}
}

func TestUpdate_TickLogAndSnapshotSink(t *testing.T) {
	cfg := flatConfig()
	cfg.SnapshotEveryTicks = 5
	w := newWorld(t, cfg)
	ticks := &memTickLog{}
	sink := make(chan snapshot.SnapshotV1, 4)
	w.SetTickLogger(ticks)
	w.SetSnapshotSink(sink)
	w.AddPlayer("p")

	for i := 0; i < 11; i++ {
		w.Update(0.1)
	}
	if len(ticks.entries) != 11 || ticks.entries[10].Tick != 10 || ticks.entries[10].Digest == "" {
		t.Fatalf("tick log entries=%d", len(ticks.entries))
	}
	if len(sink) != 2 {
		t.Fatalf("snapshots=%d want 2", len(sink))
	}
	if s := <-sink; s.Header.Tick != 5 || len(s.Players) != 1 {
		t.Fatalf("first snapshot tick=%d players=%d", s.Header.Tick, len(s.Players))
	}
	if w.CurrentTick() != 11 {
		t.Fatalf("tick=%d", w.CurrentTick())
	}
}

func TestRun_AppliesCommandsAtTickBoundary(t *testing.T) {
	cfg := flatConfig()
	cfg.TickRateHz = 100
	w := newWorld(t, cfg)
	ticks := &memTickLog{}
	w.SetTickLogger(ticks)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	var pid model.PlayerID
	if err := w.Do(ctx, "add_player", func(w *World) error {
		pid = w.AddPlayer("p")
		return nil
	}); err != nil {
		t.Fatalf("do: %v", err)
	}
	wantErr := errors.New("boom")
	if err := w.Do(ctx, "fail", func(*World) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("do error=%v", err)
	}
	var name string
	if err := w.Query(ctx, func(w *World) error {
		name = w.Player(pid).Name
		return nil
	}); err != nil || name != "p" {
		t.Fatalf("read name=%q err=%v", name, err)
	}

	w.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	var logged []string
	for _, e := range ticks.entries {
		logged = append(logged, e.Commands...)
	}
	// Queries stay out of the log.
	if len(logged) != 2 || logged[0] != "add_player" || logged[1] != "fail" {
		t.Fatalf("logged commands=%v", logged)
	}
}

func TestNew_RejectsBadBands(t *testing.T) {
	cfg := flatConfig()
	cfg.Bands = gen.Bands{List: []gen.Band{{Min: 1, Biome: gen.Plain}, {Min: 2, Biome: gen.Forest}}}
	if _, err := New(cfg, loadCatalogs(t)); err == nil {
		t.Fatalf("expected band order error")
	}
}

func TestConfigFromTuning(t *testing.T) {
	cfg, err := ConfigFromTuning("w", tuning.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bands.Fallback != gen.Lava || len(cfg.Bands.List) != 6 || cfg.Bands.List[0].Biome != gen.SnowyPeak {
		t.Fatalf("bands=%+v", cfg.Bands)
	}
	if cfg.StarterResources[model.Food] != 300 || len(cfg.LockedResources) != 2 {
		t.Fatalf("starter=%v locked=%v", cfg.StarterResources, cfg.LockedResources)
	}

	bad := tuning.Defaults()
	bad.LockedResources = []string{"MITHRIL"}
	if _, err := ConfigFromTuning("w", bad); err == nil {
		t.Fatalf("expected locked resource error")
	}
}

func TestRun_CommandsAfterShutdownAreRejected(t *testing.T) {
	cases := []struct {
		name string
		shut func(w *World, cancel context.CancelFunc, done <-chan error)
	}{
		{"stop", func(w *World, _ context.CancelFunc, done <-chan error) {
			w.Stop()
			<-done
		}},
		{"stop twice", func(w *World, _ context.CancelFunc, done <-chan error) {
			w.Stop()
			w.Stop()
			<-done
		}},
		{"context", func(_ *World, cancel context.CancelFunc, done <-chan error) {
			cancel()
			<-done
		}},
	}
	for _, c := range cases {
		for i := 0; i < 20; i++ {
			cfg := flatConfig()
			cfg.TickRateHz = 100
			w := newWorld(t, cfg)
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- w.Run(ctx) }()
			if err := w.Query(context.Background(), func(*World) error { return nil }); err != nil {
				t.Fatalf("%s: query before shutdown: %v", c.name, err)
			}
			c.shut(w, cancel, done)

			wait, stop := context.WithTimeout(context.Background(), 2*time.Second)
			err := w.Do(wait, "late", func(*World) error { return nil })
			stop()
			cancel()
			if !errors.Is(err, ErrStopped) {
				t.Fatalf("%s run %d: late do err=%v want ErrStopped", c.name, i, err)
			}
		}
	}
}

func TestStop_WithoutRun(t *testing.T) {
	w := newWorld(t, flatConfig())
	w.Stop()
	w.Stop()
	if err := w.Query(context.Background(), func(*World) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("query err=%v want ErrStopped", err)
	}
}
