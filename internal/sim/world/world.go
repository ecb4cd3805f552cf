package world

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/world/feature/depot"
	"colonysim.ai/internal/sim/world/feature/work"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/logic/pathfind"
	"colonysim.ai/internal/sim/world/spatial"
	"colonysim.ai/internal/sim/world/terrain/noise"
	"colonysim.ai/internal/sim/world/terrain/seed"
	"colonysim.ai/internal/sim/world/terrain/store"
)

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine, or from the
// caller's goroutine when the loop is not running.
type World struct {
	cfg      Config
	catalogs *catalogs.Catalogs
	log      *log.Logger

	tick atomic.Uint64

	gen    store.WorldGen
	chunks *store.ChunkStore
	seeder *seed.Seeder
	index  *spatial.Index

	structures map[model.SID]*model.Structure
	agents     map[model.HID]*model.Agent
	players    map[model.PlayerID]*model.Player

	nextSID uint64
	nextHID uint64
	nextPID uint32

	machine *work.Machine
	depots  *depot.Finder
	memo    *depot.Memo

	inbox    chan command
	stop     chan struct{}
	stopOnce sync.Once
	halted   chan struct{}
	haltOnce sync.Once
	running  atomic.Bool

	// Commands applied at the current tick boundary, for the tick log.
	applied []string

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	deposited model.Amounts
	stats     atomic.Pointer[Stats]
}

func New(cfg Config, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	cfg.applyDefaults()
	if err := cfg.Bands.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	rules, err := seed.Compile(cfg.Seeding, cats.Resources)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}

	w := &World{
		cfg:        cfg,
		catalogs:   cats,
		log:        log.New(io.Discard, "", 0),
		gen:        store.WorldGen{Noise: noise.New(cfg.Noise), Bands: cfg.Bands},
		index:      spatial.New(cfg.ChunkSize),
		structures: map[model.SID]*model.Structure{},
		agents:     map[model.HID]*model.Agent{},
		players:    map[model.PlayerID]*model.Player{},
		inbox:      make(chan command, 1024),
		stop:       make(chan struct{}),
		halted:     make(chan struct{}),
		deposited:  model.Amounts{},
	}
	w.seeder = &seed.Seeder{Seed: cfg.Seed, Rules: rules, Placer: w}
	w.setChunkStore(store.NewChunkStore(w.gen))

	w.memo = depot.NewMemo()
	w.depots = &depot.Finder{
		Source:  w.index,
		Terrain: w.chunks,
		Options: w.pathOptions(),
		Cache:   w.memo,
	}
	w.machine = &work.Machine{
		Env:      w,
		CellSize: cfg.CellSize,
		Observe:  w.observe,
	}
	w.publishStats()
	return w, nil
}

func (w *World) setChunkStore(s *store.ChunkStore) {
	s.Populator = w.seeder
	w.chunks = s
	if w.depots != nil {
		w.depots.Terrain = s
	}
}

func (w *World) pathOptions() pathfind.Options {
	return pathfind.Options{MaxExpansions: w.cfg.MaxPathExpansions}
}

func (w *World) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	w.log = l
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// SetDepotCache swaps the nearest-depot cache; nil disables caching.
func (w *World) SetDepotCache(c depot.Cache) { w.depots.Cache = c }

func (w *World) ID() string                   { return w.cfg.ID }
func (w *World) Config() Config               { return w.cfg }
func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

// CurrentTick is safe to call from any goroutine.
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Stats returns the counters published at the end of the last tick. Safe
// from any goroutine.
func (w *World) Stats() Stats {
	if s := w.stats.Load(); s != nil {
		return *s
	}
	return Stats{}
}

func (w *World) publishStats() {
	s := &Stats{
		Tick:       w.tick.Load(),
		Players:    len(w.players),
		Agents:     len(w.agents),
		Structures: len(w.structures),
		Chunks:     len(w.chunks.Chunks),
		Deposited:  w.deposited.ByName(),
		DepotHits:  w.memo.Hits,
	}
	w.stats.Store(s)
}

func (w *World) observe(a *model.Agent, ev work.Event) {
	if ev.Kind == work.EventDeposited {
		w.deposited[ev.Resource] += ev.Amount
	}
}

func (w *World) audit(action string, actor string, s *model.Structure, reason string, details map[string]any) {
	if w.auditLogger == nil {
		return
	}
	e := AuditEntry{
		Tick:    w.tick.Load(),
		Actor:   actor,
		Action:  action,
		Reason:  reason,
		Details: details,
	}
	if s != nil {
		e.SID = uint64(s.SID)
		e.Pos = s.Coords.ToArray()
	}
	_ = w.auditLogger.WriteAudit(e)
}

func playerActor(pid model.PlayerID) string {
	return fmt.Sprintf("P%d", pid)
}
