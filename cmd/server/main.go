package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	persistlog "colonysim.ai/internal/persistence/log"
	"colonysim.ai/internal/persistence/snapshot"
	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/world"
	"colonysim.ai/internal/transport/httpapi"
	"colonysim.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldName  = flag.String("world", "main", "world directory name under <data>/worlds")
		seed       = flag.Int64("seed", 0, "world seed for a fresh world (0 uses tuning)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index of ticks, audits and snapshots")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldName)
	snapDir := filepath.Join(worldDir, "snapshots")
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = snapshot.Latest(snapDir)
	}

	tune, err := tuning.Load(tp)
	if err != nil {
		// Resumes carry seed and grid sizes in the snapshot; defaults cover the rest.
		if snapshotToLoad == "" || !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	w, err := buildWorld(tune, cats, *seed, snapshotToLoad, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetLogger(log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds))

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer tickLog.Close()
	defer auditLog.Close()
	if idx != nil {
		w.SetTickLogger(persistlog.MultiTickLogger{tickLog, idx})
		w.SetAuditLogger(persistlog.MultiAuditLogger{auditLog, idx})
	} else {
		w.SetTickLogger(tickLog)
		w.SetAuditLogger(auditLog)
	}

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := snapshot.PathFor(snapDir, snap.Header.Tick)
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	router := httpapi.NewRouter(w, logger)
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", func(c *gin.Context) { writeMetrics(c.Writer, w) })
	router.GET("/v1/ws", gin.WrapF(ws.NewServer(w, logger, ws.DefaultOptions()).Handler()))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("world %s seed=%d tick=%d listening on %s", w.ID(), w.Config().Seed, w.CurrentTick(), *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-worldDone
}

// buildWorld starts fresh from tuning or resumes from a snapshot, whose
// seed and grid sizes take precedence over tuning.
func buildWorld(tune tuning.Tuning, cats *catalogs.Catalogs, seed int64, snapPath string, logger *log.Logger) (*world.World, error) {
	if snapPath == "" {
		if seed != 0 {
			tune.Seed = seed
		}
		cfg, err := world.ConfigFromTuning(uuid.NewString(), tune)
		if err != nil {
			return nil, err
		}
		return world.New(cfg, cats)
	}

	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	tune.Seed = snap.Seed
	tune.TickRateHz = snap.TickRate
	tune.ChunkSize = snap.ChunkSize
	tune.CellSize = snap.CellSize
	id := snap.Header.WorldID
	if id == "" {
		id = uuid.NewString()
	}
	cfg, err := world.ConfigFromTuning(id, tune)
	if err != nil {
		return nil, err
	}
	w, err := world.New(cfg, cats)
	if err != nil {
		return nil, err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapPath), w.CurrentTick())
	return w, nil
}

func writeMetrics(rw http.ResponseWriter, w *world.World) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s := w.Stats()
	id := w.ID()

	gauges := []struct {
		name, help string
		v          float64
	}{
		{"colonysim_world_tick", "Current world tick.", float64(s.Tick)},
		{"colonysim_world_players", "Players in the world.", float64(s.Players)},
		{"colonysim_world_agents", "Agents in the world.", float64(s.Agents)},
		{"colonysim_world_structures", "Structures in the world.", float64(s.Structures)},
		{"colonysim_world_loaded_chunks", "Generated chunk count.", float64(s.Chunks)},
		{"colonysim_depot_cache_hits", "Nearest-depot cache hits.", float64(s.DepotHits)},
	}
	for _, g := range gauges {
		fmt.Fprintf(rw, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", g.name)
		fmt.Fprintf(rw, "%s{world=%q} %g\n", g.name, id, g.v)
	}

	fmt.Fprintf(rw, "# HELP colonysim_deposited_total Resources delivered to depots.\n")
	fmt.Fprintf(rw, "# TYPE colonysim_deposited_total counter\n")
	for name, v := range s.Deposited {
		fmt.Fprintf(rw, "colonysim_deposited_total{world=%q,resource=%q} %g\n", id, name, v)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
