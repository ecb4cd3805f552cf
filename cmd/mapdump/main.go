// Command mapdump prints generated terrain as ASCII, one glyph per cell.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/world"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/terrain/gen"
)

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 0, "override the tuning seed (0 keeps it)")
		cx         = flag.Int("cx", -2, "first chunk x")
		cy         = flag.Int("cy", -2, "first chunk y")
		width      = flag.Int("w", 4, "width in chunks")
		height     = flag.Int("h", 4, "height in chunks")
		overlay    = flag.Bool("structures", true, "draw seeded resources over the terrain")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[mapdump] ", 0)

	tp := *tuningPath
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	cfg, err := world.ConfigFromTuning("mapdump", tune)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	w, err := world.New(cfg, cats)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	origin := grid.ChunkKey{CX: *cx, CY: *cy}
	fmt.Fprintf(out, "seed=%d chunk_size=%d origin=(%d,%d)\n", cfg.Seed, cfg.ChunkSize, origin.CX, origin.CY)
	for _, row := range Render(w, origin, *width, *height, *overlay) {
		fmt.Fprintln(out, row)
	}
	fmt.Fprintln(out, Legend(*overlay))
}

// Render returns one string per cell row, top row first.
func Render(w *world.World, origin grid.ChunkKey, width, height int, overlay bool) []string {
	area := w.QueryArea(origin, width, height)
	rows := make([][]byte, len(area))
	for y, line := range area {
		rows[y] = make([]byte, len(line))
		for x, b := range line {
			rows[y][x] = b.Glyph()
		}
	}
	if overlay {
		base := origin.Origin(w.Config().ChunkSize)
		for _, s := range w.Structures() {
			g := structureGlyph(s)
			for _, c := range s.Cells() {
				y, x := c.Y-base.Y, c.X-base.X
				if y >= 0 && y < len(rows) && x >= 0 && x < len(rows[y]) {
					rows[y][x] = g
				}
			}
		}
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string(r)
	}
	return out
}

func structureGlyph(s *model.Structure) byte {
	switch s.Kind {
	case model.KindTree:
		return '+'
	case model.KindOre:
		return 'o'
	}
	return '#'
}

func Legend(overlay bool) string {
	var parts []string
	for b := gen.Lava; b <= gen.SnowyPeak; b++ {
		parts = append(parts, fmt.Sprintf("%c=%s", b.Glyph(), b))
	}
	sort.Strings(parts)
	if overlay {
		parts = append(parts, "+=TREE", "o=ORE", "#=BUILDING")
	}
	return strings.Join(parts, " ")
}
