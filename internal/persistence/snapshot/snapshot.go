package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed          int64   `json:"seed"`
	TickRate      int     `json:"tick_rate_hz"`
	ChunkSize     int     `json:"chunk_size"`
	CellSize      float64 `json:"cell_size"`
	CatalogDigest string  `json:"catalog_digest,omitempty"`

	NextSID uint64 `json:"next_sid"`
	NextHID uint64 `json:"next_hid"`
	NextPID uint32 `json:"next_pid"`

	Chunks     []ChunkV1     `json:"chunks"`
	Players    []PlayerV1    `json:"players"`
	Structures []StructureV1 `json:"structures"`
	Agents     []AgentV1     `json:"agents"`
}

type ChunkV1 struct {
	CX     int     `json:"cx"`
	CY     int     `json:"cy"`
	Size   int     `json:"size"`
	Biomes []uint8 `json:"biomes"`
}

type PlayerV1 struct {
	PID                uint32             `json:"pid"`
	Name               string             `json:"name"`
	Resources          map[string]float64 `json:"resources"`
	Technologies       []string           `json:"technologies,omitempty"`
	GatherMult         map[string]float64 `json:"gather_mult,omitempty"`
	BuildMult          float64            `json:"build_mult"`
	BuildingHealthMult float64            `json:"building_health_mult"`
	Locked             []string           `json:"locked,omitempty"`
}

type StructureV1 struct {
	SID         uint64      `json:"sid"`
	Kind        string      `json:"kind"`
	DefID       string      `json:"def_id,omitempty"`
	Coords      [2]int      `json:"coords"`
	Points      [][2]int    `json:"points"`
	Orientation int         `json:"orientation"`
	Health      float64     `json:"health"`
	Ore         string      `json:"ore,omitempty"`
	Building    *BuildingV1 `json:"building,omitempty"`
}

type BuildingV1 struct {
	Type          string             `json:"type"`
	PlayerID      uint32             `json:"player_id"`
	Costs         map[string]float64 `json:"costs,omitempty"`
	MaxHealth     float64            `json:"max_health"`
	BuildDuration float64            `json:"build_duration"`
	BuildTime     float64            `json:"build_time"`
	WorkerCount   int                `json:"worker_count"`
	State         int                `json:"state"`
}

type AgentV1 struct {
	HID      uint64 `json:"hid"`
	Kind     string `json:"kind"`
	PlayerID uint32 `json:"player_id"`

	Location [2]float64   `json:"location"`
	Path     [][2]float64 `json:"path,omitempty"`
	Progress float64      `json:"progress"`

	State       int `json:"state"`
	Work        int `json:"work"`
	GatherPhase int `json:"gather_phase"`

	Carried        map[string]float64 `json:"carried,omitempty"`
	Capacity       float64            `json:"capacity"`
	GatherSpeed    float64            `json:"gather_speed"`
	DepositSpeed   float64            `json:"deposit_speed"`
	Speed          float64            `json:"speed"`
	Specialization []string           `json:"specialization,omitempty"`

	Resource    string   `json:"resource,omitempty"`
	Target      *[2]int  `json:"target,omitempty"`
	TargetSID   uint64   `json:"target_sid,omitempty"`
	Depot       *[2]int  `json:"depot,omitempty"`
	DepotSID    uint64   `json:"depot_sid,omitempty"`
	DepotTypes  []string `json:"depot_types,omitempty"`
	GoingToWork bool     `json:"going_to_work,omitempty"`
}

// Encode writes a zstd stream holding one JSON header line followed by the gob body.
func Encode(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func Decode(r io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	defer f.Close()
	return Decode(f)
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// PathFor names the snapshot file for tick inside dir.
func PathFor(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.snap.zst", tick))
}

// Latest returns the highest-tick snapshot in dir, or "" when there is none.
func Latest(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
