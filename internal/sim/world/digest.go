package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"colonysim.ai/internal/sim/world/kernel/model"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteAmounts(h hashWriter, tmp *[8]byte, a model.Amounts) {
	for _, r := range model.AllResources {
		digestWriteF64(h, tmp, a[r])
	}
}

// Digest hashes the whole simulation state. Equal states give equal digests.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, w.tick.Load())
	digestWriteI64(h, &tmp, w.cfg.Seed)
	digestWriteU64(h, &tmp, w.nextSID)
	digestWriteU64(h, &tmp, w.nextHID)
	digestWriteU64(h, &tmp, uint64(w.nextPID))

	for _, k := range w.chunks.LoadedChunkKeys() {
		digestWriteI64(h, &tmp, int64(k.CX))
		digestWriteI64(h, &tmp, int64(k.CY))
		d := w.chunks.Chunks[k].Digest()
		h.Write(d[:])
	}

	for _, p := range w.Players() {
		digestWriteU64(h, &tmp, uint64(p.PID))
		h.Write([]byte(p.Name))
		digestWriteAmounts(h, &tmp, p.Resources)
		techs := make([]string, 0, len(p.Technologies))
		for id := range p.Technologies {
			techs = append(techs, id)
		}
		sort.Strings(techs)
		for _, id := range techs {
			h.Write([]byte(id))
		}
		for _, r := range model.AllResources {
			digestWriteF64(h, &tmp, p.GatherMultiplier(r))
		}
		digestWriteF64(h, &tmp, p.BuildMult)
		digestWriteF64(h, &tmp, p.BuildingHealthMult)
	}

	for _, s := range w.Structures() {
		digestWriteU64(h, &tmp, uint64(s.SID))
		h.Write([]byte{byte(s.Kind), byte(s.Orientation)})
		digestWriteI64(h, &tmp, int64(s.Coords.X))
		digestWriteI64(h, &tmp, int64(s.Coords.Y))
		digestWriteF64(h, &tmp, s.Health)
		if b := s.Building; b != nil {
			h.Write([]byte(b.Type))
			digestWriteU64(h, &tmp, uint64(b.PlayerID))
			digestWriteF64(h, &tmp, b.MaxHealth)
			digestWriteF64(h, &tmp, b.BuildTime)
			digestWriteI64(h, &tmp, int64(b.WorkerCount))
			h.Write([]byte{byte(b.State)})
		}
		if s.Ore != nil {
			h.Write([]byte{byte(s.Ore.Type)})
		}
	}

	for _, a := range w.Agents() {
		digestWriteU64(h, &tmp, uint64(a.HID))
		digestWriteU64(h, &tmp, uint64(a.PlayerID))
		digestWriteF64(h, &tmp, a.Location.X)
		digestWriteF64(h, &tmp, a.Location.Y)
		digestWriteF64(h, &tmp, a.Progress)
		digestWriteU64(h, &tmp, uint64(len(a.Path)))
		h.Write([]byte{byte(a.State), byte(a.Work), byte(a.GatherPhase), byte(a.Resource)})
		digestWriteAmounts(h, &tmp, a.Carried)
		digestWriteU64(h, &tmp, uint64(a.TargetSID))
		digestWriteU64(h, &tmp, uint64(a.DepotSID))
	}

	return hex.EncodeToString(h.Sum(nil))
}
