// Package ws streams colony observations to clients and accepts their
// commands over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"colonysim.ai/internal/protocol"
	"colonysim.ai/internal/sim/world"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/logic/rates"
)

type Options struct {
	// ObsEveryTicks is the default observation cadence; clients may ask for a slower one.
	ObsEveryTicks int
	// RateWindowTicks and RateMax bound commands per session.
	RateWindowTicks uint64
	RateMax         int
}

func DefaultOptions() Options {
	return Options{ObsEveryTicks: 5, RateWindowTicks: 10, RateMax: 20}
}

type Server struct {
	world *world.World
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.ObsEveryTicks <= 0 {
		opts.ObsEveryTicks = DefaultOptions().ObsEveryTicks
	}
	return &Server{
		world: w,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type session struct {
	id       string
	pid      model.PlayerID
	out      chan []byte
	obsEvery int
	limit    rates.Window
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := s.handshake(ctx, conn)
		if sess == nil {
			return
		}
		s.log.Printf("session %s attached to player %d", sess.id, sess.pid)
		defer s.log.Printf("session %s closed", sess.id)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()
		go s.observeLoop(ctx, sess)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := s.handleMessage(ctx, sess, msg)
			if !s.enqueue(ctx, sess, reply) {
				return
			}
		}
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil
	}
	name := strings.TrimSpace(hello.PlayerName)
	if name == "" {
		name = "colony"
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		WorldID:         s.world.ID(),
	}
	if hello.ResumePlayerID != 0 {
		pid := model.PlayerID(hello.ResumePlayerID)
		err = s.world.Query(ctx, func(w *world.World) error {
			if w.Player(pid) == nil {
				return fmt.Errorf("%w: %d", world.ErrUnknownPlayer, pid)
			}
			return nil
		})
		welcome.PlayerID = uint32(pid)
	} else {
		err = s.world.Do(ctx, "found_colony", func(w *world.World) error {
			pid, camp, err := w.FoundColony(name)
			welcome.PlayerID = uint32(pid)
			if camp != nil {
				welcome.BaseCampSID = uint64(camp.SID)
			}
			return err
		})
	}
	if err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.CodeFor(err), err.Error()))
		closeWith(conn, "join failed")
		return nil
	}

	cfg := s.world.Config()
	cats := s.world.Catalogs()
	welcome.WorldParams = protocol.WorldParams{
		TickRateHz: cfg.TickRateHz,
		ChunkSize:  cfg.ChunkSize,
		CellSize:   cfg.CellSize,
		Seed:       cfg.Seed,
	}
	welcome.Catalogs = protocol.CatalogDigests{
		BuildingsDigest:    cats.Buildings.Digest,
		ResourcesDigest:    cats.Resources.Digest,
		UnitsDigest:        cats.Units.Digest,
		TechnologiesDigest: cats.Technologies.Digest,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	return &session{
		id:       welcome.SessionID,
		pid:      model.PlayerID(welcome.PlayerID),
		out:      make(chan []byte, maxQ),
		obsEvery: clampObsEvery(s.opts.ObsEveryTicks, hello.Capabilities.ObsEveryTicks),
		limit:    rates.Window{Length: s.opts.RateWindowTicks, Max: s.opts.RateMax},
	}
}

// maxObsEveryTicks bounds the observation cadence a client may request.
const maxObsEveryTicks = 1000

// clampObsEvery lets a client slow observations down, never speed them up,
// and never past maxObsEveryTicks.
func clampObsEvery(def, requested int) int {
	n := def
	if requested > n {
		n = requested
	}
	if n > maxObsEveryTicks {
		n = maxObsEveryTicks
	}
	return n
}

// observeLoop pushes an OBS every obsEvery ticks. Observations are dropped,
// not queued, when the client falls behind.
func (s *Server) observeLoop(ctx context.Context, sess *session) {
	interval := time.Duration(sess.obsEvery) * time.Second / time.Duration(s.world.Config().TickRateHz)
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var obs protocol.ObsMsg
		if err := s.world.Query(ctx, func(w *world.World) error {
			obs = BuildObs(w, sess.pid)
			return nil
		}); err != nil {
			return
		}
		b, err := json.Marshal(obs)
		if err != nil {
			continue
		}
		select {
		case sess.out <- b:
		default:
		}
	}
}

// BuildObs renders the colony of pid. It must run on the world goroutine.
func BuildObs(w *world.World, pid model.PlayerID) protocol.ObsMsg {
	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            w.CurrentTick(),
		WorldID:         w.ID(),
		Structures:      []protocol.StructureView{},
		Agents:          []protocol.AgentView{},
	}
	if p := w.Player(pid); p != nil {
		obs.Player = protocol.NewPlayerView(p)
	}
	for _, st := range w.Structures() {
		if st.Building != nil && st.Building.PlayerID == pid {
			obs.Structures = append(obs.Structures, protocol.NewStructureView(st))
		}
	}
	for _, a := range w.Agents() {
		if a.PlayerID == pid {
			obs.Agents = append(obs.Agents, protocol.NewAgentView(a))
		}
	}
	return obs
}

func (s *Server) handleMessage(ctx context.Context, sess *session, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeCmd {
		return protocol.NewError(protocol.ErrProtoBadRequest, "expected CMD")
	}
	var cmd protocol.CmdMsg
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return protocol.NewError(protocol.ErrProtoBadRequest, "bad CMD")
	}
	if cmd.ProtocolVersion != protocol.Version {
		return protocol.NewError(protocol.ErrProtoBadRequest, "bad protocol_version")
	}

	ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: cmd.ID}
	if ok, retry := sess.limit.Allow(s.world.CurrentTick()); !ok {
		ack.Code = protocol.ErrRateLimit
		ack.Message = fmt.Sprintf("retry in %d ticks", retry)
		return ack
	}

	sid, err := s.execute(ctx, sess.pid, cmd)
	ack.ServerTick = s.world.CurrentTick()
	if err != nil {
		ack.Code = codeFor(err)
		ack.Message = err.Error()
		return ack
	}
	ack.Accepted = true
	ack.SID = uint64(sid)
	return ack
}

var (
	errBadCommand  = errors.New("bad command")
	errUnreachable = errors.New("target unreachable")
)

func codeFor(err error) string {
	switch {
	case errors.Is(err, errBadCommand):
		return protocol.ErrBadRequest
	case errors.Is(err, errUnreachable):
		return protocol.ErrInvalidTarget
	}
	return protocol.CodeFor(err)
}

// execute applies cmd for pid on the world goroutine. Agents and buildings
// of other players are reported as unknown.
func (s *Server) execute(ctx context.Context, pid model.PlayerID, cmd protocol.CmdMsg) (model.SID, error) {
	var sid model.SID
	var fn func(w *world.World) error

	switch cmd.Cmd {
	case protocol.CmdPlaceBuilding:
		if cmd.Cell == nil || cmd.Building == "" {
			return 0, fmt.Errorf("%w: building and cell required", errBadCommand)
		}
		at := grid.CellFromArray(*cmd.Cell)
		fn = func(w *world.World) error {
			st, err := w.PlaceBuilding(pid, model.BuildingType(cmd.Building), at, grid.NormalizeOrientation(cmd.Orientation))
			if err != nil {
				return err
			}
			sid = st.SID
			return nil
		}
	case protocol.CmdGoTo:
		if cmd.Cell == nil {
			return 0, fmt.Errorf("%w: cell required", errBadCommand)
		}
		at := grid.CellFromArray(*cmd.Cell)
		fn = func(w *world.World) error {
			if err := ownAgent(w, pid, model.HID(cmd.HID)); err != nil {
				return err
			}
			ok, err := w.GoTo(model.HID(cmd.HID), at)
			if err != nil {
				return err
			}
			if !ok {
				return errUnreachable
			}
			return nil
		}
	case protocol.CmdInvokeAction:
		fn = func(w *world.World) error {
			st := w.Structure(model.SID(cmd.SID))
			if st == nil || st.Building == nil || st.Building.PlayerID != pid {
				return fmt.Errorf("%w: %d", world.ErrUnknownStructure, cmd.SID)
			}
			return w.InvokeAction(st.SID, cmd.ActionID)
		}
	case protocol.CmdRemoveAgent:
		fn = func(w *world.World) error {
			if err := ownAgent(w, pid, model.HID(cmd.HID)); err != nil {
				return err
			}
			w.RemoveAgent(model.HID(cmd.HID))
			return nil
		}
	default:
		return 0, fmt.Errorf("%w: %q", errBadCommand, cmd.Cmd)
	}

	err := s.world.Do(ctx, strings.ToLower(cmd.Cmd), fn)
	return sid, err
}

func ownAgent(w *world.World, pid model.PlayerID, hid model.HID) error {
	if a := w.Agent(hid); a == nil || a.PlayerID != pid {
		return fmt.Errorf("%w: %d", world.ErrUnknownAgent, hid)
	}
	return nil
}

func (s *Server) enqueue(ctx context.Context, sess *session, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return true
	}
	// Replies wait for room; only observations are dropped.
	select {
	case sess.out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
