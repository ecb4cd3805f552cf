// Package httpapi exposes world queries and player commands over HTTP.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"colonysim.ai/internal/protocol"
	"colonysim.ai/internal/sim/world"
	"colonysim.ai/internal/sim/world/kernel/grid"
	"colonysim.ai/internal/sim/world/kernel/model"
)

// MaxCoord bounds the magnitude of world coordinates accepted in queries.
const MaxCoord = 1e9

// MaxAreaChunks bounds the width and height of a terrain query.
const MaxAreaChunks = 8

type API struct {
	world *world.World
	log   *log.Logger
}

// NewRouter builds the /v1 routes. Requests that change world state go
// through the world's command inbox and are recorded in the tick log.
func NewRouter(w *world.World, logger *log.Logger) *gin.Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithWriter(logger.Writer(), "/healthz", "/metrics"))

	api := &API{world: w, log: logger}
	v1 := r.Group("/v1")
	v1.GET("/terrain", api.terrain)
	v1.GET("/stats", api.stats)

	v1.GET("/structures", api.structures)
	v1.GET("/structures/:sid", api.structure)
	v1.GET("/structures/:sid/actions", api.actions)
	v1.POST("/structures/:sid/actions/:action", api.invokeAction)

	v1.GET("/agents", api.agents)
	v1.POST("/agents/:hid/goto", api.goTo)

	v1.GET("/players", api.players)
	v1.GET("/players/:pid", api.player)
	v1.POST("/players/:pid/buildings", api.placeBuilding)
	v1.POST("/colonies", api.foundColony)
	return r
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errBadRequest = errors.New("bad request")

func statusFor(code string) int {
	switch code {
	case protocol.ErrBadRequest, protocol.ErrProtoBadRequest:
		return http.StatusBadRequest
	case protocol.ErrInvalidTarget:
		return http.StatusNotFound
	case protocol.ErrConflict, protocol.ErrNotBuilt:
		return http.StatusConflict
	case protocol.ErrNoResource:
		return http.StatusUnprocessableEntity
	case protocol.ErrUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *API) fail(c *gin.Context, err error) {
	code := protocol.ErrBadRequest
	if !errors.Is(err, errBadRequest) {
		code = protocol.CodeFor(err)
	}
	if code == protocol.ErrInternal {
		a.log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(statusFor(code), errorBody{Code: code, Message: err.Error()})
}

func parseUint(c *gin.Context, name string) (uint64, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return v, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return v, nil
}

func queryFloat(c *gin.Context, name string) (float64, bool, error) {
	s := c.Query(name)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxCoord {
		return 0, false, fmt.Errorf("%w: %s out of range", errBadRequest, name)
	}
	return v, true, nil
}

type terrainResp struct {
	Origin    grid.ChunkKey     `json:"origin"`
	ChunkSize int               `json:"chunk_size"`
	Rows      []string          `json:"rows"`
	Legend    map[string]string `json:"legend"`
}

// terrain renders w*h chunks as glyph rows. Unloaded chunks are generated,
// which may seed resources, so the query runs as a command.
func (a *API) terrain(c *gin.Context) {
	var vals [4]int
	for i, f := range []struct {
		name string
		def  int
	}{{"cx", 0}, {"cy", 0}, {"w", 1}, {"h", 1}} {
		v, err := queryInt(c, f.name, f.def)
		if err != nil {
			a.fail(c, err)
			return
		}
		vals[i] = v
	}
	width, height := vals[2], vals[3]
	if width < 1 || height < 1 || width > MaxAreaChunks || height > MaxAreaChunks {
		a.fail(c, fmt.Errorf("%w: w and h must be in [1,%d]", errBadRequest, MaxAreaChunks))
		return
	}
	origin := grid.ChunkKey{CX: vals[0], CY: vals[1]}

	resp := terrainResp{Origin: origin, Legend: map[string]string{}}
	err := a.world.Do(c.Request.Context(), "query_area", func(w *world.World) error {
		resp.ChunkSize = w.Config().ChunkSize
		for _, row := range w.QueryArea(origin, width, height) {
			var sb strings.Builder
			for _, b := range row {
				sb.WriteByte(b.Glyph())
				resp.Legend[string(b.Glyph())] = b.String()
			}
			resp.Rows = append(resp.Rows, sb.String())
		}
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) stats(c *gin.Context) {
	c.JSON(http.StatusOK, a.world.Stats())
}

// structures lists every structure, or one chunk's with ?cx=&cy=.
func (a *API) structures(c *gin.Context) {
	_, inChunk := c.GetQuery("cx")
	cx, err := queryInt(c, "cx", 0)
	if err != nil {
		a.fail(c, err)
		return
	}
	cy, err := queryInt(c, "cy", 0)
	if err != nil {
		a.fail(c, err)
		return
	}
	out := []protocol.StructureView{}
	err = a.world.Query(c.Request.Context(), func(w *world.World) error {
		list := w.Structures()
		if inChunk {
			list = w.StructuresInChunk(grid.ChunkKey{CX: cx, CY: cy})
		}
		for _, s := range list {
			out = append(out, protocol.NewStructureView(s))
		}
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) structure(c *gin.Context) {
	sid, err := parseUint(c, "sid")
	if err != nil {
		a.fail(c, err)
		return
	}
	var view protocol.StructureView
	err = a.world.Query(c.Request.Context(), func(w *world.World) error {
		s := w.Structure(model.SID(sid))
		if s == nil {
			return fmt.Errorf("%w: %d", world.ErrUnknownStructure, sid)
		}
		view = protocol.NewStructureView(s)
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type actionView struct {
	ID       string             `json:"id"`
	Kind     string             `json:"kind"`
	Costs    map[string]float64 `json:"costs"`
	Produces string             `json:"produces"`
}

func (a *API) actions(c *gin.Context) {
	sid, err := parseUint(c, "sid")
	if err != nil {
		a.fail(c, err)
		return
	}
	out := []actionView{}
	err = a.world.Query(c.Request.Context(), func(w *world.World) error {
		list, err := w.BuildingActions(model.SID(sid))
		if err != nil {
			return err
		}
		for _, act := range list {
			out = append(out, actionView{ID: act.ID, Kind: act.Kind, Costs: act.Costs.ByName(), Produces: act.Produces})
		}
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) invokeAction(c *gin.Context) {
	sid, err := parseUint(c, "sid")
	if err != nil {
		a.fail(c, err)
		return
	}
	id := c.Param("action")
	err = a.world.Do(c.Request.Context(), "invoke_action", func(w *world.World) error {
		return w.InvokeAction(model.SID(sid), id)
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tick": a.world.CurrentTick()})
}

// agents selects by rectangle (x1,y1,x2,y2), circle (x,y,r) or nothing.
func (a *API) agents(c *gin.Context) {
	var f [7]float64
	var has [7]bool
	for i, name := range []string{"x1", "y1", "x2", "y2", "x", "y", "r"} {
		v, ok, err := queryFloat(c, name)
		if err != nil {
			a.fail(c, err)
			return
		}
		f[i], has[i] = v, ok
	}
	rect := has[0] && has[1] && has[2] && has[3]
	circle := has[4] && has[5] && has[6]

	out := []protocol.AgentView{}
	err := a.world.Query(c.Request.Context(), func(w *world.World) error {
		var list []*model.Agent
		switch {
		case rect:
			list = w.AgentsInRect(grid.Vec2{X: f[0], Y: f[1]}, grid.Vec2{X: f[2], Y: f[3]})
		case circle:
			list = w.AgentsInRadius(grid.Vec2{X: f[4], Y: f[5]}, f[6])
		default:
			list = w.Agents()
		}
		for _, ag := range list {
			out = append(out, protocol.NewAgentView(ag))
		}
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type cellReq struct {
	Cell *[2]int `json:"cell" binding:"required"`
}

func (a *API) goTo(c *gin.Context) {
	hid, err := parseUint(c, "hid")
	if err != nil {
		a.fail(c, err)
		return
	}
	var req cellReq
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	var routed bool
	err = a.world.Do(c.Request.Context(), "goto", func(w *world.World) error {
		ok, err := w.GoTo(model.HID(hid), grid.CellFromArray(*req.Cell))
		routed = ok
		return err
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routed": routed})
}

func (a *API) players(c *gin.Context) {
	out := []protocol.PlayerView{}
	err := a.world.Query(c.Request.Context(), func(w *world.World) error {
		for _, p := range w.Players() {
			out = append(out, protocol.NewPlayerView(p))
		}
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) player(c *gin.Context) {
	pid, err := parseUint(c, "pid")
	if err != nil {
		a.fail(c, err)
		return
	}
	var view protocol.PlayerView
	err = a.world.Query(c.Request.Context(), func(w *world.World) error {
		p := w.Player(model.PlayerID(pid))
		if p == nil {
			return fmt.Errorf("%w: %d", world.ErrUnknownPlayer, pid)
		}
		view = protocol.NewPlayerView(p)
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type placeReq struct {
	Type        string  `json:"type" binding:"required"`
	Cell        *[2]int `json:"cell" binding:"required"`
	Orientation int     `json:"orientation"`
}

func (a *API) placeBuilding(c *gin.Context) {
	pid, err := parseUint(c, "pid")
	if err != nil {
		a.fail(c, err)
		return
	}
	var req placeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	var view protocol.StructureView
	err = a.world.Do(c.Request.Context(), "place_building", func(w *world.World) error {
		s, err := w.PlaceBuilding(model.PlayerID(pid), model.BuildingType(req.Type), grid.CellFromArray(*req.Cell), grid.NormalizeOrientation(req.Orientation))
		if err != nil {
			return err
		}
		view = protocol.NewStructureView(s)
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

type colonyReq struct {
	Name string `json:"name" binding:"required"`
}

type colonyResp struct {
	Player   protocol.PlayerView    `json:"player"`
	BaseCamp protocol.StructureView `json:"base_camp"`
}

func (a *API) foundColony(c *gin.Context) {
	var req colonyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	var resp colonyResp
	err := a.world.Do(c.Request.Context(), "found_colony", func(w *world.World) error {
		pid, camp, err := w.FoundColony(req.Name)
		if err != nil {
			return err
		}
		resp.Player = protocol.NewPlayerView(w.Player(pid))
		resp.BaseCamp = protocol.NewStructureView(camp)
		return nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
