package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"colonysim.ai/internal/protocol"
	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/world"
	"colonysim.ai/internal/sim/world/kernel/model"
	"colonysim.ai/internal/sim/world/terrain/gen"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w, err := world.New(world.Config{
		ID:               "http-test",
		Seed:             42,
		TickRateHz:       50,
		ChunkSize:        16,
		CellSize:         16,
		Bands:            gen.Bands{Fallback: gen.Plain},
		StarterResources: model.Amounts{model.Food: 300, model.Wood: 300, model.Stone: 100},
	}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return NewRouter(w, nil)
}

func do(t *testing.T, r http.Handler, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func TestRouter_ColonyLifecycle(t *testing.T) {
	r := newRouter(t)

	var col colonyResp
	if code := do(t, r, http.MethodPost, "/v1/colonies", colonyReq{Name: "red"}, &col); code != http.StatusCreated {
		t.Fatalf("found colony code=%d", code)
	}
	if col.Player.PID != 1 || col.BaseCamp.Type != string(model.BaseCamp) || col.BaseCamp.State != "BUILT" {
		t.Fatalf("colony=%+v", col)
	}

	var farm protocol.StructureView
	code := do(t, r, http.MethodPost, "/v1/players/1/buildings", map[string]any{"type": "FARM", "cell": []int{12, 0}}, &farm)
	if code != http.StatusCreated || farm.State != "PLACED" {
		t.Fatalf("place code=%d farm=%+v", code, farm)
	}

	var eb errorBody
	code = do(t, r, http.MethodPost, "/v1/players/1/buildings", map[string]any{"type": "FARM", "cell": []int{12, 0}}, &eb)
	if code != http.StatusConflict || eb.Code != protocol.ErrConflict {
		t.Fatalf("overlap code=%d body=%+v", code, eb)
	}
	code = do(t, r, http.MethodPost, "/v1/players/1/buildings", map[string]any{"type": "FARM"}, &eb)
	if code != http.StatusBadRequest {
		t.Fatalf("missing cell code=%d", code)
	}

	var acts []actionView
	path := "/v1/structures/" + itoa(col.BaseCamp.SID) + "/actions"
	if code := do(t, r, http.MethodGet, path, nil, &acts); code != http.StatusOK || len(acts) == 0 || acts[0].ID != "SPAWN_COLONIST" {
		t.Fatalf("actions code=%d acts=%+v", code, acts)
	}
	if code := do(t, r, http.MethodPost, path+"/SPAWN_COLONIST", nil, nil); code != http.StatusOK {
		t.Fatalf("invoke code=%d", code)
	}
	if code := do(t, r, http.MethodPost, path+"/SPAWN_DRAGON", nil, &eb); code != http.StatusBadRequest || eb.Code != protocol.ErrBadRequest {
		t.Fatalf("unknown action code=%d body=%+v", code, eb)
	}

	var agents []protocol.AgentView
	if code := do(t, r, http.MethodGet, "/v1/agents", nil, &agents); code != http.StatusOK || len(agents) != 1 {
		t.Fatalf("agents code=%d %+v", code, agents)
	}
	var routed map[string]bool
	if code := do(t, r, http.MethodPost, "/v1/agents/"+itoa(agents[0].HID)+"/goto", cellReq{Cell: &[2]int{12, 0}}, &routed); code != http.StatusOK || !routed["routed"] {
		t.Fatalf("goto code=%d %+v", code, routed)
	}
	if code := do(t, r, http.MethodPost, "/v1/agents/999/goto", cellReq{Cell: &[2]int{1, 1}}, &eb); code != http.StatusNotFound {
		t.Fatalf("unknown agent code=%d", code)
	}

	var p protocol.PlayerView
	if code := do(t, r, http.MethodGet, "/v1/players/1", nil, &p); code != http.StatusOK {
		t.Fatalf("player code=%d", code)
	}
	// 300 food - colonist, 300 wood - farm.
	if p.Resources["FOOD"] != 150 || p.Resources["WOOD"] != 250 {
		t.Fatalf("ledger=%v", p.Resources)
	}
}

func TestRouter_QueriesAndValidation(t *testing.T) {
	r := newRouter(t)

	var tr terrainResp
	if code := do(t, r, http.MethodGet, "/v1/terrain?cx=-1&cy=0&w=2&h=1", nil, &tr); code != http.StatusOK {
		t.Fatalf("terrain code=%d", code)
	}
	if tr.ChunkSize != 16 || len(tr.Rows) != 16 || len(tr.Rows[0]) != 32 || tr.Legend[string(gen.Plain.Glyph())] != gen.Plain.String() {
		t.Fatalf("terrain=%+v", tr)
	}

	cases := []struct {
		path string
		code int
	}{
		{"/v1/terrain?w=0", http.StatusBadRequest},
		{"/v1/terrain?w=99", http.StatusBadRequest},
		{"/v1/terrain?cx=abc", http.StatusBadRequest},
		{"/v1/structures/0", http.StatusBadRequest},
		{"/v1/structures/77", http.StatusNotFound},
		{"/v1/players/3", http.StatusNotFound},
		{"/v1/agents?x=1", http.StatusOK},
		{"/v1/agents?x1=a", http.StatusBadRequest},
		{"/v1/agents?x1=NaN&y1=0&x2=1&y2=1", http.StatusBadRequest},
		{"/v1/agents?x=0&y=0&r=Inf", http.StatusBadRequest},
		{"/v1/agents?x1=-1e12&y1=0&x2=1&y2=1", http.StatusBadRequest},
		{"/v1/agents?x1=-1e8&y1=-1e8&x2=1e8&y2=1e8", http.StatusOK},
		{"/v1/structures?cx=0&cy=0", http.StatusOK},
		{"/v1/stats", http.StatusOK},
	}
	for _, c := range cases {
		if code := do(t, r, http.MethodGet, c.path, nil, nil); code != c.code {
			t.Fatalf("GET %s code=%d want %d", c.path, code, c.code)
		}
	}
}

func itoa(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
