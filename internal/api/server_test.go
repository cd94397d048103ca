package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/corsair/internal/config"
	"github.com/talgya/corsair/internal/engine"
	"github.com/talgya/corsair/internal/events"
	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/persistence"
)

const testFactions = `
ship_classes:
  - name: sloop
factions:
  - type: pirates
    player: true
    ports: [Tortuga]
    relations: {royal_navy: -60}
    pirates:
      - name: Anne Bonny
        rank: captain
    ships: {count: 3, center: {x: 0, z: 0}, radius: 60}
  - type: royal_navy
    ports: [Port Royal]
    ships: {count: 2, center: {x: 400, z: 0}, radius: 60}
`

const testKey = "s3cret"

func newServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	defs, err := config.ParseFactions([]byte(testFactions))
	require.NoError(t, err)

	sim, err := engine.NewSimulation(cfg, defs.Classes)
	require.NoError(t, err)
	t.Cleanup(sim.Close)
	require.NoError(t, sim.Populate(defs))

	return &Server{
		Sim:         sim,
		Eng:         engine.NewEngine(cfg.Sim.TickInterval),
		AdminKey:    testKey,
		CORSOrigins: []string{"https://corsair.example"},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if method == http.MethodPost {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// factionJSON mirrors factionSummary with plain strings for the text-marshaled fields.
type factionJSON struct {
	Type      string   `json:"type"`
	Ships     int      `json:"ships"`
	Pirates   int      `json:"pirates"`
	Ports     []string `json:"ports"`
	Relations map[string]struct {
		Value    float64 `json:"value"`
		Standing string  `json:"standing"`
	} `json:"relations"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestStatus(t *testing.T) {
	s := newServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	status := decode[map[string]any](t, rec)
	assert.Equal(t, "Corsair", status["name"])
	assert.Equal(t, "Anne Bonny", status["player"])
	assert.Equal(t, 5.0, status["ships_afloat"])
	assert.Equal(t, float64(len(faction.AllTypes())), status["factions"])
	assert.Equal(t, 2.0, status["ports"])
	assert.Equal(t, "00:00:00", status["sim_time"])
}

func TestFactions(t *testing.T) {
	s := newServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/factions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]factionJSON](t, rec)
	require.Len(t, list, len(faction.AllTypes()))

	var pirates *factionJSON
	for i := range list {
		if list[i].Type == "pirates" {
			pirates = &list[i]
		}
	}
	require.NotNil(t, pirates)
	assert.Equal(t, 3, pirates.Ships)
	assert.Equal(t, 1, pirates.Pirates)
	assert.Equal(t, []string{"Tortuga"}, pirates.Ports)
	assert.Equal(t, -60.0, pirates.Relations["royal_navy"].Value)
	assert.Equal(t, "hostile", pirates.Relations["royal_navy"].Standing)
	assert.NotContains(t, pirates.Relations, "pirates")
}

func TestFactionDetail(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/faction/royal_navy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		Faction factionJSON `json:"faction"`
		Pirates []struct {
			Name  string `json:"name"`
			Rank  string `json:"rank"`
			Ships int    `json:"ships"`
		} `json:"pirates"`
		Fleet []shipView `json:"fleet"`
	}](t, rec)
	assert.Equal(t, "royal_navy", detail.Faction.Type)
	assert.Len(t, detail.Fleet, 2)
	require.Len(t, detail.Pirates, 1, "fleet is handed to the faction leader")
	assert.Equal(t, "faction_leader", detail.Pirates[0].Rank)
	assert.Equal(t, 2, detail.Pirates[0].Ships)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/faction/atlantis", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/faction/none", "").Code)
}

func TestShipsFilter(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	all := decode[[]shipView](t, do(t, h, http.MethodGet, "/api/v1/ships", ""))
	assert.Len(t, all, 5)

	ours := decode[[]shipView](t, do(t, h, http.MethodGet, "/api/v1/ships?faction=pirates", ""))
	require.Len(t, ours, 3)
	selected := 0
	for _, sh := range ours {
		assert.Equal(t, faction.Pirates, sh.Faction)
		assert.Equal(t, "no_target", sh.Combat)
		if sh.Selected {
			selected++
		}
	}
	assert.Equal(t, 1, selected)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/ships?faction=vikings", "").Code)
}

func TestEventsFromMemory(t *testing.T) {
	s := newServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/events?limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	frames := decode[[]events.Frame](t, rec)
	require.Len(t, frames, 3)
	last := s.Sim.Events[len(s.Sim.Events)-1]
	assert.Equal(t, last.Kind.String(), frames[0].Kind, "newest first")
}

func TestEventsFallBackToDatabase(t *testing.T) {
	s := newServer(t)
	db, err := persistence.Open(filepath.Join(t.TempDir(), "corsair.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s.DB = db

	var logged int
	s.Sim.Do(func() {
		logged = len(s.Sim.Events)
		require.NoError(t, db.SaveWorldState(s.Sim))
	})
	require.Empty(t, s.Sim.Events)

	frames := decode[[]events.Frame](t, do(t, s.Handler(), http.MethodGet, "/api/v1/events?limit=500", ""))
	assert.Len(t, frames, logged)
}

func TestAdminAuth(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed": 2}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(`{"speed": 2}`))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.AdminKey = ""
	assert.Equal(t, http.StatusForbidden, do(t, s.Handler(), http.MethodPost, "/api/v1/speed", `{"speed": 2}`).Code)
}

func TestSpeed(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/speed", `{"speed": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, s.Eng.Speed())
	assert.Equal(t, map[string]float64{"speed": 4}, decode[map[string]float64](t, rec))

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/speed", `{"speed": -1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/speed", `nope`).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/speed", "").Code)
}

func TestSnapshot(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s.Handler(), http.MethodPost, "/api/v1/snapshot", "").Code)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "corsair.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s.DB = db

	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, db.HasSnapshot())

	snap, err := db.LoadSnapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Ships, 5)
}

func TestOrdersQueueUntilNextTick(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	player := s.Sim.Graph.Player()
	ships := player.Ships()
	require.Len(t, ships, 3)
	next := ships[1]
	require.False(t, next.IsSelected())

	rec := do(t, h, http.MethodPost, "/api/v1/orders", `{"kind": "select", "ship": "`+next.ID+`"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "select", body["queued"])
	assert.Equal(t, 1.0, body["pending"])
	assert.False(t, next.IsSelected(), "orders apply on the next tick")

	s.Sim.Step(1, 0.1)
	assert.True(t, next.IsSelected())
	assert.Zero(t, s.Sim.Commands.Pending())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/orders", `{"kind": "board"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/orders", `{`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/v1/orders", "").Code)
}

func TestCORS(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://corsair.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://corsair.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestFeedMounted(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/api/v1/feed", "").Code)

	s.Feed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	assert.Equal(t, http.StatusTeapot, do(t, s.Handler(), http.MethodGet, "/api/v1/feed", "").Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "limits are per client")
	assert.Equal(t, 61, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"), "window resets")

	now = now.Add(3 * time.Minute)
	rl.Allow("c")
	rl.mu.Lock()
	assert.NotContains(t, rl.buckets, "b", "stale buckets are swept")
	rl.mu.Unlock()
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
