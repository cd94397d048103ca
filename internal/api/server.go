// Package api provides the HTTP API for observing and commanding the game.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane and player orders).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/corsair/internal/engine"
	"github.com/talgya/corsair/internal/events"
	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/fleet"
	"github.com/talgya/corsair/internal/patrol"
	"github.com/talgya/corsair/internal/persistence"
	"github.com/talgya/corsair/internal/world"
)

// Server serves the game state over HTTP.
type Server struct {
	Sim         *engine.Simulation
	Eng         *engine.Engine
	DB          *persistence.DB // Optional; snapshot and event history need it
	Feed        http.Handler    // Optional WebSocket event feed
	Addr        string
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.
	CORSOrigins []string

	orderLimiter *RateLimiter
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.orderLimiter == nil {
		s.orderLimiter = NewRateLimiter(20, time.Second)
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/factions", s.handleFactions)
	mux.HandleFunc("/api/v1/faction/", s.handleFactionDetail)
	mux.HandleFunc("/api/v1/ships", s.handleShips)
	mux.HandleFunc("/api/v1/engagements", s.handleEngagements)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	if s.Feed != nil {
		mux.Handle("/api/v1/feed", s.Feed)
	}

	// Admin endpoints.
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("/api/v1/orders", s.adminOnly(RateLimitMiddleware(s.orderLimiter, s.handleOrders)))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving in a goroutine. The caller shuts the returned server down.
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "", "feed", s.Feed != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for the configured frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no api.admin_key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// ── Observation ─────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Sim.Do(func() {
		st := s.Sim.Stats()
		status = map[string]any{
			"name":         "Corsair",
			"tick":         st.Tick,
			"sim_time":     engine.SimTime(st.Tick, s.Eng.Interval),
			"speed":        s.Eng.Speed(),
			"running":      s.Eng.Running(),
			"pirates":      st.Pirates,
			"ships_afloat": st.ShipsAfloat,
			"sinking":      st.Sinking,
			"engagements":  st.Engagements,
			"factions":     len(s.Sim.Registry.All()),
			"ports":        len(s.Sim.Registry.AllPorts()),
		}
		if p := s.Sim.Graph.Player(); p != nil {
			status["player"] = p.Name
		}
	})
	writeJSON(w, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var st engine.SimStats
	s.Sim.Do(func() { st = s.Sim.Stats() })
	writeJSON(w, st)
}

type relationView struct {
	Value    float64          `json:"value"`
	Standing faction.Standing `json:"standing"`
}

type factionSummary struct {
	Type         faction.FactionType     `json:"type"`
	Name         string                  `json:"name"`
	Color        faction.Color           `json:"color"`
	BaseLocation string                  `json:"base_location,omitempty"`
	Influence    float64                 `json:"influence"`
	Resources    float64                 `json:"resources"`
	Ships        int                     `json:"ships"`
	Pirates      int                     `json:"pirates"`
	Ports        []string                `json:"ports"`
	Relations    map[string]relationView `json:"relations"`
}

func (s *Server) summarize(f *faction.Faction) factionSummary {
	sum := factionSummary{
		Type:         f.Type,
		Name:         f.Name,
		Color:        f.Color,
		BaseLocation: f.BaseLocation,
		Influence:    f.Influence(),
		Resources:    f.Resources(),
		Ships:        f.ShipCount(),
		Pirates:      len(f.PirateIDs()),
		Ports:        []string{},
		Relations:    make(map[string]relationView),
	}
	for _, p := range f.Ports() {
		sum.Ports = append(sum.Ports, p.Name)
	}
	for _, other := range s.Sim.Registry.All() {
		if other.Type == f.Type {
			continue
		}
		sum.Relations[other.Type.String()] = relationView{
			Value:    s.Sim.Relations.Relation(f.Type, other.Type),
			Standing: s.Sim.Relations.Standing(f.Type, other.Type),
		}
	}
	return sum
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	var out []factionSummary
	s.Sim.Do(func() {
		for _, f := range s.Sim.Registry.All() {
			out = append(out, s.summarize(f))
		}
	})
	writeJSON(w, out)
}

type pirateView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Rank       fleet.Rank `json:"rank"`
	Reputation float64    `json:"reputation"`
	Wealth     float64    `json:"wealth"`
	Player     bool       `json:"player"`
	Ships      int        `json:"ships"`
}

// handleFactionDetail serves GET /api/v1/faction/{type}.
func (s *Server) handleFactionDetail(w http.ResponseWriter, r *http.Request) {
	ft, err := faction.ParseFactionType(strings.TrimPrefix(r.URL.Path, "/api/v1/faction/"))
	if err != nil || ft == faction.None {
		http.Error(w, "unknown faction", http.StatusNotFound)
		return
	}

	var (
		detail  map[string]any
		missing bool
	)
	s.Sim.Do(func() {
		f, err := s.Sim.Registry.Get(ft)
		if err != nil {
			missing = true
			return
		}
		var pirates []pirateView
		for _, p := range s.Sim.Graph.Pirates() {
			if p.Faction() != ft {
				continue
			}
			pirates = append(pirates, pirateView{
				ID: p.ID, Name: p.Name, Rank: p.Rank(), Reputation: p.Reputation(),
				Wealth: p.Wealth(), Player: p.IsPlayer(), Ships: p.ShipCount(),
			})
		}
		detail = map[string]any{
			"faction": s.summarize(f),
			"pirates": pirates,
			"fleet":   shipViews(s.Sim, s.Sim.Graph.ShipsOf(ft)),
		}
	})
	if missing {
		http.Error(w, "unknown faction", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

type shipView struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Class    string              `json:"class"`
	Faction  faction.FactionType `json:"faction"`
	Owner    string              `json:"owner"`
	Health   float64             `json:"health"`
	Sinking  bool                `json:"sinking"`
	Selected bool                `json:"selected"`
	X        float64             `json:"x"`
	Z        float64             `json:"z"`
	Target   string              `json:"target,omitempty"`
	Combat   string              `json:"combat_state"`
}

func shipViews(sim *engine.Simulation, ships []*fleet.Ship) []shipView {
	out := make([]shipView, 0, len(ships))
	for _, sh := range ships {
		v := shipView{
			ID: sh.ID, Name: sh.Name, Class: sh.Class.Name, Faction: sh.Faction(),
			Owner: sh.OwnerID(), Health: sh.Health(), Sinking: sh.IsSinking(),
			Selected: sh.IsSelected(), X: sh.Position.X, Z: sh.Position.Z,
			Combat: sim.Combat.State(sh).String(),
		}
		if t := sim.Combat.Target(sh); t != nil {
			v.Target = t.ID
		}
		out = append(out, v)
	}
	return out
}

// handleShips serves GET /api/v1/ships, optionally filtered by ?faction=.
func (s *Server) handleShips(w http.ResponseWriter, r *http.Request) {
	filter := faction.None
	if name := r.URL.Query().Get("faction"); name != "" {
		ft, err := faction.ParseFactionType(name)
		if err != nil {
			http.Error(w, "unknown faction", http.StatusBadRequest)
			return
		}
		filter = ft
	}

	var out []shipView
	s.Sim.Do(func() {
		ships := s.Sim.Graph.Ships()
		if filter != faction.None {
			ships = s.Sim.Graph.ShipsOf(filter)
		}
		out = shipViews(s.Sim, ships)
	})
	writeJSON(w, out)
}

func (s *Server) handleEngagements(w http.ResponseWriter, r *http.Request) {
	var out []map[string]any
	s.Sim.Do(func() {
		for _, e := range s.Sim.Combat.Engagements() {
			out = append(out, map[string]any{
				"attacker": e.Attacker.ID,
				"target":   e.Target.ID,
				"state":    e.State,
				"shots":    e.Shots,
				"distance": world.FlatDistance(e.Attacker.Position, e.Target.Position),
			})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i]["attacker"].(string) < out[j]["attacker"].(string) })
	writeJSON(w, out)
}

// handleEvents returns recent events, newest first. With a database the
// persisted log is used, otherwise the in-memory tail.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	var frames []events.Frame
	s.Sim.Do(func() {
		for i := len(s.Sim.Events) - 1; i >= 0 && len(frames) < limit; i-- {
			e := s.Sim.Events[i]
			frames = append(frames, events.Frame{Kind: e.Kind.String(), Tick: e.Tick, Payload: e.Payload})
		}
	})
	if s.DB != nil && len(frames) < limit {
		stored, err := s.DB.RecentEvents(limit - len(frames))
		if err != nil {
			slog.Error("load recent events", "error", err)
		}
		frames = append(frames, stored...)
	}
	if frames == nil {
		frames = []events.Frame{}
	}
	writeJSON(w, frames)
}

// ── Control ─────────────────────────────────────────────────────────

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	var (
		tick uint64
		err  error
	)
	s.Sim.Do(func() {
		tick = s.Sim.CurrentTick()
		err = s.DB.SaveWorldState(s.Sim)
	})
	if err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    tick,
		"message": "snapshot saved",
	})
}

type orderRequest struct {
	Kind   string  `json:"kind"`
	Ship   string  `json:"ship"`
	Target string  `json:"target"`
	X      float64 `json:"x"`
	Z      float64 `json:"z"`
}

// handleOrders queues a player command for the next tick.
func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	kind, ok := patrol.ParseOrderKind(req.Kind)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown order kind %q", req.Kind), http.StatusBadRequest)
		return
	}

	var (
		pending   int
		hasPlayer bool
	)
	s.Sim.Do(func() {
		if s.Sim.Graph.Player() == nil {
			return
		}
		hasPlayer = true
		s.Sim.Commands.Enqueue(patrol.Order{
			Kind:   kind,
			Ship:   req.Ship,
			Target: req.Target,
			Dest:   world.Vec3{X: req.X, Z: req.Z},
		})
		pending = s.Sim.Commands.Pending()
	})
	if !hasPlayer {
		http.Error(w, "no player in this game", http.StatusConflict)
		return
	}

	writeJSONStatus(w, http.StatusAccepted, map[string]any{"queued": kind.String(), "pending": pending})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
