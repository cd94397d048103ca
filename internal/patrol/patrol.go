package patrol

import (
	"log/slog"

	"github.com/talgya/corsair/internal/combat"
	"github.com/talgya/corsair/internal/fleet"
	"github.com/talgya/corsair/internal/world"
)

// Settings tune AI patrols.
type Settings struct {
	Radius          float64 // Patrol ring around each ship's home
	ArriveThreshold float64 // Distance at which a waypoint counts as reached
	DetectionRange  float64 // Hostile ships closer than this are attacked
	RoutePoints     int
}

// DefaultSettings returns the stock patrol tuning.
func DefaultSettings() Settings {
	return Settings{
		Radius:          100,
		ArriveThreshold: 5,
		DetectionRange:  60,
		RoutePoints:     6,
	}
}

type route struct {
	points []world.Vec3
	next   int
}

// Patrol is the controller for AI captains. Idle ships circle a noise-shaped
// route around where they first came under its command; ships without a target
// attack the nearest hostile in detection range.
type Patrol struct {
	cfg    Settings
	graph  *fleet.Graph
	combat *combat.Engine
	helm   *Helm
	sea    *world.Sea
	routes map[string]*route
}

// NewPatrol creates an AI controller. One Patrol can serve any number of pirates.
func NewPatrol(cfg Settings, g *fleet.Graph, ce *combat.Engine, helm *Helm, sea *world.Sea) *Patrol {
	if g == nil || ce == nil || helm == nil || sea == nil {
		panic("patrol: NewPatrol requires graph, combat engine, helm and sea")
	}
	if cfg.RoutePoints < 1 {
		cfg.RoutePoints = DefaultSettings().RoutePoints
	}
	return &Patrol{
		cfg:    cfg,
		graph:  g,
		combat: ce,
		helm:   helm,
		sea:    sea,
		routes: make(map[string]*route),
	}
}

// Tick implements fleet.Controller.
func (pt *Patrol) Tick(p *fleet.Pirate, _ float64) {
	for _, s := range p.Ships() {
		if !s.Alive() {
			continue
		}
		if pt.combat.Target(s) == nil {
			if target := pt.nearestHostile(s); target != nil {
				if pt.combat.SetTarget(s, target) {
					slog.Debug("patrol engaging", "ship", s.Name, "target", target.Name)
				}
			}
		}
		if pt.combat.Target(s) == nil {
			pt.follow(s, p)
		}
	}
}

// Route returns the waypoints assigned to s.
func (pt *Patrol) Route(s *fleet.Ship) []world.Vec3 {
	if r, ok := pt.routes[s.ID]; ok {
		return r.points
	}
	return nil
}

func (pt *Patrol) follow(s *fleet.Ship, p *fleet.Pirate) {
	r, ok := pt.routes[s.ID]
	if !ok {
		home := s.Position
		if p.Home != (world.Vec3{}) {
			home = p.Home
		}
		r = &route{points: pt.sea.PatrolRoute(home, pt.cfg.Radius, pt.cfg.RoutePoints)}
		pt.routes[s.ID] = r
		pt.helm.SetWaypoint(s, r.points[0])
		return
	}
	if pt.helm.Arrived(s, pt.cfg.ArriveThreshold) {
		r.next = (r.next + 1) % len(r.points)
		pt.helm.SetWaypoint(s, r.points[r.next])
	}
}

func (pt *Patrol) nearestHostile(s *fleet.Ship) *fleet.Ship {
	var (
		best     *fleet.Ship
		bestDist = pt.cfg.DetectionRange
	)
	for _, other := range pt.graph.LiveShips() {
		if other == s || !pt.combat.IsHostile(s, other) {
			continue
		}
		if d := world.FlatDistance(s.Position, other.Position); d <= bestDist && (best == nil || d < bestDist) {
			best, bestDist = other, d
		}
	}
	return best
}

// Forget drops the route of a ship that left the game.
func (pt *Patrol) Forget(s *fleet.Ship) {
	delete(pt.routes, s.ID)
}
