// Package patrol drives pirates' fleets: AI captains patrol and pick fights,
// the player issues commands, and the helm moves ships toward their orders.
package patrol

import (
	"github.com/talgya/corsair/internal/fleet"
	"github.com/talgya/corsair/internal/world"
)

// standOff is the fraction of attack range a chasing ship closes to.
const standOff = 0.8

type order struct {
	waypoint *world.Vec3
	chase    *fleet.Ship
}

// Helm is a simple kinematic steering layer. Ships head straight for their
// chase target or waypoint at class speed. It implements combat.Movement.
type Helm struct {
	graph  *fleet.Graph
	orders map[string]*order
}

// NewHelm creates a helm for every ship in g.
func NewHelm(g *fleet.Graph) *Helm {
	if g == nil {
		panic("patrol: NewHelm requires an ownership graph")
	}
	return &Helm{graph: g, orders: make(map[string]*order)}
}

func (h *Helm) orderFor(s *fleet.Ship) *order {
	o, ok := h.orders[s.ID]
	if !ok {
		o = &order{}
		h.orders[s.ID] = o
	}
	return o
}

// SetWaypoint sends s toward pos once it is not chasing anything.
func (h *Helm) SetWaypoint(s *fleet.Ship, pos world.Vec3) {
	if s == nil {
		return
	}
	h.orderFor(s).waypoint = &pos
}

// Waypoint returns the ship's current waypoint.
func (h *Helm) Waypoint(s *fleet.Ship) (world.Vec3, bool) {
	if o, ok := h.orders[s.ID]; ok && o.waypoint != nil {
		return *o.waypoint, true
	}
	return world.Vec3{}, false
}

// Arrived reports whether s is within threshold of its waypoint, or has none.
func (h *Helm) Arrived(s *fleet.Ship, threshold float64) bool {
	wp, ok := h.Waypoint(s)
	if !ok {
		return true
	}
	return world.FlatDistance(s.Position, wp) <= threshold
}

// Chasing returns the ship s is closing on, or nil.
func (h *Helm) Chasing(s *fleet.Ship) *fleet.Ship {
	if o, ok := h.orders[s.ID]; ok {
		return o.chase
	}
	return nil
}

// OnEngageTarget turns the attacker toward its target.
func (h *Helm) OnEngageTarget(attacker, target *fleet.Ship) {
	h.orderFor(attacker).chase = target
}

// OnDisengage drops the chase; the ship resumes its waypoint.
func (h *Helm) OnDisengage(attacker *fleet.Ship) {
	if o, ok := h.orders[attacker.ID]; ok {
		o.chase = nil
	}
}

// Steer advances every live ship by dt seconds and ticks its reload timer.
// Orders for ships that left the graph are dropped.
func (h *Helm) Steer(dt float64) {
	for id := range h.orders {
		if _, ok := h.graph.Ship(id); !ok {
			delete(h.orders, id)
		}
	}

	for _, s := range h.graph.LiveShips() {
		s.AdvanceReload(dt)

		o, ok := h.orders[s.ID]
		if !ok {
			continue
		}

		var (
			dest    world.Vec3
			stopAt  float64
			hasDest bool
		)
		switch {
		case o.chase != nil && o.chase.Alive():
			dest, stopAt, hasDest = o.chase.Position, s.Class.AttackRange*standOff, true
		case o.waypoint != nil:
			dest, hasDest = *o.waypoint, true
		}
		if !hasDest {
			continue
		}

		toDest := dest.Sub(s.Position).Flat()
		dist := toDest.Len()
		if dist > 0 {
			s.Forward = toDest.Normalized()
		}
		if dist <= stopAt {
			continue
		}
		step := min(s.Class.Speed*dt, dist-stopAt)
		s.Position = world.MoveTowards(s.Position, world.Vec3{X: dest.X, Y: s.Position.Y, Z: dest.Z}, step)
	}
}
