package patrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/corsair/internal/combat"
	"github.com/talgya/corsair/internal/events"
	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/fleet"
	"github.com/talgya/corsair/internal/world"
)

type rig struct {
	graph  *fleet.Graph
	rel    *faction.Relations
	combat *combat.Engine
	helm   *Helm
	sea    *world.Sea
}

func newRig(t *testing.T) *rig {
	t.Helper()
	reg := faction.NewRegistry()
	reg.Bootstrap()
	bus := events.NewBus()
	r := &rig{
		graph: fleet.NewGraph(reg, bus),
		rel:   faction.NewRelations(reg, faction.DefaultSettings(), bus),
		sea:   world.NewSea(7, world.DefaultPlacementConfig()),
	}
	r.combat = combat.NewEngine(combat.DefaultSettings(), r.graph, r.rel, bus)
	r.helm = NewHelm(r.graph)
	r.combat.SetMovement(r.helm)
	return r
}

func (r *rig) pirate(t *testing.T, name string, ft faction.FactionType) *fleet.Pirate {
	t.Helper()
	p := fleet.NewPirate(name, ft, fleet.Captain)
	require.NoError(t, r.graph.RegisterPirate(p))
	return p
}

func (r *rig) ship(t *testing.T, owner *fleet.Pirate, pos world.Vec3) *fleet.Ship {
	t.Helper()
	s := fleet.NewShip(fleet.DefaultClass())
	s.Position = pos
	require.NoError(t, r.graph.InitializeShip(s, owner.Name+"'s ship", owner.Faction(), owner))
	return s
}

func TestPatrolAssignsRouteAndAdvances(t *testing.T) {
	r := newRig(t)
	pt := NewPatrol(DefaultSettings(), r.graph, r.combat, r.helm, r.sea)
	captain := r.pirate(t, "Merchant Captain", faction.Merchants)
	s := r.ship(t, captain, world.Vec3{X: 300, Z: 300})

	pt.Tick(captain, 0.1)
	route := pt.Route(s)
	require.Len(t, route, DefaultSettings().RoutePoints)
	for _, wp := range route {
		d := world.FlatDistance(world.Vec3{X: 300, Z: 300}, wp)
		assert.LessOrEqual(t, d, 100.0+1e-9)
		assert.GreaterOrEqual(t, d, 50.0-1e-9)
	}
	wp, ok := r.helm.Waypoint(s)
	require.True(t, ok)
	assert.Equal(t, route[0], wp)

	s.Position = route[0]
	pt.Tick(captain, 0.1)
	wp, _ = r.helm.Waypoint(s)
	assert.Equal(t, route[1], wp)
}

func TestPatrolEngagesNearestHostile(t *testing.T) {
	r := newRig(t)
	pt := NewPatrol(DefaultSettings(), r.graph, r.combat, r.helm, r.sea)
	navy := r.pirate(t, "Commodore", faction.RoyalNavy)
	rogue := r.pirate(t, "Rackham", faction.Pirates)
	trader := r.pirate(t, "Trader", faction.Merchants)

	hunter := r.ship(t, navy, world.Vec3{})
	far := r.ship(t, rogue, world.Vec3{Z: 55})
	near := r.ship(t, rogue, world.Vec3{X: 30})
	r.ship(t, trader, world.Vec3{X: 10})

	pt.Tick(navy, 0.1)
	assert.Nil(t, r.combat.Target(hunter), "no war, no fight")

	require.NoError(t, r.rel.SetRelation(faction.RoyalNavy, faction.Pirates, -60))
	pt.Tick(navy, 0.1)
	assert.Same(t, near, r.combat.Target(hunter))
	assert.Same(t, near, r.helm.Chasing(hunter))

	r.combat.ClearTarget(hunter)
	near.Position = world.Vec3{X: 500}
	pt.Tick(navy, 0.1)
	assert.Same(t, far, r.combat.Target(hunter))
}

func TestHelmSteersTowardWaypoint(t *testing.T) {
	r := newRig(t)
	owner := r.pirate(t, "Navigator", faction.Merchants)
	s := r.ship(t, owner, world.Vec3{})

	r.helm.SetWaypoint(s, world.Vec3{X: 100})
	r.helm.Steer(1)
	assert.InDelta(t, 10, s.Position.X, 1e-9, "class speed is 10 per second")
	assert.InDelta(t, 1, s.Forward.X, 1e-9)
	assert.False(t, r.helm.Arrived(s, 5))

	for i := 0; i < 20; i++ {
		r.helm.Steer(1)
	}
	assert.InDelta(t, 100, s.Position.X, 1e-9, "never overshoots")
	assert.True(t, r.helm.Arrived(s, 5))
}

func TestHelmChasesToStandOff(t *testing.T) {
	r := newRig(t)
	a := r.ship(t, r.pirate(t, "Hunter", faction.RoyalNavy), world.Vec3{})
	b := r.ship(t, r.pirate(t, "Prey", faction.Pirates), world.Vec3{Z: 100})

	r.helm.SetWaypoint(a, world.Vec3{X: -100})
	require.True(t, r.combat.SetTarget(a, b))
	for i := 0; i < 20; i++ {
		r.helm.Steer(1)
	}
	assert.InDelta(t, 100-50*standOff, a.Position.Z, 1e-9)
	assert.InDelta(t, 1, a.Forward.Z, 1e-9)

	r.combat.ClearTarget(a)
	assert.Nil(t, r.helm.Chasing(a))
	r.helm.Steer(1)
	assert.Less(t, a.Position.X, 0.0, "resumes its waypoint")
}

func TestHelmTicksReloadAndDropsGoneShips(t *testing.T) {
	r := newRig(t)
	owner := r.pirate(t, "Gunner", faction.Pirates)
	s := r.ship(t, owner, world.Vec3{})
	require.True(t, s.ConsumeShot())
	r.helm.SetWaypoint(s, world.Vec3{X: 10})

	r.helm.Steer(1.5)
	assert.InDelta(t, 0.5, s.ReloadRemaining(), 1e-9)

	r.graph.DestroyShip(s)
	r.helm.Steer(1)
	_, ok := r.helm.Waypoint(s)
	assert.False(t, ok)
}
