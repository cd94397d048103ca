package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/world"
)

func newSpawner(t *testing.T) (*Spawner, *Graph) {
	t.Helper()
	g, _ := newGraph(t)
	frigate := DefaultClass()
	frigate.Name = "frigate"
	frigate.MaxHealth = 200
	sea := world.NewSea(42, world.DefaultPlacementConfig())
	return NewSpawner(g, sea, []Class{DefaultClass(), frigate}), g
}

func TestSpawnShip(t *testing.T) {
	sp, g := newSpawner(t)
	owner := addPirate(t, g, "Commodore", faction.RoyalNavy)

	s, err := sp.SpawnShip("frigate", world.Vec3{X: 10, Z: 10}, faction.RoyalNavy, owner)
	require.NoError(t, err)
	assert.Equal(t, "Royal Navy frigate 1", s.Name)
	assert.Equal(t, 200.0, s.Health())
	assert.Equal(t, world.Vec3{X: 10, Z: 10}, s.Position, "clear water keeps the requested spot")
	assert.True(t, s.Alive())
	assert.Same(t, owner, s.Owner())

	_, err = sp.SpawnShip("galleon", world.Vec3{}, faction.RoyalNavy, owner)
	assert.ErrorIs(t, err, faction.ErrInvalidArgument)

	_, err = sp.SpawnShip("sloop", world.Vec3{}, faction.Pirates, owner)
	assert.ErrorIs(t, err, ErrFactionMismatch)
	assert.Equal(t, []string{"frigate", "sloop"}, sp.ClassNames())
}

func TestSpawnShipAvoidsOccupiedWater(t *testing.T) {
	sp, g := newSpawner(t)
	owner := addPirate(t, g, "Kidd", faction.Pirates)

	first, err := sp.SpawnShip("sloop", world.Vec3{}, faction.Pirates, owner)
	require.NoError(t, err)
	second, err := sp.SpawnShip("sloop", world.Vec3{}, faction.Pirates, owner)
	require.NoError(t, err)

	assert.NotEqual(t, first.Position, second.Position)
}

func TestSpawnFleet(t *testing.T) {
	sp, g := newSpawner(t)
	owner := addPirate(t, g, "Morgan", faction.Merchants)

	ships, err := sp.SpawnFleet(owner, []string{"sloop", "sloop", "frigate"}, world.Vec3{X: 500}, 300)
	require.NoError(t, err)
	require.Len(t, ships, 3)
	assert.Equal(t, 3, owner.ShipCount())
	for _, s := range ships {
		assert.LessOrEqual(t, world.FlatDistance(world.Vec3{X: 500}, s.Position), 300.0)
	}
	require.NoError(t, g.CheckInvariants())

	_, err = sp.SpawnFleet(nil, []string{"sloop"}, world.Vec3{}, 10)
	assert.ErrorIs(t, err, ErrNoOwner)
}
