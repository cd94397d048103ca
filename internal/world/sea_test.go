package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScatterStaysWithinRadius(t *testing.T) {
	sea := NewSea(42, DefaultPlacementConfig())
	center := Vec3{X: 100, Z: -40}
	for i := 0; i < 200; i++ {
		p := sea.Scatter(center, 30)
		assert.LessOrEqual(t, FlatDistance(center, p), 30.0+1e-9)
	}
}

func TestScatterIsDeterministic(t *testing.T) {
	a := NewSea(7, DefaultPlacementConfig())
	b := NewSea(7, DefaultPlacementConfig())
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Scatter(Vec3{}, 100), b.Scatter(Vec3{}, 100))
	}
}

func TestSafePosition(t *testing.T) {
	sea := NewSea(1, PlacementConfig{MinDistance: 10, MaxAttempts: 50})
	occupied := []Vec3{{X: 0, Z: 0}}

	pos, ok := sea.SafePosition(Vec3{}, 200, occupied)
	require.True(t, ok)
	assert.GreaterOrEqual(t, FlatDistance(pos, occupied[0]), 10.0)
}

func TestSafePositionGivesUp(t *testing.T) {
	sea := NewSea(1, PlacementConfig{MinDistance: 1000, MaxAttempts: 3})
	_, ok := sea.SafePosition(Vec3{}, 5, []Vec3{{}})
	assert.False(t, ok)
}

func TestPatrolRoute(t *testing.T) {
	sea := NewSea(3, DefaultPlacementConfig())
	home := Vec3{X: 50, Z: 50}
	route := sea.PatrolRoute(home, 100, 6)

	require.Len(t, route, 6)
	for _, wp := range route {
		d := FlatDistance(home, wp)
		assert.GreaterOrEqual(t, d, 50.0-1e-9)
		assert.LessOrEqual(t, d, 100.0+1e-9)
	}
}
