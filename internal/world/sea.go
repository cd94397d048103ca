// Spawn placement and patrol routes using simplex noise, so a given seed always
// lays out the same fleets and patrol circuits.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// PlacementConfig controls how spawn positions are chosen.
type PlacementConfig struct {
	MinDistance float64 // Minimum spacing between live ships on the water plane
	MaxAttempts int     // Candidate positions tried before giving up
}

// DefaultPlacementConfig matches the original spawn settings.
func DefaultPlacementConfig() PlacementConfig {
	return PlacementConfig{
		MinDistance: 50,
		MaxAttempts: 10,
	}
}

// Sea samples deterministic positions on the water surface.
type Sea struct {
	cfg    PlacementConfig
	angle  opensimplex.Noise
	radius opensimplex.Noise
	draws  uint64
}

// NewSea creates a sampler seeded for reproducible layouts.
func NewSea(seed int64, cfg PlacementConfig) *Sea {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Sea{
		cfg:    cfg,
		angle:  opensimplex.NewNormalized(seed),
		radius: opensimplex.NewNormalized(seed + 1),
	}
}

// Config returns the placement settings in use.
func (s *Sea) Config() PlacementConfig {
	return s.cfg
}

// Scatter returns a point within radius of center on the water plane.
// Successive calls walk the noise field so points differ.
func (s *Sea) Scatter(center Vec3, radius float64) Vec3 {
	s.draws++
	x := float64(s.draws) * 0.731
	y := center.X*0.013 + center.Z*0.017
	theta := s.angle.Eval2(x, y) * 2 * math.Pi
	// sqrt keeps the distribution even over the disc area.
	r := radius * math.Sqrt(s.radius.Eval2(y, x))
	return Vec3{
		X: center.X + r*math.Sin(theta),
		Y: center.Y,
		Z: center.Z + r*math.Cos(theta),
	}
}

// IsSafe reports whether pos keeps MinDistance from every occupied position.
func (s *Sea) IsSafe(pos Vec3, occupied []Vec3) bool {
	for _, o := range occupied {
		if FlatDistance(pos, o) < s.cfg.MinDistance {
			return false
		}
	}
	return true
}

// SafePosition tries up to MaxAttempts scattered points around center and returns the
// first one clear of occupied. When none is clear, the last candidate is returned with ok=false.
func (s *Sea) SafePosition(center Vec3, radius float64, occupied []Vec3) (pos Vec3, ok bool) {
	for i := 0; i < s.cfg.MaxAttempts; i++ {
		pos = s.Scatter(center, radius)
		if s.IsSafe(pos, occupied) {
			return pos, true
		}
	}
	return pos, false
}

// PatrolRoute builds a closed loop of waypoints around home.
// Waypoints sit on a noisy ring between half and full radius.
func (s *Sea) PatrolRoute(home Vec3, radius float64, points int) []Vec3 {
	if points < 1 {
		points = 1
	}
	route := make([]Vec3, 0, points)
	offset := home.X*0.021 + home.Z*0.029
	for i := 0; i < points; i++ {
		theta := 2 * math.Pi * float64(i) / float64(points)
		n := s.radius.Eval2(math.Cos(theta)+offset, math.Sin(theta)+offset)
		r := radius * (0.5 + 0.5*n)
		route = append(route, Vec3{
			X: home.X + r*math.Sin(theta),
			Y: home.Y,
			Z: home.Z + r*math.Cos(theta),
		})
	}
	return route
}
