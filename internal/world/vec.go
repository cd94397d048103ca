// Package world provides sea-surface geometry, spawn placement, and patrol routes.
// Positions use a right-handed frame with Y up; ships sail on the X/Z plane.
package world

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Vec3 is a position or direction in world space.
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Forward is the default heading of a freshly spawned ship (+Z).
var Forward = Vec3{Z: 1}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Len returns the vector magnitude.
func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Normalized returns the unit vector in the direction of v, or the zero vector.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l < 1e-9 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Flat drops the vertical component.
func (v Vec3) Flat() Vec3 { return Vec3{X: v.X, Z: v.Z} }

// Distance returns the straight-line distance between two points.
func Distance(a, b Vec3) float64 { return b.Sub(a).Len() }

// FlatDistance returns the distance between two points on the water plane.
func FlatDistance(a, b Vec3) float64 { return b.Sub(a).Flat().Len() }

// AngleDeg returns the unsigned angle in degrees between two directions.
// Degenerate (zero-length) inputs yield 0.
func AngleDeg(from, to Vec3) float64 {
	denom := math.Sqrt(from.Dot(from) * to.Dot(to))
	if denom < 1e-15 {
		return 0
	}
	cos := Clamp(from.Dot(to)/denom, -1, 1)
	return math.Acos(cos) * 180 / math.Pi
}

// HeadingVector returns the unit direction for a yaw angle in degrees (0 = +Z, 90 = +X).
func HeadingVector(yawDeg float64) Vec3 {
	rad := yawDeg * math.Pi / 180
	return Vec3{X: math.Sin(rad), Z: math.Cos(rad)}
}

// MoveTowards advances from toward to by at most maxStep.
func MoveTowards(from, to Vec3, maxStep float64) Vec3 {
	delta := to.Sub(from)
	dist := delta.Len()
	if dist <= maxStep || dist < 1e-9 {
		return to
	}
	return from.Add(delta.Scale(maxStep / dist))
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Float | constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
