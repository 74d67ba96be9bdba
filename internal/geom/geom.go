// Package geom holds the small amount of 2D vector math the game engine
// needs (ring-fan placement around a point). Adapted from the teacher's
// core.Vector3/Vector2 — the 3D matrix/quaternion/polynomial machinery
// there has no user in this 2D server and is dropped (see DESIGN.md).
package geom

import "math"

// Vector2 is a point or direction in map space.
type Vector2 struct {
	X, Y float64
}

func (v Vector2) Add(o Vector2) Vector2 { return Vector2{v.X + o.X, v.Y + o.Y} }
func (v Vector2) Sub(o Vector2) Vector2 { return Vector2{v.X - o.X, v.Y - o.Y} }
func (v Vector2) Mul(s float64) Vector2 { return Vector2{v.X * s, v.Y * s} }

func (v Vector2) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vector2) Normalize() Vector2 {
	m := v.Magnitude()
	if m == 0 {
		return Vector2{}
	}
	return v.Mul(1.0 / m)
}

// Rotated returns v rotated by angle radians.
func (v Vector2) Rotated(angle float64) Vector2 {
	s, c := math.Sin(angle), math.Cos(angle)
	return Vector2{
		X: v.X*c - v.Y*s,
		Y: v.X*s + v.Y*c,
	}
}

// FanAround returns n points at distance radius from center, spread
// across a fan of `spread` radians centered on baseAngle. For n == 2 at
// a spread of pi (±90°), callers get one point on each side; for n == 3
// at a spread of pi/2 they get three points evenly spaced across a
// quarter turn. Used by CLIENT_CREAM_SPAWN_RINGS.
func FanAround(center Vector2, baseAngle, spread, radius float64, n int) []Vector2 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []Vector2{center.Add(Vector2{radius, 0}.Rotated(baseAngle))}
	}
	pts := make([]Vector2, n)
	step := spread / float64(n-1)
	start := baseAngle - spread/2
	for i := 0; i < n; i++ {
		angle := start + step*float64(i)
		offset := Vector2{X: radius}.Rotated(angle)
		pts[i] = center.Add(offset)
	}
	return pts
}
