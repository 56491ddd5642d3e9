package components

import "math"

// Vec3 is a world-space direction or offset.
type Vec3 struct {
	X, Y, Z float64
}

// Up is the canonical upward direction.
var Up = Vec3{X: 0, Y: 1, Z: 0}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length. The zero vector normalizes
// to Up so a degenerate tropism blend never produces a zero direction.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return Up
	}
	return v.Scale(1 / l)
}

// RotateY rotates v around the world Y axis by angle radians.
func (v Vec3) RotateY(angle float64) Vec3 {
	sin, cos := math.Sincos(angle)
	return Vec3{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	}
}

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Tilt rotates v away from the world Y axis by angle radians, in the plane
// spanned by v and the Y axis. A vertical v tilts toward +X.
func (v Vec3) Tilt(angle float64) Vec3 {
	axis := Up.Cross(v)
	if axis.Length() == 0 {
		axis = Vec3{Z: -1} // v is vertical; tilt toward +X
	}
	axis = axis.Normalized()

	// Rodrigues rotation; axis is perpendicular to v so the axial term drops.
	sin, cos := math.Sincos(angle)
	return v.Scale(cos).Add(axis.Cross(v).Scale(sin)).Normalized()
}
