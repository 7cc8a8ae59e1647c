// Package geom provides the vector math and intersection tests used by the
// simulation systems.
//
// Vectors are mgl64.Vec2 values ([2]float64), so they are comparable, copy
// cheaply and marshal to JSON as [x, y]. Angles are in degrees throughout.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 is a 2D vector in world units.
type Vec2 = mgl64.Vec2

// V builds a vector from its components.
func V(x, y float64) Vec2 {
	return Vec2{x, y}
}

// Forward returns the unit direction for an angle in degrees.
// 0° points along +X, 90° along +Y.
func Forward(angleDeg float64) Vec2 {
	rad := mgl64.DegToRad(angleDeg)
	return Vec2{math.Cos(rad), math.Sin(rad)}
}

// DirToAngle returns the angle of a direction in degrees, in [0, 360).
func DirToAngle(dir Vec2) float64 {
	return NormalizeAngle(mgl64.RadToDeg(math.Atan2(dir[1], dir[0])))
}

// FloatWrap wraps v into [0, max) with toroidal semantics.
func FloatWrap(v, max float64) float64 {
	w := v - math.Floor(v/max)*max
	// Floating point can land exactly on max for tiny negative inputs
	if w >= max {
		return 0
	}
	return w
}

// Wrap wraps a position into the world rectangle [0,size.x) x [0,size.y).
func Wrap(p, size Vec2) Vec2 {
	return Vec2{FloatWrap(p[0], size[0]), FloatWrap(p[1], size[1])}
}

// NormalizeAngle maps any angle in degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	return FloatWrap(deg, 360)
}

// AngleDelta returns the signed shortest rotation from one angle to another,
// in (-180, 180].
func AngleDelta(from, to float64) float64 {
	d := NormalizeAngle(to - from)
	if d > 180 {
		d -= 360
	}
	return d
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return mgl64.Clamp(v, lo, hi)
}

// Lerp interpolates between a and b by t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// DistSq is the squared distance between two points.
func DistSq(a, b Vec2) float64 {
	d := b.Sub(a)
	return d.Dot(d)
}

// Dist is the distance between two points.
func Dist(a, b Vec2) float64 {
	return b.Sub(a).Len()
}
