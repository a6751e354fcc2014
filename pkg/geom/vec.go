package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec3 is a point or direction in model space.
type Vec3 = v3.Vec

// Vec2 is a point in a surface's (u, v) parameter space.
type Vec2 = v2.Vec

// degenerateLength is the length below which a derivative or normal is
// treated as vanishing.
const degenerateLength = 1e-12

// Unit returns v scaled to length one, or false if v is (nearly) zero.
func Unit(v Vec3) (Vec3, bool) {
	l := v.Length()
	if l < degenerateLength || math.IsNaN(l) {
		return Vec3{}, false
	}
	return v.MulScalar(1 / l), true
}

// Lerp interpolates between a and b so that t=0 yields a and t=1 yields b
// exactly.
func Lerp(a, b Vec3, t float64) Vec3 {
	return Vec3{
		X: (1-t)*a.X + t*b.X,
		Y: (1-t)*a.Y + t*b.Y,
		Z: (1-t)*a.Z + t*b.Z,
	}
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Vec3) float64 {
	return a.Sub(b).Length()
}

// DistToSegment returns the distance from p to the segment ab.
func DistToSegment(p, a, b Vec3) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return Dist(p, a)
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return Dist(p, a.Add(ab.MulScalar(t)))
}

// Cross2 is the z component of the cross product of two parameter-space vectors.
func Cross2(a, b Vec2) float64 {
	return a.X*b.Y - a.Y*b.X
}

// Mid2 returns the midpoint of two parameter-space points.
func Mid2(a, b Vec2) Vec2 {
	return Vec2{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// orthoFrame builds a right-handed frame (x, y, n) from a normal and a
// reference x direction. The x direction is made orthogonal to n; if it is
// parallel to n an arbitrary perpendicular is chosen.
func orthoFrame(normal, xdir Vec3) (x, y, n Vec3, ok bool) {
	n, ok = Unit(normal)
	if !ok {
		return Vec3{}, Vec3{}, Vec3{}, false
	}
	x = xdir.Sub(n.MulScalar(xdir.Dot(n)))
	if x, ok = Unit(x); !ok {
		x = anyPerpendicular(n)
	}
	y = n.Cross(x)
	return x, y, n, true
}

func anyPerpendicular(n Vec3) Vec3 {
	ref := Vec3{X: 1}
	if math.Abs(n.X) > 0.9 {
		ref = Vec3{Y: 1}
	}
	p, _ := Unit(ref.Sub(n.MulScalar(ref.Dot(n))))
	return p
}
