package geom

import (
	"fmt"
	"math"
)

// Surface is one of Plane, Cylinder, Sphere or BSplineSurface.
type Surface interface {
	surface() // marker method restricting implementations to this package
}

// Plane is S(u,v) = Origin + u X + v Y with normal X x Y.
type Plane struct {
	Origin       Vec3
	X, Y, Normal Vec3
}

func (Plane) surface() {}

// NewPlane builds a plane, orthonormalising the frame.
func NewPlane(origin, normal, xdir Vec3) (Plane, error) {
	x, y, n, ok := orthoFrame(normal, xdir)
	if !ok {
		return Plane{}, fmt.Errorf("plane: zero normal: %w", ErrInvalidGeometry)
	}
	return Plane{Origin: origin, X: x, Y: y, Normal: n}, nil
}

// Cylinder is S(u,v) = Origin + r(cos u X + sin u Y) + v Axis. The normal
// points away from the axis.
type Cylinder struct {
	Origin     Vec3
	X, Y, Axis Vec3
	Radius     float64
}

func (Cylinder) surface() {}

// NewCylinder builds a cylinder, orthonormalising the frame.
func NewCylinder(origin, axis, xdir Vec3, radius float64) (Cylinder, error) {
	x, y, a, ok := orthoFrame(axis, xdir)
	if !ok || !(radius > 0) {
		return Cylinder{}, fmt.Errorf("cylinder: zero axis or radius %g: %w", radius, ErrInvalidGeometry)
	}
	return Cylinder{Origin: origin, X: x, Y: y, Axis: a, Radius: radius}, nil
}

// Sphere is S(u,v) = Center + r cos v (cos u X + sin u Y) + r sin v Axis,
// with u the longitude and v the latitude in [-pi/2, pi/2]. The normal
// points outward.
type Sphere struct {
	Center     Vec3
	X, Y, Axis Vec3
	Radius     float64
}

func (Sphere) surface() {}

// NewSphere builds a sphere, orthonormalising the frame.
func NewSphere(center, axis, xdir Vec3, radius float64) (Sphere, error) {
	x, y, a, ok := orthoFrame(axis, xdir)
	if !ok || !(radius > 0) {
		return Sphere{}, fmt.Errorf("sphere: zero axis or radius %g: %w", radius, ErrInvalidGeometry)
	}
	return Sphere{Center: center, X: x, Y: y, Axis: a, Radius: radius}, nil
}

// BSplineSurface is a rational tensor-product B-spline surface. Control
// points are stored u-major: Ctrl[i*NV+j].
type BSplineSurface struct {
	DegreeU, DegreeV int
	NU, NV           int
	KnotsU, KnotsV   []float64
	Ctrl             []Vec3
	Weights          []float64
}

func (BSplineSurface) surface() {}

// SurfacePoint is the result of evaluating a surface.
type SurfacePoint struct {
	Pos    Vec3
	DU, DV Vec3 // partial derivatives
	Normal Vec3 // unit normal, DU x DV normalised
}

// DomainOfSurface returns the parameter rectangle of s.
func DomainOfSurface(s Surface) SurfaceDomain {
	period := Interval{Min: 0, Max: 2 * math.Pi}
	switch s := s.(type) {
	case Plane:
		return SurfaceDomain{U: Unbounded, V: Unbounded}
	case Cylinder:
		return SurfaceDomain{U: period, V: Unbounded, PeriodicU: true}
	case Sphere:
		return SurfaceDomain{U: period, V: Interval{Min: -math.Pi / 2, Max: math.Pi / 2}, PeriodicU: true}
	case BSplineSurface:
		return SurfaceDomain{
			U: Interval{Min: s.KnotsU[s.DegreeU], Max: s.KnotsU[s.NU]},
			V: Interval{Min: s.KnotsV[s.DegreeV], Max: s.KnotsV[s.NV]},
		}
	}
	panic(fmt.Sprintf("geom: unknown surface type %T", s))
}

// EvalSurface evaluates s at (u, v). When the partial derivatives are
// degenerate (a sphere pole, a collapsed B-spline edge) the normal is
// estimated by finite differences at a parameter nudged into the domain.
func EvalSurface(s Surface, u, v float64) (SurfacePoint, error) {
	dom := DomainOfSurface(s)
	var ok bool
	if u, ok = checkParam(u, dom.U, dom.PeriodicU); !ok {
		return SurfacePoint{}, outOfRange("u", u, dom.U)
	}
	if v, ok = checkParam(v, dom.V, dom.PeriodicV); !ok {
		return SurfacePoint{}, outOfRange("v", v, dom.V)
	}

	sp := evalPartials(s, u, v)
	if n, ok := Unit(sp.DU.Cross(sp.DV)); ok {
		sp.Normal = n
		return sp, nil
	}
	sp.Normal = finiteDifferenceNormal(s, dom, u, v)
	return sp, nil
}

func checkParam(x float64, iv Interval, periodic bool) (float64, bool) {
	if periodic {
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	}
	return iv.check(x)
}

func evalPartials(s Surface, u, v float64) SurfacePoint {
	switch s := s.(type) {
	case Plane:
		return SurfacePoint{
			Pos: s.Origin.Add(s.X.MulScalar(u)).Add(s.Y.MulScalar(v)),
			DU:  s.X,
			DV:  s.Y,
		}

	case Cylinder:
		su, cu := math.Sincos(u)
		r := s.Radius
		radial := s.X.MulScalar(cu).Add(s.Y.MulScalar(su))
		return SurfacePoint{
			Pos: s.Origin.Add(radial.MulScalar(r)).Add(s.Axis.MulScalar(v)),
			DU:  s.X.MulScalar(-r * su).Add(s.Y.MulScalar(r * cu)),
			DV:  s.Axis,
		}

	case Sphere:
		su, cu := math.Sincos(u)
		sv, cv := math.Sincos(v)
		r := s.Radius
		e := s.X.MulScalar(cu).Add(s.Y.MulScalar(su))
		de := s.X.MulScalar(-su).Add(s.Y.MulScalar(cu))
		return SurfacePoint{
			Pos: s.Center.Add(e.MulScalar(r * cv)).Add(s.Axis.MulScalar(r * sv)),
			DU:  de.MulScalar(r * cv),
			DV:  e.MulScalar(-r * sv).Add(s.Axis.MulScalar(r * cv)),
		}

	case BSplineSurface:
		pos, du, dv := evalNURBSSurface(s, u, v)
		return SurfacePoint{Pos: pos, DU: du, DV: dv}
	}
	panic(fmt.Sprintf("geom: unknown surface type %T", s))
}

// finiteDifferenceNormal estimates the normal from central differences of
// positions around a parameter pulled slightly toward the domain interior.
func finiteDifferenceNormal(s Surface, dom SurfaceDomain, u, v float64) Vec3 {
	hu := step(dom.U)
	hv := step(dom.V)
	u = nudge(u, dom.U, dom.PeriodicU, hu)
	v = nudge(v, dom.V, dom.PeriodicV, hv)

	pos := func(u, v float64) Vec3 { return evalPartials(s, u, v).Pos }
	du := pos(u+hu, v).Sub(pos(u-hu, v))
	dv := pos(u, v+hv).Sub(pos(u, v-hv))
	if n, ok := Unit(du.Cross(dv)); ok {
		return n
	}
	// Last resort: the analytic partials one step further in.
	sp := evalPartials(s, nudge(u, dom.U, dom.PeriodicU, 4*hu), nudge(v, dom.V, dom.PeriodicV, 4*hv))
	n, _ := Unit(sp.DU.Cross(sp.DV))
	return n
}

func step(iv Interval) float64 {
	if iv.IsBounded() {
		return 1e-5 * math.Max(iv.Width(), 1e-3)
	}
	return 1e-5
}

// nudge moves x at least 2h away from the ends of a bounded, non-periodic
// interval.
func nudge(x float64, iv Interval, periodic bool, h float64) float64 {
	if periodic || !iv.IsBounded() {
		return x
	}
	if x-2*h < iv.Min {
		x = iv.Min + 2*h
	}
	if x+2*h > iv.Max {
		x = iv.Max - 2*h
	}
	return x
}

// SurfacePos evaluates only the position, clamping non-periodic
// parameters into the domain instead of failing.
func SurfacePos(s Surface, u, v float64) Vec3 {
	dom := DomainOfSurface(s)
	if !dom.PeriodicU {
		u = dom.U.Clamp(u)
	}
	if !dom.PeriodicV {
		v = dom.V.Clamp(v)
	}
	return evalPartials(s, u, v).Pos
}
