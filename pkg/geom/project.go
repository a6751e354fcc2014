package geom

import "math"

// Project returns the parameters of the point on s nearest p. Periodic
// parameters are returned in the canonical period. The boolean is false
// when a parameter is undetermined, as for a point on a cylinder axis or
// at a sphere pole; the returned u is then 0 and callers are expected to
// substitute a neighbouring value.
func Project(s Surface, p Vec3) (Vec2, bool) {
	switch s := s.(type) {
	case Plane:
		d := p.Sub(s.Origin)
		return Vec2{X: d.Dot(s.X), Y: d.Dot(s.Y)}, true

	case Cylinder:
		d := p.Sub(s.Origin)
		v := d.Dot(s.Axis)
		x, y := d.Dot(s.X), d.Dot(s.Y)
		if math.Hypot(x, y) < degenerateLength {
			return Vec2{Y: v}, false
		}
		return Vec2{X: angle(x, y), Y: v}, true

	case Sphere:
		d := p.Sub(s.Center)
		x, y, z := d.Dot(s.X), d.Dot(s.Y), d.Dot(s.Axis)
		rxy := math.Hypot(x, y)
		v := math.Atan2(z, rxy)
		if rxy < 1e-9*s.Radius {
			return Vec2{Y: v}, false
		}
		return Vec2{X: angle(x, y), Y: v}, true

	case BSplineSurface:
		return projectNURBS(s, p), true
	}
	return Vec2{}, false
}

// angle returns atan2(y, x) mapped into [0, 2pi).
func angle(x, y float64) float64 {
	a := math.Atan2(y, x)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

const (
	projectGrid  = 8
	projectIters = 20
)

// projectNURBS seeds from the nearest sample of a coarse grid and refines
// with Newton iterations on the squared distance, dropping the second
// derivative terms.
func projectNURBS(s BSplineSurface, p Vec3) Vec2 {
	dom := DomainOfSurface(s)
	best := Vec2{X: dom.U.Min, Y: dom.V.Min}
	bestD := math.Inf(1)
	for i := 0; i <= projectGrid; i++ {
		u := dom.U.Min + dom.U.Width()*float64(i)/projectGrid
		for j := 0; j <= projectGrid; j++ {
			v := dom.V.Min + dom.V.Width()*float64(j)/projectGrid
			if d := Dist(SurfacePos(s, u, v), p); d < bestD {
				best, bestD = Vec2{X: u, Y: v}, d
			}
		}
	}

	u, v := best.X, best.Y
	for range projectIters {
		pos, su, sv := evalNURBSSurface(s, u, v)
		r := pos.Sub(p)
		a11, a12, a22 := su.Dot(su), su.Dot(sv), sv.Dot(sv)
		b1, b2 := -r.Dot(su), -r.Dot(sv)
		det := a11*a22 - a12*a12
		if math.Abs(det) < 1e-18 {
			break
		}
		du := (b1*a22 - b2*a12) / det
		dv := (a11*b2 - a12*b1) / det
		u = dom.U.Clamp(u + du)
		v = dom.V.Clamp(v + dv)
		if math.Abs(du) < 1e-12*math.Max(1, dom.U.Width()) && math.Abs(dv) < 1e-12*math.Max(1, dom.V.Width()) {
			break
		}
	}
	return Vec2{X: u, Y: v}
}

// ProjectNear is Project with periodic parameters unwrapped to the
// representative nearest hint. An undetermined u takes the hint's u.
func ProjectNear(s Surface, p Vec3, hint Vec2) (Vec2, bool) {
	uv, ok := Project(s, p)
	dom := DomainOfSurface(s)
	if !ok {
		uv.X = hint.X
	} else if dom.PeriodicU {
		uv.X = Wrap(uv.X, hint.X, dom.U)
	}
	if dom.PeriodicV {
		uv.Y = Wrap(uv.Y, hint.Y, dom.V)
	}
	return uv, ok
}
