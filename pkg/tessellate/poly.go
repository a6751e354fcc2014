package tessellate

import (
	"math"

	"github.com/chazu/brep/pkg/geom"
)

// orient returns twice the signed area of triangle abc, positive when
// counter-clockwise.
func orient(a, b, c geom.Vec2) float64 {
	return geom.Cross2(b.Sub(a), c.Sub(a))
}

// signedArea returns the signed area of the polygon through pts[idx].
func signedArea(pts []geom.Vec2, idx []int) float64 {
	var s float64
	for i := range idx {
		a, b := pts[idx[i]], pts[idx[(i+1)%len(idx)]]
		s += a.X*b.Y - b.X*a.Y
	}
	return s / 2
}

// extent returns the larger side of the bounding box of pts.
func extent(pts []geom.Vec2) float64 {
	if len(pts) == 0 {
		return 0
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo = geom.Vec2{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y)}
		hi = geom.Vec2{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y)}
	}
	return math.Max(hi.X-lo.X, hi.Y-lo.Y)
}

func same(a, b geom.Vec2) bool { return a.X == b.X && a.Y == b.Y }

// onSegment reports whether p lies on segment ab. eps is an area
// tolerance on the collinearity test.
func onSegment(p, a, b geom.Vec2, eps float64) bool {
	if math.Abs(orient(a, b, p)) > eps {
		return false
	}
	return p.X >= math.Min(a.X, b.X) && p.X <= math.Max(a.X, b.X) &&
		p.Y >= math.Min(a.Y, b.Y) && p.Y <= math.Max(a.Y, b.Y)
}

// segmentsCross reports whether segments ab and cd share any point other
// than an endpoint common to both.
func segmentsCross(a, b, c, d geom.Vec2, eps float64) bool {
	d1 := orient(c, d, a)
	d2 := orient(c, d, b)
	d3 := orient(a, b, c)
	d4 := orient(a, b, d)
	if ((d1 > eps && d2 < -eps) || (d1 < -eps && d2 > eps)) &&
		((d3 > eps && d4 < -eps) || (d3 < -eps && d4 > eps)) {
		return true
	}
	touches := func(p, s0, s1 geom.Vec2) bool {
		if same(p, s0) || same(p, s1) {
			return false
		}
		return onSegment(p, s0, s1, eps)
	}
	return touches(a, c, d) || touches(b, c, d) || touches(c, a, b) || touches(d, a, b)
}

// simple reports whether the closed polygons in loops are free of self
// and mutual intersections.
func simple(pts []geom.Vec2, loops [][]int, eps float64) bool {
	type seg struct {
		a, b     geom.Vec2
		loop, at int
	}
	var segs []seg
	for li, l := range loops {
		for i := range l {
			a, b := pts[l[i]], pts[l[(i+1)%len(l)]]
			if same(a, b) {
				continue
			}
			segs = append(segs, seg{a: a, b: b, loop: li, at: i})
		}
	}
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			s, t := segs[i], segs[j]
			if s.loop == t.loop {
				n := len(loops[s.loop])
				if t.at == s.at+1 || (s.at == 0 && t.at == n-1) {
					// neighbours share a vertex; only a fold back is an error
					if adjacentOverlap(s.a, s.b, t.a, t.b, eps) {
						return false
					}
					continue
				}
			}
			if segmentsCross(s.a, s.b, t.a, t.b, eps) {
				return false
			}
		}
	}
	return true
}

// adjacentOverlap reports whether two segments sharing an endpoint run
// back over each other.
func adjacentOverlap(a, b, c, d geom.Vec2, eps float64) bool {
	var shared, p, q geom.Vec2
	switch {
	case same(b, c):
		shared, p, q = b, a, d
	case same(a, d):
		shared, p, q = a, b, c
	default:
		return false
	}
	u, v := p.Sub(shared), q.Sub(shared)
	return math.Abs(geom.Cross2(u, v)) <= eps && u.X*v.X+u.Y*v.Y > 0
}

func pointInTriangle(p, a, b, c geom.Vec2, eps float64) bool {
	return orient(a, b, p) >= -eps && orient(b, c, p) >= -eps && orient(c, a, p) >= -eps
}
