package tessellate

import (
	"sort"

	"github.com/chazu/brep/pkg/geom"
)

// triangulate splits the polygon with holes into triangles by ear
// clipping. outer must be counter-clockwise and holes clockwise. The
// returned triangles index pts and are counter-clockwise. forced counts
// ears that had to be clipped without passing the containment test.
func triangulate(pts []geom.Vec2, outer []int, holes [][]int, eps float64) (tris [][3]int, forced int) {
	poly := outer
	if len(holes) > 0 {
		poly = bridgeHoles(pts, outer, holes, eps)
	}
	return earClip(pts, poly, eps)
}

// bridgeHoles merges each hole into the outer polygon through a pair of
// coincident bridge edges, from the hole's rightmost vertex to the nearest
// polygon vertex that sees it.
func bridgeHoles(pts []geom.Vec2, outer []int, holes [][]int, eps float64) []int {
	type hole struct {
		idx []int
		at  int // position of the rightmost vertex
	}
	hs := make([]hole, len(holes))
	for i, h := range holes {
		at := 0
		for j, v := range h {
			p, q := pts[v], pts[h[at]]
			if p.X > q.X || (p.X == q.X && p.Y < q.Y) {
				at = j
			}
		}
		hs[i] = hole{idx: h, at: at}
	}
	sort.SliceStable(hs, func(i, j int) bool {
		return pts[hs[i].idx[hs[i].at]].X > pts[hs[j].idx[hs[j].at]].X
	})

	poly := append([]int(nil), outer...)
	for k, h := range hs {
		m := h.idx[h.at]
		// segments the bridge must not cross: the polygon so far and every
		// hole not yet merged
		obstacles := [][]int{poly}
		for _, other := range hs[k:] {
			obstacles = append(obstacles, other.idx)
		}
		j := visibleVertex(pts, poly, m, obstacles, eps)
		if j < 0 {
			// nothing visible; fall back to the nearest vertex
			j = nearestVertex(pts, poly, m)
		}

		merged := make([]int, 0, len(poly)+len(h.idx)+2)
		merged = append(merged, poly[:j+1]...)
		for i := range h.idx {
			merged = append(merged, h.idx[(h.at+i)%len(h.idx)])
		}
		merged = append(merged, m, poly[j])
		merged = append(merged, poly[j+1:]...)
		poly = merged
	}
	return poly
}

func nearestVertex(pts []geom.Vec2, poly []int, m int) int {
	best, bestD := 0, -1.0
	for i, v := range poly {
		d := pts[v].Sub(pts[m]).Length()
		if bestD < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// visibleVertex returns the position in poly of the closest vertex whose
// segment to pts[m] lies inside the polygon and crosses no obstacle.
func visibleVertex(pts []geom.Vec2, poly []int, m int, obstacles [][]int, eps float64) int {
	order := make([]int, len(poly))
	for i := range order {
		order[i] = i
	}
	pm := pts[m]
	sort.SliceStable(order, func(a, b int) bool {
		return pts[poly[order[a]]].Sub(pm).Length() < pts[poly[order[b]]].Sub(pm).Length()
	})

	n := len(poly)
	for _, j := range order {
		p := pts[poly[j]]
		if same(p, pm) {
			continue
		}
		prev, next := pts[poly[(j+n-1)%n]], pts[poly[(j+1)%n]]
		if !inCone(prev, p, next, pm) {
			continue
		}
		if !blocked(pts, obstacles, p, pm, eps) {
			return j
		}
	}
	return -1
}

// inCone reports whether q lies inside the interior angle at vertex a of a
// counter-clockwise polygon with neighbours a0 (previous) and a1 (next).
func inCone(a0, a, a1, q geom.Vec2) bool {
	if orient(a, a1, a0) >= 0 {
		return orient(a, q, a0) > 0 && orient(q, a, a1) > 0
	}
	return !(orient(a, q, a1) >= 0 && orient(q, a, a0) >= 0)
}

func blocked(pts []geom.Vec2, loops [][]int, a, b geom.Vec2, eps float64) bool {
	for _, l := range loops {
		for i := range l {
			c, d := pts[l[i]], pts[l[(i+1)%len(l)]]
			if same(c, d) {
				continue
			}
			if segmentsCross(a, b, c, d, eps) {
				return true
			}
		}
	}
	return false
}

// earClip triangulates a simple counter-clockwise polygon that may touch
// itself at duplicated bridge vertices.
func earClip(pts []geom.Vec2, poly []int, eps float64) (tris [][3]int, forced int) {
	n := len(poly)
	if n < 3 {
		return nil, 0
	}
	prev := make([]int, n)
	next := make([]int, n)
	for i := range n {
		prev[i] = (i + n - 1) % n
		next[i] = (i + 1) % n
	}
	p := func(i int) geom.Vec2 { return pts[poly[i]] }

	isEar := func(i int) bool {
		a, b, c := p(prev[i]), p(i), p(next[i])
		if orient(a, b, c) <= eps {
			return false
		}
		for k := next[next[i]]; k != prev[i]; k = next[k] {
			q := p(k)
			if same(q, a) || same(q, b) || same(q, c) {
				continue
			}
			if pointInTriangle(q, a, b, c, eps) {
				return false
			}
		}
		return true
	}
	clip := func(i int) {
		a, b, c := poly[prev[i]], poly[i], poly[next[i]]
		if orient(pts[a], pts[b], pts[c]) > eps {
			tris = append(tris, [3]int{a, b, c})
		}
		next[prev[i]] = next[i]
		prev[next[i]] = prev[i]
	}

	remaining := n
	i, stall := 0, 0
	for remaining > 3 {
		if isEar(i) {
			clip(i)
			remaining--
			i, stall = next[i], 0
			continue
		}
		i = next[i]
		if stall++; stall <= remaining {
			continue
		}

		// A full pass found no ear. Drop a degenerate vertex if there is
		// one, else clip the most convex vertex regardless of containment.
		best, bestArea := -1, 0.0
		for k, c := i, 0; c < remaining; k, c = next[k], c+1 {
			area := orient(p(prev[k]), p(k), p(next[k]))
			if area <= eps && area >= -eps {
				best = k
				break
			}
			if area > bestArea {
				best, bestArea = k, area
			}
		}
		if best < 0 {
			break
		}
		forced++
		clip(best)
		remaining--
		i, stall = next[best], 0
	}
	if remaining == 3 {
		clip(i)
	}
	return tris, forced
}
