package tessellate

import "github.com/chazu/brep/pkg/geom"

// delaunay flips interior edges of the triangulation until each is
// locally Delaunay in pts, which replaces the slivers ear clipping leaves
// with well shaped triangles. Boundary edges stay. pts must hold every
// vertex of the current triangles, which are counter-clockwise in it.
func (r *refiner) delaunay(pts []geom.Vec2, eps float64) {
	ext := extent(pts)
	area := eps * ext * ext

	var queue []edgeKey
	for _, t := range r.tris {
		for k := range 3 {
			queue = append(queue, keyOf(t[k], t[(k+1)%3]))
		}
	}

	limit := max(1024, 4*len(pts)*len(pts))
	for flips := 0; len(queue) > 0 && flips < limit; {
		key := queue[0]
		queue = queue[1:]
		owners := r.edges[key]
		if r.boundary[key] || len(owners) != 2 {
			continue
		}
		t1, t2 := owners[0], owners[1]
		a, b, c := r.around(t1, key)
		p, q, d := r.around(t2, key)
		if p != b || q != a || c == d {
			continue
		}
		if _, ok := r.edges[keyOf(c, d)]; ok {
			continue
		}
		if inCircle(pts[a], pts[b], pts[c], pts[d]) <= area*ext*ext {
			continue
		}
		// the quad a, d, b, c must stay convex
		if orient(pts[a], pts[d], pts[c]) <= area || orient(pts[d], pts[b], pts[c]) <= area {
			continue
		}

		// (a, b, c) and (b, a, d) become (a, d, c) and (d, b, c)
		delete(r.edges, key)
		r.tris[t1] = [3]int{a, d, c}
		r.tris[t2] = [3]int{d, b, c}
		r.reown(keyOf(a, d), t2, t1)
		r.reown(keyOf(b, c), t1, t2)
		r.edges[keyOf(c, d)] = []int{t1, t2}
		flips++
		queue = append(queue, keyOf(a, d), keyOf(d, b), keyOf(b, c), keyOf(c, a))
	}
}

// inCircle is positive when d lies inside the circle through the
// counter-clockwise triangle a, b, c.
func inCircle(a, b, c, d geom.Vec2) float64 {
	adx, ady := a.X-d.X, a.Y-d.Y
	bdx, bdy := b.X-d.X, b.Y-d.Y
	cdx, cdy := c.X-d.X, c.Y-d.Y
	ad := adx*adx + ady*ady
	bd := bdx*bdx + bdy*bdy
	cd := cdx*cdx + cdy*cdy
	return ad*(bdx*cdy-cdx*bdy) - bd*(adx*cdy-cdx*ady) + cd*(adx*bdy-bdx*ady)
}
