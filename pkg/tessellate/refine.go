package tessellate

import (
	"math"

	"github.com/chazu/brep/pkg/geom"
)

type edgeKey [2]int

func keyOf(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// refiner subdivides a triangulation until no interior edge's midpoint
// strays more than tol from the surface. A triangle with such an edge is
// refined by longest-edge propagation: follow the chain of neighbours
// across each triangle's longest edge until two triangles share it, and
// bisect that edge. Splitting an edge splits every triangle on it, so the
// mesh stays conforming, and bisecting longest edges only keeps angles
// bounded away from zero.
//
// Boundary edges are never split; their samples belong to the shared edge
// polylines.
type refiner struct {
	surface  geom.Surface
	tol      float64
	maxTris  int
	metric   geom.Vec2 // scale from parameter steps to surface lengths
	pos      []geom.Vec3
	uv       []geom.Vec2
	canon    []int
	tris     [][3]int
	edges    map[edgeKey][]int // triangles on each edge
	boundary map[edgeKey]bool
}

func newRefiner(s geom.Surface, tol float64, maxTris int, metric geom.Vec2, b *boundary, tris [][3]int, bnd map[edgeKey]bool) *refiner {
	r := &refiner{
		surface:  s,
		tol:      tol,
		maxTris:  maxTris,
		metric:   metric,
		pos:      b.pos,
		uv:       b.uv,
		canon:    b.canon,
		tris:     tris,
		edges:    make(map[edgeKey][]int),
		boundary: bnd,
	}
	for t, tri := range tris {
		for k := range 3 {
			key := keyOf(tri[k], tri[(k+1)%3])
			r.edges[key] = append(r.edges[key], t)
		}
	}
	return r
}

// chordError is the distance between the surface at the parametric
// midpoint of an edge and the midpoint of its chord.
func (r *refiner) chordError(a, b int) float64 {
	m := geom.Mid2(r.uv[a], r.uv[b])
	p := geom.SurfacePos(r.surface, m.X, m.Y)
	return geom.Dist(p, geom.Lerp(r.pos[a], r.pos[b], 0.5))
}

func (r *refiner) length(key edgeKey) float64 {
	d := r.uv[key[0]].Sub(r.uv[key[1]])
	return math.Hypot(d.X*r.metric.X, d.Y*r.metric.Y)
}

// longer orders edges by length, breaking ties by index so that every
// triangle has exactly one longest edge.
func (r *refiner) longer(e, f edgeKey) bool {
	if le, lf := r.length(e), r.length(f); le != lf {
		return le > lf
	}
	if e[0] != f[0] {
		return e[0] < f[0]
	}
	return e[1] < f[1]
}

func (r *refiner) splittable(key edgeKey) bool {
	return !r.boundary[key] && r.uv[key[0]].Sub(r.uv[key[1]]).Length() >= 1e-12
}

func (r *refiner) bad(key edgeKey) bool {
	return r.splittable(key) && r.chordError(key[0], key[1]) > r.tol
}

// longest returns the longest edge of t that may be split.
func (r *refiner) longest(t int) (edgeKey, bool) {
	var best edgeKey
	found := false
	tri := r.tris[t]
	for k := range 3 {
		key := keyOf(tri[k], tri[(k+1)%3])
		if r.splittable(key) && (!found || r.longer(key, best)) {
			best, found = key, true
		}
	}
	return best, found
}

func (r *refiner) needsSplit(t int) bool {
	tri := r.tris[t]
	for k := range 3 {
		if r.bad(keyOf(tri[k], tri[(k+1)%3])) {
			return true
		}
	}
	return false
}

// terminal walks the longest-edge propagation path from t and returns the
// edge at its end: one that is the longest of every triangle on it.
func (r *refiner) terminal(t int) (edgeKey, bool) {
	e, ok := r.longest(t)
	if !ok {
		return e, false
	}
	for {
		owners := r.edges[e]
		if len(owners) != 2 {
			return e, true
		}
		next := owners[0]
		if next == t {
			next = owners[1]
		}
		f, _ := r.longest(next)
		if f == e {
			return e, true
		}
		t, e = next, f
	}
}

// run refines until every interior edge is within tolerance. It reports
// whether it stopped because the triangle budget would be exceeded.
func (r *refiner) run() bool {
	var queued []bool
	var work []int
	push := func(t int) {
		for len(queued) <= t {
			queued = append(queued, false)
		}
		if !queued[t] && r.needsSplit(t) {
			queued[t] = true
			work = append(work, t)
		}
	}
	for t := range r.tris {
		push(t)
	}

	for len(work) > 0 {
		t := work[0]
		work = work[1:]
		queued[t] = false
		if !r.needsSplit(t) {
			continue
		}
		key, ok := r.terminal(t)
		if !ok {
			continue
		}
		if len(r.tris)+len(r.edges[key]) > r.maxTris {
			return true
		}
		for _, u := range r.split(key) {
			push(u)
		}
		push(t)
	}
	return false
}

// split bisects edge key at its parametric midpoint and returns the
// triangles that changed or were created.
func (r *refiner) split(key edgeKey) []int {
	a, b := key[0], key[1]
	muv := geom.Mid2(r.uv[a], r.uv[b])
	mpos := geom.SurfacePos(r.surface, muv.X, muv.Y)
	m := len(r.pos)
	r.pos = append(r.pos, mpos)
	r.uv = append(r.uv, muv)

	// between two copies of a pole the midpoint is the pole again
	c := m
	if r.canon[a] == r.canon[b] && geom.Dist(mpos, r.pos[a]) <= 1e-9*math.Max(1, mpos.Length()) {
		c = r.canon[a]
	}
	r.canon = append(r.canon, c)

	owners := r.edges[key]
	delete(r.edges, key)
	var touched []int
	for _, t := range owners {
		p, q, o := r.around(t, key)

		// (p, q, o) becomes (p, m, o) and (m, q, o)
		nt := len(r.tris)
		r.tris[t] = [3]int{p, m, o}
		r.tris = append(r.tris, [3]int{m, q, o})
		r.reown(keyOf(q, o), t, nt)
		r.edges[keyOf(p, m)] = append(r.edges[keyOf(p, m)], t)
		r.edges[keyOf(m, q)] = append(r.edges[keyOf(m, q)], nt)
		r.edges[keyOf(m, o)] = append(r.edges[keyOf(m, o)], t, nt)
		touched = append(touched, t, nt)
	}
	return touched
}

// around returns the vertices of triangle t rotated so that key runs
// from p to q; o is the opposite vertex.
func (r *refiner) around(t int, key edgeKey) (p, q, o int) {
	tri := r.tris[t]
	k := 0
	for keyOf(tri[k], tri[(k+1)%3]) != key {
		k++
	}
	return tri[k], tri[(k+1)%3], tri[(k+2)%3]
}

// reown moves edge key from triangle from to triangle to.
func (r *refiner) reown(key edgeKey, from, to int) {
	for i, owner := range r.edges[key] {
		if owner == from {
			r.edges[key][i] = to
		}
	}
}
