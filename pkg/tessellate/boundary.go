package tessellate

import (
	"math"

	"github.com/chazu/brep/pkg/geom"
	"github.com/chazu/brep/pkg/topology"
)

// boundary is a face's loops sampled from the edge cache and mapped into
// the surface's parameter space. Index i of pos and uv is one sample;
// loops lists sample indexes per loop, outer first. Samples added to close
// the domain at a seam or a pole repeat the position of an earlier sample,
// which canon records.
type boundary struct {
	pos   []geom.Vec3
	uv    []geom.Vec2
	canon []int
	loops [][]int

	// synthetic is set once seam or pole samples exist; such a boundary
	// only makes sense in parameter space.
	synthetic bool
}

// add appends a sample. of is the sample it duplicates, or -1.
func (b *boundary) add(p geom.Vec3, uv geom.Vec2, of int) int {
	i := len(b.pos)
	b.pos = append(b.pos, p)
	b.uv = append(b.uv, uv)
	if of < 0 {
		b.canon = append(b.canon, i)
		return i
	}
	b.canon = append(b.canon, b.canon[of])
	b.synthetic = true
	return i
}

// sampledLoop is one loop in parameter space. shift is how far u moves
// over one traversal: zero for a loop that closes, plus or minus the
// period for one that winds around a periodic u.
type sampledLoop struct {
	idx   []int
	shift float64
}

// sampleLoop maps the samples of loop l into parameter space, unwrapping
// periodic parameters so the loop is continuous. A sample at a singular
// point such as a sphere pole takes u from its predecessor and, when its
// successor arrives at another u, is repeated there so the pole becomes a
// segment of the domain.
func (b *boundary) sampleLoop(g *topology.Graph, cache *EdgeCache, f *topology.Face, l topology.LoopID, hint geom.Vec2, hinted bool) (sampledLoop, error) {
	s := f.Surface
	start := len(b.pos)
	for _, u := range g.Loop(l).Uses {
		for _, smp := range cache.Use(u) {
			b.add(smp.Pos, geom.Vec2{}, -1)
		}
	}
	n := len(b.pos) - start
	if n == 0 {
		return sampledLoop{}, degenerate("empty loop on surface %s", f.SurfaceSource)
	}

	raw := make([]geom.Vec2, n)
	det := make([]bool, n)
	f0 := -1
	for i := range n {
		raw[i], det[i] = geom.Project(s, b.pos[start+i])
		if det[i] && f0 < 0 {
			f0 = i
		}
	}
	if f0 < 0 {
		return sampledLoop{}, degenerate("loop lies on a singular point of surface %s", f.SurfaceSource)
	}

	// uv in traversal order from f0; NaN u marks an undetermined sample
	uv := make([]geom.Vec2, n)
	last := raw[f0]
	if hinted {
		last = hint
	}
	lo, hi := geom.Vec2{X: math.Inf(1), Y: math.Inf(1)}, geom.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}
	for k := range n {
		i := (f0 + k) % n
		if !det[i] {
			uv[k] = geom.Vec2{X: math.NaN(), Y: raw[i].Y}
			continue
		}
		uv[k], _ = geom.ProjectNear(s, b.pos[start+i], last)
		last = uv[k]
		lo = geom.Vec2{X: math.Min(lo.X, last.X), Y: math.Min(lo.Y, last.Y)}
		hi = geom.Vec2{X: math.Max(hi.X, last.X), Y: math.Max(hi.Y, last.Y)}
	}
	tol := 1e-6 * math.Max(1, math.Max(hi.X-lo.X, hi.Y-lo.Y))

	back, _ := geom.ProjectNear(s, b.pos[start+f0], last)
	d := back.Sub(uv[0])
	dom := geom.DomainOfSurface(s)
	var shift float64
	switch period := dom.U.Width(); {
	case math.Abs(d.Y) > tol:
		return sampledLoop{}, degenerate("loop does not close in the parameter domain of surface %s", f.SurfaceSource)
	case math.Abs(d.X) <= tol:
	case dom.PeriodicU && math.Abs(math.Abs(d.X)-period) <= tol:
		shift = math.Copysign(period, d.X)
	default:
		return sampledLoop{}, degenerate("loop does not close in the parameter domain of surface %s", f.SurfaceSource)
	}

	lp := sampledLoop{shift: shift}
	lastU := uv[0].X
	for k := range n {
		i := start + (f0+k)%n
		if !math.IsNaN(uv[k].X) {
			b.uv[i] = uv[k]
			lastU = uv[k].X
			lp.idx = append(lp.idx, i)
			continue
		}
		next := uv[0].X + shift
		for _, w := range uv[k+1:] {
			if !math.IsNaN(w.X) {
				next = w.X
				break
			}
		}
		b.uv[i] = geom.Vec2{X: lastU, Y: uv[k].Y}
		lp.idx = append(lp.idx, i)
		if math.Abs(next-lastU) > tol {
			lp.idx = append(lp.idx, b.add(b.pos[i], geom.Vec2{X: next, Y: uv[k].Y}, i))
			lastU = next
		}
	}
	return lp, nil
}

// sampleBoundary gathers the edge polylines of every loop of f and maps
// them into the surface's parameter space. Loops that wind around a
// periodic direction are joined into one polygon by closeWrapped.
func sampleBoundary(g *topology.Graph, cache *EdgeCache, f *topology.Face, tol float64, maxDepth int) (*boundary, error) {
	b := &boundary{}
	var center geom.Vec2
	var wraps, plain []sampledLoop
	for li, l := range f.Loops() {
		lp, err := b.sampleLoop(g, cache, f, l, center, li > 0)
		if err != nil {
			return nil, err
		}
		if li == 0 {
			center = meanUV(b.uv, lp.idx)
		}
		if lp.shift != 0 {
			wraps = append(wraps, lp)
		} else {
			plain = append(plain, lp)
		}
	}

	if len(wraps) == 0 {
		for _, lp := range plain {
			b.loops = append(b.loops, lp.idx)
		}
		return b, nil
	}
	if err := b.closeWrapped(f, wraps, plain, tol, maxDepth); err != nil {
		return nil, err
	}
	return b, nil
}

// closeWrapped turns loops that wind around the periodic u direction
// into one simple polygon, which becomes the outer loop. Two such loops
// bound a band; a single one bounds a cap reaching a pole of the surface,
// which is added as a line of samples at the pole's v. The domain is cut
// along a seam from the lower chain to the upper one; the seam is sampled
// once and used on both sides, one period apart.
//
// The polygon runs along the bottom chain toward +u, up the right seam,
// back along the top chain toward -u and down the left seam.
func (b *boundary) closeWrapped(f *topology.Face, wraps, plain []sampledLoop, tol float64, maxDepth int) error {
	s := f.Surface
	dom := geom.DomainOfSurface(s)
	period := dom.U.Width()

	var bottom, top []int
	switch len(wraps) {
	case 1:
		// Loops run counter-clockwise around the face normal, so the face
		// lies to the left of the loop in parameter space when the sense
		// agrees with the surface and to the right otherwise.
		w := wraps[0]
		up := (w.shift > 0) == f.Sense
		v := dom.V.Min
		if up {
			v = dom.V.Max
		}
		pole, ok := poleOf(s, v, period)
		if !ok {
			return degenerate("loop winds around surface %s, which has no pole to close it", f.SurfaceSource)
		}
		if up {
			bottom = heading(w, 1)
			bottom = b.rotate(bottom, seamStart(b.uv, bottom, plain, period), period)
			us := make([]float64, 0, len(bottom)-1)
			for j := len(bottom) - 1; j > 0; j-- {
				us = append(us, b.uv[bottom[j]].X)
			}
			top = b.poleChain(pole, v, b.uv[bottom[0]].X+period, us)
		} else {
			top = heading(w, -1)
			top = b.rotate(top, seamStart(b.uv, top, plain, period), -period)
			us := make([]float64, 0, len(top)-1)
			for j := len(top) - 1; j > 0; j-- {
				us = append(us, b.uv[top[j]].X)
			}
			bottom = b.poleChain(pole, v, b.uv[top[0]].X-period, us)
		}

	case 2:
		lo, hi := wraps[0], wraps[1]
		if meanUV(b.uv, hi.idx).Y < meanUV(b.uv, lo.idx).Y {
			lo, hi = hi, lo
		}
		bottom = heading(lo, 1)
		bottom = b.rotate(bottom, seamStart(b.uv, bottom, plain, period), period)
		u0 := b.uv[bottom[0]].X

		top = heading(hi, -1)
		k, best := 0, math.Inf(1)
		for j, i := range top {
			if d := circular(b.uv[i].X-u0, period); d < best {
				k, best = j, d
			}
		}
		top = b.rotate(top, k, -period)
		first := b.uv[top[0]].X
		delta := geom.Wrap(first, u0+period, dom.U) - first
		for _, i := range top {
			b.uv[i].X += delta
		}

	default:
		return degenerate("%d loops wind around surface %s", len(wraps), f.SurfaceSource)
	}

	bEnd := b.add(b.pos[bottom[0]], b.uv[bottom[0]].Add(geom.Vec2{X: period}), bottom[0])
	tEnd := b.add(b.pos[top[0]], b.uv[top[0]].Sub(geom.Vec2{X: period}), top[0])
	left := b.seam(s, tEnd, bottom[0], tol, maxDepth)

	outer := append([]int(nil), bottom...)
	outer = append(outer, bEnd)
	for j := len(left) - 1; j >= 0; j-- {
		outer = append(outer, b.add(b.pos[left[j]], b.uv[left[j]].Add(geom.Vec2{X: period}), left[j]))
	}
	outer = append(outer, top...)
	outer = append(outer, tEnd)
	outer = append(outer, left...)
	b.loops = [][]int{outer}

	// holes move into the period that starts at the seam
	u0 := b.uv[bottom[0]].X
	for _, h := range plain {
		k := math.Floor((meanUV(b.uv, h.idx).X - u0) / period)
		for _, i := range h.idx {
			b.uv[i].X -= k * period
		}
		b.loops = append(b.loops, h.idx)
	}
	return nil
}

// heading returns the samples of a winding loop ordered so that u moves
// in the direction of dir.
func heading(lp sampledLoop, dir float64) []int {
	if lp.shift*dir > 0 {
		return lp.idx
	}
	return reversed(lp.idx)
}

// rotate makes chain start at position k. The samples moved to the end
// are shifted by the chain's period shift to stay continuous.
func (b *boundary) rotate(chain []int, k int, shift float64) []int {
	for _, i := range chain[:k] {
		b.uv[i].X += shift
	}
	return append(append([]int(nil), chain[k:]...), chain[:k]...)
}

// seamStart picks where to cut a winding chain: the sample whose u is
// furthest, around the period, from every hole.
func seamStart(uv []geom.Vec2, chain []int, holes []sampledLoop, period float64) int {
	best, bestGap := 0, -1.0
	for k, c := range chain {
		gap := math.Inf(1)
		for _, h := range holes {
			for _, i := range h.idx {
				gap = math.Min(gap, circular(uv[i].X-uv[c].X, period))
			}
		}
		if gap > bestGap {
			best, bestGap = k, gap
		}
	}
	return best
}

// circular returns |d| measured around a period.
func circular(d, period float64) float64 {
	d = math.Mod(math.Abs(d), period)
	return math.Min(d, period-d)
}

// poleChain adds samples at a pole: the first at u = first, the rest at
// us. They share one position.
func (b *boundary) poleChain(pole geom.Vec3, v, first float64, us []float64) []int {
	head := b.add(pole, geom.Vec2{X: first, Y: v}, -1)
	chain := []int{head}
	for _, u := range us {
		chain = append(chain, b.add(pole, geom.Vec2{X: u, Y: v}, head))
	}
	return chain
}

// poleOf reports whether s collapses to a single point along the
// parameter line at v, and returns that point.
func poleOf(s geom.Surface, v, period float64) (geom.Vec3, bool) {
	if math.IsInf(v, 0) || math.IsInf(period, 0) {
		return geom.Vec3{}, false
	}
	p := geom.SurfacePos(s, 0, v)
	eps := 1e-9 * math.Max(1, p.Length())
	for _, u := range []float64{period / 4, period / 2, 3 * period / 4} {
		if geom.Dist(geom.SurfacePos(s, u, v), p) > eps {
			return geom.Vec3{}, false
		}
	}
	return p, true
}

// seam samples the parameter segment between two boundary samples until
// the midpoint of every piece is within tol of the surface, and returns
// the new interior samples in order from `from` to `to`.
func (b *boundary) seam(s geom.Surface, from, to int, tol float64, maxDepth int) []int {
	var out []int
	var bisect func(a, c geom.Vec2, pa, pc geom.Vec3, depth int)
	bisect = func(a, c geom.Vec2, pa, pc geom.Vec3, depth int) {
		m := geom.Mid2(a, c)
		pm := geom.SurfacePos(s, m.X, m.Y)
		if depth >= maxDepth || geom.Dist(pm, geom.Lerp(pa, pc, 0.5)) <= tol {
			return
		}
		bisect(a, m, pa, pm, depth+1)
		out = append(out, b.add(pm, m, -1))
		bisect(m, c, pm, pc, depth+1)
	}

	// split up front so a symmetric arc cannot hide its deviation
	const pieces = 4
	a, c := b.uv[from], b.uv[to]
	prev, pprev := a, b.pos[from]
	for i := 1; i <= pieces; i++ {
		q, pq := c, b.pos[to]
		if i < pieces {
			q = a.Add(c.Sub(a).MulScalar(float64(i) / pieces))
			pq = geom.SurfacePos(s, q.X, q.Y)
		}
		bisect(prev, q, pprev, pq, 0)
		if i < pieces {
			out = append(out, b.add(pq, q, -1))
		}
		prev, pprev = q, pq
	}
	return out
}

func meanUV(uv []geom.Vec2, idx []int) geom.Vec2 {
	var m geom.Vec2
	for _, i := range idx {
		m = m.Add(uv[i])
	}
	return m.MulScalar(1 / float64(len(idx)))
}
