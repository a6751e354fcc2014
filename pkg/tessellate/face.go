package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/brep/pkg/geom"
	"github.com/chazu/brep/pkg/mesh"
	"github.com/chazu/brep/pkg/topology"
)

// domain is a 2D embedding of the boundary in which to triangulate.
type domain struct {
	pts    []geom.Vec2
	flip   bool // counter-clockwise here is clockwise around the surface normal
	planar bool
}

// newell returns the area-weighted normal of a closed 3D polygon.
func newell(pos []geom.Vec3, idx []int) geom.Vec3 {
	var n geom.Vec3
	for i := range idx {
		a, b := pos[idx[i]], pos[idx[(i+1)%len(idx)]]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// planarDomain projects the boundary onto the plane of the outer loop's
// Newell normal. It is used when the surface faces one way over the whole
// boundary and the projected loops are simple.
func planarDomain(s geom.Surface, b *boundary, eps float64) (*domain, bool) {
	n, ok := geom.Unit(newell(b.pos, b.loops[0]))
	if !ok {
		return nil, false
	}
	sign := 0.0
	for i := range b.pos {
		uv := clampUV(s, b.uv[i])
		sp, err := geom.EvalSurface(s, uv.X, uv.Y)
		if err != nil {
			return nil, false
		}
		d := sp.Normal.Dot(n)
		if math.Abs(d) < 0.05 || (sign != 0 && math.Signbit(d) != math.Signbit(sign)) {
			return nil, false
		}
		sign = d
	}

	x, _ := geom.Unit(perpendicular(n))
	y := n.Cross(x)
	origin := b.pos[b.loops[0][0]]
	d := &domain{pts: make([]geom.Vec2, len(b.pos)), flip: sign < 0, planar: true}
	for i, p := range b.pos {
		r := p.Sub(origin)
		d.pts[i] = geom.Vec2{X: r.Dot(x), Y: r.Dot(y)}
	}
	if !simple(d.pts, b.loops, eps*extent(d.pts)*extent(d.pts)) {
		return nil, false
	}
	return d, true
}

// parameterDomain triangulates directly in surface parameters, where
// counter-clockwise is always counter-clockwise around the normal.
func parameterDomain(b *boundary, eps float64) (*domain, bool) {
	ext := extent(b.uv)
	for _, p := range b.uv {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, false
		}
	}
	if !simple(b.uv, b.loops, eps*ext*ext) {
		return nil, false
	}
	return &domain{pts: b.uv}, true
}

func perpendicular(n geom.Vec3) geom.Vec3 {
	ref := geom.Vec3{X: 1}
	if math.Abs(n.X) > 0.9 {
		ref = geom.Vec3{Y: 1}
	}
	return ref.Sub(n.MulScalar(ref.Dot(n)))
}

// clampUV keeps non-periodic parameters inside the domain.
func clampUV(s geom.Surface, uv geom.Vec2) geom.Vec2 {
	dom := geom.DomainOfSurface(s)
	if !dom.PeriodicU {
		uv.X = dom.U.Clamp(uv.X)
	}
	if !dom.PeriodicV {
		uv.Y = dom.V.Clamp(uv.Y)
	}
	return uv
}

// metricOf returns the mean length of the surface's partial derivatives
// over the samples, which converts parameter steps into surface lengths.
func metricOf(s geom.Surface, uv []geom.Vec2) geom.Vec2 {
	var m geom.Vec2
	n := 0
	for _, p := range uv {
		p = clampUV(s, p)
		sp, err := geom.EvalSurface(s, p.X, p.Y)
		if err != nil {
			continue
		}
		m.X += sp.DU.Length()
		m.Y += sp.DV.Length()
		n++
	}
	if n > 0 {
		m = m.MulScalar(1 / float64(n))
	}
	if !(m.X > relEps) {
		m.X = 1
	}
	if !(m.Y > relEps) {
		m.Y = 1
	}
	return m
}

// relEps is the relative tolerance for area and collinearity tests, scaled
// by the square of a domain's extent.
const relEps = 1e-12

// Face tessellates a single face. Boundary samples come from cache, so
// faces sharing an edge agree on it exactly. The interior is triangulated
// in a planar projection when one is valid and in surface parameters
// otherwise, flipped toward a Delaunay triangulation, then refined until
// every interior edge midpoint is within opts.Tolerance of the surface.
// A face whose loops enclose no area yields an empty mesh. A face that
// needs more than opts.MaxTriangles triangles fails with
// ErrTriangleBudget.
func Face(g *topology.Graph, cache *EdgeCache, id topology.FaceID, opts Options) (*mesh.FaceMesh, error) {
	opts = opts.withDefaults()
	if err := checkTolerance(opts.Tolerance); err != nil {
		return nil, err
	}
	f := g.Face(id)
	out := &mesh.FaceMesh{Face: id, Source: f.Source}

	b, err := sampleBoundary(g, cache, f, opts.Tolerance, opts.MaxDepth)
	if err != nil {
		return nil, err
	}

	area3 := newell(b.pos, b.loops[0]).Length() / 2
	areaUV := math.Abs(signedArea(b.uv, b.loops[0]))
	scale := extent(b.uv)
	if area3 <= relEps*math.Max(1, boxDiag(b.pos)) && areaUV <= relEps*math.Max(1, scale*scale) {
		return out, nil
	}

	var d *domain
	ok := false
	if !b.synthetic {
		d, ok = planarDomain(f.Surface, b, relEps)
	}
	if !ok {
		if d, ok = parameterDomain(b, relEps); !ok {
			return nil, degenerate("loops of face on surface %s self-intersect in every projection", f.SurfaceSource)
		}
	}

	outer := b.loops[0]
	holes := b.loops[1:]
	if signedArea(d.pts, outer) < 0 {
		outer = reversed(outer)
		for i, h := range holes {
			holes[i] = reversed(h)
		}
	}
	for i, h := range holes {
		if signedArea(d.pts, h) > 0 {
			holes[i] = reversed(h)
		}
	}

	ext := extent(d.pts)
	tris, forced := triangulate(d.pts, outer, holes, relEps*ext*ext)
	if forced > 0 {
		opts.Logger.Debug("forced ear clips", "face", f.Source.String(), "count", forced)
	}
	if len(tris) == 0 {
		return out, nil
	}

	bnd := make(map[edgeKey]bool)
	for _, l := range b.loops {
		for i := range l {
			bnd[keyOf(l[i], l[(i+1)%len(l)])] = true
		}
	}
	metric := metricOf(f.Surface, b.uv)
	flipPts := d.pts
	if !d.planar {
		flipPts = make([]geom.Vec2, len(b.uv))
		for i, p := range b.uv {
			flipPts[i] = geom.Vec2{X: p.X * metric.X, Y: p.Y * metric.Y}
		}
	}
	r := newRefiner(f.Surface, opts.Tolerance, opts.MaxTriangles, metric, b, tris, bnd)
	r.delaunay(flipPts, relEps)
	if len(r.tris) > opts.MaxTriangles || r.run() {
		return nil, fmt.Errorf("face on surface %s needs more than %d triangles: %w", f.SurfaceSource, opts.MaxTriangles, ErrTriangleBudget)
	}

	// Samples that repeat a point, along a seam or at a pole, collapse
	// onto the first; triangles left with two equal corners have no area.
	remap := make([]uint32, len(r.pos))
	for i := range r.pos {
		c := r.canon[i]
		if c == i {
			remap[i] = uint32(len(out.Positions))
			n := normalAt(f.Surface, r.uv[i])
			if !f.Sense {
				n = n.MulScalar(-1)
			}
			out.Positions = append(out.Positions, r.pos[i])
			out.UV = append(out.UV, r.uv[i])
			out.Normals = append(out.Normals, n)
			continue
		}
		remap[i] = remap[c]
	}

	// Triangles are counter-clockwise in the domain; make them
	// counter-clockwise around the outward normal.
	reverse := d.flip != !f.Sense
	out.Indices = make([]uint32, 0, 3*len(r.tris))
	for _, t := range r.tris {
		i, j, k := remap[t[0]], remap[t[1]], remap[t[2]]
		if i == j || j == k || k == i {
			continue
		}
		if reverse {
			j, k = k, j
		}
		out.Indices = append(out.Indices, i, j, k)
	}
	return out, nil
}

func normalAt(s geom.Surface, uv geom.Vec2) geom.Vec3 {
	uv = clampUV(s, uv)
	sp, err := geom.EvalSurface(s, uv.X, uv.Y)
	if err != nil {
		return geom.Vec3{}
	}
	return sp.Normal
}

func boxDiag(pos []geom.Vec3) float64 {
	box := geom.EmptyBox()
	for _, p := range pos {
		box = geom.Include(box, p)
	}
	if geom.IsEmptyBox(box) {
		return 0
	}
	return box.Max.Sub(box.Min).Length()
}

func reversed(idx []int) []int {
	out := make([]int, len(idx))
	for i, v := range idx {
		out[len(idx)-1-i] = v
	}
	return out
}
