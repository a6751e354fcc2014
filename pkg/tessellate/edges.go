package tessellate

import (
	"math"

	"github.com/chazu/brep/pkg/geom"
	"github.com/chazu/brep/pkg/topology"
)

// EdgeSample is one point of an edge polyline.
type EdgeSample struct {
	T   float64
	Pos geom.Vec3
}

// EdgeCache holds one polyline per edge, computed once and shared by every
// face that uses the edge. Faces copy the samples verbatim, which keeps
// the meshes of neighbouring faces free of cracks.
type EdgeCache struct {
	Tolerance float64
	polylines [][]EdgeSample
}

// NewEdgeCache discretizes every edge of g so that the midpoint of each
// polyline segment is within tol of the curve. Polylines start and end
// exactly at the edge's vertices.
func NewEdgeCache(g *topology.Graph, tol float64, maxDepth int) *EdgeCache {
	c := &EdgeCache{Tolerance: tol, polylines: make([][]EdgeSample, len(g.Edges))}
	for i := range g.Edges {
		c.polylines[i] = discretize(g, topology.EdgeID(i), tol, maxDepth)
	}
	return c
}

// Polyline returns the samples of an edge from T0 to T1.
func (c *EdgeCache) Polyline(e topology.EdgeID) []EdgeSample {
	return c.polylines[e]
}

// Use returns the samples of an edge-use in traversal order, excluding
// the final sample, which is the first sample of the next use in the loop.
func (c *EdgeCache) Use(u topology.EdgeUse) []EdgeSample {
	pl := c.polylines[u.Edge]
	out := make([]EdgeSample, 0, len(pl)-1)
	if u.Forward {
		return append(out, pl[:len(pl)-1]...)
	}
	for i := len(pl) - 1; i > 0; i-- {
		out = append(out, pl[i])
	}
	return out
}

// initialSegments splits the range before bisection so that symmetric
// curves cannot hide their deviation at the first midpoint.
func initialSegments(e *topology.Edge) int {
	switch c := e.Curve.(type) {
	case geom.Line:
		return 1
	case geom.Circle:
		return max(2, int(math.Ceil(math.Abs(e.T1-e.T0)/(math.Pi/2))))
	case geom.BSplineCurve:
		lo, hi := math.Min(e.T0, e.T1), math.Max(e.T0, e.T1)
		spans := 0
		for i := c.Degree; i < len(c.Ctrl); i++ {
			if c.Knots[i+1] > lo && c.Knots[i] < hi {
				spans++
			}
		}
		return max(2, spans*c.Degree)
	}
	return 2
}

func discretize(g *topology.Graph, id topology.EdgeID, tol float64, maxDepth int) []EdgeSample {
	e := g.Edge(id)
	n := initialSegments(e)
	at := func(t float64) EdgeSample { return EdgeSample{T: t, Pos: geom.CurvePos(e.Curve, t)} }

	out := []EdgeSample{{T: e.T0, Pos: g.Vertex(e.Start).Pos}}
	var bisect func(a, b EdgeSample, depth int)
	bisect = func(a, b EdgeSample, depth int) {
		m := at((a.T + b.T) / 2)
		if depth < maxDepth && geom.Dist(m.Pos, geom.Lerp(a.Pos, b.Pos, 0.5)) > tol {
			bisect(a, m, depth+1)
			bisect(m, b, depth+1)
			return
		}
		out = append(out, b)
	}
	prev := out[0]
	for i := 1; i <= n; i++ {
		var next EdgeSample
		if i == n {
			next = EdgeSample{T: e.T1, Pos: g.Vertex(e.End).Pos}
		} else {
			next = at(e.T0 + (e.T1-e.T0)*float64(i)/float64(n))
		}
		bisect(prev, next, 0)
		prev = next
	}
	return out
}
