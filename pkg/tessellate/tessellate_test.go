package tessellate_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/geom"
	"github.com/chazu/brep/pkg/internal/fixture"
	"github.com/chazu/brep/pkg/mesh"
	"github.com/chazu/brep/pkg/tessellate"
	"github.com/chazu/brep/pkg/topology"
)

func graphOf(t *testing.T, doc *entity.Document) *topology.Graph {
	t.Helper()
	g, err := topology.Build(doc, topology.Options{})
	require.NoError(t, err)
	return g
}

func run(t *testing.T, doc *entity.Document, tol float64) (*topology.Graph, *tessellate.Result) {
	t.Helper()
	g := graphOf(t, doc)
	res, err := tessellate.Tessellate(context.Background(), g, tessellate.Options{Tolerance: tol})
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	return g, res
}

func triNormal(tri [3]geom.Vec3) geom.Vec3 {
	n, _ := geom.Unit(tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])))
	return n
}

func triArea(tri [3]geom.Vec3) float64 {
	return tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])).Length() / 2
}

func vec(a [3]float64) geom.Vec3 { return geom.Vec3{X: a[0], Y: a[1], Z: a[2]} }

func TestCube(t *testing.T) {
	_, res := run(t, fixture.Cube(), 0.01)
	require.Len(t, res.Faces, 6)

	total := 0
	for i, fm := range res.Faces {
		require.NotNil(t, fm)
		want := vec(fixture.CubeFaces[i].Normal)
		assert.Equal(t, 2, fm.TriangleCount(), "face %d", i)
		for k := range fm.TriangleCount() {
			assert.InDelta(t, 1, triNormal(fm.Triangle(k)).Dot(want), 1e-9, "face %d triangle %d", i, k)
		}
		for _, n := range fm.Normals {
			assert.InDelta(t, 1, n.Dot(want), 1e-9)
		}
		total += fm.TriangleCount()
	}
	assert.Equal(t, 12, total)
}

// axisDeviation measures how far the midpoint of every triangle edge of
// the cylinder's side lies from the radius-1 surface.
func axisDeviation(fm *mesh.FaceMesh) float64 {
	worst := 0.0
	for k := range fm.TriangleCount() {
		tri := fm.Triangle(k)
		for i := range 3 {
			m := geom.Lerp(tri[i], tri[(i+1)%3], 0.5)
			worst = math.Max(worst, 1-math.Hypot(m.X, m.Y))
		}
	}
	return worst
}

func TestCylinderTolerance(t *testing.T) {
	doc, ids := fixture.Cylinder()
	g := graphOf(t, doc)
	side, ok := g.Lookup(ids.Side)
	require.True(t, ok)

	counts := make(map[float64]int)
	deviation := make(map[float64]float64)
	for _, tol := range []float64{0.1, 0.01, 0.001} {
		res, err := tessellate.Tessellate(context.Background(), g, tessellate.Options{Tolerance: tol})
		require.NoError(t, err)
		require.Empty(t, res.Failures)

		fm := res.Faces[side]
		require.NotNil(t, fm)
		deviation[tol] = axisDeviation(fm)
		assert.LessOrEqual(t, deviation[tol], tol+1e-9, "tolerance %v", tol)
		for i, p := range fm.Positions {
			assert.InDelta(t, 1, math.Hypot(p.X, p.Y), 1e-9, "vertex %d off the surface", i)
			assert.InDelta(t, 0, fm.Normals[i].Dot(geom.Vec3{Z: 1}), 1e-9)
		}
		for k := range fm.TriangleCount() {
			tri := fm.Triangle(k)
			c := tri[0].Add(tri[1]).Add(tri[2]).MulScalar(1.0 / 3)
			out := geom.Vec3{X: c.X, Y: c.Y}
			assert.Greater(t, triNormal(tri).Dot(out), 0.0, "triangle %d faces inward", k)
		}
		for _, f := range res.Faces {
			counts[tol] += f.TriangleCount()
		}
	}
	assert.Less(t, counts[0.1], counts[0.01])
	assert.Less(t, counts[0.01], counts[0.001])
	assert.Less(t, deviation[0.01], deviation[0.1])
	assert.Less(t, deviation[0.001], deviation[0.01])

	// the side needs about two triangles per boundary segment, not a
	// cascade of slivers
	res, err := tessellate.Tessellate(context.Background(), g, tessellate.Options{Tolerance: 0.001})
	require.NoError(t, err)
	assert.Less(t, res.Faces[side].TriangleCount(), 1000)
}

// edgeKey identifies a directed mesh edge by its rounded end positions.
func edgeKey(a, b geom.Vec3) string {
	r := func(p geom.Vec3) string { return fmt.Sprintf("%.9f,%.9f,%.9f", p.X, p.Y, p.Z) }
	return r(a) + ">" + r(b)
}

func TestClosedSolidsAreWatertight(t *testing.T) {
	cyl, _ := fixture.Cylinder()
	band, _ := fixture.Band()
	sphere, _ := fixture.Sphere()
	for name, doc := range map[string]*entity.Document{
		"cube":     fixture.Cube(),
		"cylinder": cyl,
		"band":     band,
		"sphere":   sphere,
	} {
		t.Run(name, func(t *testing.T) {
			_, res := run(t, doc, 0.02)
			directed := make(map[string]int)
			for _, fm := range res.Faces {
				for k := range fm.TriangleCount() {
					tri := fm.Triangle(k)
					for i := range 3 {
						directed[edgeKey(tri[i], tri[(i+1)%3])]++
					}
				}
			}
			for key, n := range directed {
				assert.Equal(t, 1, n, "edge %s used %d times in one direction", key, n)
			}
			for _, fm := range res.Faces {
				for k := range fm.TriangleCount() {
					tri := fm.Triangle(k)
					for i := range 3 {
						back := edgeKey(tri[(i+1)%3], tri[i])
						assert.Equal(t, 1, directed[back], "edge %s has no opposite", back)
					}
				}
			}
		})
	}
}

func TestDeterministic(t *testing.T) {
	doc, _ := fixture.Cylinder()
	_, a := run(t, doc, 0.005)
	_, b := run(t, doc, 0.005)
	require.Len(t, b.Faces, len(a.Faces))
	for i := range a.Faces {
		assert.Equal(t, a.Faces[i].Positions, b.Faces[i].Positions)
		assert.Equal(t, a.Faces[i].Indices, b.Faces[i].Indices)
	}
}

func TestPlateWithHole(t *testing.T) {
	_, res := run(t, fixture.PlateWithHole(), 0.01)
	require.Len(t, res.Faces, 1)
	fm := res.Faces[0]

	area := 0.0
	for k := range fm.TriangleCount() {
		tri := fm.Triangle(k)
		area += triArea(tri)
		assert.InDelta(t, 1, triNormal(tri).Z, 1e-9)
		c := tri[0].Add(tri[1]).Add(tri[2]).MulScalar(1.0 / 3)
		inHole := c.X > 1 && c.X < 3 && c.Y > 1 && c.Y < 3
		assert.False(t, inHole, "triangle %d covers the hole", k)
	}
	assert.InDelta(t, 12, area, 1e-9)
}

func TestPatch(t *testing.T) {
	g, res := run(t, fixture.Patch(), 0.005)
	fm := res.Faces[0]
	require.NotNil(t, fm)
	surf := g.Face(0).Surface

	area := 0.0
	for k := range fm.TriangleCount() {
		tri := fm.Triangle(k)
		area += triArea(tri)
		assert.Greater(t, triNormal(tri).Z, 0.0)
	}
	// the bulge is larger than its flat footprint
	assert.Greater(t, area, 2.0)

	for i, p := range fm.Positions {
		uv := fm.UV[i]
		assert.InDelta(t, 0, geom.Dist(geom.SurfacePos(surf, uv.X, uv.Y), p), 1e-6, "vertex %d", i)
	}
	for k := range len(fm.Indices) / 3 {
		for i := range 3 {
			a, b := fm.Indices[3*k+i], fm.Indices[3*k+(i+1)%3]
			m := geom.Mid2(fm.UV[a], fm.UV[b])
			chord := geom.Lerp(fm.Positions[a], fm.Positions[b], 0.5)
			assert.LessOrEqual(t, geom.Dist(geom.SurfacePos(surf, m.X, m.Y), chord), 0.005*1.01+1e-9)
		}
	}
}

func TestReversedSense(t *testing.T) {
	b := fixture.NewBuilder()
	v := func(x, y float64) entity.ID { return b.Vertex([3]float64{x, y, 0}) }
	loop := b.Polygon(v(0, 0), v(0, 1), v(1, 1), v(1, 0))
	face := b.Face(b.Plane([3]float64{0, 0, 0}, [3]float64{0, 0, 1}, [3]float64{1, 0, 0}), false, loop)
	shell := b.Add(entity.KindShell, nil, face)
	b.Add(entity.KindSolid, []float64{0}, shell)

	_, res := run(t, b.Doc, 0.01)
	fm := res.Faces[0]
	require.Equal(t, 2, fm.TriangleCount())
	for k := range fm.TriangleCount() {
		assert.InDelta(t, -1, triNormal(fm.Triangle(k)).Z, 1e-9)
	}
	for _, n := range fm.Normals {
		assert.InDelta(t, -1, n.Z, 1e-9)
	}
}

func TestDegenerateFaceIsIsolated(t *testing.T) {
	b := fixture.NewBuilder()
	vb := b.Vertex([3]float64{1, 0, 0})
	circle := b.Add(entity.KindCircle, []float64{0, 0, 0, 0, 0, 1, 1, 0, 0, 1})
	edge := b.Add(entity.KindEdge, []float64{0, 2 * math.Pi}, vb, vb, circle)

	// A single loop around the cylinder has no pole to close against.
	cyl := b.Add(entity.KindCylinder, []float64{0, 0, 0, 0, 0, 1, 1, 0, 0, 1})
	band := b.Face(cyl, true, b.Add(entity.KindLoop, []float64{1}, edge))
	disk := b.Face(b.Plane([3]float64{0, 0, 0}, [3]float64{0, 0, -1}, [3]float64{1, 0, 0}), true,
		b.Add(entity.KindLoop, []float64{0}, edge))
	shell := b.Add(entity.KindShell, nil, band, disk)
	b.Add(entity.KindSolid, []float64{0}, shell)

	g := graphOf(t, b.Doc)
	res, err := tessellate.Tessellate(context.Background(), g, tessellate.Options{Tolerance: 0.01})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, band, res.Failures[0].Source)
	assert.ErrorIs(t, res.Failures[0], tessellate.ErrDegenerateFace)

	bandID, _ := g.Lookup(band)
	diskID, _ := g.Lookup(disk)
	assert.Nil(t, res.Faces[bandID])
	require.NotNil(t, res.Faces[diskID])
	assert.Positive(t, res.Faces[diskID].TriangleCount())
}

func TestInvalidTolerance(t *testing.T) {
	g := graphOf(t, fixture.Cube())
	for _, tol := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
		_, err := tessellate.Tessellate(context.Background(), g, tessellate.Options{Tolerance: tol})
		assert.ErrorIs(t, err, tessellate.ErrInvalidTolerance, "tolerance %v", tol)
	}
}

func TestCancelled(t *testing.T) {
	g := graphOf(t, fixture.Cube())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := tessellate.Tessellate(ctx, g, tessellate.Options{Tolerance: 0.01})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, res)
}

func TestEdgeCacheSharedEndpoints(t *testing.T) {
	doc, ids := fixture.Cylinder()
	g := graphOf(t, doc)
	cache := tessellate.NewEdgeCache(g, 0.01, 20)

	e, _ := g.Lookup(ids.BottomEdge)
	pl := cache.Polyline(topology.EdgeID(e))
	require.Greater(t, len(pl), 4)
	assert.Equal(t, pl[0].Pos, pl[len(pl)-1].Pos)
	for i := 1; i < len(pl); i++ {
		mid := geom.Lerp(pl[i-1].Pos, pl[i].Pos, 0.5)
		assert.LessOrEqual(t, 1-math.Hypot(mid.X, mid.Y), 0.01+1e-12)
	}
}

func TestSphere(t *testing.T) {
	const tol = 0.01
	doc, ids := fixture.Sphere()
	g, res := run(t, doc, tol)

	area := 0.0
	for name, src := range map[string]entity.ID{"upper": ids.Upper, "lower": ids.Lower} {
		id, ok := g.Lookup(src)
		require.True(t, ok)
		fm := res.Faces[id]
		require.NotNil(t, fm, name)
		require.Positive(t, fm.TriangleCount(), name)

		poles := 0
		for i, p := range fm.Positions {
			assert.InDelta(t, 1, p.Length(), 1e-9, "%s vertex %d off the sphere", name, i)
			assert.Greater(t, fm.Normals[i].Dot(p), 0.99, "%s normal %d", name, i)
			if math.Abs(math.Abs(p.Z)-1) < 1e-9 {
				poles++
			}
		}
		assert.Equal(t, 1, poles, "%s pole vertices", name)

		for k := range fm.TriangleCount() {
			tri := fm.Triangle(k)
			area += triArea(tri)
			c := tri[0].Add(tri[1]).Add(tri[2])
			assert.Greater(t, triNormal(tri).Dot(c), 0.0, "%s triangle %d faces inward", name, k)
			for i := range 3 {
				m := geom.Lerp(tri[i], tri[(i+1)%3], 0.5)
				assert.LessOrEqual(t, 1-m.Length(), tol+1e-9, "%s triangle %d", name, k)
			}
		}
	}
	assert.InEpsilon(t, 4*math.Pi, area, 0.05)
}

func TestBandWithoutSeam(t *testing.T) {
	doc, ids := fixture.Band()
	g, res := run(t, doc, 0.01)
	side, ok := g.Lookup(ids.Side)
	require.True(t, ok)
	fm := res.Faces[side]
	require.NotNil(t, fm)

	for i, p := range fm.Positions {
		assert.InDelta(t, 1, math.Hypot(p.X, p.Y), 1e-9, "vertex %d off the surface", i)
	}
	area := 0.0
	for k := range fm.TriangleCount() {
		tri := fm.Triangle(k)
		area += triArea(tri)
		c := tri[0].Add(tri[1]).Add(tri[2])
		assert.Greater(t, triNormal(tri).Dot(geom.Vec3{X: c.X, Y: c.Y}), 0.0, "triangle %d faces inward", k)
	}
	assert.InEpsilon(t, 4*math.Pi, area, 0.01)
	assert.LessOrEqual(t, axisDeviation(fm), 0.01+1e-9)
}

func TestTriangleBudget(t *testing.T) {
	g := graphOf(t, fixture.Patch())
	res, err := tessellate.Tessellate(context.Background(), g, tessellate.Options{Tolerance: 0.001, MaxTriangles: 8})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], tessellate.ErrTriangleBudget)
	assert.Equal(t, g.Face(0).Source, res.Failures[0].Source)
	assert.Nil(t, res.Faces[0])

	res, err = tessellate.Tessellate(context.Background(), g, tessellate.Options{Tolerance: 0.001})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
}
