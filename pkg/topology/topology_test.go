package topology_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/internal/fixture"
	"github.com/chazu/brep/pkg/topology"
)

func build(t *testing.T, doc *entity.Document, opts topology.Options) (*topology.Graph, error) {
	t.Helper()
	return topology.Build(doc, opts)
}

func TestCubeCounts(t *testing.T) {
	g, err := build(t, fixture.Cube(), topology.Options{})
	require.NoError(t, err)
	assert.Equal(t, topology.Counts{Vertices: 8, Edges: 12, Loops: 6, Faces: 6, Shells: 1, Solids: 1}, g.Counts())
	assert.Empty(t, g.Failures)

	b := g.Solid(0).Bounds
	assert.InDelta(t, 0, b.Min.X, 1e-12)
	assert.InDelta(t, 1, b.Max.Z, 1e-12)
}

func TestLoopsAreClosed(t *testing.T) {
	cyl, _ := fixture.Cylinder()
	for name, doc := range map[string]*entity.Document{
		"cube":     fixture.Cube(),
		"cylinder": cyl,
		"plate":    fixture.PlateWithHole(),
		"patch":    fixture.Patch(),
	} {
		t.Run(name, func(t *testing.T) {
			g, err := build(t, doc, topology.Options{})
			require.NoError(t, err)
			for _, l := range g.Loops {
				first := g.UseStart(l.Uses[0])
				last := g.UseEnd(l.Uses[len(l.Uses)-1])
				assert.Equal(t, first, last, "loop %s", l.Source)
				for i := 1; i < len(l.Uses); i++ {
					assert.Equal(t, g.UseEnd(l.Uses[i-1]), g.UseStart(l.Uses[i]))
				}
			}
		})
	}
}

func TestClosedSolidEdgeUsage(t *testing.T) {
	cyl, _ := fixture.Cylinder()
	for name, doc := range map[string]*entity.Document{"cube": fixture.Cube(), "cylinder": cyl} {
		t.Run(name, func(t *testing.T) {
			g, err := build(t, doc, topology.Options{})
			require.NoError(t, err)
			count := make(map[topology.EdgeID][]bool)
			for _, l := range g.Loops {
				for _, u := range l.Uses {
					count[u.Edge] = append(count[u.Edge], u.Forward)
				}
			}
			require.Len(t, count, len(g.Edges))
			for e, dirs := range count {
				require.Len(t, dirs, 2, "edge %s", g.Edge(e).Source)
			}
		})
	}
}

func TestDanglingReference(t *testing.T) {
	doc, edge := fixture.DanglingEdge()
	g, err := build(t, doc, topology.Options{AllowPartial: true})
	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, topology.ErrDanglingReference))

	var te *topology.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, edge, te.IDs[0])
	assert.Equal(t, entity.ID(9999), te.IDs[1])
}

func TestWrongKind(t *testing.T) {
	doc := fixture.Cube()
	e := doc.OfKind(entity.KindEdge)[0]
	e.References[2] = doc.OfKind(entity.KindPlane)[0].ID
	_, err := build(t, doc, topology.Options{})
	assert.ErrorIs(t, err, topology.ErrWrongKind)
}

func TestNoSolids(t *testing.T) {
	b := fixture.NewBuilder()
	b.Vertex([3]float64{1, 2, 3})
	_, err := build(t, b.Doc, topology.Options{})
	assert.ErrorIs(t, err, topology.ErrNoSolids)
}

func TestNonManifold(t *testing.T) {
	b := fixture.NewBuilder()
	b.BuildCube(true, map[int]bool{1: true}, nil)
	_, err := build(t, b.Doc, topology.Options{})
	assert.ErrorIs(t, err, topology.ErrNonManifoldEdge)
}

func TestOpenSolidAllowsBoundaryEdges(t *testing.T) {
	g, err := build(t, fixture.OpenBox(), topology.Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, g.Counts().Faces)
	assert.False(t, g.Solid(0).Closed)
}

func TestFlippedFace(t *testing.T) {
	b := fixture.NewBuilder()
	ids := b.BuildCube(true, nil, map[int]bool{3: true})
	_, err := build(t, b.Doc, topology.Options{})
	require.ErrorIs(t, err, topology.ErrInconsistentOrientation)

	var te *topology.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ids.Faces[3], te.IDs[0])
}

func TestVertexOffCurve(t *testing.T) {
	doc := fixture.Cube()
	v := doc.OfKind(entity.KindVertex)[0]
	v.Payload[0] += 0.01
	_, err := build(t, doc, topology.Options{})
	assert.ErrorIs(t, err, topology.ErrVertexOffCurve)

	// a looser epsilon accepts the same document
	_, err = build(t, doc, topology.Options{Epsilon: 0.1})
	assert.NoError(t, err)
}

func TestOpenLoop(t *testing.T) {
	b := fixture.NewBuilder()
	v := func(x, y float64) entity.ID { return b.Vertex([3]float64{x, y, 0}) }
	a, c, d, e := v(0, 0), v(1, 0), v(1, 1), v(0, 1)
	e1, _ := b.LineEdge(a, c)
	e2, _ := b.LineEdge(c, d)
	e3, _ := b.LineEdge(d, e)
	loop := b.Add(entity.KindLoop, []float64{1, 1, 1}, e1, e2, e3)
	face := b.Face(b.Plane([3]float64{}, [3]float64{0, 0, 1}, [3]float64{1, 0, 0}), true, loop)
	shell := b.Add(entity.KindShell, nil, face)
	b.Add(entity.KindSolid, []float64{0}, shell)

	_, err := build(t, b.Doc, topology.Options{})
	require.ErrorIs(t, err, topology.ErrOpenLoop)
	var te *topology.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, loop, te.IDs[0])
}

func TestPartialBuildKeepsValidSolids(t *testing.T) {
	b := fixture.NewBuilder()
	good := b.BuildCube(true, nil, nil)
	bad := b.BuildCube(true, nil, map[int]bool{0: true})

	_, err := build(t, b.Doc, topology.Options{})
	require.ErrorIs(t, err, topology.ErrInconsistentOrientation)

	g, err := build(t, b.Doc, topology.Options{AllowPartial: true, Workers: 2})
	require.NoError(t, err)
	require.Len(t, g.Solids, 1)
	assert.Equal(t, good.Solid, g.Solid(0).Source)
	require.Len(t, g.Failures, 1)
	assert.Contains(t, g.Failures[0].IDs, bad.Faces[0])

	idx, ok := g.Lookup(good.Solid)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	_, ok = g.Lookup(bad.Solid)
	assert.False(t, ok)

	report := g.Validate()
	assert.False(t, report.OK())
	require.Len(t, report.Errors, 1)
	assert.Equal(t, topology.InconsistentOrientation, report.Errors[0].Code)
}

func TestInvalidEpsilon(t *testing.T) {
	_, err := build(t, fixture.Cube(), topology.Options{Epsilon: -1})
	assert.Error(t, err)
}

func TestDegenerateEdgeRange(t *testing.T) {
	doc := fixture.Cube()
	e := doc.OfKind(entity.KindEdge)[0]
	e.Payload[1] = e.Payload[0]
	_, err := build(t, doc, topology.Options{})
	assert.ErrorIs(t, err, topology.ErrDegenerateEntity)
}

func TestValidateWarnings(t *testing.T) {
	b := fixture.NewBuilder()
	b.BuildCube(true, nil, nil)
	stray := b.Add(entity.KindCircle, []float64{0, 0, 0, 0, 0, 1, 1, 0, 0, 1})
	twin := b.Vertex([3]float64{1, 1, 1})

	g, err := build(t, b.Doc, topology.Options{})
	require.NoError(t, err)
	report := g.Validate()
	assert.True(t, report.OK())

	var unreferenced, coincident bool
	for _, w := range report.Warnings {
		assert.Equal(t, topology.SeverityWarning, w.Severity)
		switch w.Message {
		case "unreferenced circle":
			unreferenced = w.IDs[0] == stray
		case "distinct vertices coincide":
			coincident = w.IDs[1] == twin
		}
	}
	assert.True(t, unreferenced, "stray circle not reported")
	assert.True(t, coincident, "coincident vertex not reported")
}

func TestErrorFormatting(t *testing.T) {
	err := &topology.Error{Code: topology.OpenLoop, IDs: []entity.ID{4, 5}, Message: "gap"}
	assert.Equal(t, "topology: OpenLoop: #4,#5: gap", err.Error())
	assert.False(t, errors.Is(err, topology.ErrNonManifoldEdge))
	assert.Equal(t, "Code(99)", topology.Code(99).String())
}
