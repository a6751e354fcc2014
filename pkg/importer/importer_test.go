package importer_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/entity/jsonfmt"
	"github.com/chazu/brep/pkg/entity/sexp"
	"github.com/chazu/brep/pkg/importer"
	"github.com/chazu/brep/pkg/internal/fixture"
	"github.com/chazu/brep/pkg/topology"
)

func encodeJSON(t *testing.T, doc *entity.Document) []byte {
	t.Helper()
	data, err := jsonfmt.Encode(doc)
	require.NoError(t, err)
	return data
}

// TestImportCube exercises the full pipeline on the unit cube in both wire
// formats.
func TestImportCube(t *testing.T) {
	for name, data := range map[string][]byte{
		"json": encodeJSON(t, fixture.Cube()),
		"sexp": sexp.Encode(fixture.Cube()),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := importer.Import(context.Background(), data, importer.DefaultOptions())
			require.NoError(t, err)

			_, err = uuid.Parse(res.RunID)
			assert.NoError(t, err)
			assert.Equal(t, topology.Counts{Vertices: 8, Edges: 12, Loops: 6, Faces: 6, Shells: 1, Solids: 1}, res.Graph.Counts())
			assert.True(t, res.Report.OK())
			assert.Empty(t, res.FaceFailures)
			assert.Empty(t, res.SolidFailures)

			require.Len(t, res.Solids, 1)
			m := res.Solids[0].Mesh
			assert.Equal(t, 12, m.TriangleCount())
			assert.Equal(t, 24, m.VertexCount())
			assert.Equal(t, res.Solids[0].Source.String(), m.PartName)
			assert.Equal(t, 12, res.Mesh.TriangleCount())

			b := res.Bounds()
			assert.InDelta(t, 0, b.Min.X, 1e-9)
			assert.InDelta(t, 1, b.Max.Z, 1e-9)

			ex := res.Export()
			require.Len(t, ex.Meshes, 1)
			assert.NotEmpty(t, ex.Meshes[0].Color)
			assert.Equal(t, res.RunID, ex.RunID)
			assert.Empty(t, ex.Errors)
		})
	}
}

func TestImportCylinder(t *testing.T) {
	doc, _ := fixture.Cylinder()
	opts := importer.DefaultOptions()
	opts.Tolerance = 0.005
	res, err := importer.Import(context.Background(), encodeJSON(t, doc), opts)
	require.NoError(t, err)
	require.Len(t, res.Solids, 1)

	b := res.Solids[0].Mesh.Bounds()
	assert.InDelta(t, -1, b.Min.X, 1e-6)
	assert.InDelta(t, 1, b.Max.Y, 0.01)
	assert.InDelta(t, 2, b.Max.Z, 1e-6)
	assert.Greater(t, res.Mesh.TriangleCount(), 100)
}

func TestImportForcedFormat(t *testing.T) {
	data := encodeJSON(t, fixture.Cube())

	opts := importer.DefaultOptions()
	opts.Format = "sexp"
	_, err := importer.Import(context.Background(), data, opts)
	assert.ErrorIs(t, err, entity.ErrMalformedDocument)

	opts.Format = "step"
	_, err = importer.Import(context.Background(), data, opts)
	assert.ErrorIs(t, err, importer.ErrUnknownFormat)

	opts.Format = "json"
	_, err = importer.Import(context.Background(), data, opts)
	assert.NoError(t, err)
}

func TestImportDecodeErrors(t *testing.T) {
	for name, src := range map[string]string{
		"empty":   "",
		"garbage": "STEP;",
		"syntax":  "(brep :version 1",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := importer.Import(context.Background(), []byte(src), importer.DefaultOptions())
			assert.Nil(t, res)
			assert.ErrorIs(t, err, entity.ErrMalformedDocument)
		})
	}
}

// TestImportDanglingEdge checks that a resolution error rejects the whole
// document and names the offending ids.
func TestImportDanglingEdge(t *testing.T) {
	doc, edge := fixture.DanglingEdge()
	res, err := importer.ImportDocument(context.Background(), doc, importer.DefaultOptions())
	assert.Nil(t, res)
	require.ErrorIs(t, err, topology.ErrDanglingReference)

	var te *topology.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []entity.ID{edge, 9999}, te.IDs)
}

func flippedPair() *entity.Document {
	b := fixture.NewBuilder()
	b.BuildCube(true, nil, nil)
	b.BuildCube(true, nil, map[int]bool{2: true})
	return b.Doc
}

func TestImportPartial(t *testing.T) {
	opts := importer.DefaultOptions()
	_, err := importer.ImportDocument(context.Background(), flippedPair(), opts)
	assert.ErrorIs(t, err, topology.ErrInconsistentOrientation)

	opts.AllowPartial = true
	res, err := importer.ImportDocument(context.Background(), flippedPair(), opts)
	require.NoError(t, err)
	require.Len(t, res.Solids, 1)
	require.Len(t, res.SolidFailures, 1)
	assert.Equal(t, topology.InconsistentOrientation, res.SolidFailures[0].Code)
	assert.Equal(t, 12, res.Mesh.TriangleCount())

	ex := res.Export()
	require.Len(t, ex.Errors, 1)
	assert.Equal(t, "InconsistentOrientation", ex.Errors[0].Code)
	// the two cubes share corner positions without sharing vertices
	assert.NotEmpty(t, ex.Warnings)
}

func TestImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := importer.ImportDocument(ctx, fixture.Cube(), importer.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportInvalidTolerance(t *testing.T) {
	opts := importer.DefaultOptions()
	opts.Tolerance = -1
	_, err := importer.ImportDocument(context.Background(), fixture.Cube(), opts)
	assert.Error(t, err)
}
