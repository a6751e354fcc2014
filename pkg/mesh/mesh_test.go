package mesh_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/internal/fixture"
	"github.com/chazu/brep/pkg/mesh"
	"github.com/chazu/brep/pkg/tessellate"
	"github.com/chazu/brep/pkg/topology"
)

func faceMeshes(t *testing.T, doc *entity.Document) (*topology.Graph, []*mesh.FaceMesh) {
	t.Helper()
	g, err := topology.Build(doc, topology.Options{})
	require.NoError(t, err)
	res, err := tessellate.Tessellate(context.Background(), g, tessellate.Options{Tolerance: 0.01})
	require.NoError(t, err)
	var out []*mesh.FaceMesh
	for _, f := range g.SolidFaces(0) {
		out = append(out, res.Faces[f])
	}
	return g, out
}

func cubeMesh(t *testing.T) *mesh.IndexedMesh {
	t.Helper()
	g, faces := faceMeshes(t, fixture.Cube())
	m, err := mesh.Assemble(g, 0, faces, 1e-9)
	require.NoError(t, err)
	return m
}

func TestAssembleCube(t *testing.T) {
	m := cubeMesh(t)

	// corners are shared only between faces with the same normal
	assert.Equal(t, 24, m.VertexCount())
	assert.Equal(t, 12, m.TriangleCount())
	assert.Len(t, m.FaceIDs, 12)
	assert.Len(t, m.Normals, len(m.Vertices))

	b := m.Bounds()
	assert.InDelta(t, 0, b.Min.X, 1e-6)
	assert.InDelta(t, 1, b.Max.Y, 1e-6)

	for i := range m.VertexCount() {
		assert.InDelta(t, 1, m.Normal(i).Length(), 1e-6)
	}
	for _, idx := range m.Indices {
		assert.Less(t, int(idx), m.VertexCount())
	}
}

func TestAssembleWeldsSmoothSeams(t *testing.T) {
	doc, ids := fixture.Cylinder()
	g, faces := faceMeshes(t, doc)
	m, err := mesh.Assemble(g, 0, faces, 1e-9)
	require.NoError(t, err)

	side, _ := g.Lookup(ids.Side)
	var sideMesh *mesh.FaceMesh
	for _, fm := range faces {
		if int(fm.Face) == side {
			sideMesh = fm
		}
	}
	require.NotNil(t, sideMesh)

	// The seam samples appear twice in the side face with equal normals,
	// so welding removes them.
	total := 0
	for _, fm := range faces {
		total += len(fm.Positions)
	}
	assert.Less(t, m.VertexCount(), total)
}

func TestAssembleMismatch(t *testing.T) {
	g, faces := faceMeshes(t, fixture.Cube())

	_, err := mesh.Assemble(g, 0, faces[:5], 1e-9)
	assert.ErrorIs(t, err, mesh.ErrAssemblyMismatch)

	swapped := append([]*mesh.FaceMesh(nil), faces...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	_, err = mesh.Assemble(g, 0, swapped, 1e-9)
	assert.ErrorIs(t, err, mesh.ErrAssemblyMismatch)

	_, err = mesh.Assemble(g, 7, faces, 1e-9)
	assert.ErrorIs(t, err, mesh.ErrAssemblyMismatch)

	bad := *faces[2]
	bad.Indices = append([]uint32{99}, bad.Indices[1:]...)
	broken := append([]*mesh.FaceMesh(nil), faces...)
	broken[2] = &bad
	_, err = mesh.Assemble(g, 0, broken, 1e-9)
	assert.ErrorIs(t, err, mesh.ErrAssemblyMismatch)
}

func TestAssembleTakesSolidFaceOrder(t *testing.T) {
	b := fixture.NewBuilder()
	b.BuildCube(true, nil, nil)
	b.BuildCube(true, nil, nil)
	g, err := topology.Build(b.Doc, topology.Options{})
	require.NoError(t, err)
	res, err := tessellate.Tessellate(context.Background(), g, tessellate.Options{Tolerance: 0.01})
	require.NoError(t, err)

	// Result.Faces is indexed by FaceID across every solid
	_, err = mesh.Assemble(g, 1, res.Faces, 1e-9)
	assert.ErrorIs(t, err, mesh.ErrAssemblyMismatch)

	var faces []*mesh.FaceMesh
	for _, f := range g.SolidFaces(1) {
		faces = append(faces, res.Faces[f])
	}
	m, err := mesh.Assemble(g, 1, faces, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, 12, m.TriangleCount())
}

func TestAssembleSkipsFailedFaces(t *testing.T) {
	g, faces := faceMeshes(t, fixture.Cube())
	faces[3] = nil
	m, err := mesh.Assemble(g, 0, faces, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, 10, m.TriangleCount())
	assert.Equal(t, 20, m.VertexCount())
}

func TestMerge(t *testing.T) {
	a := cubeMesh(t)
	b := cubeMesh(t)
	m := mesh.Merge("both", a, nil, b)
	assert.Equal(t, "both", m.PartName)
	assert.Equal(t, 48, m.VertexCount())
	assert.Equal(t, 24, m.TriangleCount())
	assert.Equal(t, a.Indices[0]+24, m.Indices[36])
}

func TestBuffers(t *testing.T) {
	m := cubeMesh(t)

	inter := m.Interleaved()
	require.Len(t, inter, 6*m.VertexCount())
	assert.Equal(t, m.Vertices[3:6], inter[6:9])
	assert.Equal(t, m.Normals[3:6], inter[9:12])

	raw := m.VertexBytes()
	require.Len(t, raw, mesh.VertexStride*m.VertexCount())
	assert.Equal(t, inter[7], math.Float32frombits(binary.LittleEndian.Uint32(raw[28:])))

	ib := m.IndexBuffer()
	assert.Equal(t, mesh.IndexUint16, ib.Format)
	assert.Equal(t, "uint16", ib.Format.String())
	assert.Len(t, ib.Data, 2*len(m.Indices))
	assert.Equal(t, uint16(m.Indices[5]), binary.LittleEndian.Uint16(ib.Data[10:]))
}

func TestIndexBufferWide(t *testing.T) {
	n := math.MaxUint16 + 2
	m := &mesh.IndexedMesh{
		Vertices: make([]float32, 3*n),
		Normals:  make([]float32, 3*n),
		Indices:  []uint32{0, 1, uint32(n - 1)},
	}
	ib := m.IndexBuffer()
	assert.Equal(t, mesh.IndexUint32, ib.Format)
	assert.Equal(t, 4, ib.Format.Size())
	assert.Equal(t, uint32(n-1), binary.LittleEndian.Uint32(ib.Data[8:]))
}

func TestWriteSTL(t *testing.T) {
	m := cubeMesh(t)
	var buf bytes.Buffer
	require.NoError(t, mesh.WriteSTL(&buf, m))

	data := buf.Bytes()
	require.Len(t, data, 84+50*12)
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(data[80:]))
	for i := range 12 {
		rec := data[84+50*i:]
		n := [3]float32{}
		for k := range 3 {
			n[k] = math.Float32frombits(binary.LittleEndian.Uint32(rec[4*k:]))
		}
		assert.InDelta(t, 1, math.Abs(float64(n[0]))+math.Abs(float64(n[1]))+math.Abs(float64(n[2])), 1e-6)
	}
}

func TestSaveSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.stl")
	require.NoError(t, mesh.SaveSTL(path, cubeMesh(t)))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(84+50*12), info.Size())
}

func TestWriteOBJ(t *testing.T) {
	a := cubeMesh(t)
	b := cubeMesh(t)
	b.PartName = ""
	var buf bytes.Buffer
	require.NoError(t, mesh.WriteOBJ(&buf, a, b))

	counts := map[string]int{}
	var faces []string
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		counts[fields[0]]++
		if fields[0] == "f" {
			faces = append(faces, sc.Text())
		}
		if fields[0] == "o" && fields[1] != a.PartName {
			assert.Equal(t, "part1", fields[1])
		}
	}
	assert.Equal(t, 2, counts["o"])
	assert.Equal(t, 48, counts["v"])
	assert.Equal(t, 48, counts["vn"])
	assert.Equal(t, 24, counts["f"])
	// the second object's indices start after the first's vertices
	assert.Contains(t, faces[12], "//")
	assert.NotContains(t, faces[12], " 1//1 ")
}

func TestWriteJSON(t *testing.T) {
	m := cubeMesh(t)
	ex := mesh.NewExport("run-1", m, m)
	ex.Warnings = append(ex.Warnings, mesh.Issue{Code: "CoincidentVertices", IDs: []entity.ID{1, 2}, Message: "distinct vertices coincide"})

	var buf bytes.Buffer
	require.NoError(t, mesh.WriteJSON(&buf, ex))

	var back mesh.Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "run-1", back.RunID)
	require.Len(t, back.Meshes, 2)
	assert.Equal(t, mesh.PartColor(0), back.Meshes[0].Color)
	assert.Equal(t, mesh.PartColor(1), back.Meshes[1].Color)
	assert.Equal(t, m.Indices, back.Meshes[0].Indices)
	assert.Empty(t, back.Errors)
	require.Len(t, back.Warnings, 1)
	assert.Equal(t, []entity.ID{1, 2}, back.Warnings[0].IDs)
}
