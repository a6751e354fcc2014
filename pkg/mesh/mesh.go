// Package mesh merges per-face triangle sets into indexed meshes ready
// for a rendering backend, and writes them in common interchange formats.
package mesh

import (
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/geom"
	"github.com/chazu/brep/pkg/topology"
)

// FaceMesh is the triangulation of a single face. Positions, Normals and
// UV are parallel; Indices holds three entries per triangle, wound
// counter-clockwise around the outward normal.
type FaceMesh struct {
	Face      topology.FaceID
	Source    entity.ID
	Positions []geom.Vec3
	Normals   []geom.Vec3
	UV        []geom.Vec2 // surface parameters of each vertex
	Indices   []uint32
}

// TriangleCount returns the number of triangles.
func (f *FaceMesh) TriangleCount() int {
	return len(f.Indices) / 3
}

// IsEmpty reports whether the face produced no triangles.
func (f *FaceMesh) IsEmpty() bool {
	return len(f.Indices) == 0
}

// Triangle returns the corner positions of triangle i.
func (f *FaceMesh) Triangle(i int) [3]geom.Vec3 {
	return [3]geom.Vec3{
		f.Positions[f.Indices[3*i]],
		f.Positions[f.Indices[3*i+1]],
		f.Positions[f.Indices[3*i+2]],
	}
}

// IndexedMesh is a triangle mesh suitable for rendering.
// All arrays are flat: Vertices has 3 floats per vertex (x,y,z),
// Normals has 3 floats per vertex, Indices has 3 entries per triangle and
// FaceIDs names the source face of each triangle.
type IndexedMesh struct {
	Vertices []float32   `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32   `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32    `json:"indices"`  // [i0,i1,i2, ...] triangles
	FaceIDs  []entity.ID `json:"faceIds"`  // one per triangle
	PartName string      `json:"partName"` // source solid
}

// VertexCount returns the number of vertices.
func (m *IndexedMesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *IndexedMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *IndexedMesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Position returns vertex i.
func (m *IndexedMesh) Position(i int) geom.Vec3 {
	return geom.Vec3{X: float64(m.Vertices[3*i]), Y: float64(m.Vertices[3*i+1]), Z: float64(m.Vertices[3*i+2])}
}

// Normal returns the normal of vertex i.
func (m *IndexedMesh) Normal(i int) geom.Vec3 {
	return geom.Vec3{X: float64(m.Normals[3*i]), Y: float64(m.Normals[3*i+1]), Z: float64(m.Normals[3*i+2])}
}

// Bounds returns the axis-aligned box around all vertices. An empty mesh
// has an inverted box.
func (m *IndexedMesh) Bounds() sdf.Box3 {
	box := geom.EmptyBox()
	for i := range m.VertexCount() {
		box = geom.Include(box, m.Position(i))
	}
	return box
}

// Merge concatenates meshes into one, offsetting indices. Vertices are not
// shared between the inputs.
func Merge(name string, meshes ...*IndexedMesh) *IndexedMesh {
	out := &IndexedMesh{PartName: name}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		base := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, m.Vertices...)
		out.Normals = append(out.Normals, m.Normals...)
		for _, idx := range m.Indices {
			out.Indices = append(out.Indices, base+idx)
		}
		out.FaceIDs = append(out.FaceIDs, m.FaceIDs...)
	}
	return out
}
