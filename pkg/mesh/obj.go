package mesh

import (
	"bufio"
	"fmt"
	"io"
)

// WriteOBJ writes meshes as Wavefront OBJ, one object per mesh, with
// vertex normals. OBJ indices are 1-based and global across objects.
func WriteOBJ(w io.Writer, meshes ...*IndexedMesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# brep")
	base := 1
	for i, m := range meshes {
		name := m.PartName
		if name == "" {
			name = fmt.Sprintf("part%d", i)
		}
		fmt.Fprintf(bw, "o %s\n", name)
		for v := range m.VertexCount() {
			fmt.Fprintf(bw, "v %g %g %g\n", m.Vertices[3*v], m.Vertices[3*v+1], m.Vertices[3*v+2])
		}
		for v := range m.VertexCount() {
			fmt.Fprintf(bw, "vn %g %g %g\n", m.Normals[3*v], m.Normals[3*v+1], m.Normals[3*v+2])
		}
		for t := range m.TriangleCount() {
			a := int(m.Indices[3*t]) + base
			b := int(m.Indices[3*t+1]) + base
			c := int(m.Indices[3*t+2]) + base
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		}
		base += m.VertexCount()
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("mesh: write obj: %w", err)
	}
	return nil
}
