package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/brep/pkg/geom"
)

// Triangles converts the mesh to sdfx triangles.
func (m *IndexedMesh) Triangles() []*sdf.Triangle3 {
	tris := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for i := range m.TriangleCount() {
		tris = append(tris, &sdf.Triangle3{
			m.Position(int(m.Indices[3*i])),
			m.Position(int(m.Indices[3*i+1])),
			m.Position(int(m.Indices[3*i+2])),
		})
	}
	return tris
}

// SaveSTL writes the mesh to a binary STL file at path.
func SaveSTL(path string, m *IndexedMesh) error {
	if err := render.SaveSTL(path, m.Triangles()); err != nil {
		return fmt.Errorf("mesh: save stl %s: %w", path, err)
	}
	return nil
}

// WriteSTL writes the mesh as binary STL: an 80 byte header, a triangle
// count, then per triangle a facet normal, three corners and a zero
// attribute word.
func WriteSTL(w io.Writer, m *IndexedMesh) error {
	bw := bufio.NewWriter(w)
	var header [80]byte
	copy(header[:], "brep "+m.PartName)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("mesh: write stl: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(m.TriangleCount())); err != nil {
		return fmt.Errorf("mesh: write stl: %w", err)
	}

	buf := make([]byte, 4*3*4+2)
	put := func(off int, v geom.Vec3) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v.X)))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(v.Y)))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(v.Z)))
	}
	for i := range m.TriangleCount() {
		a := m.Position(int(m.Indices[3*i]))
		b := m.Position(int(m.Indices[3*i+1]))
		c := m.Position(int(m.Indices[3*i+2]))
		n, _ := geom.Unit(b.Sub(a).Cross(c.Sub(a)))
		put(0, n)
		put(12, a)
		put(24, b)
		put(36, c)
		buf[48], buf[49] = 0, 0
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("mesh: write stl: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("mesh: write stl: %w", err)
	}
	return nil
}
