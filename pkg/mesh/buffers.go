package mesh

import (
	"encoding/binary"
	"math"
)

// VertexStride is the size in bytes of one interleaved vertex: position
// then normal, three float32 each.
const VertexStride = 24

// Interleaved returns position and normal per vertex as one float32
// stream, the layout a vertex buffer with two vec3 attributes expects.
func (m *IndexedMesh) Interleaved() []float32 {
	n := m.VertexCount()
	out := make([]float32, 0, 6*n)
	for i := range n {
		out = append(out, m.Vertices[3*i:3*i+3]...)
		out = append(out, m.Normals[3*i:3*i+3]...)
	}
	return out
}

// VertexBytes is Interleaved encoded little-endian, ready for upload.
func (m *IndexedMesh) VertexBytes() []byte {
	f := m.Interleaved()
	buf := make([]byte, 4*len(f))
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	IndexUint16 IndexFormat = iota + 1
	IndexUint32
)

func (f IndexFormat) String() string {
	switch f {
	case IndexUint16:
		return "uint16"
	case IndexUint32:
		return "uint32"
	}
	return "unknown"
}

// Size returns the element size in bytes.
func (f IndexFormat) Size() int {
	if f == IndexUint16 {
		return 2
	}
	return 4
}

// IndexBuffer is an encoded triangle index list.
type IndexBuffer struct {
	Format IndexFormat
	Count  int
	Data   []byte // little-endian
}

// IndexBuffer encodes the indices with 16-bit elements when every vertex
// index fits, and 32-bit elements otherwise.
func (m *IndexedMesh) IndexBuffer() IndexBuffer {
	format := IndexUint32
	if m.VertexCount() <= math.MaxUint16+1 {
		format = IndexUint16
	}
	ib := IndexBuffer{Format: format, Count: len(m.Indices)}
	ib.Data = make([]byte, format.Size()*len(m.Indices))
	for i, idx := range m.Indices {
		if format == IndexUint16 {
			binary.LittleEndian.PutUint16(ib.Data[2*i:], uint16(idx))
		} else {
			binary.LittleEndian.PutUint32(ib.Data[4*i:], idx)
		}
	}
	return ib
}
