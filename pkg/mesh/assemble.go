package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/chazu/brep/pkg/geom"
	"github.com/chazu/brep/pkg/topology"
)

// ErrAssemblyMismatch means the face meshes handed to Assemble do not
// correspond to the solid's faces. It indicates a caller bug.
var ErrAssemblyMismatch = errors.New("assembly mismatch")

// normalTolerance is the cosine above which two normals are treated as
// equal when merging vertices.
var normalTolerance = math.Cos(1e-4)

// Assemble merges the face meshes of a solid into one indexed mesh.
// faces must hold one entry per face of the solid, in SolidFaces order; an
// entry may be nil when that face failed to tessellate. Vertices are
// shared when their positions agree within eps and their normals agree,
// so smooth regions are welded while creases keep distinct normals.
func Assemble(g *topology.Graph, solid topology.SolidID, faces []*FaceMesh, eps float64) (*IndexedMesh, error) {
	if int(solid) < 0 || int(solid) >= len(g.Solids) {
		return nil, fmt.Errorf("mesh: solid %d does not exist: %w", solid, ErrAssemblyMismatch)
	}
	want := g.SolidFaces(solid)
	if len(faces) != len(want) {
		return nil, fmt.Errorf("mesh: solid %s has %d faces, got %d meshes: %w",
			g.Solid(solid).Source, len(want), len(faces), ErrAssemblyMismatch)
	}
	for i, fm := range faces {
		if fm == nil {
			continue
		}
		if fm.Face != want[i] {
			return nil, fmt.Errorf("mesh: slot %d holds face %s, want %s: %w",
				i, fm.Source, g.Face(want[i]).Source, ErrAssemblyMismatch)
		}
		if err := checkFaceMesh(fm); err != nil {
			return nil, err
		}
	}

	w := newWelder(eps)
	out := &IndexedMesh{PartName: g.Solid(solid).Source.String()}
	for _, fm := range faces {
		if fm == nil {
			continue
		}
		local := make([]uint32, len(fm.Positions))
		for i := range fm.Positions {
			local[i] = w.add(fm.Positions[i], fm.Normals[i])
		}
		for _, idx := range fm.Indices {
			out.Indices = append(out.Indices, local[idx])
		}
		for range fm.TriangleCount() {
			out.FaceIDs = append(out.FaceIDs, fm.Source)
		}
	}
	out.Vertices, out.Normals = w.buffers()
	return out, nil
}

func checkFaceMesh(fm *FaceMesh) error {
	n := len(fm.Positions)
	if len(fm.Normals) != n || len(fm.Indices)%3 != 0 {
		return fmt.Errorf("mesh: face %s has %d positions, %d normals, %d indices: %w",
			fm.Source, n, len(fm.Normals), len(fm.Indices), ErrAssemblyMismatch)
	}
	for _, idx := range fm.Indices {
		if int(idx) >= n {
			return fmt.Errorf("mesh: face %s index %d out of range: %w", fm.Source, idx, ErrAssemblyMismatch)
		}
	}
	return nil
}

type weldEntry struct {
	index uint32
	pos   geom.Vec3
	n     geom.Vec3
	rect  rtreego.Rect
}

func (e *weldEntry) Bounds() rtreego.Rect { return e.rect }

// welder deduplicates vertices through an R-tree of positions.
type welder struct {
	eps     float64
	tree    *rtreego.Rtree
	entries []*weldEntry
}

func newWelder(eps float64) *welder {
	if !(eps > 0) {
		eps = 1e-12
	}
	return &welder{eps: eps, tree: rtreego.NewTree(3, 4, 32)}
}

func (w *welder) add(p, n geom.Vec3) uint32 {
	rect := rtreego.Point{p.X, p.Y, p.Z}.ToRect(w.eps)
	best := -1
	for _, hit := range w.tree.SearchIntersect(rect) {
		e := hit.(*weldEntry)
		if geom.Dist(e.pos, p) <= w.eps && e.n.Dot(n) >= normalTolerance {
			if best < 0 || int(e.index) < best {
				best = int(e.index)
			}
		}
	}
	if best >= 0 {
		return uint32(best)
	}
	e := &weldEntry{index: uint32(len(w.entries)), pos: p, n: n, rect: rect}
	w.entries = append(w.entries, e)
	w.tree.Insert(e)
	return e.index
}

func (w *welder) buffers() ([]float32, []float32) {
	verts := make([]float32, 0, 3*len(w.entries))
	norms := make([]float32, 0, 3*len(w.entries))
	for _, e := range w.entries {
		verts = append(verts, float32(e.pos.X), float32(e.pos.Y), float32(e.pos.Z))
		norms = append(norms, float32(e.n.X), float32(e.n.Y), float32(e.n.Z))
	}
	return verts, norms
}
