// Package fixture builds small BREP documents shared by the tests of
// several packages.
package fixture

import (
	"math"

	"github.com/chazu/brep/pkg/entity"
)

// Builder assembles a document, allocating ids sequentially.
type Builder struct {
	Doc   *entity.Document
	next  entity.ID
	edges map[[2]entity.ID]entity.ID
	pos   map[entity.ID][3]float64
}

// NewBuilder starts an empty version 1 document.
func NewBuilder() *Builder {
	return &Builder{
		Doc:   entity.NewDocument(1),
		edges: make(map[[2]entity.ID]entity.ID),
		pos:   make(map[entity.ID][3]float64),
	}
}

// Add appends an entity and returns its id. It panics on a malformed
// entity, since fixtures are fixed.
func (b *Builder) Add(kind entity.Kind, payload []float64, refs ...entity.ID) entity.ID {
	b.next++
	e := &entity.RawEntity{ID: b.next, Kind: kind, Payload: payload, References: refs}
	if err := b.Doc.Add(e); err != nil {
		panic(err)
	}
	return e.ID
}

// Vertex adds a vertex at p.
func (b *Builder) Vertex(p [3]float64) entity.ID {
	id := b.Add(entity.KindVertex, p[:])
	b.pos[id] = p
	return id
}

// LineEdge returns the straight edge between two vertices, creating it on
// first use. The boolean reports whether the edge runs from a to b.
func (b *Builder) LineEdge(a, c entity.ID) (entity.ID, bool) {
	if id, ok := b.edges[[2]entity.ID{a, c}]; ok {
		return id, true
	}
	if id, ok := b.edges[[2]entity.ID{c, a}]; ok {
		return id, false
	}
	pa, pc := b.pos[a], b.pos[c]
	line := b.Add(entity.KindLine, []float64{pa[0], pa[1], pa[2], pc[0], pc[1], pc[2]})
	id := b.Add(entity.KindEdge, []float64{0, 1}, a, c, line)
	b.edges[[2]entity.ID{a, c}] = id
	return id, true
}

// Polygon adds a loop of straight edges through the given vertices.
func (b *Builder) Polygon(verts ...entity.ID) entity.ID {
	var refs []entity.ID
	var dirs []float64
	for i, v := range verts {
		e, fwd := b.LineEdge(v, verts[(i+1)%len(verts)])
		refs = append(refs, e)
		dirs = append(dirs, flag(fwd))
	}
	return b.Add(entity.KindLoop, dirs, refs...)
}

// Plane adds a plane surface.
func (b *Builder) Plane(origin, normal, xdir [3]float64) entity.ID {
	return b.Add(entity.KindPlane, cat(origin[:], normal[:], xdir[:]))
}

// Face adds a face on surface with the given loops.
func (b *Builder) Face(surface entity.ID, sense bool, loops ...entity.ID) entity.ID {
	return b.Add(entity.KindFace, []float64{flag(sense)}, append([]entity.ID{surface}, loops...)...)
}

func flag(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func cat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// CubeFace describes one face of the unit cube.
type CubeFace struct {
	Normal [3]float64
	Xdir   [3]float64
	Origin [3]float64
	Corner [4][3]int // counter-clockwise around Normal
}

// CubeFaces lists the six faces of the unit cube [0,1]^3.
var CubeFaces = []CubeFace{
	{Normal: [3]float64{0, 0, -1}, Xdir: [3]float64{1, 0, 0}, Origin: [3]float64{0, 0, 0}, Corner: [4][3]int{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}}},
	{Normal: [3]float64{0, 0, 1}, Xdir: [3]float64{1, 0, 0}, Origin: [3]float64{0, 0, 1}, Corner: [4][3]int{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}},
	{Normal: [3]float64{0, -1, 0}, Xdir: [3]float64{1, 0, 0}, Origin: [3]float64{0, 0, 0}, Corner: [4][3]int{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}}},
	{Normal: [3]float64{0, 1, 0}, Xdir: [3]float64{1, 0, 0}, Origin: [3]float64{0, 1, 0}, Corner: [4][3]int{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}}},
	{Normal: [3]float64{-1, 0, 0}, Xdir: [3]float64{0, 1, 0}, Origin: [3]float64{0, 0, 0}, Corner: [4][3]int{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}}},
	{Normal: [3]float64{1, 0, 0}, Xdir: [3]float64{0, 1, 0}, Origin: [3]float64{1, 0, 0}, Corner: [4][3]int{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}}},
}

// CubeIDs records the ids of a cube built by BuildCube.
type CubeIDs struct {
	Vertices map[[3]int]entity.ID
	Faces    []entity.ID
	Shell    entity.ID
	Solid    entity.ID
}

// BuildCube adds the closed unit cube to b. skip names face indexes to
// leave out and flip names faces whose sense is declared the wrong way.
func (b *Builder) BuildCube(closed bool, skip, flip map[int]bool) CubeIDs {
	ids := CubeIDs{Vertices: make(map[[3]int]entity.ID)}
	for x := 0; x <= 1; x++ {
		for y := 0; y <= 1; y++ {
			for z := 0; z <= 1; z++ {
				c := [3]int{x, y, z}
				ids.Vertices[c] = b.Vertex([3]float64{float64(x), float64(y), float64(z)})
			}
		}
	}
	for i, f := range CubeFaces {
		if skip[i] {
			continue
		}
		var vs []entity.ID
		for _, c := range f.Corner {
			vs = append(vs, ids.Vertices[c])
		}
		loop := b.Polygon(vs...)
		surf := b.Plane(f.Origin, f.Normal, f.Xdir)
		ids.Faces = append(ids.Faces, b.Face(surf, !flip[i], loop))
	}
	ids.Shell = b.Add(entity.KindShell, nil, ids.Faces...)
	ids.Solid = b.Add(entity.KindSolid, []float64{flag(closed)}, ids.Shell)
	return ids
}

// Cube returns the closed unit cube: 8 vertices, 12 edges, 6 faces,
// 1 shell, 1 solid.
func Cube() *entity.Document {
	b := NewBuilder()
	b.BuildCube(true, nil, nil)
	return b.Doc
}

// OpenBox is the unit cube without its top face, marked open.
func OpenBox() *entity.Document {
	b := NewBuilder()
	b.BuildCube(false, map[int]bool{1: true}, nil)
	return b.Doc
}

// CylinderIDs records the ids of a cylinder built by BuildCylinder.
type CylinderIDs struct {
	Side, Bottom, Top entity.ID
	BottomEdge        entity.ID
	TopEdge           entity.ID
	Seam              entity.ID
	Solid             entity.ID
}

// BuildCylinder adds a closed cylinder of radius r and height h standing
// on the origin along +Z. The side face is bounded by the two circles and
// a seam line used once in each direction.
func (b *Builder) BuildCylinder(r, h float64) CylinderIDs {
	return b.buildCylinder(r, h, true)
}

// BuildBand is BuildCylinder without the seam: the side face has one loop
// per circle, each winding once around the axis.
func (b *Builder) BuildBand(r, h float64) CylinderIDs {
	return b.buildCylinder(r, h, false)
}

func (b *Builder) buildCylinder(r, h float64, seam bool) CylinderIDs {
	var ids CylinderIDs
	vb := b.Vertex([3]float64{r, 0, 0})
	vt := b.Vertex([3]float64{r, 0, h})

	cb := b.Add(entity.KindCircle, []float64{0, 0, 0, 0, 0, 1, 1, 0, 0, r})
	ct := b.Add(entity.KindCircle, []float64{0, 0, h, 0, 0, 1, 1, 0, 0, r})
	ids.BottomEdge = b.Add(entity.KindEdge, []float64{0, 2 * math.Pi}, vb, vb, cb)
	ids.TopEdge = b.Add(entity.KindEdge, []float64{0, 2 * math.Pi}, vt, vt, ct)

	cyl := b.Add(entity.KindCylinder, []float64{0, 0, 0, 0, 0, 1, 1, 0, 0, r})
	if seam {
		seamLine := b.Add(entity.KindLine, []float64{r, 0, 0, r, 0, h})
		ids.Seam = b.Add(entity.KindEdge, []float64{0, 1}, vb, vt, seamLine)
		sideLoop := b.Add(entity.KindLoop, []float64{1, 1, 0, 0}, ids.BottomEdge, ids.Seam, ids.TopEdge, ids.Seam)
		ids.Side = b.Face(cyl, true, sideLoop)
	} else {
		lower := b.Add(entity.KindLoop, []float64{1}, ids.BottomEdge)
		upper := b.Add(entity.KindLoop, []float64{0}, ids.TopEdge)
		ids.Side = b.Face(cyl, true, lower, upper)
	}

	bottomLoop := b.Add(entity.KindLoop, []float64{0}, ids.BottomEdge)
	ids.Bottom = b.Face(b.Plane([3]float64{0, 0, 0}, [3]float64{0, 0, -1}, [3]float64{1, 0, 0}), true, bottomLoop)

	topLoop := b.Add(entity.KindLoop, []float64{1}, ids.TopEdge)
	ids.Top = b.Face(b.Plane([3]float64{0, 0, h}, [3]float64{0, 0, 1}, [3]float64{1, 0, 0}), true, topLoop)

	shell := b.Add(entity.KindShell, nil, ids.Side, ids.Bottom, ids.Top)
	ids.Solid = b.Add(entity.KindSolid, []float64{1}, shell)
	return ids
}

// Cylinder returns a closed cylinder of radius 1 and height 2.
func Cylinder() (*entity.Document, CylinderIDs) {
	b := NewBuilder()
	ids := b.BuildCylinder(1, 2)
	return b.Doc, ids
}

// Band returns a closed cylinder of radius 1 and height 2 whose side face
// has no seam.
func Band() (*entity.Document, CylinderIDs) {
	b := NewBuilder()
	ids := b.BuildBand(1, 2)
	return b.Doc, ids
}

// SphereIDs records the ids of a sphere built by BuildSphere.
type SphereIDs struct {
	Upper, Lower entity.ID
	Equator      entity.ID
	Solid        entity.ID
}

// BuildSphere adds a closed sphere of radius r centred on the origin,
// made of two hemispheres that share the equator circle as their only
// edge.
func (b *Builder) BuildSphere(r float64) SphereIDs {
	var ids SphereIDs
	v := b.Vertex([3]float64{r, 0, 0})
	circle := b.Add(entity.KindCircle, []float64{0, 0, 0, 0, 0, 1, 1, 0, 0, r})
	ids.Equator = b.Add(entity.KindEdge, []float64{0, 2 * math.Pi}, v, v, circle)

	sphere := b.Add(entity.KindSphere, []float64{0, 0, 0, 0, 0, 1, 1, 0, 0, r})
	ids.Upper = b.Face(sphere, true, b.Add(entity.KindLoop, []float64{1}, ids.Equator))
	ids.Lower = b.Face(sphere, true, b.Add(entity.KindLoop, []float64{0}, ids.Equator))

	shell := b.Add(entity.KindShell, nil, ids.Upper, ids.Lower)
	ids.Solid = b.Add(entity.KindSolid, []float64{1}, shell)
	return ids
}

// Sphere returns the closed unit sphere built by BuildSphere.
func Sphere() (*entity.Document, SphereIDs) {
	b := NewBuilder()
	ids := b.BuildSphere(1)
	return b.Doc, ids
}

// DanglingEdge returns the unit cube with the start vertex of one edge
// pointing at a missing id. It also returns that edge's id.
func DanglingEdge() (*entity.Document, entity.ID) {
	doc := Cube()
	e := doc.OfKind(entity.KindEdge)[0]
	e.References[0] = 9999
	return doc, e.ID
}

// PlateWithHole returns a square plate 4x4 on the XY plane with a square
// hole in the middle, as a single open face.
func PlateWithHole() *entity.Document {
	b := NewBuilder()
	v := func(x, y float64) entity.ID { return b.Vertex([3]float64{x, y, 0}) }
	outer := b.Polygon(v(0, 0), v(4, 0), v(4, 4), v(0, 4))
	hole := b.Polygon(v(1, 1), v(1, 3), v(3, 3), v(3, 1))
	face := b.Face(b.Plane([3]float64{0, 0, 0}, [3]float64{0, 0, 1}, [3]float64{1, 0, 0}), true, outer, hole)
	shell := b.Add(entity.KindShell, nil, face)
	b.Add(entity.KindSolid, []float64{0}, shell)
	return b.Doc
}

// Patch returns a single open face on a rational B-spline surface that
// bulges up in the middle, bounded by two B-spline curves and two lines.
func Patch() *entity.Document {
	b := NewBuilder()
	v00 := b.Vertex([3]float64{0, 0, 0})
	v10 := b.Vertex([3]float64{2, 0, 0})
	v11 := b.Vertex([3]float64{2, 1, 0})
	v01 := b.Vertex([3]float64{0, 1, 0})

	knots := []float64{0, 0, 0, 1, 1, 1}
	row := func(y float64) entity.ID {
		return b.Add(entity.KindBSplineCurve, cat([]float64{2, 3}, knots,
			[]float64{0, y, 0, 1, 1, y, 1, 1, 2, y, 0, 1}))
	}
	e0 := b.Add(entity.KindEdge, []float64{0, 1}, v00, v10, row(0))
	e1, _ := b.LineEdge(v10, v11)
	e2 := b.Add(entity.KindEdge, []float64{0, 1}, v01, v11, row(1))
	e3, _ := b.LineEdge(v01, v00)

	surf := b.Add(entity.KindBSplineSurface, cat(
		[]float64{2, 1, 3, 2},
		knots,
		[]float64{0, 0, 1, 1},
		[]float64{
			0, 0, 0, 1, 0, 1, 0, 1,
			1, 0, 1, 1, 1, 1, 1, 1,
			2, 0, 0, 1, 2, 1, 0, 1,
		},
	))
	loop := b.Add(entity.KindLoop, []float64{1, 1, 0, 1}, e0, e1, e2, e3)
	face := b.Face(surf, true, loop)
	shell := b.Add(entity.KindShell, nil, face)
	b.Add(entity.KindSolid, []float64{0}, shell)
	return b.Doc
}
