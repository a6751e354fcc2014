package topology

import (
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/geom"
)

// Handles into the Graph's arenas.
type (
	VertexID int
	EdgeID   int
	LoopID   int
	FaceID   int
	ShellID  int
	SolidID  int
)

// Vertex is a point shared by edge endpoints.
type Vertex struct {
	Source entity.ID
	Pos    geom.Vec3
}

// Edge is the part of a curve between two vertices. For periodic curves
// T1 > T0 always holds; a closed edge spans a full period.
type Edge struct {
	Source      entity.ID
	Start, End  VertexID
	Curve       geom.Curve
	CurveSource entity.ID
	T0, T1      float64
}

// EdgeUse is an edge traversed by a loop. Forward runs from Start to End.
type EdgeUse struct {
	Edge    EdgeID
	Forward bool
}

// Loop is a closed chain of edge-uses, counter-clockwise around the
// surface normal for outer loops and clockwise for holes.
type Loop struct {
	Source entity.ID
	Uses   []EdgeUse
	Face   FaceID
}

// Face is a region of a surface bounded by one outer loop and any number
// of hole loops. Sense is true when the surface normal points out of the
// solid.
type Face struct {
	Source        entity.ID
	Surface       geom.Surface
	SurfaceSource entity.ID
	Outer         LoopID
	Holes         []LoopID
	Sense         bool
	Shell         ShellID
}

// Loops returns the outer loop followed by the holes.
func (f *Face) Loops() []LoopID {
	return append([]LoopID{f.Outer}, f.Holes...)
}

// Shell is a connected set of faces.
type Shell struct {
	Source entity.ID
	Faces  []FaceID
	Solid  SolidID
}

// Solid owns an outer shell and optional void shells. Open solids allow
// boundary edges used by a single face.
type Solid struct {
	Source entity.ID
	Outer  ShellID
	Voids  []ShellID
	Closed bool
	Bounds sdf.Box3
}

// Shells returns the outer shell followed by the voids.
func (s *Solid) Shells() []ShellID {
	return append([]ShellID{s.Outer}, s.Voids...)
}

// Graph is the resolved topology of one document. Solids lists only the
// solids that passed validation; with partial builds the rejected ones are
// described in Failures.
type Graph struct {
	Vertices []Vertex
	Edges    []Edge
	Loops    []Loop
	Faces    []Face
	Shells   []Shell
	Solids   []Solid
	Failures []*Error

	Epsilon float64

	doc      *entity.Document
	bySource map[entity.ID]int
}

// Vertex returns the vertex with handle id.
func (g *Graph) Vertex(id VertexID) *Vertex { return &g.Vertices[id] }

// Edge returns the edge with handle id.
func (g *Graph) Edge(id EdgeID) *Edge { return &g.Edges[id] }

// Loop returns the loop with handle id.
func (g *Graph) Loop(id LoopID) *Loop { return &g.Loops[id] }

// Face returns the face with handle id.
func (g *Graph) Face(id FaceID) *Face { return &g.Faces[id] }

// Shell returns the shell with handle id.
func (g *Graph) Shell(id ShellID) *Shell { return &g.Shells[id] }

// Solid returns the solid with handle id.
func (g *Graph) Solid(id SolidID) *Solid { return &g.Solids[id] }

// Lookup returns the arena index of the topology entity built from the
// given document id.
func (g *Graph) Lookup(id entity.ID) (int, bool) {
	i, ok := g.bySource[id]
	return i, ok
}

// SolidFaces returns every face of a solid, outer shell first.
func (g *Graph) SolidFaces(id SolidID) []FaceID {
	var faces []FaceID
	for _, sh := range g.Solids[id].Shells() {
		faces = append(faces, g.Shells[sh].Faces...)
	}
	return faces
}

// UseStart returns the vertex an edge-use leaves from.
func (g *Graph) UseStart(u EdgeUse) VertexID {
	e := &g.Edges[u.Edge]
	if u.Forward {
		return e.Start
	}
	return e.End
}

// UseEnd returns the vertex an edge-use arrives at.
func (g *Graph) UseEnd(u EdgeUse) VertexID {
	e := &g.Edges[u.Edge]
	if u.Forward {
		return e.End
	}
	return e.Start
}

// Counts is the number of entities of each topological kind.
type Counts struct {
	Vertices, Edges, Loops, Faces, Shells, Solids int
}

// Counts reports arena sizes.
func (g *Graph) Counts() Counts {
	return Counts{
		Vertices: len(g.Vertices),
		Edges:    len(g.Edges),
		Loops:    len(g.Loops),
		Faces:    len(g.Faces),
		Shells:   len(g.Shells),
		Solids:   len(g.Solids),
	}
}
