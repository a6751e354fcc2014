package topology

import (
	"fmt"
	"strings"

	"github.com/dhconnelly/rtreego"
	"github.com/samber/lo"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/geom"
)

// Severity indicates whether a finding rejected part of the document or is
// merely informational.
type Severity int

const (
	SeverityError   Severity = iota // rejected a solid
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding is a single validation result.
type Finding struct {
	Severity Severity
	Code     Code // zero for warnings
	IDs      []entity.ID
	Message  string
}

func (f Finding) String() string {
	ids := lo.Map(f.IDs, func(id entity.ID, _ int) string { return id.String() })
	if len(ids) == 0 {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Severity, strings.Join(ids, ","), f.Message)
}

// Report separates blocking findings from advisory ones.
type Report struct {
	Errors   []Finding
	Warnings []Finding
}

// OK reports whether there are no errors.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Validate reports the failures recorded during a partial Build together
// with advisory warnings: entities nothing refers to and distinct vertices
// that coincide within epsilon. It never mutates the graph.
func (g *Graph) Validate() Report {
	var r Report
	for _, f := range g.Failures {
		r.Errors = append(r.Errors, Finding{
			Severity: SeverityError,
			Code:     f.Code,
			IDs:      f.IDs,
			Message:  f.Message,
		})
	}
	r.Warnings = append(r.Warnings, g.unreferenced()...)
	r.Warnings = append(r.Warnings, g.coincidentVertices()...)
	return r
}

func warn(msg string, ids ...entity.ID) Finding {
	return Finding{Severity: SeverityWarning, IDs: ids, Message: msg}
}

// unreferenced lists entities that no other entity refers to, other than
// solids which are roots.
func (g *Graph) unreferenced() []Finding {
	if g.doc == nil {
		return nil
	}
	referenced := make(map[entity.ID]bool, g.doc.Len())
	for _, e := range g.doc.Entities {
		for _, ref := range e.References {
			referenced[ref] = true
		}
	}
	var out []Finding
	for _, e := range g.doc.Sorted() {
		if e.Kind == entity.KindSolid || referenced[e.ID] {
			continue
		}
		out = append(out, warn(fmt.Sprintf("unreferenced %s", e.Kind), e.ID))
	}
	return out
}

type vertexEntry struct {
	id   VertexID
	rect rtreego.Rect
}

func (v *vertexEntry) Bounds() rtreego.Rect { return v.rect }

// coincidentVertices finds pairs of distinct vertices closer than epsilon.
// Such pairs usually mean a document that should share a vertex does not.
func (g *Graph) coincidentVertices() []Finding {
	if len(g.Vertices) < 2 {
		return nil
	}
	tol := g.Epsilon
	tree := rtreego.NewTree(3, 2, 16)
	entries := make([]*vertexEntry, len(g.Vertices))
	for i, v := range g.Vertices {
		entries[i] = &vertexEntry{
			id:   VertexID(i),
			rect: rtreego.Point{v.Pos.X, v.Pos.Y, v.Pos.Z}.ToRect(tol),
		}
		tree.Insert(entries[i])
	}

	var out []Finding
	for _, a := range entries {
		for _, hit := range tree.SearchIntersect(a.rect) {
			b := hit.(*vertexEntry)
			if b.id <= a.id {
				continue
			}
			va, vb := &g.Vertices[a.id], &g.Vertices[b.id]
			if geom.Dist(va.Pos, vb.Pos) <= tol {
				out = append(out, warn("distinct vertices coincide", va.Source, vb.Source))
			}
		}
	}
	return out
}
