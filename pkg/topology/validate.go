package topology

import (
	"log/slog"
	"math"
	"slices"

	"github.com/deadsy/sdfx/sdf"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/geom"
)

// validateSolids checks every shell concurrently, then decides per solid.
// Each goroutine writes only its own slot of results.
func validateSolids(g *Graph, opts Options) error {
	results := make([]*Error, len(g.Shells))
	var eg errgroup.Group
	eg.SetLimit(opts.Workers)
	for sh := range g.Shells {
		if g.Shells[sh].Solid < 0 {
			continue
		}
		closed := g.Solids[g.Shells[sh].Solid].Closed
		eg.Go(func() error {
			results[sh] = validateShell(g, ShellID(sh), closed)
			return nil
		})
	}
	_ = eg.Wait()

	kept := g.Solids[:0]
	remap := make([]SolidID, len(g.Solids))
	for i := range g.Solids {
		s := g.Solids[i]
		var failure *Error
		for _, sh := range s.Shells() {
			if results[sh] != nil {
				failure = results[sh]
				break
			}
		}
		if failure != nil {
			if !opts.AllowPartial {
				return failure
			}
			opts.Logger.Warn("solid rejected",
				slog.String("solid", s.Source.String()),
				slog.String("code", failure.Code.String()),
				slog.Any("error", failure))
			g.Failures = append(g.Failures, failure)
			remap[i] = -1
			continue
		}
		s.Bounds = solidBounds(g, s)
		remap[i] = SolidID(len(kept))
		kept = append(kept, s)
	}
	g.Solids = kept

	for sh := range g.Shells {
		if old := g.Shells[sh].Solid; old >= 0 {
			g.Shells[sh].Solid = remap[old]
		}
	}
	for id, idx := range g.bySource {
		if e := g.doc.Get(id); e != nil && e.Kind == entity.KindSolid {
			if remap[idx] < 0 {
				delete(g.bySource, id)
			} else {
				g.bySource[id] = int(remap[idx])
			}
		}
	}
	return nil
}

type usage struct {
	face    FaceID
	forward bool
}

// validateShell runs the geometric, manifold and orientation checks for
// one shell and returns the first failure.
func validateShell(g *Graph, sh ShellID, closed bool) *Error {
	shell := &g.Shells[sh]
	uses := make(map[EdgeID][]usage)
	var order []EdgeID

	for _, f := range shell.Faces {
		for _, l := range g.Faces[f].Loops() {
			loop := &g.Loops[l]
			for _, u := range loop.Uses {
				if _, seen := uses[u.Edge]; !seen {
					if err := checkEndpoints(g, u.Edge); err != nil {
						return err
					}
					order = append(order, u.Edge)
				}
				uses[u.Edge] = append(uses[u.Edge], usage{face: f, forward: u.Forward})
			}
			if err := checkClosure(g, l); err != nil {
				return err
			}
		}
	}

	for _, e := range order {
		n := len(uses[e])
		if n == 2 || (!closed && n == 1) {
			continue
		}
		ids := []entity.ID{g.Edges[e].Source}
		for _, u := range uses[e] {
			ids = append(ids, g.Faces[u.face].Source)
		}
		want := "2"
		if !closed {
			want = "1 or 2"
		}
		return errorf(NonManifoldEdge, ids, "edge used %d times in shell %s, want %s", n, shell.Source, want)
	}

	return checkOrientation(g, shell, uses, order)
}

// checkEndpoints verifies that an edge's vertices lie on its curve at T0
// and T1.
func checkEndpoints(g *Graph, id EdgeID) *Error {
	e := &g.Edges[id]
	p0 := geom.CurvePos(e.Curve, e.T0)
	p1 := geom.CurvePos(e.Curve, e.T1)
	tol := g.Epsilon * math.Max(1, geom.Dist(p0, p1))
	for _, end := range []struct {
		v VertexID
		p geom.Vec3
		t float64
	}{{e.Start, p0, e.T0}, {e.End, p1, e.T1}} {
		vx := &g.Vertices[end.v]
		if d := geom.Dist(vx.Pos, end.p); d > tol {
			return errorf(VertexOffCurve, []entity.ID{e.Source, vx.Source},
				"vertex is %g from curve %s at t=%g (tolerance %g)", d, e.CurveSource, end.t, tol)
		}
	}
	return nil
}

// checkClosure verifies that each edge-use ends where the next begins.
func checkClosure(g *Graph, id LoopID) *Error {
	loop := &g.Loops[id]
	n := len(loop.Uses)
	for i, u := range loop.Uses {
		next := loop.Uses[(i+1)%n]
		a, b := g.UseEnd(u), g.UseStart(next)
		if a == b {
			continue
		}
		if d := geom.Dist(g.Vertices[a].Pos, g.Vertices[b].Pos); d > g.Epsilon {
			return errorf(OpenLoop, []entity.ID{loop.Source, g.Edges[u.Edge].Source, g.Edges[next.Edge].Source},
				"gap of %g between consecutive edge-uses", d)
		}
	}
	return nil
}

// checkOrientation walks the face adjacency graph breadth first from the
// first face of each connected component. Two faces sharing an edge are
// consistent when their outward traversals of the edge run in opposite
// directions: with loop directions relative to the surface normal, the
// neighbour's sense must equal ours exactly when the two direction flags
// differ.
func checkOrientation(g *Graph, shell *Shell, uses map[EdgeID][]usage, order []EdgeID) *Error {
	type link struct {
		to   FaceID
		edge EdgeID
		same bool // both uses run the same way along the edge
	}
	adj := make(map[FaceID][]link)
	for _, e := range order {
		u := uses[e]
		if len(u) != 2 {
			continue
		}
		same := u[0].forward == u[1].forward
		adj[u[0].face] = append(adj[u[0].face], link{to: u[1].face, edge: e, same: same})
		adj[u[1].face] = append(adj[u[1].face], link{to: u[0].face, edge: e, same: same})
	}

	expected := make(map[FaceID]bool, len(shell.Faces))
	for _, start := range shell.Faces {
		if _, done := expected[start]; done {
			continue
		}
		expected[start] = g.Faces[start].Sense
		queue := []FaceID{start}
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			for _, l := range adj[f] {
				want := expected[f] != l.same
				got, seen := expected[l.to]
				switch {
				case seen && got != want:
					return orientationError(g, l.to, f, l.edge, "derivations disagree")
				case seen:
					continue
				case g.Faces[l.to].Sense != want:
					return orientationError(g, l.to, f, l.edge, "face sense contradicts its neighbour")
				}
				expected[l.to] = want
				queue = append(queue, l.to)
			}
		}
	}
	return nil
}

func orientationError(g *Graph, face, from FaceID, edge EdgeID, msg string) *Error {
	ids := []entity.ID{g.Faces[face].Source, g.Faces[from].Source, g.Edges[edge].Source}
	return newError(InconsistentOrientation, msg, slices.Compact(ids)...)
}

// solidBounds covers the vertices and sampled edge curves of a solid.
func solidBounds(g *Graph, s Solid) sdf.Box3 {
	box := geom.EmptyBox()
	const samples = 16
	for _, sh := range s.Shells() {
		for _, f := range g.Shells[sh].Faces {
			for _, l := range g.Faces[f].Loops() {
				for _, u := range g.Loops[l].Uses {
					e := &g.Edges[u.Edge]
					for i := 0; i <= samples; i++ {
						t := e.T0 + (e.T1-e.T0)*float64(i)/samples
						box = geom.Include(box, geom.CurvePos(e.Curve, t))
					}
				}
			}
		}
	}
	return box
}
