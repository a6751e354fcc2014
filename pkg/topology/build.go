package topology

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/geom"
	"github.com/chazu/brep/pkg/logx"
)

// DefaultEpsilon is the default resolution tolerance, in units of the
// larger of 1 and the edge's chord length.
const DefaultEpsilon = 1e-6

// Options controls Build.
type Options struct {
	Epsilon      float64      // endpoint and closure tolerance; zero means DefaultEpsilon
	Workers      int          // concurrent shell validations; zero means GOMAXPROCS
	AllowPartial bool         // keep valid solids when others fail
	Logger       *slog.Logger // nil means silent
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{Epsilon: DefaultEpsilon, Workers: runtime.GOMAXPROCS(0)}
}

func (o Options) normalize() (Options, error) {
	if o.Epsilon == 0 {
		o.Epsilon = DefaultEpsilon
	}
	if !(o.Epsilon > 0) || math.IsInf(o.Epsilon, 0) {
		return o, fmt.Errorf("topology: epsilon %g must be positive", o.Epsilon)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	o.Logger = logx.OrNop(o.Logger)
	return o, nil
}

// Build resolves doc into a Graph and validates every solid.
//
// Reference resolution failures (dangling or mistyped references,
// unevaluable geometry) are fatal for the whole document and no Graph is
// returned. Validation failures (off-curve vertices, open loops,
// non-manifold edges, flipped faces) are fatal for the solid they occur in:
// without AllowPartial the first one is returned, with it the solid is
// dropped and the failure recorded in Graph.Failures.
func Build(doc *entity.Document, opts Options) (*Graph, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	b := &builder{
		doc:      doc,
		log:      opts.Logger,
		curves:   make(map[entity.ID]geom.Curve),
		surfaces: make(map[entity.ID]geom.Surface),
		g: &Graph{
			Epsilon:  opts.Epsilon,
			doc:      doc,
			bySource: make(map[entity.ID]int),
		},
	}
	if err := b.resolve(); err != nil {
		opts.Logger.Debug("topology resolution failed", slog.Any("error", err))
		return nil, err
	}
	if err := validateSolids(b.g, opts); err != nil {
		return nil, err
	}
	c := b.g.Counts()
	opts.Logger.Debug("topology built",
		slog.Int("vertices", c.Vertices),
		slog.Int("edges", c.Edges),
		slog.Int("faces", c.Faces),
		slog.Int("solids", c.Solids),
		slog.Int("failures", len(b.g.Failures)))
	return b.g, nil
}

type builder struct {
	doc      *entity.Document
	g        *Graph
	log      *slog.Logger
	curves   map[entity.ID]geom.Curve
	surfaces map[entity.ID]geom.Surface
}

// resolve builds each level from the one below it: vertices, edges,
// loops, faces, shells, solids. Curves and surfaces are built on first
// reference.
func (b *builder) resolve() error {
	steps := []struct {
		kind entity.Kind
		fn   func(*entity.RawEntity) *Error
	}{
		{entity.KindVertex, b.vertex},
		{entity.KindEdge, b.edge},
		{entity.KindLoop, b.loop},
		{entity.KindFace, b.face},
		{entity.KindShell, b.shell},
		{entity.KindSolid, b.solid},
	}
	for _, step := range steps {
		for _, e := range b.doc.OfKind(step.kind) {
			if err := step.fn(e); err != nil {
				return err
			}
		}
	}
	if len(b.g.Solids) == 0 {
		return newError(NoSolids, "document contains no solid")
	}
	return nil
}

// ref returns the i'th reference of e, checking that it exists and has
// one of the accepted kinds.
func (b *builder) ref(e *entity.RawEntity, i int, accept func(entity.Kind) bool, want string) (*entity.RawEntity, *Error) {
	id := e.References[i]
	r := b.doc.Get(id)
	if r == nil {
		return nil, errorf(DanglingReference, []entity.ID{e.ID, id},
			"%s references missing entity %s", e.Kind, id)
	}
	if !accept(r.Kind) {
		return nil, errorf(WrongKind, []entity.ID{e.ID, id},
			"%s reference %d is a %s, want %s", e.Kind, i, r.Kind, want)
	}
	return r, nil
}

func is(k entity.Kind) func(entity.Kind) bool {
	return func(got entity.Kind) bool { return got == k }
}

// index returns the arena index of an already resolved topology entity.
func (b *builder) index(id entity.ID) int {
	return b.g.bySource[id]
}

func flag(e *entity.RawEntity, v float64) (bool, *Error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errorf(DegenerateEntity, []entity.ID{e.ID}, "%s flag %g is not 0 or 1", e.Kind, v)
}

func (b *builder) vertex(e *entity.RawEntity) *Error {
	var pos geom.Vec3
	if len(e.References) == 1 {
		pt, err := b.ref(e, 0, is(entity.KindPoint), "point")
		if err != nil {
			return err
		}
		pos = geom.Vec3{X: pt.Payload[0], Y: pt.Payload[1], Z: pt.Payload[2]}
	} else {
		pos = geom.Vec3{X: e.Payload[0], Y: e.Payload[1], Z: e.Payload[2]}
	}
	b.g.bySource[e.ID] = len(b.g.Vertices)
	b.g.Vertices = append(b.g.Vertices, Vertex{Source: e.ID, Pos: pos})
	return nil
}

func (b *builder) curve(owner *entity.RawEntity, r *entity.RawEntity) (geom.Curve, *Error) {
	if c, ok := b.curves[r.ID]; ok {
		return c, nil
	}
	c, err := geom.CurveFromEntity(r)
	if err != nil {
		return nil, errorf(DegenerateEntity, []entity.ID{r.ID, owner.ID}, "%v", err)
	}
	b.curves[r.ID] = c
	return c, nil
}

func (b *builder) surface(owner *entity.RawEntity, r *entity.RawEntity) (geom.Surface, *Error) {
	if s, ok := b.surfaces[r.ID]; ok {
		return s, nil
	}
	s, err := geom.SurfaceFromEntity(r)
	if err != nil {
		return nil, errorf(DegenerateEntity, []entity.ID{r.ID, owner.ID}, "%v", err)
	}
	b.surfaces[r.ID] = s
	return s, nil
}

func (b *builder) edge(e *entity.RawEntity) *Error {
	start, err := b.ref(e, 0, is(entity.KindVertex), "vertex")
	if err != nil {
		return err
	}
	end, err := b.ref(e, 1, is(entity.KindVertex), "vertex")
	if err != nil {
		return err
	}
	cr, err := b.ref(e, 2, entity.Kind.IsCurve, "curve")
	if err != nil {
		return err
	}
	c, err := b.curve(e, cr)
	if err != nil {
		return err
	}

	t0, t1 := e.Payload[0], e.Payload[1]
	dom := geom.DomainOfCurve(c)
	if dom.Periodic {
		// Ranges always run forward; equal bounds mean a full period.
		period := dom.T.Width()
		for t1 <= t0 {
			t1 += period
		}
		if t1-t0 > period*(1+1e-12) {
			return errorf(DegenerateEntity, []entity.ID{e.ID}, "range [%g, %g] exceeds one period", e.Payload[0], e.Payload[1])
		}
	} else {
		if t0 == t1 {
			return errorf(DegenerateEntity, []entity.ID{e.ID}, "empty parameter range at t=%g", t0)
		}
		for _, t := range []float64{t0, t1} {
			if _, perr := geom.EvalCurve(c, t); perr != nil {
				return errorf(DegenerateEntity, []entity.ID{e.ID, cr.ID}, "%v", perr)
			}
		}
	}

	b.g.bySource[e.ID] = len(b.g.Edges)
	b.g.Edges = append(b.g.Edges, Edge{
		Source:      e.ID,
		Start:       VertexID(b.index(start.ID)),
		End:         VertexID(b.index(end.ID)),
		Curve:       c,
		CurveSource: cr.ID,
		T0:          t0,
		T1:          t1,
	})
	return nil
}

func (b *builder) loop(e *entity.RawEntity) *Error {
	uses := make([]EdgeUse, len(e.References))
	for i := range e.References {
		r, err := b.ref(e, i, is(entity.KindEdge), "edge")
		if err != nil {
			return err
		}
		fwd, err := flag(e, e.Payload[i])
		if err != nil {
			return err
		}
		uses[i] = EdgeUse{Edge: EdgeID(b.index(r.ID)), Forward: fwd}
	}
	b.g.bySource[e.ID] = len(b.g.Loops)
	b.g.Loops = append(b.g.Loops, Loop{Source: e.ID, Uses: uses, Face: -1})
	return nil
}

func (b *builder) face(e *entity.RawEntity) *Error {
	sr, err := b.ref(e, 0, entity.Kind.IsSurface, "surface")
	if err != nil {
		return err
	}
	s, err := b.surface(e, sr)
	if err != nil {
		return err
	}
	sense, err := flag(e, e.Payload[0])
	if err != nil {
		return err
	}

	id := FaceID(len(b.g.Faces))
	var loops []LoopID
	for i := 1; i < len(e.References); i++ {
		r, err := b.ref(e, i, is(entity.KindLoop), "loop")
		if err != nil {
			return err
		}
		l := LoopID(b.index(r.ID))
		if owner := b.g.Loops[l].Face; owner >= 0 {
			return errorf(DegenerateEntity, []entity.ID{r.ID, e.ID, b.g.Faces[owner].Source},
				"loop is bounded by more than one face")
		}
		b.g.Loops[l].Face = id
		loops = append(loops, l)
	}

	b.g.bySource[e.ID] = int(id)
	b.g.Faces = append(b.g.Faces, Face{
		Source:        e.ID,
		Surface:       s,
		SurfaceSource: sr.ID,
		Outer:         loops[0],
		Holes:         loops[1:],
		Sense:         sense,
		Shell:         -1,
	})
	return nil
}

func (b *builder) shell(e *entity.RawEntity) *Error {
	id := ShellID(len(b.g.Shells))
	faces := make([]FaceID, len(e.References))
	for i := range e.References {
		r, err := b.ref(e, i, is(entity.KindFace), "face")
		if err != nil {
			return err
		}
		f := FaceID(b.index(r.ID))
		if owner := b.g.Faces[f].Shell; owner >= 0 {
			return errorf(DegenerateEntity, []entity.ID{r.ID, e.ID, b.g.Shells[owner].Source},
				"face belongs to more than one shell")
		}
		b.g.Faces[f].Shell = id
		faces[i] = f
	}
	b.g.bySource[e.ID] = int(id)
	b.g.Shells = append(b.g.Shells, Shell{Source: e.ID, Faces: faces, Solid: -1})
	return nil
}

func (b *builder) solid(e *entity.RawEntity) *Error {
	closed := true
	if len(e.Payload) == 1 {
		var err *Error
		if closed, err = flag(e, e.Payload[0]); err != nil {
			return err
		}
	}
	id := SolidID(len(b.g.Solids))
	shells := make([]ShellID, len(e.References))
	for i := range e.References {
		r, err := b.ref(e, i, is(entity.KindShell), "shell")
		if err != nil {
			return err
		}
		sh := ShellID(b.index(r.ID))
		if owner := b.g.Shells[sh].Solid; owner >= 0 {
			return errorf(DegenerateEntity, []entity.ID{r.ID, e.ID, b.g.Solids[owner].Source},
				"shell belongs to more than one solid")
		}
		b.g.Shells[sh].Solid = id
		shells[i] = sh
	}
	b.g.bySource[e.ID] = int(id)
	b.g.Solids = append(b.g.Solids, Solid{
		Source: e.ID,
		Outer:  shells[0],
		Voids:  shells[1:],
		Closed: closed,
	})
	return nil
}
