// Package tessellate converts the faces of a validated topology graph into
// triangle meshes whose deviation from the exact surfaces is bounded by a
// caller-supplied tolerance.
//
// Edges are discretized once and shared, so adjacent faces meet without
// cracks. Faces are independent after that and are meshed concurrently.
package tessellate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/brep/pkg/logx"
	"github.com/chazu/brep/pkg/mesh"
	"github.com/chazu/brep/pkg/topology"
)

// DefaultTolerance is the chord tolerance used when none is given.
const DefaultTolerance = 0.01

// Options controls tessellation.
type Options struct {
	// Tolerance bounds the distance between the mesh and the surface.
	Tolerance float64

	// Workers limits the number of faces meshed at once. Zero means
	// GOMAXPROCS.
	Workers int

	// MaxDepth limits edge bisection.
	MaxDepth int

	// MaxTriangles caps the triangles of a single face. A face that cannot
	// meet the tolerance within the cap fails with ErrTriangleBudget.
	MaxTriangles int

	Logger *slog.Logger
}

// DefaultOptions returns the options used by the command line tool.
func DefaultOptions() Options {
	return Options{Tolerance: DefaultTolerance}
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 20
	}
	if o.MaxTriangles <= 0 {
		o.MaxTriangles = 1 << 20
	}
	o.Logger = logx.OrNop(o.Logger)
	return o
}

func checkTolerance(tol float64) error {
	if !(tol > 0) || math.IsInf(tol, 0) {
		return fmt.Errorf("tessellate: %w: %v", ErrInvalidTolerance, tol)
	}
	return nil
}

// Result holds the meshes of every face of the graph's solids.
type Result struct {
	// Faces is indexed by face handle. Faces not belonging to a solid,
	// and faces that failed, are nil.
	Faces []*mesh.FaceMesh

	// Failures describes each face that could not be meshed, in face
	// order.
	Failures []*FaceError

	Edges *EdgeCache
}

// Tessellate meshes every face reachable from the solids of g. A face that
// cannot be meshed is reported in Result.Failures and the remaining faces
// are still produced. Cancelling ctx abandons the work and returns the
// context's error with no partial result.
func Tessellate(ctx context.Context, g *topology.Graph, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if err := checkTolerance(opts.Tolerance); err != nil {
		return nil, err
	}

	cache := NewEdgeCache(g, opts.Tolerance, opts.MaxDepth)
	res := &Result{Faces: make([]*mesh.FaceMesh, len(g.Faces)), Edges: cache}
	errs := make([]error, len(g.Faces))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Workers)
	for s := range g.Solids {
		for _, f := range g.SolidFaces(topology.SolidID(s)) {
			eg.Go(func() error {
				if err := egctx.Err(); err != nil {
					return err
				}
				res.Faces[f], errs[f] = Face(g, cache, f, opts)
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for f, err := range errs {
		if err == nil {
			continue
		}
		fe := &FaceError{Face: topology.FaceID(f), Source: g.Faces[f].Source, Err: err}
		opts.Logger.Warn("face failed", slog.String("face", fe.Source.String()), slog.Any("error", err))
		res.Failures = append(res.Failures, fe)
	}
	opts.Logger.Debug("tessellated",
		slog.Int("faces", len(g.Faces)-len(res.Failures)),
		slog.Int("failed", len(res.Failures)),
		slog.Float64("tolerance", opts.Tolerance))
	return res, nil
}
