// Package importer runs the whole pipeline: decode a document, resolve and
// validate its topology, tessellate every face and assemble one indexed
// mesh per solid.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deadsy/sdfx/sdf"
	"github.com/google/uuid"

	"github.com/chazu/brep/pkg/config"
	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/entity/jsonfmt"
	"github.com/chazu/brep/pkg/entity/sexp"
	"github.com/chazu/brep/pkg/geom"
	"github.com/chazu/brep/pkg/logx"
	"github.com/chazu/brep/pkg/mesh"
	"github.com/chazu/brep/pkg/tessellate"
	"github.com/chazu/brep/pkg/topology"
)

// ErrUnknownFormat is returned when Options.Format names no decoder.
var ErrUnknownFormat = errors.New("unknown document format")

// Options configures an import.
type Options struct {
	// Format forces a wire format by name. Empty sniffs the input.
	Format string

	// DecodeTimeout bounds evaluation of Lisp documents.
	DecodeTimeout time.Duration

	Tolerance    float64 // chord tolerance of the mesh
	Epsilon      float64 // topology tolerance
	Weld         float64 // vertex merge distance; zero means Epsilon
	Workers      int
	AllowPartial bool

	Logger *slog.Logger
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	return FromConfig(config.Default())
}

// FromConfig translates a loaded configuration into import options.
func FromConfig(cfg config.Config) Options {
	timeout, err := cfg.Timeout()
	if err != nil {
		timeout = sexp.DefaultTimeout
	}
	return Options{
		Format:        cfg.Decode.Format,
		DecodeTimeout: timeout,
		Tolerance:     cfg.Tolerance,
		Epsilon:       cfg.Epsilon,
		Weld:          cfg.Weld,
		Workers:       cfg.Workers,
		AllowPartial:  cfg.Partial,
	}
}

// NewDecoder returns a decoder for every supported format.
func NewDecoder(timeout time.Duration) *entity.Decoder {
	return entity.NewDecoder(jsonfmt.Format{}, sexp.Format{Timeout: timeout})
}

// SolidMesh is the mesh of one solid.
type SolidMesh struct {
	Solid  topology.SolidID
	Source entity.ID
	Bounds sdf.Box3
	Mesh   *mesh.IndexedMesh
}

// Result is everything an import produced. With AllowPartial some solids
// may have been rejected and some faces may be missing from their meshes;
// both are listed.
type Result struct {
	RunID    string
	Document *entity.Document
	Graph    *topology.Graph
	Report   topology.Report

	Solids []SolidMesh
	// Mesh merges every solid's mesh.
	Mesh *mesh.IndexedMesh

	SolidFailures []*topology.Error
	FaceFailures  []*tessellate.FaceError
}

// Import decodes data and runs the pipeline on it.
func Import(ctx context.Context, data []byte, opts Options) (*Result, error) {
	dec := NewDecoder(opts.DecodeTimeout)
	var (
		doc *entity.Document
		err error
	)
	if opts.Format == "" {
		doc, err = dec.Decode(data)
	} else {
		f := dec.Lookup(opts.Format)
		if f == nil {
			return nil, fmt.Errorf("importer: %w: %q", ErrUnknownFormat, opts.Format)
		}
		doc, err = dec.DecodeAs(f, data)
	}
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}
	return ImportDocument(ctx, doc, opts)
}

// ImportDocument runs the pipeline on an already decoded document.
func ImportDocument(ctx context.Context, doc *entity.Document, opts Options) (*Result, error) {
	runID := uuid.NewString()
	log := logx.OrNop(opts.Logger).With(slog.String("run", runID))
	start := time.Now()

	g, err := topology.Build(doc, topology.Options{
		Epsilon:      opts.Epsilon,
		Workers:      opts.Workers,
		AllowPartial: opts.AllowPartial,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}
	counts := g.Counts()
	log.Debug("topology built",
		slog.Int("faces", counts.Faces),
		slog.Int("solids", counts.Solids),
		slog.Int("rejected", len(g.Failures)))

	tess, err := tessellate.Tessellate(ctx, g, tessellate.Options{
		Tolerance: opts.Tolerance,
		Workers:   opts.Workers,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}

	weld := opts.Weld
	if weld <= 0 {
		weld = g.Epsilon
	}
	res := &Result{
		RunID:         runID,
		Document:      doc,
		Graph:         g,
		Report:        g.Validate(),
		SolidFailures: g.Failures,
		FaceFailures:  tess.Failures,
	}
	parts := make([]*mesh.IndexedMesh, 0, len(g.Solids))
	for i := range g.Solids {
		id := topology.SolidID(i)
		faces := g.SolidFaces(id)
		slots := make([]*mesh.FaceMesh, len(faces))
		for k, f := range faces {
			slots[k] = tess.Faces[f]
		}
		m, err := mesh.Assemble(g, id, slots, weld)
		if err != nil {
			return nil, fmt.Errorf("importer: %w", err)
		}
		parts = append(parts, m)
		res.Solids = append(res.Solids, SolidMesh{
			Solid:  id,
			Source: g.Solid(id).Source,
			Bounds: g.Solid(id).Bounds,
			Mesh:   m,
		})
	}
	res.Mesh = mesh.Merge("", parts...)

	log.Info("import finished",
		slog.Int("solids", len(res.Solids)),
		slog.Int("triangles", res.Mesh.TriangleCount()),
		slog.Int("face_failures", len(res.FaceFailures)),
		slog.Int("warnings", len(res.Report.Warnings)),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Bounds returns the box around every solid.
func (r *Result) Bounds() sdf.Box3 {
	box := geom.EmptyBox()
	for _, s := range r.Solids {
		box = geom.Union(box, s.Bounds)
	}
	return box
}

// Export converts the result to the JSON export document, one mesh per
// solid, with rejected solids and failed faces as errors.
func (r *Result) Export() *mesh.Export {
	meshes := make([]*mesh.IndexedMesh, len(r.Solids))
	for i, s := range r.Solids {
		meshes[i] = s.Mesh
	}
	ex := mesh.NewExport(r.RunID, meshes...)
	for _, f := range r.Report.Errors {
		ex.Errors = append(ex.Errors, mesh.Issue{Code: f.Code.String(), IDs: f.IDs, Message: f.Message})
	}
	for _, f := range r.FaceFailures {
		ex.Errors = append(ex.Errors, mesh.Issue{
			Code:    faceCode(f),
			IDs:     []entity.ID{f.Source},
			Message: f.Err.Error(),
		})
	}
	for _, f := range r.Report.Warnings {
		ex.Warnings = append(ex.Warnings, mesh.Issue{Code: f.Severity.String(), IDs: f.IDs, Message: f.Message})
	}
	return ex
}

func faceCode(f *tessellate.FaceError) string {
	if errors.Is(f, tessellate.ErrDegenerateFace) {
		return "DegenerateFace"
	}
	return "TessellationFailed"
}
