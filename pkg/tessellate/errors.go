package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/brep/pkg/entity"
	"github.com/chazu/brep/pkg/topology"
)

var (
	// ErrInvalidTolerance is returned for a tolerance that is not a
	// positive finite number.
	ErrInvalidTolerance = errors.New("invalid tolerance")

	// ErrDegenerateFace is returned when a face's loops cannot be mapped
	// to a valid region of its surface's parameter domain.
	ErrDegenerateFace = errors.New("degenerate face")

	// ErrTriangleBudget is returned when refining a face to the tolerance
	// would take more triangles than Options.MaxTriangles allows.
	ErrTriangleBudget = errors.New("triangle budget exhausted")
)

// FaceError reports the failure of one face. Other faces are unaffected.
type FaceError struct {
	Face   topology.FaceID
	Source entity.ID
	Err    error
}

func (e *FaceError) Error() string {
	return fmt.Sprintf("tessellate: face %s: %v", e.Source, e.Err)
}

func (e *FaceError) Unwrap() error { return e.Err }

func degenerate(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrDegenerateFace)
}
