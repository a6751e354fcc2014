package geom

import (
	"errors"
	"fmt"
)

// ErrParameterOutOfRange is returned when a parameter lies outside the
// domain of a bounded curve or surface.
var ErrParameterOutOfRange = errors.New("parameter out of range")

// ErrInvalidGeometry is returned when an entity payload describes geometry
// that cannot be evaluated (zero radius, zero-length axis, ...).
var ErrInvalidGeometry = errors.New("invalid geometry")

func outOfRange(name string, value float64, iv Interval) error {
	return fmt.Errorf("%s=%g outside [%g, %g]: %w", name, value, iv.Min, iv.Max, ErrParameterOutOfRange)
}
