package geom

import (
	"fmt"

	"github.com/chazu/brep/pkg/entity"
)

func vecAt(p []float64, i int) Vec3 {
	return Vec3{X: p[i], Y: p[i+1], Z: p[i+2]}
}

// CurveFromEntity builds the curve described by a line, circle or
// bspline-curve entity. The payload arity is assumed to have been checked
// by the decoder.
func CurveFromEntity(e *entity.RawEntity) (Curve, error) {
	p := e.Payload
	switch e.Kind {
	case entity.KindLine:
		a, b := vecAt(p, 0), vecAt(p, 3)
		if Dist(a, b) < degenerateLength {
			return nil, fmt.Errorf("line %s: coincident endpoints: %w", e.ID, ErrInvalidGeometry)
		}
		return Line{A: a, B: b}, nil

	case entity.KindCircle:
		c, err := NewCircle(vecAt(p, 0), vecAt(p, 3), vecAt(p, 6), p[9])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.ID, err)
		}
		return c, nil

	case entity.KindBSplineCurve:
		deg, n := int(p[0]), int(p[1])
		nk := n + deg + 1
		knots := append([]float64(nil), p[2:2+nk]...)
		ctrl, w := unpackControl(p[2+nk:], n)
		return BSplineCurve{Degree: deg, Knots: knots, Ctrl: ctrl, Weights: w}, nil
	}
	return nil, fmt.Errorf("entity %s of kind %s is not a curve: %w", e.ID, e.Kind, ErrInvalidGeometry)
}

// SurfaceFromEntity builds the surface described by a plane, cylinder,
// sphere or bspline-surface entity.
func SurfaceFromEntity(e *entity.RawEntity) (Surface, error) {
	p := e.Payload
	var (
		s   Surface
		err error
	)
	switch e.Kind {
	case entity.KindPlane:
		s, err = NewPlane(vecAt(p, 0), vecAt(p, 3), vecAt(p, 6))
	case entity.KindCylinder:
		s, err = NewCylinder(vecAt(p, 0), vecAt(p, 3), vecAt(p, 6), p[9])
	case entity.KindSphere:
		s, err = NewSphere(vecAt(p, 0), vecAt(p, 3), vecAt(p, 6), p[9])
	case entity.KindBSplineSurface:
		du, dv, nu, nv := int(p[0]), int(p[1]), int(p[2]), int(p[3])
		ku, kv := nu+du+1, nv+dv+1
		knotsU := append([]float64(nil), p[4:4+ku]...)
		knotsV := append([]float64(nil), p[4+ku:4+ku+kv]...)
		ctrl, w := unpackControl(p[4+ku+kv:], nu*nv)
		s = BSplineSurface{
			DegreeU: du, DegreeV: dv, NU: nu, NV: nv,
			KnotsU: knotsU, KnotsV: knotsV,
			Ctrl: ctrl, Weights: w,
		}
	default:
		return nil, fmt.Errorf("entity %s of kind %s is not a surface: %w", e.ID, e.Kind, ErrInvalidGeometry)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.ID, err)
	}
	return s, nil
}

// unpackControl splits n homogeneous (x y z w) quadruples into points and
// weights.
func unpackControl(p []float64, n int) ([]Vec3, []float64) {
	ctrl := make([]Vec3, n)
	w := make([]float64, n)
	for i := range n {
		ctrl[i] = vecAt(p, 4*i)
		w[i] = p[4*i+3]
	}
	return ctrl, w
}
