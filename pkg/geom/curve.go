package geom

import (
	"fmt"
	"math"
)

// Curve is one of Line, Circle or BSplineCurve.
type Curve interface {
	curve() // marker method restricting implementations to this package
}

// Line is the straight line through A and B, parameterised so that
// P(0) = A and P(1) = B. The parameter is unbounded.
type Line struct {
	A, B Vec3
}

func (Line) curve() {}

// Circle is the circle of the given radius around Center in the plane
// orthogonal to Normal. P(0) lies along XDir; t is the angle in radians.
type Circle struct {
	Center Vec3
	X, Y   Vec3 // orthonormal in-plane frame, Y = Normal x X
	Normal Vec3
	Radius float64
}

func (Circle) curve() {}

// NewCircle builds a circle, orthonormalising the frame.
func NewCircle(center, normal, xdir Vec3, radius float64) (Circle, error) {
	x, y, n, ok := orthoFrame(normal, xdir)
	if !ok || !(radius > 0) {
		return Circle{}, fmt.Errorf("circle: zero normal or radius %g: %w", radius, ErrInvalidGeometry)
	}
	return Circle{Center: center, X: x, Y: y, Normal: n, Radius: radius}, nil
}

// BSplineCurve is a rational B-spline curve. Weights has one entry per
// control point.
type BSplineCurve struct {
	Degree  int
	Knots   []float64
	Ctrl    []Vec3
	Weights []float64
}

func (BSplineCurve) curve() {}

// CurvePoint is the result of evaluating a curve.
type CurvePoint struct {
	Pos     Vec3
	Tangent Vec3 // first derivative dP/dt, not normalised
}

// DomainOfCurve returns the parameter range of c.
func DomainOfCurve(c Curve) CurveDomain {
	switch c := c.(type) {
	case Line:
		return CurveDomain{T: Unbounded}
	case Circle:
		return CurveDomain{T: Interval{Min: 0, Max: 2 * math.Pi}, Periodic: true}
	case BSplineCurve:
		return CurveDomain{T: Interval{Min: c.Knots[c.Degree], Max: c.Knots[len(c.Ctrl)]}}
	}
	panic(fmt.Sprintf("geom: unknown curve type %T", c))
}

// EvalCurve evaluates c at t. It fails only with ErrParameterOutOfRange for
// a t outside a bounded, non-periodic domain.
func EvalCurve(c Curve, t float64) (CurvePoint, error) {
	dom := DomainOfCurve(c)
	if !dom.Periodic {
		var ok bool
		if t, ok = dom.T.check(t); !ok {
			return CurvePoint{}, outOfRange("t", t, dom.T)
		}
	} else if math.IsNaN(t) {
		return CurvePoint{}, outOfRange("t", t, dom.T)
	}

	switch c := c.(type) {
	case Line:
		return CurvePoint{Pos: Lerp(c.A, c.B, t), Tangent: c.B.Sub(c.A)}, nil

	case Circle:
		s, co := math.Sincos(t)
		r := c.Radius
		pos := c.Center.Add(c.X.MulScalar(r * co)).Add(c.Y.MulScalar(r * s))
		tan := c.X.MulScalar(-r * s).Add(c.Y.MulScalar(r * co))
		return CurvePoint{Pos: pos, Tangent: tan}, nil

	case BSplineCurve:
		pos, d := evalNURBSCurve(c, t)
		return CurvePoint{Pos: pos, Tangent: d}, nil
	}
	panic(fmt.Sprintf("geom: unknown curve type %T", c))
}

// CurvePos is EvalCurve without the derivative, for callers that have
// already clamped t into the domain.
func CurvePos(c Curve, t float64) Vec3 {
	p, err := EvalCurve(c, t)
	if err != nil {
		dom := DomainOfCurve(c)
		p, _ = EvalCurve(c, dom.T.Clamp(t))
	}
	return p.Pos
}
