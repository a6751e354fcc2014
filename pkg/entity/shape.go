package entity

import (
	"fmt"
	"math"
)

// checkShape verifies that an entity's payload and reference counts match
// what its kind requires. It catches truncated payloads at decode time so
// later stages can index payloads without bounds checks.
func checkShape(e *RawEntity) error {
	for i, v := range e.Payload {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return malformed(e.ID, fmt.Sprintf("payload[%d] is not finite", i))
		}
	}
	for i, ref := range e.References {
		if ref.IsZero() {
			return malformed(e.ID, fmt.Sprintf("reference %d is zero", i))
		}
	}

	np, nr := len(e.Payload), len(e.References)
	switch e.Kind {
	case KindPoint:
		return want(e, np == 3 && nr == 0, "point needs payload [x y z] and no refs")
	case KindVertex:
		return want(e, (np == 3 && nr == 0) || (np == 0 && nr == 1),
			"vertex needs payload [x y z] or a single point ref")
	case KindEdge:
		return want(e, np == 2 && nr == 3, "edge needs payload [t0 t1] and refs [start end curve]")
	case KindLoop:
		return want(e, nr >= 1 && np == nr, "loop needs one direction flag per edge ref")
	case KindFace:
		return want(e, np == 1 && nr >= 2, "face needs payload [sense] and refs [surface outer holes...]")
	case KindShell:
		return want(e, nr >= 1, "shell needs at least one face ref")
	case KindSolid:
		return want(e, np <= 1 && nr >= 1, "solid needs refs [outer voids...] and optional payload [closed]")
	case KindLine:
		return want(e, np == 6 && nr == 0, "line needs payload [ax ay az bx by bz]")
	case KindCircle:
		return want(e, np == 10 && nr == 0, "circle needs payload [center normal xdir radius]")
	case KindPlane:
		return want(e, np == 9 && nr == 0, "plane needs payload [origin normal xdir]")
	case KindCylinder, KindSphere:
		return want(e, np == 10 && nr == 0, e.Kind.String()+" needs payload [origin axis xdir radius]")
	case KindBSplineCurve:
		return checkBSplineCurve(e)
	case KindBSplineSurface:
		return checkBSplineSurface(e)
	}
	return nil
}

func want(e *RawEntity, ok bool, msg string) error {
	if ok {
		return nil
	}
	return malformed(e.ID, fmt.Sprintf("%s (payload %d, refs %d)", msg, len(e.Payload), len(e.References)))
}

// checkBSplineCurve validates [degree n knots... (x y z w)*n].
func checkBSplineCurve(e *RawEntity) error {
	p := e.Payload
	if len(p) < 2 || len(e.References) != 0 {
		return malformed(e.ID, "bspline-curve payload truncated")
	}
	deg, n, ok := counts(p[0], p[1])
	if !ok || deg < 1 || n < deg+1 {
		return malformed(e.ID, fmt.Sprintf("bspline-curve degree %v with %v control points", p[0], p[1]))
	}
	need := 2 + (n + deg + 1) + 4*n
	if len(p) != need {
		return malformed(e.ID, fmt.Sprintf("bspline-curve payload has %d values, want %d", len(p), need))
	}
	return checkKnotsAndWeights(e, p[2:2+n+deg+1], p[2+n+deg+1:])
}

// checkBSplineSurface validates [du dv nu nv knotsU... knotsV... (x y z w)*nu*nv].
func checkBSplineSurface(e *RawEntity) error {
	p := e.Payload
	if len(p) < 4 || len(e.References) != 0 {
		return malformed(e.ID, "bspline-surface payload truncated")
	}
	du, nu, okU := counts(p[0], p[2])
	dv, nv, okV := counts(p[1], p[3])
	if !okU || !okV || du < 1 || dv < 1 || nu < du+1 || nv < dv+1 {
		return malformed(e.ID, "bspline-surface has invalid degrees or control net size")
	}
	ku, kv := nu+du+1, nv+dv+1
	need := 4 + ku + kv + 4*nu*nv
	if len(p) != need {
		return malformed(e.ID, fmt.Sprintf("bspline-surface payload has %d values, want %d", len(p), need))
	}
	if err := checkKnotsAndWeights(e, p[4:4+ku], nil); err != nil {
		return err
	}
	return checkKnotsAndWeights(e, p[4+ku:4+ku+kv], p[4+ku+kv:])
}

func counts(a, b float64) (int, int, bool) {
	if a != math.Trunc(a) || b != math.Trunc(b) || a > 64 || b > 1<<20 {
		return 0, 0, false
	}
	return int(a), int(b), true
}

func checkKnotsAndWeights(e *RawEntity, knots, ctrl []float64) error {
	for i := 1; i < len(knots); i++ {
		if knots[i] < knots[i-1] {
			return malformed(e.ID, fmt.Sprintf("knot vector decreases at index %d", i))
		}
	}
	if knots[0] == knots[len(knots)-1] {
		return malformed(e.ID, "knot vector has zero span")
	}
	for i := 3; i < len(ctrl); i += 4 {
		if ctrl[i] <= 0 {
			return malformed(e.ID, fmt.Sprintf("control point %d has non-positive weight", i/4))
		}
	}
	return nil
}
