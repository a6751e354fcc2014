package geom

import "math"

// Interval is a closed parameter range. Infinite bounds are allowed.
type Interval struct {
	Min, Max float64
}

// Unbounded is the whole real line.
var Unbounded = Interval{Min: math.Inf(-1), Max: math.Inf(1)}

// Width returns Max-Min.
func (iv Interval) Width() float64 { return iv.Max - iv.Min }

// IsBounded reports whether both ends are finite.
func (iv Interval) IsBounded() bool {
	return !math.IsInf(iv.Min, 0) && !math.IsInf(iv.Max, 0)
}

// Clamp limits x to the interval.
func (iv Interval) Clamp(x float64) float64 {
	return math.Max(iv.Min, math.Min(iv.Max, x))
}

// slack is how far outside a bounded domain a parameter may stray due to
// rounding before it is rejected.
func (iv Interval) slack() float64 {
	if !iv.IsBounded() {
		return 0
	}
	return 1e-9 * math.Max(1, iv.Width())
}

// check clamps x into the interval if it is within rounding slack, and
// reports false if it is genuinely outside.
func (iv Interval) check(x float64) (float64, bool) {
	if math.IsNaN(x) {
		return x, false
	}
	s := iv.slack()
	if x < iv.Min-s || x > iv.Max+s {
		return x, false
	}
	return iv.Clamp(x), true
}

// CurveDomain describes the parameter range of a curve.
type CurveDomain struct {
	T        Interval
	Periodic bool // T is one period; any t is accepted
}

// SurfaceDomain describes the parameter rectangle of a surface.
type SurfaceDomain struct {
	U, V                 Interval
	PeriodicU, PeriodicV bool
}

// Wrap returns the representative of x in a periodic interval that is
// closest to ref. Callers use it to keep parameter polylines continuous
// across a seam.
func Wrap(x, ref float64, iv Interval) float64 {
	p := iv.Width()
	if p <= 0 || math.IsInf(p, 0) {
		return x
	}
	k := math.Round((ref - x) / p)
	return x + k*p
}
