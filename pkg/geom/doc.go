// Package geom evaluates the parametric curves and surfaces referenced by
// BREP topology. Curves and surfaces are closed sets of variants: every
// evaluation is a type switch over the concrete types in this package, and
// each variant is a plain value that is safe to share between goroutines.
package geom
