package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// EmptyBox returns an inverted box that any Include makes valid.
func EmptyBox() sdf.Box3 {
	inf := math.Inf(1)
	return sdf.Box3{
		Min: Vec3{X: inf, Y: inf, Z: inf},
		Max: Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Include grows b to contain p.
func Include(b sdf.Box3, p Vec3) sdf.Box3 {
	b.Min = Vec3{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = Vec3{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// Union returns the smallest box containing a and b.
func Union(a, b sdf.Box3) sdf.Box3 {
	if IsEmptyBox(b) {
		return a
	}
	return Include(Include(a, b.Min), b.Max)
}

// IsEmptyBox reports whether b contains no points.
func IsEmptyBox(b sdf.Box3) bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}
