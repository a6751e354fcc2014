package entity

import "fmt"

// Kind tags a RawEntity with the topological or geometric role it plays.
type Kind int

const (
	KindVertex Kind = iota + 1 // topological vertex
	KindEdge                   // bounded use of a curve between two vertices
	KindLoop                   // closed chain of oriented edge-uses
	KindFace                   // bounded region of a surface
	KindShell                  // connected set of faces
	KindSolid                  // outer shell plus voids
	KindPoint                  // point geometry
	KindLine                   // line curve
	KindCircle                 // circle curve
	KindBSplineCurve           // rational B-spline curve
	KindPlane                  // plane surface
	KindCylinder               // cylinder surface
	KindSphere                 // sphere surface
	KindBSplineSurface         // rational B-spline surface
)

var kindNames = map[Kind]string{
	KindVertex:         "vertex",
	KindEdge:           "edge",
	KindLoop:           "loop",
	KindFace:           "face",
	KindShell:          "shell",
	KindSolid:          "solid",
	KindPoint:          "point",
	KindLine:           "line",
	KindCircle:         "circle",
	KindBSplineCurve:   "bspline-curve",
	KindPlane:          "plane",
	KindCylinder:       "cylinder",
	KindSphere:         "sphere",
	KindBSplineSurface: "bspline-surface",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kind tag back to its Kind. Unknown tags report false.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// IsCurve reports whether k is one of the curve geometry kinds.
func (k Kind) IsCurve() bool {
	switch k {
	case KindLine, KindCircle, KindBSplineCurve:
		return true
	}
	return false
}

// IsSurface reports whether k is one of the surface geometry kinds.
func (k Kind) IsSurface() bool {
	switch k {
	case KindPlane, KindCylinder, KindSphere, KindBSplineSurface:
		return true
	}
	return false
}

// IsTopology reports whether k is a topological kind (vertex through solid).
func (k Kind) IsTopology() bool {
	return k >= KindVertex && k <= KindSolid
}

// MarshalText encodes the kind as its tag.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("entity: unknown kind %d", int(k))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a kind tag.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("entity: unknown kind tag %q", string(b))
	}
	*k = parsed
	return nil
}
