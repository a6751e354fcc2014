package topology

import (
	"fmt"
	"strings"

	"github.com/chazu/brep/pkg/entity"
)

// Code classifies a topology failure.
type Code int

const (
	DanglingReference       Code = iota + 1 // reference to an id that does not exist
	WrongKind                               // reference to an entity of the wrong kind
	DegenerateEntity                        // geometry or range that cannot be evaluated
	VertexOffCurve                          // edge endpoint not on its curve
	OpenLoop                                // consecutive edge-uses do not meet
	NonManifoldEdge                         // edge used the wrong number of times in a shell
	InconsistentOrientation                 // face senses contradict each other
	NoSolids                                // document has no solid to build
)

var codeNames = map[Code]string{
	DanglingReference:       "DanglingReference",
	WrongKind:               "WrongKind",
	DegenerateEntity:        "DegenerateEntity",
	VertexOffCurve:          "VertexOffCurve",
	OpenLoop:                "OpenLoop",
	NonManifoldEdge:         "NonManifoldEdge",
	InconsistentOrientation: "InconsistentOrientation",
	NoSolids:                "NoSolids",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Error is a topology failure. IDs lists the offending entities, the
// entity being resolved or validated first.
type Error struct {
	Code    Code
	IDs     []entity.ID
	Message string
}

func (e *Error) Error() string {
	if len(e.IDs) == 0 {
		return fmt.Sprintf("topology: %s: %s", e.Code, e.Message)
	}
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("topology: %s: %s: %s", e.Code, strings.Join(ids, ","), e.Message)
}

// Is matches another *Error with the same code, so the sentinels below
// work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && len(t.IDs) == 0 && t.Message == "" && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrDanglingReference       = &Error{Code: DanglingReference}
	ErrWrongKind               = &Error{Code: WrongKind}
	ErrDegenerateEntity        = &Error{Code: DegenerateEntity}
	ErrVertexOffCurve          = &Error{Code: VertexOffCurve}
	ErrOpenLoop                = &Error{Code: OpenLoop}
	ErrNonManifoldEdge         = &Error{Code: NonManifoldEdge}
	ErrInconsistentOrientation = &Error{Code: InconsistentOrientation}
	ErrNoSolids                = &Error{Code: NoSolids}
)

func newError(code Code, msg string, ids ...entity.ID) *Error {
	return &Error{Code: code, IDs: ids, Message: msg}
}

func errorf(code Code, ids []entity.ID, format string, args ...any) *Error {
	return &Error{Code: code, IDs: ids, Message: fmt.Sprintf(format, args...)}
}
