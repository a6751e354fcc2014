package entity

import (
	"errors"
	"fmt"
)

// DecodeCode classifies a decode failure.
type DecodeCode int

const (
	MalformedDocument DecodeCode = iota + 1 // truncated payload, unknown kind, duplicate id, syntax
	UnsupportedVersion                      // unknown format revision
)

func (c DecodeCode) String() string {
	switch c {
	case MalformedDocument:
		return "MalformedDocument"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	default:
		return fmt.Sprintf("DecodeCode(%d)", int(c))
	}
}

// Sentinels for errors.Is matching against a *DecodeError.
var (
	ErrMalformedDocument  = errors.New("malformed document")
	ErrUnsupportedVersion = errors.New("unsupported version")
)

// DecodeError describes why a document could not be decoded. Decoding is
// all-or-nothing, so a DecodeError always means no Document was produced.
type DecodeError struct {
	Code     DecodeCode
	EntityID ID     // offending entity, zero if document-level
	Line     int    // source line when the format knows it
	Message  string
}

func (e *DecodeError) Error() string {
	switch {
	case !e.EntityID.IsZero():
		return fmt.Sprintf("decode: %s: entity %s: %s", e.Code, e.EntityID, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("decode: %s: line %d: %s", e.Code, e.Line, e.Message)
	default:
		return fmt.Sprintf("decode: %s: %s", e.Code, e.Message)
	}
}

// Is lets errors.Is match the code sentinels.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrMalformedDocument:
		return e.Code == MalformedDocument
	case ErrUnsupportedVersion:
		return e.Code == UnsupportedVersion
	}
	return false
}

func malformed(id ID, msg string) *DecodeError {
	return &DecodeError{Code: MalformedDocument, EntityID: id, Message: msg}
}

// Malformed builds a MalformedDocument error for format implementations.
func Malformed(format string, args ...any) *DecodeError {
	return &DecodeError{Code: MalformedDocument, Message: fmt.Sprintf(format, args...)}
}

// MalformedAt is Malformed with a source line.
func MalformedAt(line int, format string, args ...any) *DecodeError {
	return &DecodeError{Code: MalformedDocument, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Unsupported builds an UnsupportedVersion error.
func Unsupported(version int) *DecodeError {
	return &DecodeError{
		Code:    UnsupportedVersion,
		Message: fmt.Sprintf("format revision %d is not supported (want %v)", version, SupportedVersions),
	}
}
