// Package sexp implements the Lisp encoding of BREP documents. A document
// is a zygomys program evaluated in a fresh sandbox; each builtin call adds
// one entity:
//
//	; unit square edge
//	(brep :version 1)
//	(vertex 1 :payload [0 0 0])
//	(vertex 2 :payload [1 0 0])
//	(line 30 :payload [0 0 0 1 0 0])
//	(edge 9 :payload [0 1] :refs [1 2 30])
//
// Kind tags with hyphens are written as-is (bspline-curve); the source is
// preprocessed so zygomys sees underscore identifiers.
package sexp

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/brep/pkg/entity"
)

// DefaultTimeout bounds a single document evaluation.
const DefaultTimeout = 5 * time.Second

// Compile-time interface check.
var _ entity.Format = Format{}

// Format is the s-expression document format. The zero value uses
// DefaultTimeout.
type Format struct {
	Timeout time.Duration
}

// Name implements entity.Format.
func (Format) Name() string { return "sexp" }

// Sniff implements entity.Format: the first significant byte is an open
// paren or a comment.
func (Format) Sniff(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '(' || trimmed[0] == ';')
}

// Decode implements entity.Format. Evaluation runs in a goroutine so that
// runaway programs are cut off after the timeout.
func (f Format) Decode(data []byte) (*entity.Document, error) {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ch := make(chan evalResult, 1)
	h := &halt{}
	go func() {
		doc, err := evaluate(string(data), h)
		ch <- evalResult{doc: doc, err: err}
	}()

	return waitWithTimeout(ch, timeout, h.stop)
}

// evaluate runs the preprocessed program and returns the collected
// document. It gives up at the next function call once h is stopped.
func evaluate(source string, h *halt) (doc *entity.Document, err error) {
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			if r == errHalted {
				err = entity.Malformed("%v", errHalted)
				return
			}
			err = entity.Malformed("panic during evaluation: %v", r)
		}
	}()

	st := &state{}
	registerBuiltins(env, st)
	env.AddPreHook(h.hook)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, st.firstError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, st.firstError(err)
	}
	if st.doc == nil {
		return nil, entity.Malformed("missing (brep :version N) header")
	}
	return st.doc, nil
}

// state accumulates the document while builtins run. Typed decode errors
// raised inside builtins are kept here because zygomys flattens returned
// errors to strings.
type state struct {
	doc *entity.Document
	err *entity.DecodeError
}

func (s *state) fail(err error) error {
	var de *entity.DecodeError
	if s.err == nil && errors.As(err, &de) {
		s.err = de
	}
	return err
}

func (s *state) firstError(err error) error {
	if s.err != nil {
		return s.err
	}
	return parseZygomysError(err)
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// parseZygomysError converts an interpreter error into a MalformedDocument
// error, keeping the line number when zygomys reports one.
func parseZygomysError(err error) *entity.DecodeError {
	msg := err.Error()
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return entity.MalformedAt(line, "%s", strings.TrimSpace(m[2]))
	}
	return entity.Malformed("%s", strings.TrimSpace(msg))
}

func kindError(kind entity.Kind, id entity.ID, err error) error {
	return fmt.Errorf("%s %s: %w", kind, id, err)
}
