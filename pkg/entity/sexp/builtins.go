package sexp

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/brep/pkg/entity"
)

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
			continue
		}
		result.positional = append(result.positional, args[i])
		i++
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toID extracts a positive integral entity id.
func toID(s zygo.Sexp) (entity.ID, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f <= 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("entity id must be a positive integer, got %v", f)
	}
	return entity.ID(f), nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func toFloats(s zygo.Sexp) ([]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = toFloat64(item); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func toIDs(s zygo.Sexp) ([]entity.ID, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ID, len(items))
	for i, item := range items {
		if out[i], err = toID(item); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// sexpEntityRef is returned from every entity builtin so documents can
// bind ids to names with def if they like.
type sexpEntityRef struct {
	id   entity.ID
	kind entity.Kind
}

func (r *sexpEntityRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %d)", r.kind, uint64(r.id))
}
func (r *sexpEntityRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the document builtins into a zygomys
// environment. Source must be run through preprocessSource first.
func registerBuiltins(env *zygo.Zlisp, st *state) {

	// (brep :version 1)
	env.AddFunction("brep", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if st.doc != nil {
			return zygo.SexpNull, st.fail(entity.Malformed("duplicate brep header"))
		}
		pa := parseArgs(args)
		v, ok := pa.kw["version"]
		if !ok {
			return zygo.SexpNull, st.fail(entity.Malformed("brep header without :version"))
		}
		f, err := toFloat64(v)
		if err != nil {
			return zygo.SexpNull, st.fail(entity.Malformed("brep: version: %v", err))
		}
		version := int(f)
		if float64(version) != f || !entity.IsSupported(version) {
			return zygo.SexpNull, st.fail(entity.Unsupported(version))
		}
		st.doc = entity.NewDocument(version)
		return zygo.SexpNull, nil
	})

	// (<kind> ID :payload [..] :refs [..]) for every kind tag.
	for k := entity.KindVertex; k <= entity.KindBSplineSurface; k++ {
		kind := k
		fname := strings.ReplaceAll(kind.String(), "-", "_")
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			return addEntity(st, kind, args)
		})
	}
}

func addEntity(st *state, kind entity.Kind, args []zygo.Sexp) (zygo.Sexp, error) {
	if st.doc == nil {
		return zygo.SexpNull, st.fail(entity.Malformed("%s before (brep :version N) header", kind))
	}
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, st.fail(entity.Malformed("%s requires exactly one id argument", kind))
	}
	id, err := toID(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, st.fail(entity.Malformed("%s: %v", kind, err))
	}

	e := &entity.RawEntity{ID: id, Kind: kind}
	for key, v := range pa.kw {
		switch key {
		case "payload":
			if e.Payload, err = toFloats(v); err != nil {
				return zygo.SexpNull, st.fail(&entity.DecodeError{
					Code: entity.MalformedDocument, EntityID: id, Message: "payload: " + err.Error(),
				})
			}
		case "refs":
			if e.References, err = toIDs(v); err != nil {
				return zygo.SexpNull, st.fail(&entity.DecodeError{
					Code: entity.MalformedDocument, EntityID: id, Message: "refs: " + err.Error(),
				})
			}
		default:
			return zygo.SexpNull, st.fail(&entity.DecodeError{
				Code: entity.MalformedDocument, EntityID: id, Message: "unknown keyword :" + key,
			})
		}
	}

	if err := st.doc.Add(e); err != nil {
		return zygo.SexpNull, st.fail(kindError(kind, id, err))
	}
	return &sexpEntityRef{id: id, kind: kind}, nil
}
