// Package jsonfmt implements the JSON encoding of BREP documents:
//
//	{"format": "brep-json", "version": 1, "entities": [
//	  {"id": 1, "kind": "vertex", "payload": [0, 0, 0]},
//	  {"id": 9, "kind": "edge", "payload": [0, 1], "refs": [1, 2, 30]}
//	]}
package jsonfmt

import (
	"bytes"

	json "github.com/goccy/go-json"

	"github.com/chazu/brep/pkg/entity"
)

// Tag is the value of the top-level "format" field.
const Tag = "brep-json"

// Compile-time interface check.
var _ entity.Format = Format{}

// Format is the JSON document format.
type Format struct{}

// Name implements entity.Format.
func (Format) Name() string { return "json" }

// Sniff implements entity.Format: JSON documents start with an object.
func (Format) Sniff(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

type header struct {
	Format   string          `json:"format"`
	Version  int             `json:"version"`
	Entities json.RawMessage `json:"entities"`
}

type wireEntity struct {
	ID      uint64    `json:"id"`
	Kind    string    `json:"kind"`
	Payload []float64 `json:"payload,omitempty"`
	Refs    []uint64  `json:"refs,omitempty"`
}

// Decode implements entity.Format.
func (Format) Decode(data []byte) (*entity.Document, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, entity.Malformed("invalid json: %v", err)
	}
	if h.Format != "" && h.Format != Tag {
		return nil, entity.Malformed("format tag %q, want %q", h.Format, Tag)
	}
	if !entity.IsSupported(h.Version) {
		return nil, entity.Unsupported(h.Version)
	}
	if len(h.Entities) == 0 {
		return nil, entity.Malformed("missing entities array")
	}

	dec := json.NewDecoder(bytes.NewReader(h.Entities))
	dec.DisallowUnknownFields()
	var wire []wireEntity
	if err := dec.Decode(&wire); err != nil {
		return nil, entity.Malformed("entities: %v", err)
	}

	doc := entity.NewDocument(h.Version)
	for _, w := range wire {
		kind, ok := entity.ParseKind(w.Kind)
		if !ok {
			return nil, &entity.DecodeError{
				Code:     entity.MalformedDocument,
				EntityID: entity.ID(w.ID),
				Message:  "unknown kind tag " + w.Kind,
			}
		}
		refs := make([]entity.ID, len(w.Refs))
		for i, r := range w.Refs {
			refs[i] = entity.ID(r)
		}
		if err := doc.Add(&entity.RawEntity{
			ID:         entity.ID(w.ID),
			Kind:       kind,
			Payload:    w.Payload,
			References: refs,
		}); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Encode writes doc as an indented JSON document, entities ordered by id.
func Encode(doc *entity.Document) ([]byte, error) {
	sorted := doc.Sorted()
	wire := make([]wireEntity, len(sorted))
	for i, e := range sorted {
		refs := make([]uint64, len(e.References))
		for j, r := range e.References {
			refs[j] = uint64(r)
		}
		wire[i] = wireEntity{ID: uint64(e.ID), Kind: e.Kind.String(), Payload: e.Payload, Refs: refs}
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(header{Format: Tag, Version: doc.Version, Entities: raw}, "", "  ")
}
