package entity

import (
	"fmt"
	"sort"
)

// ID identifies an entity within one document. Zero is never a valid id.
type ID uint64

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool { return id == 0 }

func (id ID) String() string { return fmt.Sprintf("#%d", uint64(id)) }

// RawEntity is one decoded entity before reference resolution.
type RawEntity struct {
	ID         ID        `json:"id"`
	Kind       Kind      `json:"kind"`
	Payload    []float64 `json:"payload,omitempty"`
	References []ID      `json:"refs,omitempty"`
}

// Document is the flat entity collection produced by a decode. It is built
// once per import and discarded after topology resolution.
type Document struct {
	Version  int
	Entities map[ID]*RawEntity
	Order    []ID // decode order, for deterministic iteration
}

// NewDocument creates an empty document for the given format revision.
func NewDocument(version int) *Document {
	return &Document{
		Version:  version,
		Entities: make(map[ID]*RawEntity),
	}
}

// Add inserts an entity after checking its id and payload shape. Duplicate
// ids and malformed payloads are reported as MalformedDocument.
func (d *Document) Add(e *RawEntity) error {
	if e.ID.IsZero() {
		return malformed(0, "entity with zero id")
	}
	if _, exists := d.Entities[e.ID]; exists {
		return malformed(e.ID, "duplicate id")
	}
	if _, ok := kindNames[e.Kind]; !ok {
		return malformed(e.ID, fmt.Sprintf("unknown kind tag %d", int(e.Kind)))
	}
	if err := checkShape(e); err != nil {
		return err
	}
	d.Entities[e.ID] = e
	d.Order = append(d.Order, e.ID)
	return nil
}

// Get returns the entity with the given id, or nil.
func (d *Document) Get(id ID) *RawEntity {
	return d.Entities[id]
}

// Len returns the number of entities.
func (d *Document) Len() int {
	return len(d.Entities)
}

// OfKind returns all entities of kind k in decode order.
func (d *Document) OfKind(k Kind) []*RawEntity {
	var out []*RawEntity
	for _, id := range d.Order {
		if e := d.Entities[id]; e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Sorted returns every entity ordered by id.
func (d *Document) Sorted() []*RawEntity {
	out := make([]*RawEntity, 0, len(d.Entities))
	for _, e := range d.Entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CountByKind tallies entities per kind.
func (d *Document) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range d.Entities {
		counts[e.Kind]++
	}
	return counts
}
