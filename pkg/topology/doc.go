// Package topology resolves a decoded entity document into an arena of
// vertices, edges, loops, faces, shells and solids, and validates it.
//
// Entities refer to each other through dense integer handles into the
// Graph's slices, never through pointers, so the cyclic adjacency of a BREP
// (edges shared by loops of neighbouring faces) needs no ownership links.
// A Graph is immutable once Build returns and may be read concurrently.
package topology
