// Package entity defines the decoded, pre-resolution form of a BREP
// document: a flat set of typed entities that refer to each other by id.
// Wire formats live in sub-packages and plug in through the Format interface.
package entity
