// Package activeset implements the two alternating active-node sets
// described in spec.md §3/§4.2: the pnodes active in the current frame and
// those entering the next. Duplicate detection relies entirely on each
// pnode's own HMM frame stamp (spec.md §9, "Graph ownership" / §3 invariant),
// so the set itself is just a growable, resettable list.
package activeset

import "github.com/MrWong99/gofsgdecoder/internal/lextree"

// Set is an ordered collection of active pnodes for one frame.
type Set struct {
	nodes []*lextree.Pnode
}

// New returns an empty Set.
func New() *Set {
	return &Set{}
}

// Add appends p. Callers are responsible for checking p's HMM frame stamp
// before calling Add, per spec.md §3's duplicate-detection invariant — Add
// itself performs no deduplication.
func (s *Set) Add(p *lextree.Pnode) {
	s.nodes = append(s.nodes, p)
}

// Nodes returns the pnodes currently in the set. The returned slice aliases
// internal storage and must not be retained across a Reset.
func (s *Set) Nodes() []*lextree.Pnode {
	return s.nodes
}

// Len returns the number of active pnodes.
func (s *Set) Len() int {
	return len(s.nodes)
}

// Reset empties the set, retaining its backing array for reuse.
func (s *Set) Reset() {
	s.nodes = s.nodes[:0]
}
