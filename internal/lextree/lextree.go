// Package lextree defines the phonetic-prefix-tree node ([Pnode]) and the
// [Lextree] collaborator interface the frame engine activates from.
// Constructing a lextree from an FSG's vocabulary (the real compilation
// step) is explicitly out of scope for this module (spec.md §1, §2: "(external)");
// this package describes the node shape and the query surface, plus a
// hand-built reference tree (lextree/mock) used to drive tests.
package lextree

import (
	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
)

// Pnode is one node of the phonetic prefix tree: one HMM instance plus
// context and topology metadata (spec.md §3).
//
// Ctxt is a single context-admission bit-set whose meaning depends on the
// node's role, matching spec.md's data model (one "ctxt" field, read two
// ways): when the node is a lextree root, Ctxt is the admissible
// left-context set — the CI-phones legally allowed to precede it
// (spec.md §4.2f, "the root's context bit-set"). When the node is a leaf
// (word exit), Ctxt is the admissible right-context set recorded into the
// history entry so that the *next* word's cross-word check can test it
// (spec.md §4.2d/f). CIExt is this node's own phone identity, consulted as
// the right-context value a *predecessor* entry's RC bit-set must admit
// (spec.md §4.2f, "the root's ci_ext").
type Pnode struct {
	HMM hmm.HMM

	// LogProbEnter is the log-probability of entering this node from its
	// parent (or, for a root, from the FSG transition that reaches it).
	LogProbEnter int32

	// CIExt is this node's phone, exposed as a right-context value.
	CIExt int

	// Ctxt is role-dependent: left-context admission for roots, or
	// right-context admission for leaves. See the type doc comment.
	Ctxt hmm.ContextSet

	Sibling    *Pnode
	FirstChild *Pnode

	// Leaf is true for word-end nodes.
	Leaf bool

	// Link is the outgoing FSG transition this leaf corresponds to. Valid
	// only when Leaf is true.
	Link *fsgmodel.Link

	// SinglePhone is true if this leaf is also its word's root (a
	// single-phone pronunciation), which per spec.md §4.2d forces
	// right-context-independent word-exit recording.
	SinglePhone bool
}

// Children returns all child pnodes of p, following the sibling chain from
// FirstChild.
func (p *Pnode) Children() []*Pnode {
	var out []*Pnode
	for c := p.FirstChild; c != nil; c = c.Sibling {
		out = append(out, c)
	}
	return out
}

// Lextree is a phonetic prefix-tree over the vocabulary of the currently
// selected FSG, with left/right-context support and per-FSG-state roots.
type Lextree interface {
	// Roots returns the lextree root pnodes reachable from FSG state s —
	// i.e. the entry points for words whose FSG transition leaves s.
	Roots(s int) []*Pnode

	// NPnode returns the total number of pnodes in the tree, used for the
	// active-HMM-count corruption sanity check (spec.md §4.2c, §8 property 6).
	NPnode() int
}
