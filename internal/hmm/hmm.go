// Package hmm defines the HMM evaluator collaborator contract used by the
// frame engine (internal/search). Acoustic-model inference and HMM topology
// evaluation are explicitly out of scope for this module (spec.md §1): this
// package only describes the shape a real evaluator must have, plus the
// small set of accessors the frame engine reads every frame.
//
// A concrete, reference-grade evaluator lives in hmm/mock for tests; a
// production evaluator would bind these same interfaces to a real
// transition-matrix / senone-sequence HMM topology engine.
package hmm

import "math/bits"

// Score is a log-domain acoustic/language score. Higher is better; all beam
// widths and thresholds in this module are expressed in the same domain.
type Score int32

// WorstScore is the sentinel used for "not yet evaluated" / "unreachable".
// It is chosen well clear of int32 overflow so that WorstScore+anything
// small still compares correctly.
const WorstScore Score = -(1 << 28)

// NoBackpointer marks the absence of a history predecessor.
const NoBackpointer int32 = -1

// HMM is one phonetic Viterbi state machine, opaque to the frame engine
// beyond the accessors below. Each [lextree.Pnode] owns exactly one HMM
// instance for the lifetime of the lextree.
type HMM interface {
	// BestScore is the best score across all states after the last Eval.
	BestScore() Score

	// InScore is the score fed into the entry state on the last Enter call.
	InScore() Score

	// OutScore is the score leaving the HMM's final emitting state — the
	// score propagated to children / word exit.
	OutScore() Score

	// OutHistory is the backpointer id recorded when the path reaching the
	// exit state was last updated.
	OutHistory() int32

	// Frame is the frame stamp of the most recent Enter call. Used by the
	// frame engine to detect whether this HMM has already been activated
	// for a given frame (spec.md §3, active-set duplicate detection).
	Frame() int32

	// Enter seeds the HMM's entry state with score, recording bp as the
	// backpointer and frame as the frame stamp. Within an already-stamped
	// frame it re-seeds only if score is higher than the current entry
	// score; a different frame always overwrites the entry.
	Enter(score Score, bp int32, frame int32)

	// Deactivate resets the HMM to its pre-activation state (spec.md §4.2g).
	// Called by the frame engine on every pnode that falls out of the active
	// set, so a lextree can be reused across frames/utterances without
	// carrying stale scores forward.
	Deactivate()
}

// Evaluator runs the Viterbi state-transition step for a single HMM topology
// class shared by all HMM instances built from the same transition matrix.
type Evaluator interface {
	// ContextInit binds the topology: number of emitting states, transition
	// matrices, a transition-probability table index, and per-state senone
	// sequence mapping. Opaque beyond that — provided by the acoustic model.
	ContextInit(nEmitState int, tmat [][]Score, tp int, sseq [][]int32) error

	// SetSenoneScores binds the current frame's per-senone score vector,
	// computed by the acoustic scorer (internal/acoustic), so that VitEval
	// calls for this frame can look up emission scores.
	SetSenoneScores(scores []Score)

	// VitEval runs one Viterbi evaluation step on h against the currently
	// bound senone scores and returns the resulting best score. Implicitly
	// advances h's internal state/history per the topology's transitions.
	VitEval(h HMM) Score
}

// ContextSet is a dense bit-vector over CI-phone ids, used for left/right
// triphone-context admission tests (spec.md §9, "right-context bit-sets").
// The zero value is the empty set. An explicit "all contexts" sentinel
// (see [AllContexts]) is distinguished from an ordinary bit-vector so that
// filler / single-phone word exits — which are context-independent — can be
// told apart from genuinely narrow contexts.
type ContextSet struct {
	bits []uint64
	all  bool
}

// AllContexts returns the sentinel context set that admits every CI-phone.
func AllContexts() ContextSet {
	return ContextSet{all: true}
}

// NewContextSet returns an empty context set sized for nCIPhones distinct
// CI-phone ids.
func NewContextSet(nCIPhones int) ContextSet {
	return ContextSet{bits: make([]uint64, (nCIPhones+63)/64)}
}

// Add marks ci as admissible. No-op on the all-contexts sentinel.
func (c *ContextSet) Add(ci int) {
	if c.all || ci < 0 {
		return
	}
	word := ci / 64
	for word >= len(c.bits) {
		c.bits = append(c.bits, 0)
	}
	c.bits[word] |= 1 << uint(ci%64)
}

// Contains reports whether ci is admissible under this context set.
func (c ContextSet) Contains(ci int) bool {
	if c.all {
		return true
	}
	if ci < 0 {
		return false
	}
	word := ci / 64
	if word >= len(c.bits) {
		return false
	}
	return c.bits[word]&(1<<uint(ci%64)) != 0
}

// IsAll reports whether this is the all-contexts sentinel.
func (c ContextSet) IsAll() bool {
	return c.all
}

// Key returns a value suitable for use as a map key that uniquely identifies
// this context set's membership (used by the history table's per-frame
// (to-state, right-context) compaction key, spec.md §4.3).
func (c ContextSet) Key() string {
	if c.all {
		return "*"
	}
	b := make([]byte, len(c.bits)*8)
	for i, w := range c.bits {
		for j := 0; j < 8; j++ {
			b[i*8+j] = byte(w >> (8 * j))
		}
	}
	return string(b)
}

// Count returns the number of admissible CI-phones, or -1 for the
// all-contexts sentinel (whose cardinality is context-dependent).
func (c ContextSet) Count() int {
	if c.all {
		return -1
	}
	n := 0
	for _, w := range c.bits {
		n += bits.OnesCount64(w)
	}
	return n
}
