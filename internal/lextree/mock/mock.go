// Package mock provides a reference lextree builder for tests: given an FSG
// and a toy pronunciation dictionary (CI-phone sequences per word), it
// builds one root chain per FSG transition, sharing no prefixes (prefix
// sharing is a construction optimisation, not a decoder-core semantic —
// spec.md places lextree construction out of scope entirely). Each pnode's
// HMM is created via a caller-supplied factory so tests can plug in
// [github.com/MrWong99/gofsgdecoder/internal/hmm/mock].
package mock

import (
	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
	"github.com/MrWong99/gofsgdecoder/internal/lextree"
)

// Pron is a toy pronunciation: a sequence of CI-phone ids.
type Pron []int

// HMMFactory creates a fresh HMM instance, typically backed by
// per-(word,position) scripted emission scores in tests.
type HMMFactory func(word fsgmodel.WordID, phonePos int, ci int) hmm.HMM

// Tree is a simple, non-prefix-shared [lextree.Lextree] built directly from
// an FSG's transitions.
type Tree struct {
	roots map[int][]*lextree.Pnode
	count int
}

func (t *Tree) Roots(s int) []*lextree.Pnode { return t.roots[s] }
func (t *Tree) NPnode() int                  { return t.count }

// Build constructs a [Tree] with one root chain per non-null FSG transition,
// using prons to look up each transition's word's phone sequence and ctxts
// to look up the admissible left-context bit-set for each root (keyed by
// word id; callers that don't care about triphone admission can supply
// [hmm.AllContexts] for every word). The leaf of a multi-phone word admits
// every right context.
func Build(fsg *fsgmodel.Model, prons map[fsgmodel.WordID]Pron, ctxts map[fsgmodel.WordID]hmm.ContextSet, mkHMM HMMFactory) *Tree {
	t := &Tree{roots: make(map[int][]*lextree.Pnode)}

	for s := 0; s < fsg.NState(); s++ {
		for _, link := range fsg.TransFrom(s) {
			if link.IsNull() {
				continue
			}
			link := link
			pron := prons[link.Word]
			if len(pron) == 0 {
				continue
			}
			ctxt, ok := ctxts[link.Word]
			if !ok {
				ctxt = hmm.AllContexts()
			}

			var root, prev *lextree.Pnode
			for i, ci := range pron {
				n := &lextree.Pnode{
					HMM:          mkHMM(link.Word, i, ci),
					LogProbEnter: 0,
					CIExt:        ci,
				}
				t.count++
				if i == 0 {
					n.Ctxt = ctxt
					root = n
				} else {
					prev.FirstChild = n
				}
				if i == len(pron)-1 {
					n.Leaf = true
					n.Link = &fsgmodel.Link{Word: link.Word, LogProb: link.LogProb, To: link.To}
					n.SinglePhone = len(pron) == 1
					if !n.SinglePhone {
						n.Ctxt = hmm.AllContexts()
					}
				}
				prev = n
			}
			t.roots[s] = append(t.roots[s], root)
		}
	}
	return t
}

// Builder adapts [Build]'s (fsg, prons, ctxts, mkHMM) signature to the
// single-argument shape [github.com/MrWong99/gofsgdecoder/internal/search.LextreeBuilder]
// expects, for tests that drive a real [search.Decoder] against this
// reference tree.
type Builder struct {
	Prons  map[fsgmodel.WordID]Pron
	Ctxts  map[fsgmodel.WordID]hmm.ContextSet
	MkHMM  HMMFactory
}

// Build implements search.LextreeBuilder.
func (b Builder) Build(fsg *fsgmodel.Model) (lextree.Lextree, error) {
	return Build(fsg, b.Prons, b.Ctxts, b.MkHMM), nil
}
