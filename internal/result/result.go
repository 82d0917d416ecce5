// Package result implements the hypothesis and segmentation extractor
// described in spec.md §4.5: locating the best word-exit in a frame,
// backtracing through the history table to build a hypothesis string, and
// producing a per-word segmentation, with an optional lattice best-path
// shortcut.
package result

import (
	"strings"

	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
	"github.com/MrWong99/gofsgdecoder/internal/history"
)

// Dictionary is the minimal surface hypothesis rendering needs.
type Dictionary interface {
	WordStr(wid fsgmodel.WordID) string
}

// FindExit implements spec.md §4.5's find_exit: scan backpointers back to
// front to locate entries in frame (or the last frame with any entry, if
// frame < 0). Among entries in that single frame, return the index of the
// highest-scoring one; if final is true, restrict to entries whose link
// destination is the FSG's final state. Returns -1 if none qualifies.
func FindExit(hist *history.Table, fsg *fsgmodel.Model, frame int32, final bool) int32 {
	n := hist.NEntries()
	if frame < 0 {
		frame = -1
		for i := int32(0); i < n; i++ {
			if e := hist.Entry(i); e.Frame > frame {
				frame = e.Frame
			}
		}
	}

	best := int32(-1)
	var bestScore hmm.Score
	for i := n - 1; i >= 0; i-- {
		e := hist.Entry(i)
		if e.Frame != frame {
			continue
		}
		if final {
			if e.Link == nil || e.Link.To != fsg.FinalState() {
				continue
			}
		}
		if best == -1 || e.Score > bestScore {
			best = i
			bestScore = e.Score
		}
	}
	return best
}

// backtrace walks predecessors from entry to the sentinel, returning the
// visited indices in forward (oldest-first) order.
func backtrace(hist *history.Table, entry int32) []int32 {
	var reversed []int32
	for i := entry; i != history.NoPred; {
		reversed = append(reversed, i)
		i = hist.Entry(i).Pred
	}
	chain := make([]int32, len(reversed))
	for k, idx := range reversed {
		chain[len(reversed)-1-k] = idx
	}
	return chain
}

// Hyp builds the hypothesis string for entry by walking predecessors and
// joining the non-filler, non-null words in forward order with single
// spaces (spec.md §4.5). Per spec.md §9's hypothesis-buffer design note, an
// implementation may compute the length up front and fill right-to-left;
// building a slice of words and joining is an equivalent, simpler strategy.
func Hyp(hist *history.Table, fsg *fsgmodel.Model, dict Dictionary, entry int32) string {
	if entry < 0 {
		return ""
	}
	chain := backtrace(hist, entry)
	var words []string
	for _, i := range chain {
		e := hist.Entry(i)
		if e.Link == nil || e.Link.IsNull() || e.Link.Word < 0 || fsg.IsFiller(e.Link.Word) {
			continue
		}
		words = append(words, dict.WordStr(e.Link.Word))
	}
	return strings.Join(words, " ")
}

// Segment is one word of a segmentation (spec.md §4.5).
type Segment struct {
	Word  string
	SF    int32
	EF    int32
	LScr  int32
	AScr  hmm.Score
	LBack int
	Prob  float64
}

// Segments builds the segmentation for entry by walking predecessors,
// skipping the sentinel and null-propagation entries, and computing each
// word's span/score per spec.md §4.5's formula. sf is clamped to ef when a
// null transition would otherwise invert them.
func Segments(hist *history.Table, dict Dictionary, entry int32) []Segment {
	if entry < 0 {
		return nil
	}
	chain := backtrace(hist, entry)
	var out []Segment
	for _, i := range chain {
		e := hist.Entry(i)
		if e.Link == nil || e.Link.IsNull() {
			continue
		}
		var sf int32
		var predScore hmm.Score
		if e.Pred != history.NoPred {
			pred := hist.Entry(e.Pred)
			sf = pred.Frame + 1
			predScore = pred.Score
		} else {
			sf = 0
		}
		ef := e.Frame
		if sf > ef {
			sf = ef
		}
		// Open question (spec.md §9): the source itself is unsure how
		// cross-word triphones are attributed here. Preserve the formula
		// exactly rather than "fixing" it.
		ascr := e.Score - predScore - hmm.Score(e.Link.LogProb)
		out = append(out, Segment{
			Word:  dict.WordStr(e.Link.Word),
			SF:    sf,
			EF:    ef,
			LScr:  e.Link.LogProb,
			AScr:  ascr,
			LBack: 1,
			Prob:  0,
		})
	}
	return out
}
