// Package mock provides a deterministic, hand-scriptable [hmm.HMM] and
// [hmm.Evaluator] pair for driving the frame engine in tests without a real
// acoustic-model topology. Grounded on the scripted-provider mocks used
// throughout the teacher codebase (pkg/provider/stt/mock, internal/engine/mock).
package mock

import "github.com/MrWong99/gofsgdecoder/internal/hmm"

// HMM is a minimal single-state Viterbi machine: entering it with a score
// sets its in score, and each [Evaluator] VitEval call sets its out and best
// scores to that in score plus this instance's emission score for the
// evaluator's current frame. This is sufficient to exercise every beam/propagation path
// in the frame engine (spec.md §4.2) without modelling real phone topology.
type HMM struct {
	inScore  hmm.Score
	outScore hmm.Score
	best     hmm.Score
	bp       int32
	frame    int32

	// EmissionScores is consulted by Evaluator.VitEval, indexed by the
	// current acoustic frame number (0-based). A nil or short slice yields
	// an emission score of 0 for frames beyond its length.
	EmissionScores []hmm.Score
}

// NewHMM returns an HMM with no entry yet (frame -1, worst score).
func NewHMM(emissionScores []hmm.Score) *HMM {
	return &HMM{
		inScore:        hmm.WorstScore,
		outScore:       hmm.WorstScore,
		best:           hmm.WorstScore,
		bp:             hmm.NoBackpointer,
		frame:          -1,
		EmissionScores: emissionScores,
	}
}

func (h *HMM) BestScore() hmm.Score  { return h.best }
func (h *HMM) InScore() hmm.Score    { return h.inScore }
func (h *HMM) OutScore() hmm.Score   { return h.outScore }
func (h *HMM) OutHistory() int32     { return h.bp }
func (h *HMM) Frame() int32          { return h.frame }

// Enter seeds the HMM's entry score if score improves on the current
// in-score, or if the HMM has not yet been stamped for this frame.
func (h *HMM) Enter(score hmm.Score, bp int32, frame int32) {
	if h.frame != frame || score > h.inScore {
		h.inScore = score
		h.bp = bp
	}
	h.frame = frame
}

// Deactivate resets the HMM to its pre-activation state so it can be
// re-entered cleanly in a later utterance.
func (h *HMM) Deactivate() {
	h.inScore = hmm.WorstScore
	h.outScore = hmm.WorstScore
	h.best = hmm.WorstScore
	h.bp = hmm.NoBackpointer
	h.frame = -1
}

// eval applies this frame's emission score to the entry score, updating
// out/best accordingly. Called by Evaluator.VitEval.
func (h *HMM) eval(emission hmm.Score) hmm.Score {
	if h.inScore <= hmm.WorstScore {
		h.outScore = hmm.WorstScore
		h.best = hmm.WorstScore
		return h.best
	}
	h.outScore = h.inScore + emission
	h.best = h.outScore
	return h.best
}

// Evaluator is a scripted [hmm.Evaluator]. Frame must be advanced by
// the test driver (or by [Evaluator.SetSenoneScores], which bumps it) to
// select which emission score each HMM's eval step applies.
type Evaluator struct {
	// Frame is the 0-based acoustic frame the next VitEval calls apply to.
	// SetSenoneScores bumps it so the evaluator always operates on "the
	// frame whose senone scores were most recently bound", matching the
	// frame engine's call order (activate → score → evaluate, spec.md §4.2).
	Frame int

	senoneScores []hmm.Score

	// EvalCount records how many VitEval calls have been made, for the
	// corruption sanity check described in spec.md §4.2g / §8 property 6.
	EvalCount int
}

// NewEvaluator returns an Evaluator with Frame initialised to -1; the first
// SetSenoneScores call advances it to 0.
func NewEvaluator() *Evaluator {
	return &Evaluator{Frame: -1}
}

func (e *Evaluator) ContextInit(nEmitState int, tmat [][]hmm.Score, tp int, sseq [][]int32) error {
	return nil
}

func (e *Evaluator) SetSenoneScores(scores []hmm.Score) {
	e.senoneScores = scores
	e.Frame++
}

func (e *Evaluator) VitEval(h hmm.HMM) hmm.Score {
	e.EvalCount++
	mh, ok := h.(*HMM)
	if !ok {
		return h.BestScore()
	}
	var emission hmm.Score
	if e.Frame >= 0 && e.Frame < len(mh.EmissionScores) {
		emission = mh.EmissionScores[e.Frame]
	}
	return mh.eval(emission)
}
