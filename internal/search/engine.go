package search

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/gofsgdecoder/internal/history"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
	"github.com/MrWong99/gofsgdecoder/internal/result"
)

// Start seeds a new utterance (spec.md §4.2, "start()"): it resets beams and
// the history table, appends the sentinel entry, and runs null-closure plus
// cross-word transitions from the FSG start state to activate the initial
// lextree roots.
func (d *Decoder) Start() error {
	if d.tree == nil {
		if err := d.Reinit(); err != nil {
			return err
		}
	}

	d.beamFactor = 1.0
	d.beam, d.pbeam, d.wbeam = d.cfg.Beam, d.cfg.PBeam, d.cfg.WBeam

	d.hist.UttStart()
	d.final = false
	d.frame = -1
	d.bestScore = 0
	d.bpidxStart = 0
	d.cur.Reset()
	d.next.Reset()
	d.nHMMEval = 0
	d.dag = nil
	d.latticeFrame = -1

	d.hist.Add(nil, -1, 0, history.NoPred, d.cfg.SilenceCIPhone, hmm.AllContexts())

	d.nullClosure(0)
	d.crossWord(0)

	d.cur, d.next = d.next, d.cur
	d.next.Reset()
	d.frame = 0
	d.started = true

	d.log.Debug("search started", "roots_active", d.cur.Len())
	return nil
}

// Step runs one acoustic frame through the frame engine (spec.md §4.2,
// "step()"), returning false if no frame was ready (frame underflow,
// spec.md §7) and true otherwise.
func (d *Decoder) Step() (bool, error) {
	if !d.started {
		return false, fmt.Errorf("search: step called before start")
	}
	if d.scorer.NFeatFrame() == 0 {
		return false, nil
	}

	// bpidx_start is recorded up front (spec.md §4.2c) since stages a/b below
	// never touch the history table.
	d.bpidxStart = d.hist.NEntries()

	// a. Senone activation.
	if !d.scorer.CompAllSen() {
		d.scorer.ClearActive()
		for _, p := range d.cur.Nodes() {
			d.scorer.ActivateHMM(p.HMM)
		}
	}

	// b. Acoustic scoring.
	tAcoustic := time.Now()
	var frameIdx int
	var bestSenScr hmm.Score
	var bestSenID int
	scores, err := d.scorer.Score(&frameIdx, &bestSenScr, &bestSenID)
	if err != nil {
		return false, fmt.Errorf("search: acoustic scoring: %w", err)
	}
	d.eval.SetSenoneScores(scores)
	acousticSecs := time.Since(tAcoustic).Seconds()

	// c. HMM evaluation & dynamic beam adaptation.
	nodes := d.cur.Nodes()
	n := len(nodes)
	if n > d.tree.NPnode() {
		panic(fmt.Sprintf("search: active HMM count %d exceeds lextree pnode count %d (corruption, spec.md §4.2c)", n, d.tree.NPnode()))
	}

	tEval := time.Now()
	d.bestScore = hmm.WorstScore
	for _, p := range nodes {
		b := d.eval.VitEval(p.HMM)
		d.nHMMEval++
		if b > d.bestScore {
			d.bestScore = b
		}
	}
	if n == 0 {
		d.log.Error("empty frame: no active HMMs", "frame", d.frame)
		d.bestScore = 0
	}
	evalSecs := time.Since(tEval).Seconds()

	if d.cfg.MaxHMMPF > 0 && n > d.cfg.MaxHMMPF {
		d.beamFactor *= 0.9
		if d.beamFactor < 0.1 {
			d.beamFactor = 0.1
		}
	} else {
		d.beamFactor = 1.0
	}
	d.beam = scaleBeam(d.cfg.Beam, d.beamFactor)
	d.pbeam = scaleBeam(d.cfg.PBeam, d.beamFactor)
	d.wbeam = scaleBeam(d.cfg.WBeam, d.beamFactor)

	// d. Prune & propagate.
	tPropagate := time.Now()
	thresh := d.bestScore + d.beam
	pthresh := d.bestScore + d.pbeam
	wthresh := d.bestScore + d.wbeam

	for _, p := range nodes {
		if p.HMM.BestScore() < thresh {
			continue
		}
		if p.HMM.Frame() != d.frame+1 {
			p.HMM.Enter(p.HMM.BestScore(), p.HMM.OutHistory(), d.frame+1)
			d.next.Add(p)
		}

		if !p.Leaf {
			if p.HMM.OutScore() >= pthresh {
				for _, c := range p.Children() {
					newScore := p.HMM.OutScore() + hmm.Score(c.LogProbEnter)
					if newScore >= thresh && newScore > c.HMM.InScore() {
						prevFrame := c.HMM.Frame()
						c.HMM.Enter(newScore, p.HMM.OutHistory(), d.frame+1)
						if prevFrame != d.frame+1 {
							d.next.Add(c)
						}
					}
				}
			}
			continue
		}

		if p.HMM.OutScore() >= wthresh {
			rc := p.Ctxt
			if p.SinglePhone || (p.Link != nil && d.fsg.IsFiller(p.Link.Word)) {
				rc = hmm.AllContexts()
			}
			d.hist.Add(p.Link, d.frame, p.HMM.OutScore(), p.HMM.OutHistory(), p.CIExt, rc)
		}
	}
	d.hist.EndFrame()

	// e. Null-transition closure, then f. cross-word transitions, both over
	// entries added since bpidxStart — in that order, per spec.md §5's load-
	// bearing ordering guarantee.
	d.nullClosure(d.bpidxStart)
	d.crossWord(d.bpidxStart)
	propagateSecs := time.Since(tPropagate).Seconds()

	// g. Deactivation & swap.
	for _, p := range nodes {
		if p.HMM.Frame() == d.frame {
			p.HMM.Deactivate()
		}
	}
	d.cur, d.next = d.next, d.cur
	d.next.Reset()
	d.frame++

	if d.metrics != nil {
		d.metrics.RecordFrame(context.Background(), d.name, acousticSecs, evalSecs, propagateSecs, int64(n), d.beamFactor)
	}

	return true, nil
}

// Finish deactivates every remaining active pnode, marks the utterance
// final, and logs the corruption sanity check of spec.md §4.2/§8 property 6.
func (d *Decoder) Finish() {
	hasHyp := d.fsg != nil && result.FindExit(d.hist, d.fsg, -1, true) >= 0

	for _, p := range d.cur.Nodes() {
		p.HMM.Deactivate()
	}
	for _, p := range d.next.Nodes() {
		p.HMM.Deactivate()
	}
	d.cur.Reset()
	d.next.Reset()
	d.final = true
	d.started = false

	if d.tree != nil {
		limit := int64(d.tree.NPnode()) * int64(d.frame)
		if d.nHMMEval > limit {
			d.log.Error("hmm eval count exceeds sanity bound", "n_hmm_eval", d.nHMMEval, "bound", limit)
		}
	}
	d.log.Info("utterance finished", "frames", d.frame, "hmm_evals", d.nHMMEval)

	if d.metrics != nil {
		d.metrics.RecordUtteranceFinished(context.Background(), d.name, hasHyp)
	}
}

// nullClosure implements spec.md §4.2e: for every history entry in
// [rangeStart, NEntries()), follow any precomputed null transition out of
// its destination FSG state and append a same-frame propagated entry when
// it clears the word beam. Preserves the spec's open question (§9) of using
// the word beam, not the phone beam, as the null-closure threshold.
func (d *Decoder) nullClosure(rangeStart int32) {
	end := d.hist.NEntries()
	for i := rangeStart; i < end; i++ {
		e := d.hist.Entry(i)
		s := d.fsg.StartState()
		if e.Link != nil {
			s = e.Link.To
		}
		for dst := 0; dst < d.fsg.NState(); dst++ {
			link, ok := d.fsg.NullTrans(s, dst)
			if !ok {
				continue
			}
			newScore := e.Score + hmm.Score(link.LogProb)
			if newScore < d.bestScore+d.wbeam {
				continue
			}
			l := link
			d.hist.Add(&l, e.Frame, newScore, i, e.LC, e.RC)
		}
	}
	d.hist.EndFrame()
}

// crossWord implements spec.md §4.2f: for every history entry in
// [rangeStart, NEntries()) (now including null-propagated ones), try every
// lextree root attached to the entry's destination FSG state, admitting it
// only if both the left- and right-context tests pass.
func (d *Decoder) crossWord(rangeStart int32) {
	end := d.hist.NEntries()
	for i := rangeStart; i < end; i++ {
		if !d.hist.Live(i) {
			continue
		}
		e := d.hist.Entry(i)
		destState := d.fsg.StartState()
		if e.Link != nil {
			destState = e.Link.To
		}
		for _, root := range d.tree.Roots(destState) {
			if !root.Ctxt.Contains(e.LC) {
				continue
			}
			if !e.RC.Contains(root.CIExt) {
				continue
			}
			newScore := e.Score + hmm.Score(root.LogProbEnter)
			if newScore < d.bestScore+d.beam {
				continue
			}
			if newScore <= root.HMM.InScore() {
				continue
			}
			prevFrame := root.HMM.Frame()
			root.HMM.Enter(newScore, i, d.frame+1)
			if prevFrame != d.frame+1 {
				d.next.Add(root)
			}
		}
	}
}
