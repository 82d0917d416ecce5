package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/gofsgdecoder/internal/hmm"
	"github.com/MrWong99/gofsgdecoder/internal/lattice"
	"github.com/MrWong99/gofsgdecoder/internal/result"
)

// Lattice builds (or returns the memoised) DAG for the current history
// table, per spec.md §4.4's memoisation-by-frame-count rule: two calls with
// no intervening Step return the identical object.
func (d *Decoder) Lattice() (*lattice.DAG, error) {
	if d.fsg == nil {
		return nil, ErrUnknownFSG
	}
	if d.dag != nil && d.latticeFrame == d.frame {
		return d.dag, nil
	}
	tBuild := time.Now()
	dag, err := lattice.Build(d.hist, d.fsg, d.dict, d.frame, d.cfg.SilPenLog, d.cfg.FillPenLog)
	if d.metrics != nil {
		d.metrics.RecordLatticeBuild(context.Background(), d.name, time.Since(tBuild).Seconds(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLatticeConstruction, err)
	}
	d.dag = dag
	d.latticeFrame = d.frame
	return dag, nil
}

// Hyp returns the decoded hypothesis string and true, or ("", false) if no
// history entry reaches a qualifying exit (spec.md §4.5, §7 "No hypothesis").
// If BestPath is enabled and the utterance is final, the lattice best-path
// is used instead of a raw backtrace.
func (d *Decoder) Hyp() (string, bool) {
	if d.fsg == nil {
		return "", false
	}
	entry := result.FindExit(d.hist, d.fsg, -1, d.final)
	if entry < 0 {
		return "", false
	}

	if d.cfg.BestPath && d.final {
		dag, err := d.Lattice()
		if err == nil {
			words, _ := dag.BestPath(1.0, d.cfg.AScale)
			parts := make([]string, 0, len(words))
			for _, w := range words {
				parts = append(parts, d.dict.WordStr(w.DictWID))
			}
			return strings.Join(parts, " "), true
		}
		d.log.Warn("bestpath unavailable, falling back to raw backtrace", "err", err)
	}

	return result.Hyp(d.hist, d.fsg, d.dict, entry), true
}

// SegIter returns the word segmentation for the current best hypothesis and
// true, or (nil, false) if none exists. If BestPath is enabled and the
// utterance is final, the segmentation is derived from the lattice best
// path instead of a raw backtrace (spec.md §4.5).
func (d *Decoder) SegIter() ([]result.Segment, bool) {
	if d.fsg == nil {
		return nil, false
	}
	entry := result.FindExit(d.hist, d.fsg, -1, d.final)
	if entry < 0 {
		return nil, false
	}

	if d.cfg.BestPath && d.final {
		dag, err := d.Lattice()
		if err == nil {
			words, _ := dag.BestPath(1.0, d.cfg.AScale)
			segs := make([]result.Segment, 0, len(words))
			for _, w := range words {
				segs = append(segs, result.Segment{
					Word: d.dict.WordStr(w.DictWID),
					SF:   w.SF,
					EF:   w.EF,
					AScr: hmm.Score(w.AScr),
				})
			}
			return segs, true
		}
		d.log.Warn("bestpath segmentation unavailable, falling back to raw backtrace", "err", err)
	}

	return result.Segments(d.hist, d.dict, entry), true
}

// Prob returns the lattice posterior log-probability, or 0 if no lattice has
// been computed yet (SPEC_FULL.md §5 supplement; spec.md §6 names this
// accessor without detailing its default).
func (d *Decoder) Prob() float64 {
	if d.dag == nil {
		return 0
	}
	return d.dag.Posterior(d.cfg.AScale)
}
