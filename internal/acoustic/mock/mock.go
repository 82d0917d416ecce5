// Package mock provides a deterministic [acoustic.Scorer] backed by a
// pre-scripted list of per-frame senone score vectors, for driving the frame
// engine in tests without a real acoustic model. Grounded on the scripted
// provider mocks used throughout the teacher codebase.
package mock

import (
	"fmt"

	"github.com/MrWong99/gofsgdecoder/internal/hmm"
)

// Scorer replays a fixed sequence of per-frame senone score vectors. Frames
// are consumed one at a time by Score; NFeatFrame reports how many remain.
type Scorer struct {
	frames [][]hmm.Score
	next   int

	// AllSenones, when true, reports CompAllSen()==true so the frame engine
	// skips senone activation bookkeeping entirely.
	AllSenones bool

	activated int
}

// NewScorer returns a Scorer that will yield frames, in order, one per
// Score call.
func NewScorer(frames [][]hmm.Score) *Scorer {
	return &Scorer{frames: frames, AllSenones: true}
}

func (s *Scorer) NFeatFrame() int {
	return len(s.frames) - s.next
}

func (s *Scorer) Score(outFrameIdx *int, outBestSenScr *hmm.Score, outBestSenID *int) ([]hmm.Score, error) {
	if s.next >= len(s.frames) {
		return nil, fmt.Errorf("acoustic/mock: no buffered frame to score")
	}
	vec := s.frames[s.next]
	idx := s.next
	s.next++

	best := hmm.WorstScore
	bestID := -1
	for i, sc := range vec {
		if sc > best {
			best = sc
			bestID = i
		}
	}
	if outFrameIdx != nil {
		*outFrameIdx = idx
	}
	if outBestSenScr != nil {
		*outBestSenScr = best
	}
	if outBestSenID != nil {
		*outBestSenID = bestID
	}
	return vec, nil
}

func (s *Scorer) NSenoneActive() int {
	return s.activated
}

func (s *Scorer) ClearActive() {
	s.activated = 0
}

func (s *Scorer) ActivateHMM(h hmm.HMM) {
	if !s.AllSenones {
		s.activated++
	}
}

func (s *Scorer) CompAllSen() bool {
	return s.AllSenones
}
