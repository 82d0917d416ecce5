package mock_test

import (
	"testing"

	"github.com/MrWong99/gofsgdecoder/internal/acoustic/mock"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
)

func TestScorer_NFeatFrame_CountsRemainingFrames(t *testing.T) {
	s := mock.NewScorer([][]hmm.Score{{1, 2}, {3, 4}, {5, 6}})
	if s.NFeatFrame() != 3 {
		t.Fatalf("NFeatFrame() = %d, want 3", s.NFeatFrame())
	}
	var idx int
	var best hmm.Score
	var bestID int
	if _, err := s.Score(&idx, &best, &bestID); err != nil {
		t.Fatalf("Score: %v", err)
	}
	if s.NFeatFrame() != 2 {
		t.Errorf("NFeatFrame() after one Score call = %d, want 2", s.NFeatFrame())
	}
}

func TestScorer_Score_ReportsBestSenoneAndAdvances(t *testing.T) {
	s := mock.NewScorer([][]hmm.Score{{1, 9, 3}})
	var idx int
	var best hmm.Score
	var bestID int
	vec, err := s.Score(&idx, &best, &bestID)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(vec) != 3 || vec[1] != 9 {
		t.Errorf("Score returned %v, want the scripted frame verbatim", vec)
	}
	if idx != 0 {
		t.Errorf("outFrameIdx = %d, want 0", idx)
	}
	if best != 9 || bestID != 1 {
		t.Errorf("best/bestID = %d/%d, want 9/1", best, bestID)
	}
}

func TestScorer_Score_ErrorsWhenExhausted(t *testing.T) {
	s := mock.NewScorer([][]hmm.Score{{1}})
	var idx int
	var best hmm.Score
	var bestID int
	if _, err := s.Score(&idx, &best, &bestID); err != nil {
		t.Fatalf("first Score: %v", err)
	}
	if _, err := s.Score(&idx, &best, &bestID); err == nil {
		t.Error("expected an error scoring past the last buffered frame")
	}
}

func TestScorer_CompAllSen_DefaultsTrue(t *testing.T) {
	s := mock.NewScorer(nil)
	if !s.CompAllSen() {
		t.Error("NewScorer should default AllSenones (CompAllSen) to true")
	}
}

func TestScorer_ActivateHMM_NoOpWhenCompAllSen(t *testing.T) {
	s := mock.NewScorer(nil)
	s.ClearActive()
	s.ActivateHMM(nil)
	if s.NSenoneActive() != 0 {
		t.Error("ActivateHMM should be a no-op when AllSenones is true")
	}
}

func TestScorer_ActivateHMM_CountsWhenSelective(t *testing.T) {
	s := mock.NewScorer(nil)
	s.AllSenones = false
	s.ClearActive()
	s.ActivateHMM(nil)
	s.ActivateHMM(nil)
	if s.NSenoneActive() != 2 {
		t.Errorf("NSenoneActive() = %d, want 2", s.NSenoneActive())
	}
}
