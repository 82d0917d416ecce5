package mock_test

import (
	"testing"

	"github.com/MrWong99/gofsgdecoder/internal/hmm"
	"github.com/MrWong99/gofsgdecoder/internal/hmm/mock"
)

func TestHMM_NewHMM_StartsAtWorstScore(t *testing.T) {
	h := mock.NewHMM(nil)
	if h.BestScore() != hmm.WorstScore || h.InScore() != hmm.WorstScore || h.OutScore() != hmm.WorstScore {
		t.Error("a freshly constructed HMM should start at WorstScore on every score accessor")
	}
	if h.Frame() != -1 {
		t.Errorf("Frame() = %d, want -1", h.Frame())
	}
	if h.OutHistory() != hmm.NoBackpointer {
		t.Errorf("OutHistory() = %d, want NoBackpointer", h.OutHistory())
	}
}

func TestHMM_Enter_ImprovesSameFrameScore(t *testing.T) {
	h := mock.NewHMM(nil)
	h.Enter(10, 5, 0)
	if h.InScore() != 10 || h.OutHistory() != 5 {
		t.Fatalf("after first Enter: InScore=%d OutHistory=%d, want 10, 5", h.InScore(), h.OutHistory())
	}
	h.Enter(3, 9, 0)
	if h.InScore() != 10 || h.OutHistory() != 5 {
		t.Errorf("a lower-scoring same-frame Enter should not overwrite the entry score")
	}
	h.Enter(20, 9, 0)
	if h.InScore() != 20 || h.OutHistory() != 9 {
		t.Errorf("a higher-scoring same-frame Enter should overwrite the entry score")
	}
}

func TestHMM_Enter_NewFrameAlwaysOverwrites(t *testing.T) {
	h := mock.NewHMM(nil)
	h.Enter(10, 5, 0)
	h.Enter(1, 7, 1)
	if h.InScore() != 1 || h.OutHistory() != 7 || h.Frame() != 1 {
		t.Errorf("Enter on a new frame should overwrite regardless of score, got InScore=%d OutHistory=%d Frame=%d", h.InScore(), h.OutHistory(), h.Frame())
	}
}

func TestHMM_Deactivate_ResetsToWorstScore(t *testing.T) {
	h := mock.NewHMM(nil)
	h.Enter(10, 5, 2)
	h.Deactivate()
	if h.BestScore() != hmm.WorstScore || h.InScore() != hmm.WorstScore || h.OutScore() != hmm.WorstScore {
		t.Error("Deactivate should reset every score accessor to WorstScore")
	}
	if h.Frame() != -1 || h.OutHistory() != hmm.NoBackpointer {
		t.Error("Deactivate should reset Frame to -1 and OutHistory to NoBackpointer")
	}
}

func TestEvaluator_VitEval_AppliesEmissionAtCurrentFrame(t *testing.T) {
	h := mock.NewHMM([]hmm.Score{100, 200, 300})
	h.Enter(10, 0, 0)

	e := mock.NewEvaluator()
	e.SetSenoneScores(nil) // bumps Frame from -1 to 0
	got := e.VitEval(h)
	want := hmm.Score(10 + 100)
	if got != want {
		t.Errorf("VitEval at frame 0 = %d, want %d", got, want)
	}
	if h.OutScore() != want || h.BestScore() != want {
		t.Errorf("OutScore/BestScore after VitEval = %d/%d, want %d", h.OutScore(), h.BestScore(), want)
	}
	if e.EvalCount != 1 {
		t.Errorf("EvalCount = %d, want 1", e.EvalCount)
	}
}

func TestEvaluator_VitEval_WorstScoreEntryStaysWorst(t *testing.T) {
	h := mock.NewHMM([]hmm.Score{100})
	e := mock.NewEvaluator()
	e.SetSenoneScores(nil)
	got := e.VitEval(h)
	if got != hmm.WorstScore {
		t.Errorf("VitEval on a never-entered HMM = %d, want WorstScore", got)
	}
}

func TestEvaluator_VitEval_EmissionBeyondSliceLengthIsZero(t *testing.T) {
	h := mock.NewHMM([]hmm.Score{50})
	h.Enter(10, 0, 0)
	e := mock.NewEvaluator()
	e.SetSenoneScores(nil) // Frame -> 0, consumes the one scripted emission
	e.VitEval(h)
	h.Enter(10, 0, 1)
	e.SetSenoneScores(nil) // Frame -> 1, past the end of EmissionScores
	got := e.VitEval(h)
	if got != 10 {
		t.Errorf("VitEval past the scripted emissions = %d, want inScore+0 = 10", got)
	}
}
