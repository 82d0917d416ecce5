package lattice_test

import (
	"math"
	"testing"

	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/history"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
	"github.com/MrWong99/gofsgdecoder/internal/lattice"
)

func buildChainDAG(t *testing.T) (*lattice.DAG, hmm.Score) {
	t.Helper()
	fsg, err := fsgmodel.New("g", 3, 0, 2)
	if err != nil {
		t.Fatalf("fsgmodel.New: %v", err)
	}
	cat := fsg.WordAdd("cat")
	sat := fsg.WordAdd("sat")
	if err := fsg.AddTransition(0, 1, cat, -5); err != nil {
		t.Fatalf("AddTransition: %v", err)
	}
	if err := fsg.AddTransition(1, 2, sat, -7); err != nil {
		t.Fatalf("AddTransition: %v", err)
	}

	hist := history.New()
	hist.Add(nil, -1, 0, history.NoPred, 0, hmm.AllContexts())
	catLink := &fsgmodel.Link{Word: cat, To: 1}
	catIdx := hist.Add(catLink, 2, hmm.Score(-50), 0, 0, hmm.AllContexts())
	satLink := &fsgmodel.Link{Word: sat, To: 2}
	hist.Add(satLink, 4, hmm.Score(-120), catIdx, 0, hmm.AllContexts())

	dag, err := lattice.Build(hist, fsg, newStubDict(), 5, -1000, -2000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// sat is the end node, so the only link is cat→sat, carrying cat's ascr
	// (its score minus the sentinel's).
	return dag, hmm.Score(-50) - hmm.Score(0)
}

func TestPosterior_SingleEdgePath(t *testing.T) {
	dag, ascr := buildChainDAG(t)
	got := dag.Posterior(1.0)
	want := float64(ascr)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Posterior = %v, want %v", got, want)
	}
	if dag.Posterior != got {
		t.Error("Posterior field not updated to match the returned value")
	}
}

func TestPosterior_ScalesWithAscale(t *testing.T) {
	dag, ascr := buildChainDAG(t)
	got := dag.Posterior(0.5)
	want := float64(ascr) * 0.5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Posterior(0.5) = %v, want %v", got, want)
	}
}

func TestPosterior_NoStartOrEndIsZero(t *testing.T) {
	dag := &lattice.DAG{Start: -1, End: -1}
	if got := dag.Posterior(1.0); got != 0 {
		t.Errorf("Posterior on an empty DAG = %v, want 0", got)
	}
}
