package history_test

import (
	"testing"

	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/history"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
)

func TestTable_AddEntry(t *testing.T) {
	tbl := history.New()
	idx := tbl.Add(nil, -1, 0, history.NoPred, 1, hmm.AllContexts())
	if idx != 0 {
		t.Fatalf("first Add returned index %d, want 0", idx)
	}
	e := tbl.Entry(idx)
	if e.Link != nil || e.Frame != -1 || e.Pred != history.NoPred {
		t.Errorf("unexpected sentinel entry: %+v", e)
	}
	if tbl.NEntries() != 1 {
		t.Errorf("NEntries() = %d, want 1", tbl.NEntries())
	}
	if !tbl.Live(idx) {
		t.Error("freshly added entry should be live before EndFrame runs")
	}
}

func TestTable_EndFrame_CompactsByDestAndRC(t *testing.T) {
	tbl := history.New()
	tbl.Add(nil, -1, 0, history.NoPred, 0, hmm.AllContexts())

	link := &fsgmodel.Link{Word: 1, To: 5}
	lo := tbl.Add(link, 0, hmm.Score(-100), 0, 0, hmm.AllContexts())
	hi := tbl.Add(link, 0, hmm.Score(-10), 0, 0, hmm.AllContexts())

	tbl.EndFrame()

	if tbl.Live(hi) != true {
		t.Error("higher-scoring entry sharing (state, rc) should remain live")
	}
	if tbl.Live(lo) != false {
		t.Error("lower-scoring entry sharing (state, rc) should be marked not-live")
	}
}

func TestTable_EndFrame_DistinctRCNotCompacted(t *testing.T) {
	tbl := history.New()
	tbl.Add(nil, -1, 0, history.NoPred, 0, hmm.AllContexts())

	link := &fsgmodel.Link{Word: 1, To: 5}
	rcA := hmm.NewContextSet(8)
	rcA.Add(1)
	rcB := hmm.NewContextSet(8)
	rcB.Add(2)

	a := tbl.Add(link, 0, hmm.Score(-50), 0, 0, rcA)
	b := tbl.Add(link, 0, hmm.Score(-10), 0, 0, rcB)

	tbl.EndFrame()

	if !tbl.Live(a) || !tbl.Live(b) {
		t.Error("entries with distinct right-context keys must not be compacted against each other")
	}
}

func TestTable_EndFrame_SentinelNeverCompacted(t *testing.T) {
	tbl := history.New()
	tbl.Add(nil, -1, 0, history.NoPred, 0, hmm.AllContexts())
	tbl.EndFrame()
	if !tbl.Live(0) {
		t.Error("the utterance-start sentinel (nil link) must never be marked not-live")
	}
}

func TestTable_EndFrame_Idempotent(t *testing.T) {
	tbl := history.New()
	link := &fsgmodel.Link{Word: 1, To: 2}
	tbl.Add(link, 0, hmm.Score(-5), history.NoPred, 0, hmm.AllContexts())
	tbl.EndFrame()
	live := tbl.Live(0)
	tbl.EndFrame() // no new entries since last call: must be a no-op
	if tbl.Live(0) != live {
		t.Error("calling EndFrame twice with no new entries changed liveness")
	}
}

func TestTable_Reset(t *testing.T) {
	tbl := history.New()
	tbl.Add(nil, -1, 0, history.NoPred, 0, hmm.AllContexts())
	tbl.Reset()
	if tbl.NEntries() != 0 {
		t.Errorf("NEntries() after Reset = %d, want 0", tbl.NEntries())
	}
}

func TestTable_SetFSG_FSG(t *testing.T) {
	tbl := history.New()
	fsg, err := fsgmodel.New("g", 1, 0, 0)
	if err != nil {
		t.Fatalf("fsgmodel.New: %v", err)
	}
	tbl.SetFSG(fsg, stubDict{n: 10})
	if tbl.FSG() != fsg {
		t.Error("FSG() should return the model bound by SetFSG")
	}
}

type stubDict struct{ n int }

func (s stubDict) NWords() int { return s.n }
