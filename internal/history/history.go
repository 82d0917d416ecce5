// Package history implements the append-only backpointer store described in
// spec.md §3/§4.3: the decoder's sole record of word exits, from which the
// lattice builder (internal/lattice) and result extractor (internal/result)
// reconstruct hypotheses.
//
// Entries are never removed once added — spec.md §7 is explicit that
// failure modes accumulate as missing hypotheses, not truncated history.
// [Table.EndFrame] instead marks same-(destination-state, right-context)
// duplicates added since the previous EndFrame call as not "live", so later
// stages skip them as propagation sources while earlier same-frame entries
// remain valid predecessor targets (spec.md §4.3: "later entries in the
// same frame must be able to point ... to entries added earlier in the
// same frame").
package history

import (
	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/hmm"
)

// NoPred marks a history entry with no predecessor (the sentinel).
const NoPred int32 = -1

// Entry is one stored backpointer record (spec.md §3).
type Entry struct {
	// Link is the outgoing FSG transition this entry records, or nil for
	// the utterance-start sentinel.
	Link *fsgmodel.Link

	// Frame is the word-end (or null-propagation) frame index.
	Frame int32

	// Score is the accumulated path score at this entry.
	Score hmm.Score

	// Pred is the index of the predecessor entry, or NoPred.
	Pred int32

	// LC is the last CI-phone on the path reaching this entry.
	LC int

	// RC is the right-context admission bit-set for this entry.
	RC hmm.ContextSet
}

// Table is the append-only history store.
type Table struct {
	entries []Entry
	live    []bool

	// pendingStart is the index of the first entry added since the last
	// EndFrame call.
	pendingStart int32

	fsg  *fsgmodel.Model
	dict Dictionary
}

// Dictionary is the minimal dictionary surface the history table needs to
// bind via SetFSG — satisfied by [github.com/MrWong99/gofsgdecoder/internal/dict.Dictionary].
type Dictionary interface {
	NWords() int
}

// New returns an empty history table.
func New() *Table {
	return &Table{}
}

// Add appends a new entry and returns its index.
func (t *Table) Add(link *fsgmodel.Link, frame int32, score hmm.Score, pred int32, lc int, rc hmm.ContextSet) int32 {
	t.entries = append(t.entries, Entry{
		Link: link, Frame: frame, Score: score, Pred: pred, LC: lc, RC: rc,
	})
	t.live = append(t.live, true)
	return int32(len(t.entries) - 1)
}

// Entry returns the stored tuple at index i.
func (t *Table) Entry(i int32) Entry {
	return t.entries[i]
}

// Live reports whether entry i survived the per-frame (to-state, rc)
// compaction performed by EndFrame (always true until EndFrame runs on the
// frame containing i).
func (t *Table) Live(i int32) bool {
	return t.live[i]
}

// NEntries returns the total number of entries ever added.
func (t *Table) NEntries() int32 {
	return int32(len(t.entries))
}

// destKey identifies a history entry by its destination FSG state and
// right-context admission set, the compaction key named in spec.md §4.3.
type destKey struct {
	state int
	rc    string
}

// EndFrame finalises all entries added since the previous EndFrame call:
// entries that share a (destination-state, right-context) key have all but
// the highest-scoring one marked not-live. Idempotent — calling it again
// with no new entries since the last call is a no-op.
func (t *Table) EndFrame() {
	start := t.pendingStart
	end := int32(len(t.entries))
	if start >= end {
		return
	}

	best := make(map[destKey]int32)
	for i := start; i < end; i++ {
		e := t.entries[i]
		if e.Link == nil {
			continue // sentinel, never compacted
		}
		key := destKey{state: e.Link.To, rc: e.RC.Key()}
		if cur, ok := best[key]; !ok || e.Score > t.entries[cur].Score {
			if ok {
				t.live[cur] = false
			}
			best[key] = i
		} else {
			t.live[i] = false
		}
	}
	t.pendingStart = end
}

// Reset clears the table entirely, ready for a new utterance.
func (t *Table) Reset() {
	t.entries = nil
	t.live = nil
	t.pendingStart = 0
}

// UttStart marks the beginning of a new utterance. Distinct from Reset for
// symmetry with spec.md §4.3's operation list; currently equivalent.
func (t *Table) UttStart() {
	t.Reset()
}

// SetFSG binds the table to the (fsg, dict) pair it is currently indexing
// backpointers for (spec.md §4.3). Switching the active FSG (fsgset.Manager.Select)
// must call this again after reinit, per spec.md §4.1.
func (t *Table) SetFSG(fsg *fsgmodel.Model, dict Dictionary) {
	t.fsg = fsg
	t.dict = dict
}

// FSG returns the currently bound FSG model, or nil if unbound.
func (t *Table) FSG() *fsgmodel.Model {
	return t.fsg
}
