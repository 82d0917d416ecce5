// Package fsgmodel implements the weighted finite-state grammar collaborator
// described in spec.md §3 and §6: a set of states with directed,
// word-labelled (or null) transitions, plus the precomputed transitive
// closure of null transitions the decoder core assumes has already been
// computed (spec.md §9, "Null-closure precondition").
//
// FSG file-format parsing is out of scope (spec.md §1): grammars are built
// programmatically via [New] and [Model.AddTransition], the way a lextree
// builder or test fixture would construct one after parsing some external
// format.
package fsgmodel

import (
	"fmt"
	"sort"
)

// WordID identifies a vocabulary word. NoWord marks a null (ε) transition.
type WordID int32

// NoWord is the sentinel word id used for null transitions.
const NoWord WordID = -1

// Link is a single directed FSG transition.
type Link struct {
	Word    WordID
	LogProb int32 // log-probability already scaled by lw (spec.md §9)
	To      int
}

// IsNull reports whether this link is a null (ε) transition.
func (l Link) IsNull() bool {
	return l.Word == NoWord
}

// Model is a weighted FSG over words: a set of states, a start and final
// state, and directed transitions. The transitive closure of null
// transitions is maintained incrementally by [Model.AddTransition] /
// [Model.CloseNullTransitions] so that [Model.NullTrans] always reflects a
// single precomputed hop, per spec.md §9.
type Model struct {
	name  string
	nState int
	start  int
	final  int

	trans     map[int][]Link   // state -> outgoing transitions (incl. null)
	nullTrans map[[2]int]Link  // precomputed transitive closure of null transitions

	vocab    map[WordID]string
	nextWID  WordID
	filler   map[WordID]bool
	hasSil   bool
	hasAlt   bool
	silWords map[WordID]bool
}

// New creates an FSG model with the given number of states and start/final
// states. name is used only for logging.
func New(name string, nState, start, final int) (*Model, error) {
	if nState <= 0 {
		return nil, fmt.Errorf("fsgmodel: nState must be positive, got %d", nState)
	}
	if start < 0 || start >= nState || final < 0 || final >= nState {
		return nil, fmt.Errorf("fsgmodel: start/final state out of range [0,%d)", nState)
	}
	return &Model{
		name:      name,
		nState:    nState,
		start:     start,
		final:     final,
		trans:     make(map[int][]Link),
		nullTrans: make(map[[2]int]Link),
		vocab:     make(map[WordID]string),
		filler:    make(map[WordID]bool),
		silWords:  make(map[WordID]bool),
	}, nil
}

func (m *Model) NState() int      { return m.nState }
func (m *Model) StartState() int  { return m.start }
func (m *Model) FinalState() int  { return m.final }
func (m *Model) Name() string     { return m.name }

// AddTransition adds a directed transition from s to d. If word is NoWord,
// it is a null transition and the transitive closure is recomputed.
func (m *Model) AddTransition(s, d int, word WordID, logProb int32) error {
	if s < 0 || s >= m.nState || d < 0 || d >= m.nState {
		return fmt.Errorf("fsgmodel: transition state out of range [0,%d)", m.nState)
	}
	m.trans[s] = append(m.trans[s], Link{Word: word, LogProb: logProb, To: d})
	if word == NoWord {
		m.CloseNullTransitions()
	}
	return nil
}

// Trans returns all transitions from s to d (word-labelled and null).
func (m *Model) Trans(s, d int) []Link {
	var out []Link
	for _, l := range m.trans[s] {
		if l.To == d {
			out = append(out, l)
		}
	}
	return out
}

// TransFrom returns all outgoing transitions from s, to any destination.
func (m *Model) TransFrom(s int) []Link {
	return m.trans[s]
}

// NullTrans returns the unique precomputed null transition from s to d, if
// any exists in the transitive closure.
func (m *Model) NullTrans(s, d int) (Link, bool) {
	l, ok := m.nullTrans[[2]int{s, d}]
	return l, ok
}

// CloseNullTransitions recomputes the transitive closure of null
// transitions using repeated relaxation (Floyd-Warshall over the sparse
// null-edge graph), keeping for each (s,d) pair the highest-scoring path.
// Called automatically by AddTransition whenever a null transition is added;
// exposed so callers that build transitions out of order (e.g. a lextree
// builder loading a serialized FSG) can force recomputation once at the end.
func (m *Model) CloseNullTransitions() {
	const unreachable = int32(-1 << 30)
	n := m.nState
	best := make([][]int32, n)
	for i := range best {
		best[i] = make([]int32, n)
		for j := range best[i] {
			best[i][j] = unreachable
		}
	}
	for s := 0; s < n; s++ {
		for _, l := range m.trans[s] {
			if l.IsNull() && l.LogProb > best[s][l.To] {
				best[s][l.To] = l.LogProb
			}
		}
	}

	// Floyd-Warshall max-weight closure over the null-edge graph.
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if best[i][k] == unreachable {
				continue
			}
			for j := 0; j < n; j++ {
				if i == j || best[k][j] == unreachable {
					continue
				}
				combined := best[i][k] + best[k][j]
				if combined > best[i][j] {
					best[i][j] = combined
				}
			}
		}
	}

	closure := make(map[[2]int]Link)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && best[i][j] != unreachable {
				closure[[2]int{i, j}] = Link{Word: NoWord, LogProb: best[i][j], To: j}
			}
		}
	}
	m.nullTrans = closure
}

// WordAdd registers a new vocabulary word and returns its id, or returns the
// existing id if str is already registered.
func (m *Model) WordAdd(str string) WordID {
	for id, s := range m.vocab {
		if s == str {
			return id
		}
	}
	id := m.nextWID
	m.nextWID++
	m.vocab[id] = str
	return id
}

// WordStr returns the string for wid, or "" if unknown.
func (m *Model) WordStr(wid WordID) string {
	return m.vocab[wid]
}

// Vocabulary returns all registered word ids in ascending order.
func (m *Model) Vocabulary() []WordID {
	out := make([]WordID, 0, len(m.vocab))
	for id := range m.vocab {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsFiller reports whether wid was marked as a filler via MarkFiller. No
// word is classified as a filler from its dictionary position.
func (m *Model) IsFiller(wid WordID) bool {
	return m.filler[wid]
}

// MarkFiller marks wid as a filler word.
func (m *Model) MarkFiller(wid WordID) {
	m.filler[wid] = true
}

// AddSilence adds a self-loop on every state labelled with word at the
// given log-probability, and marks word as a silence word. No-op (per
// spec.md §4.1) if HasSil() is already true.
func (m *Model) AddSilence(word WordID, logProb int32) error {
	if m.hasSil {
		return nil
	}
	for s := 0; s < m.nState; s++ {
		if err := m.AddTransition(s, s, word, logProb); err != nil {
			return err
		}
	}
	m.hasSil = true
	m.silWords[word] = true
	return nil
}

// AddFillerSelfLoop adds a self-loop for a filler word on every state, at
// the given log-probability. Used for non-silence fillers after silence
// augmentation (spec.md §4.1).
func (m *Model) AddFillerSelfLoop(word WordID, logProb int32) error {
	for s := 0; s < m.nState; s++ {
		if err := m.AddTransition(s, s, word, logProb); err != nil {
			return err
		}
	}
	m.filler[word] = true
	return nil
}

// AddAlt registers alt as an alternate pronunciation of base: every
// transition carrying base gets a parallel transition carrying alt at the
// same log-probability (spec.md §4.1).
func (m *Model) AddAlt(base, alt WordID) error {
	for s := 0; s < m.nState; s++ {
		for _, l := range m.trans[s] {
			if l.Word == base {
				if err := m.AddTransition(s, l.To, alt, l.LogProb); err != nil {
					return err
				}
			}
		}
	}
	m.hasAlt = true
	return nil
}

// HasSil reports whether silence self-loops have already been added.
func (m *Model) HasSil() bool { return m.hasSil }

// HasAlt reports whether any alternate pronunciation has been registered.
func (m *Model) HasAlt() bool { return m.hasAlt }

// SilWords returns the set of word ids marked as silence words.
func (m *Model) SilWords() map[WordID]bool {
	return m.silWords
}
