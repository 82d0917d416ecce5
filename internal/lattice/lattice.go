// Package lattice builds the acyclic word graph from a history table
// (spec.md §4.4): node/link creation, start/end node synthesis, reachability
// pruning, word-id translation, and filler-bypass edges. The "lattice
// algorithm library" contracts named in spec.md §6 (bestpath, posterior,
// bypass_fillers) are implemented here in reference form since the module
// must compile and be testable end to end, even though spec.md treats a
// production-grade version of them as an external collaborator.
package lattice

import (
	"fmt"

	"github.com/MrWong99/gofsgdecoder/internal/fsgmodel"
	"github.com/MrWong99/gofsgdecoder/internal/history"
)

// Dictionary is the minimal surface the post-processing word-id translation
// needs (spec.md §4.4, "translate FSG word ids ... into dictionary word ids
// and base-word ids").
type Dictionary interface {
	ToID(str string) (fsgmodel.WordID, bool)
	WordStr(wid fsgmodel.WordID) string
	BaseWID(wid fsgmodel.WordID) fsgmodel.WordID
}

// Node is a lattice node, uniquely keyed by (StartFrame, Word) (spec.md §3).
type Node struct {
	StartFrame int32
	Word       fsgmodel.WordID // FSG word id

	DictWID fsgmodel.WordID // translated dictionary word id, set by Build's translation pass
	BaseWID fsgmodel.WordID // translated base word id, set by Build's translation pass

	FirstEndFrame int32
	LastEndFrame  int32
	BestExit      int32 // best ascr over all entries reaching this node

	Reachable bool
	Filler    bool // true if Word is an FSG filler/silence word

	Entries []int // incoming link indices
	Exits   []int // outgoing link indices
}

// Link is a directed lattice edge (spec.md §3).
type Link struct {
	From, To int // node indices
	AScore   int32
	EndFrame int32
}

// nodeKey identifies a node by its uniqueness key.
type nodeKey struct {
	sf   int32
	word fsgmodel.WordID
}

// DAG is a built lattice.
type DAG struct {
	Nodes []*Node
	Links []*Link

	Start, End int // node indices, -1 if absent

	FrameCount int32
	Posterior  float64 // filled in by Posterior; 0 until computed
}

// Build constructs a DAG from hist over an utterance of frameCount frames
// decoded against fsg, per spec.md §4.4. silPenLog and fillPenLog are
// log(silprob)·lw and log(fillprob)·lw, used by the filler-bypass pass.
func Build(hist *history.Table, fsg *fsgmodel.Model, dict Dictionary, frameCount int32, silPenLog, fillPenLog int32) (*DAG, error) {
	d := &DAG{Start: -1, End: -1, FrameCount: frameCount}
	index := make(map[nodeKey]int)

	n := hist.NEntries()
	entryNode := make([]int, n)
	entryAscr := make([]int32, n)
	for i := range entryNode {
		entryNode[i] = -1
	}

	// Node creation (spec.md §4.4).
	for i := int32(0); i < n; i++ {
		e := hist.Entry(i)
		if e.Link == nil || e.Link.IsNull() {
			continue
		}
		var sf int32
		var ascr int32
		if e.Pred != history.NoPred {
			pred := hist.Entry(e.Pred)
			sf = pred.Frame + 1
			ascr = int32(e.Score - pred.Score)
		} else {
			sf = 0
			ascr = int32(e.Score)
		}
		ef := e.Frame

		key := nodeKey{sf: sf, word: e.Link.Word}
		idx, ok := index[key]
		if !ok {
			idx = len(d.Nodes)
			index[key] = idx
			d.Nodes = append(d.Nodes, &Node{
				StartFrame:    sf,
				Word:          e.Link.Word,
				FirstEndFrame: ef,
				LastEndFrame:  ef,
				BestExit:      ascr,
				Filler:        fsg.IsFiller(e.Link.Word),
			})
		} else {
			node := d.Nodes[idx]
			if ef > node.LastEndFrame {
				node.LastEndFrame = ef
			}
			if ef < node.FirstEndFrame {
				node.FirstEndFrame = ef
			}
			if ascr > node.BestExit {
				node.BestExit = ascr
			}
		}
		entryNode[i] = idx
		entryAscr[i] = ascr
	}

	// Link creation (spec.md §4.4).
	for i := int32(0); i < n; i++ {
		e := hist.Entry(i)
		if e.Link == nil || e.Link.IsNull() {
			continue
		}
		srcIdx := entryNode[i]
		toState := e.Link.To
		ascr := entryAscr[i]

		addIfPresent := func(word fsgmodel.WordID) {
			dstKey := nodeKey{sf: e.Frame + 1, word: word}
			dstIdx, ok := index[dstKey]
			if !ok {
				return
			}
			d.addLink(srcIdx, dstIdx, ascr, e.Frame)
		}

		for _, l := range fsg.TransFrom(toState) {
			if l.IsNull() {
				continue
			}
			addIfPresent(l.Word)
		}
		for j := 0; j < fsg.NState(); j++ {
			if _, ok := fsg.NullTrans(toState, j); !ok {
				continue
			}
			for _, l2 := range fsg.TransFrom(j) {
				if l2.IsNull() {
					continue
				}
				addIfPresent(l2.Word)
			}
		}
	}

	if err := d.synthesizeStart(fsg); err != nil {
		return nil, err
	}
	if err := d.synthesizeEnd(fsg, frameCount); err != nil {
		return nil, err
	}

	d.prune()
	d.translate(fsg, dict)
	d.bypassFillers(fsg, silPenLog, fillPenLog)

	return d, nil
}

func (d *DAG) addLink(from, to int, ascr, endFrame int32) {
	idx := len(d.Links)
	d.Links = append(d.Links, &Link{From: from, To: to, AScore: ascr, EndFrame: endFrame})
	d.Nodes[from].Exits = append(d.Nodes[from].Exits, idx)
	d.Nodes[to].Entries = append(d.Nodes[to].Entries, idx)
}

// synthesizeStart implements spec.md §4.4's start-node synthesis.
func (d *DAG) synthesizeStart(fsg *fsgmodel.Model) error {
	var candidates []int
	for i, node := range d.Nodes {
		if node.StartFrame == 0 && len(node.Exits) > 0 {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 1 {
		d.Start = candidates[0]
		return nil
	}
	if len(candidates) == 0 {
		return fmt.Errorf("lattice: no frame-0 candidate to synthesise a start node from")
	}

	sWID := fsg.WordAdd("<s>")
	fsg.MarkFiller(sWID)
	startIdx := len(d.Nodes)
	d.Nodes = append(d.Nodes, &Node{StartFrame: 0, Word: sWID, FirstEndFrame: 0, LastEndFrame: 0, Filler: true})
	for _, c := range candidates {
		d.addLink(startIdx, c, 0, 0)
	}
	d.Start = startIdx
	return nil
}

// synthesizeEnd implements spec.md §4.4's end-node synthesis.
func (d *DAG) synthesizeEnd(fsg *fsgmodel.Model, frameCount int32) error {
	var candidates []int
	for i, node := range d.Nodes {
		if node.LastEndFrame == frameCount-1 && len(node.Entries) > 0 {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 1 {
		d.End = candidates[0]
		return nil
	}
	if len(candidates) == 0 {
		return fmt.Errorf("lattice: no node ending at frame %d to synthesise an end node from", frameCount-1)
	}

	eWID := fsg.WordAdd("</s>")
	fsg.MarkFiller(eWID)
	endIdx := len(d.Nodes)
	d.Nodes = append(d.Nodes, &Node{StartFrame: frameCount, Word: eWID, FirstEndFrame: frameCount, LastEndFrame: frameCount, Filler: true})
	for _, c := range candidates {
		d.addLink(c, endIdx, d.Nodes[c].BestExit, frameCount)
	}
	d.End = endIdx
	return nil
}

// prune walks backward from End marking reachability, then compacts Nodes
// and Links to only the reachable subgraph (spec.md §4.4).
func (d *DAG) prune() {
	if d.End < 0 {
		return
	}
	reach := make([]bool, len(d.Nodes))
	var walk func(i int)
	walk = func(i int) {
		if reach[i] {
			return
		}
		reach[i] = true
		for _, li := range d.Nodes[i].Entries {
			walk(d.Links[li].From)
		}
	}
	walk(d.End)
	for i, ok := range reach {
		d.Nodes[i].Reachable = ok
	}

	remap := make([]int, len(d.Nodes))
	var kept []*Node
	for i, node := range d.Nodes {
		if !reach[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, node)
	}

	var keptLinks []*Link
	linkRemap := make([]int, len(d.Links))
	for i, l := range d.Links {
		if remap[l.From] < 0 || remap[l.To] < 0 {
			linkRemap[i] = -1
			continue
		}
		linkRemap[i] = len(keptLinks)
		keptLinks = append(keptLinks, &Link{From: remap[l.From], To: remap[l.To], AScore: l.AScore, EndFrame: l.EndFrame})
	}
	for _, node := range kept {
		node.Entries = remapIndices(node.Entries, linkRemap)
		node.Exits = remapIndices(node.Exits, linkRemap)
	}

	d.Nodes = kept
	d.Links = keptLinks
	if d.Start >= 0 {
		d.Start = remap[d.Start]
	}
	if d.End >= 0 {
		d.End = remap[d.End]
	}
}

func remapIndices(in, remap []int) []int {
	out := in[:0]
	for _, i := range in {
		if remap[i] >= 0 {
			out = append(out, remap[i])
		}
	}
	return out
}

// translate fills DictWID/BaseWID on every node (spec.md §4.4
// post-processing). The FSG's and the dictionary's word ids are independent
// spaces; the word string is the only bridge between them.
func (d *DAG) translate(fsg *fsgmodel.Model, dict Dictionary) {
	if dict == nil {
		return
	}
	for _, node := range d.Nodes {
		wid, ok := dict.ToID(fsg.WordStr(node.Word))
		if !ok {
			continue
		}
		node.DictWID = wid
		node.BaseWID = dict.BaseWID(wid)
	}
}

// bypassFillers adds a direct link around every filler/silence node, summing
// the surrounding link scores plus the appropriate insertion penalty
// (spec.md §4.4, "bypass_fillers(dag, silpen, fillpen)").
func (d *DAG) bypassFillers(fsg *fsgmodel.Model, silPenLog, fillPenLog int32) {
	sil := fsg.SilWords()
	for i, node := range d.Nodes {
		if !node.Filler || i == d.Start || i == d.End {
			continue
		}
		pen := fillPenLog
		if sil[node.Word] {
			pen = silPenLog
		}
		for _, ei := range node.Entries {
			in := d.Links[ei]
			for _, eo := range node.Exits {
				out := d.Links[eo]
				d.addLink(in.From, out.To, in.AScore+out.AScore+pen, out.EndFrame)
			}
		}
	}
}
