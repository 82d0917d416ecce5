package lattice

import "github.com/MrWong99/gofsgdecoder/internal/fsgmodel"

// BestPath runs a shortest/best-path search over the DAG under combined
// acoustic/linguistic scores (spec.md §6, "bestpath(dag, lm, lwf, ascale)"),
// returning the word sequence (fillers skipped) of the highest-scoring
// Start→End path and its total score. Each link's stored score is
// multiplied by ascale and by lwf before it is summed.
func (d *DAG) BestPath(lwf, ascale float64) ([]FsgWord, int32) {
	if d.Start < 0 || d.End < 0 {
		return nil, 0
	}
	order := d.topoOrder()
	const worst = int32(-1 << 30)
	best := make([]int32, len(d.Nodes))
	back := make([]int, len(d.Nodes))
	for i := range best {
		best[i] = worst
		back[i] = -1
	}
	best[d.Start] = 0

	for _, i := range order {
		if best[i] == worst {
			continue
		}
		for _, ei := range d.Nodes[i].Exits {
			l := d.Links[ei]
			cand := best[i] + int32(float64(l.AScore)*ascale*lwf)
			if cand > best[l.To] {
				best[l.To] = cand
				back[l.To] = i
			}
		}
	}
	if best[d.End] == worst {
		return nil, 0
	}

	var chain []int
	for i := d.End; i != -1; i = back[i] {
		chain = append(chain, i)
		if i == d.Start {
			break
		}
	}
	var words []FsgWord
	for k := len(chain) - 1; k >= 0; k-- {
		node := d.Nodes[chain[k]]
		if node.Filler || chain[k] == d.Start || chain[k] == d.End {
			continue
		}
		words = append(words, FsgWord{
			Word:    node.Word,
			DictWID: node.DictWID,
			SF:      node.StartFrame,
			EF:      node.LastEndFrame,
			AScr:    node.BestExit,
		})
	}
	return words, best[d.End]
}

// FsgWord is one word on a best-path chain, carrying both its FSG and
// translated dictionary id so the caller can render either, plus the span
// and score recovered from its lattice node (used to build a best-path
// segmentation without re-walking the history table, spec.md §4.5).
type FsgWord struct {
	Word    fsgmodel.WordID
	DictWID fsgmodel.WordID
	SF, EF  int32
	AScr    int32
}
