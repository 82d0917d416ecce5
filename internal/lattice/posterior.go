package lattice

import "math"

// Posterior runs a forward-backward pass over the DAG under acoustic scale
// ascale, storing and returning the resulting log-posterior of the lattice as
// a whole (the total path mass through Start→End). This is the reference
// implementation of the "posterior(dag, lm, ascale)" lattice-library contract
// named in spec.md §6; SPEC_FULL.md §5 adds it as a first-class accessor
// since spec.md lists the contract but leaves it unimplemented.
func (d *DAG) Posterior(ascale float64) float64 {
	if d.Start < 0 || d.End < 0 || len(d.Nodes) == 0 {
		d.Posterior = 0
		return 0
	}

	alpha := make([]float64, len(d.Nodes))
	for i := range alpha {
		alpha[i] = math.Inf(-1)
	}
	order := d.topoOrder()
	alpha[d.Start] = 0
	for _, i := range order {
		if math.IsInf(alpha[i], -1) {
			continue
		}
		for _, ei := range d.Nodes[i].Exits {
			l := d.Links[ei]
			alpha[l.To] = logSumExp(alpha[l.To], alpha[i]+float64(l.AScore)*ascale)
		}
	}

	beta := make([]float64, len(d.Nodes))
	for i := range beta {
		beta[i] = math.Inf(-1)
	}
	beta[d.End] = 0
	for k := len(order) - 1; k >= 0; k-- {
		i := order[k]
		if beta[i] != math.Inf(-1) {
			continue
		}
		for _, ei := range d.Nodes[i].Exits {
			l := d.Links[ei]
			if math.IsInf(beta[l.To], -1) {
				continue
			}
			beta[i] = logSumExp(beta[i], float64(l.AScore)*ascale+beta[l.To])
		}
	}

	d.Posterior = alpha[d.End]
	return d.Posterior
}

// topoOrder returns node indices in a topological order derived from
// StartFrame (lattices are acyclic and frame-monotone by construction),
// with Start placed first: a synthesized <s> shares frame 0 with the nodes
// it links to.
func (d *DAG) topoOrder() []int {
	order := make([]int, len(d.Nodes))
	for i := range order {
		order[i] = i
	}
	key := func(i int) int32 {
		if i == d.Start {
			return -1
		}
		return d.Nodes[i].StartFrame
	}
	// Simple insertion sort on StartFrame: lattices in this module are small
	// (one per utterance) so an O(n^2) stable sort is not a concern.
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && key(order[j-1]) > key(order[j]) {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}
	return order
}

func logSumExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}
