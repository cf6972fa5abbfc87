package ensemble

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/flexbind/internal/domain/structure"
)

// clusterByEnergy reduces trial conformations to at most maxStates
// representatives.  Trials are visited in ascending energy order; a trial
// whose backbone RMSD to every existing representative exceeds mergeRMSD
// opens a new cluster (while room remains), otherwise it folds into the
// nearest representative.  Every trial therefore contributes to exactly one
// state's weight, and the lowest-energy conformations anchor the clusters.
func clusterByEnergy(trials []trialResult, flexible []structure.ResidueID, mergeRMSD float64, maxStates int) []State {
	order := make([]int, len(trials))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return trials[order[a]].energy < trials[order[b]].energy
	})

	dist := pairwiseRMSD(trials, flexible)

	var reps []int           // trial indices anchoring each cluster
	members := map[int]int{} // cluster -> member count
	for _, ti := range order {
		best, bestD := -1, 0.0
		for ci, ri := range reps {
			d := dist.At(ti, ri)
			if best == -1 || d < bestD {
				best, bestD = ci, d
			}
		}
		if best == -1 || (bestD > mergeRMSD && len(reps) < maxStates) {
			members[len(reps)]++
			reps = append(reps, ti)
			continue
		}
		members[best]++
	}

	total := float64(len(trials))
	states := make([]State, len(reps))
	for ci, ri := range reps {
		states[ci] = State{
			Index:       ci,
			Structure:   trials[ri].conf,
			Weight:      float64(members[ci]) / total,
			EnergyProxy: trials[ri].energy,
		}
	}
	return states
}

// pairwiseRMSD fills a symmetric matrix of backbone RMSDs over the flexible
// set between every pair of trial conformations.
func pairwiseRMSD(trials []trialResult, flexible []structure.ResidueID) *mat.SymDense {
	n := len(trials)
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, structure.BackboneRMSD(trials[i].conf, trials[j].conf, flexible))
		}
	}
	return m
}
