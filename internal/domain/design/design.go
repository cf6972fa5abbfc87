// Package design searches binder sequence space with a beam search over the
// flexible positions.  The backbone never moves: a mutation relabels residue
// identity, and the multi-state scorer decides whether the relabel helps
// across every ensemble state at once.  The search is fully deterministic:
// positions are visited in canonical order, children are ranked by the
// robustness objective with a lexical tie-break, and nothing draws random
// numbers.
package design

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/flexbind/internal/config"
	"github.com/turtacn/flexbind/internal/domain/ensemble"
	"github.com/turtacn/flexbind/internal/domain/scoring"
	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
	"github.com/turtacn/flexbind/pkg/types/design"
)

// Mutation is one identity change relative to the wildtype binder.
type Mutation struct {
	Pos  structure.ResidueID
	From byte
	To   byte
}

func (m Mutation) String() string {
	return string(m.From) + m.Pos.String() + string(m.To)
}

// Candidate is one finished design with its multi-state evaluation.
type Candidate struct {
	// Sequence is the full binder sequence with assignments applied.
	Sequence  string
	Mutations []Mutation
	PerState  []design.ScoreVector
	Mean      float64
	Worst     float64
	// Robustness is the search objective: worst-weighted plus mean-weighted
	// composite over states.
	Robustness float64
}

// Result is the design stage output.
type Result struct {
	// Candidates is ranked best-first, at most cfg.Candidates long.
	Candidates []Candidate
	// Wildtype is the unmutated binder evaluated the same way, the baseline
	// every candidate is compared against in reports.
	Wildtype Candidate
	// GlycoRejected counts children discarded for introducing an
	// N-X-[S/T] sequon.
	GlycoRejected int
}

// Designer runs the sequence design stage.
type Designer struct {
	cfg    config.DesignConfig
	scorer *scoring.Scorer
	log    logging.Logger
}

// NewDesigner wires a Designer.
func NewDesigner(cfg config.DesignConfig, scorer *scoring.Scorer, log logging.Logger) *Designer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Designer{cfg: cfg, scorer: scorer, log: log}
}

// beamNode is one partial assignment.
type beamNode struct {
	seq        string
	assigned   scoring.Override
	mean       float64
	worst      float64
	robustness float64
	perState   []design.ScoreVector
}

// Design searches the given binder positions over the ensemble states.
// noGlyco strictly rejects any child whose mutation takes part in an
// N-X-[S/T] sequon (X != P).  progress, when non-nil, is called once per
// completed depth.
func (d *Designer) Design(ctx context.Context, ens *ensemble.Ensemble, binderChains []string, positions []structure.ResidueID, noGlyco bool, progress func(done, total int)) (*Result, error) {
	if ens == nil || len(ens.States) == 0 {
		return nil, apperrors.InvalidInput("design needs a non-empty ensemble")
	}
	if len(binderChains) == 0 {
		return nil, apperrors.InvalidInput("design needs at least one binder chain")
	}

	alphabet, err := d.alphabet()
	if err != nil {
		return nil, err
	}

	// The working sequence concatenates the binder chains in their given
	// order.  seqIndex maps residues to positions in it; chainOf remembers
	// which chain each position came from so sequence windows never cross a
	// chain boundary.
	var wildtype strings.Builder
	seqIndex := map[structure.ResidueID]int{}
	var chainOf []int
	for ci, chainID := range binderChains {
		binder := ens.GroundState.Chain(chainID)
		if binder == nil || len(binder.Residues) == 0 {
			return nil, apperrors.InvalidInput("design needs binder chains with residues")
		}
		for i := range binder.Residues {
			seqIndex[structure.ResidueID{ChainID: chainID, Seq: binder.Residues[i].Seq}] = wildtype.Len()
			chainOf = append(chainOf, ci)
			wildtype.WriteByte(binder.Residues[i].OneLetter())
		}
	}

	ids := append([]structure.ResidueID(nil), positions...)
	structure.SortResidueIDs(ids)
	var order []structure.ResidueID
	for _, id := range ids {
		if _, ok := seqIndex[id]; ok {
			order = append(order, id)
		}
	}
	if d.cfg.MaxPositions > 0 && len(order) > d.cfg.MaxPositions {
		order = order[:d.cfg.MaxPositions]
	}

	wtSeq := wildtype.String()
	root := &beamNode{seq: wtSeq, assigned: scoring.Override{}}
	if err := d.evaluate(ctx, ens, binderChains, root); err != nil {
		return nil, err
	}
	wt := d.toCandidate(root, wtSeq, nil, seqIndex)

	// With nothing to mutate the wildtype is the one and only candidate.
	if len(order) == 0 {
		d.log.Warn("no designable positions on the binder chains, returning the wildtype")
		return &Result{Candidates: []Candidate{wt}, Wildtype: wt}, nil
	}

	beam := []*beamNode{root}
	glycoRejected := 0

	for depth, pos := range order {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Cancelled("design")
		}

		var children []*beamNode
		for _, parent := range beam {
			for _, letter := range alphabet {
				child := d.extend(parent, pos, byte(letter), seqIndex[pos])
				if noGlyco && introducesSequon(child.seq, chainOf, seqIndex[pos]) {
					glycoRejected++
					continue
				}
				children = append(children, child)
			}
		}
		if len(children) == 0 {
			return nil, apperrors.New(apperrors.ErrCodeDesignSearchExhausted,
				"beam emptied before all positions were assigned").
				WithDetail("position " + pos.String())
		}

		if err := d.evaluateAll(ctx, ens, binderChains, children); err != nil {
			return nil, err
		}

		sortNodes(children)
		if len(children) > d.cfg.BeamWidth {
			children = children[:d.cfg.BeamWidth]
		}
		beam = children

		if progress != nil {
			progress(depth+1, len(order))
		}
	}

	n := d.cfg.Candidates
	if n > len(beam) {
		n = len(beam)
	}
	out := &Result{Wildtype: wt, GlycoRejected: glycoRejected}
	for _, node := range beam[:n] {
		out.Candidates = append(out.Candidates, d.toCandidate(node, wtSeq, order, seqIndex))
	}
	d.log.Info("design search finished",
		logging.Int("positions", len(order)),
		logging.Int("candidates", len(out.Candidates)),
		logging.Int("glyco_rejected", glycoRejected))
	return out, nil
}

// alphabet validates and returns the mutation alphabet.
func (d *Designer) alphabet() (string, error) {
	raw := d.cfg.Alphabet
	if raw == "" {
		raw = structure.CanonicalAlphabet
	}
	var b strings.Builder
	seen := map[byte]bool{}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if _, ok := structure.ThreeLetterCode(c); !ok || seen[c] {
			continue
		}
		seen[c] = true
		b.WriteByte(c)
	}
	if b.Len() == 0 {
		return "", apperrors.New(apperrors.ErrCodeAlphabetEmpty,
			"design alphabet has no canonical residues").WithDetail("alphabet " + raw)
	}
	return b.String(), nil
}

// extend copies a node with one more position assigned.
func (d *Designer) extend(parent *beamNode, pos structure.ResidueID, letter byte, idx int) *beamNode {
	assigned := make(scoring.Override, len(parent.assigned)+1)
	for k, v := range parent.assigned {
		assigned[k] = v
	}
	assigned[pos] = letter
	seq := []byte(parent.seq)
	seq[idx] = letter
	return &beamNode{seq: string(seq), assigned: assigned}
}

// evaluateAll scores nodes across all ensemble states, bounded by the worker
// budget.  Results land in the node they belong to, so scheduling order never
// affects the outcome.
func (d *Designer) evaluateAll(ctx context.Context, ens *ensemble.Ensemble, binderChains []string, nodes []*beamNode) error {
	workers := d.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	errs := make([]error, len(nodes))
	var wg sync.WaitGroup
	for i := range nodes {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = d.evaluate(ctx, ens, binderChains, nodes[i])
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// evaluate fills a node's per-state scores and robustness.
func (d *Designer) evaluate(ctx context.Context, ens *ensemble.Ensemble, binderChains []string, node *beamNode) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Cancelled("design")
	}
	composites := make([]float64, len(ens.States))
	weights := make([]float64, len(ens.States))
	node.perState = make([]design.ScoreVector, len(ens.States))
	for i := range ens.States {
		sv, err := d.scorer.Score(ens.States[i].Structure, binderChains, node.assigned)
		if err != nil {
			return err
		}
		sv.StateIndex = ens.States[i].Index
		node.perState[i] = sv
		composites[i] = sv.Composite
		weights[i] = ens.States[i].Weight
	}
	node.worst = composites[0]
	for _, c := range composites[1:] {
		if c < node.worst {
			node.worst = c
		}
	}
	node.mean = stat.Mean(composites, weights)
	node.robustness = d.cfg.WorstWeight*node.worst + d.cfg.MeanWeight*node.mean
	return nil
}

// sortNodes ranks nodes by descending robustness; sequence order breaks ties
// so equal-scoring beams stay deterministic.
func sortNodes(nodes []*beamNode) {
	sort.SliceStable(nodes, func(a, b int) bool {
		if nodes[a].robustness != nodes[b].robustness {
			return nodes[a].robustness > nodes[b].robustness
		}
		return nodes[a].seq < nodes[b].seq
	})
}

// toCandidate converts a beam node; assignments that kept the wildtype
// letter are not mutations.
func (d *Designer) toCandidate(node *beamNode, wildtype string, order []structure.ResidueID, seqIndex map[structure.ResidueID]int) Candidate {
	c := Candidate{
		Sequence:   node.seq,
		PerState:   node.perState,
		Mean:       node.mean,
		Worst:      node.worst,
		Robustness: node.robustness,
	}
	for _, pos := range order {
		to, ok := node.assigned[pos]
		if !ok {
			continue
		}
		from := wildtype[seqIndex[pos]]
		if from == to {
			continue
		}
		c.Mutations = append(c.Mutations, Mutation{Pos: pos, From: from, To: to})
	}
	return c
}

// introducesSequon reports whether the sequence contains an N-X-[S/T] motif
// (X != P) that overlaps position idx.  Only windows touching the mutated
// position are checked, and windows never span a chain boundary:
// pre-existing wildtype sequons elsewhere are the input's business, not the
// search's.
func introducesSequon(seq string, chainOf []int, idx int) bool {
	for start := idx - 2; start <= idx; start++ {
		if start < 0 || start+2 >= len(seq) {
			continue
		}
		if chainOf[start] != chainOf[start+2] {
			continue
		}
		if seq[start] == 'N' && seq[start+1] != 'P' &&
			(seq[start+2] == 'S' || seq[start+2] == 'T') {
			return true
		}
	}
	return false
}
