// Package ensemble turns a single ground-state complex into a small set of
// representative backbone conformations.  Sampling is perturb-and-relax:
// seeded Gaussian displacement of the flexible backbone, geometric
// relaxation, then energy-ordered greedy clustering down to at most K
// representatives.
package ensemble

import (
	"context"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/turtacn/flexbind/internal/config"
	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
)

// State is one representative conformation.  Weight is the fraction of
// sampled trials whose nearest representative this is; weights over an
// ensemble sum to 1.
type State struct {
	Index       int
	Structure   *structure.Structure
	Weight      float64
	EnergyProxy float64
}

// Ensemble is the output of Generate: the untouched ground state plus 1..K
// representative states ordered by ascending energy proxy.
type Ensemble struct {
	GroundState *structure.Structure
	States      []State
	FlexibleSet []structure.ResidueID
	// Discarded counts trials whose relaxation diverged.
	Discarded int
}

// Generator runs the sampling stage.
type Generator struct {
	cfg     config.SamplingConfig
	relaxer Relaxer
	log     logging.Logger
}

// NewGenerator wires a Generator.  relaxer may be nil, in which case the
// geometric relaxer built from cfg is used.
func NewGenerator(cfg config.SamplingConfig, relaxer Relaxer, log logging.Logger) *Generator {
	if relaxer == nil {
		relaxer = NewGeometricRelaxer(cfg.RelaxIterations, cfg.RelaxTolerance, cfg.ClashRadius)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Generator{cfg: cfg, relaxer: relaxer, log: log}
}

type trialResult struct {
	conf   *structure.Structure
	energy float64
	err    error
}

// Generate samples cfg.Samples perturb-and-relax trials from ground and
// clusters the survivors.  The same seed always yields the same ensemble:
// each trial derives its own RNG from seed+index, so worker scheduling
// cannot change the result.
func (g *Generator) Generate(ctx context.Context, ground *structure.Structure, flexible []structure.ResidueID, seed uint64) (*Ensemble, error) {
	if ground == nil || ground.AtomCount() == 0 {
		return nil, apperrors.InvalidInput("ensemble generation needs a non-empty structure")
	}
	if len(flexible) == 0 {
		return nil, apperrors.InvalidInput("ensemble generation needs a non-empty flexible set")
	}

	ids := append([]structure.ResidueID(nil), flexible...)
	structure.SortResidueIDs(ids)

	results := make([]trialResult, g.cfg.Samples)
	workers := g.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < g.cfg.Samples; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = g.runTrial(ctx, ground, ids, seed+uint64(i))
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Cancelled("ensemble")
	}

	var survivors []trialResult
	discarded := 0
	for i, r := range results {
		if r.err != nil {
			if apperrors.IsCancelled(r.err) {
				return nil, r.err
			}
			if !apperrors.IsCode(r.err, apperrors.ErrCodeRelaxationDiverged) {
				return nil, r.err
			}
			discarded++
			g.log.Warn("discarding diverged relaxation",
				logging.Int("trial", i), logging.Err(r.err))
			continue
		}
		survivors = append(survivors, r)
	}
	if len(survivors) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeEnsembleGenerationFailed,
			"all sampled conformations were discarded").
			WithDetail("every relaxation diverged")
	}

	states := clusterByEnergy(survivors, ids, g.cfg.MergeRMSD, g.cfg.Clusters)
	g.log.Info("ensemble generated",
		logging.Int("trials", g.cfg.Samples),
		logging.Int("discarded", discarded),
		logging.Int("states", len(states)))

	return &Ensemble{
		GroundState: ground,
		States:      states,
		FlexibleSet: ids,
		Discarded:   discarded,
	}, nil
}

// runTrial clones the ground state, displaces every flexible backbone atom by
// an independent Gaussian draw, and relaxes the result.
func (g *Generator) runTrial(ctx context.Context, ground *structure.Structure, ids []structure.ResidueID, trialSeed uint64) trialResult {
	if err := ctx.Err(); err != nil {
		return trialResult{err: apperrors.Cancelled("ensemble")}
	}
	conf := ground.Clone()
	normal := distuv.Normal{Mu: 0, Sigma: g.cfg.Magnitude, Src: rand.NewSource(trialSeed)}
	for _, id := range ids {
		res := conf.Lookup(id)
		if res == nil {
			continue
		}
		for i := range res.Atoms {
			if !structure.IsBackboneAtom(res.Atoms[i].Name) {
				continue
			}
			res.Atoms[i].Coord.X += normal.Rand()
			res.Atoms[i].Coord.Y += normal.Rand()
			res.Atoms[i].Coord.Z += normal.Rand()
		}
	}
	energy, err := g.relaxer.Relax(ctx, ground, conf, ids)
	if err != nil {
		return trialResult{err: err}
	}
	return trialResult{conf: conf, energy: energy}
}
