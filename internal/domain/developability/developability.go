// Package developability gates designed binders on manufacturability proxies:
// surface hydrophobic patches, extreme net charge, isoelectric point,
// beta-sheet propensity, and a self-association dock.  Each liability maps to
// a penalty, and 100 minus the penalties is the composite that decides
// PASS/WARN/FAIL.
package developability

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/flexbind/internal/config"
	"github.com/turtacn/flexbind/internal/domain/scoring"
	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
	"github.com/turtacn/flexbind/pkg/types/design"
)

// Gate evaluates developability for one binder sequence threaded onto its
// ground-state geometry.
type Gate struct {
	cfg config.DevelopabilityConfig
	log logging.Logger
}

// NewGate wires a Gate.
func NewGate(cfg config.DevelopabilityConfig, log logging.Logger) *Gate {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Gate{cfg: cfg, log: log}
}

// Evaluate profiles seq threaded onto the binder chains of ground.  seq
// concatenates the chains in their given order, one letter per residue.  The
// seed drives the self-dock orientations, so the same inputs always produce
// the same profile.
func (g *Gate) Evaluate(ground *structure.Structure, binderChains []string, seq string, seed uint64) (design.DevelopabilityProfile, error) {
	var p design.DevelopabilityProfile

	if len(binderChains) == 0 {
		return p, apperrors.InvalidInput("developability needs at least one binder chain")
	}
	var residues []*structure.Residue
	for _, id := range binderChains {
		binder := ground.Chain(id)
		if binder == nil {
			return p, apperrors.InvalidInput("developability needs the binder chain " + id)
		}
		for ri := range binder.Residues {
			residues = append(residues, &binder.Residues[ri])
		}
	}
	if len(seq) != len(residues) {
		return p, apperrors.New(apperrors.ErrCodeDevelopabilityFailed,
			"sequence length does not match the binder chains")
	}
	if len(seq) == 0 {
		return p, apperrors.InvalidInput("developability needs a non-empty sequence")
	}

	p.HydrophobicPatch = g.hydrophobicPatch(residues, seq)
	p.NetCharge = NetCharge(seq, g.cfg.PH)
	p.BetaPropensity = sequenceBetaPropensity(seq)
	p.SelfDockRisk = g.selfDockRisk(residues, seq, seed)

	pi, ok := IsoelectricPoint(seq, g.cfg.PIMaxIterations)
	p.PI = pi
	p.PIUndetermined = !ok
	if !ok {
		g.log.Warn("isoelectric point did not converge",
			logging.Int("max_iterations", g.cfg.PIMaxIterations))
	}

	p.Composite = g.composite(&p)
	switch {
	case p.Composite >= g.cfg.PassThreshold:
		p.Flag = design.FlagPass
	case p.Composite >= g.cfg.WarnThreshold:
		p.Flag = design.FlagWarn
	default:
		p.Flag = design.FlagFail
	}
	return p, nil
}

// composite turns liabilities into 100 minus penalties, clamped to [0, 100].
// An undetermined pI contributes no penalty; the profile records the miss.
func (g *Gate) composite(p *design.DevelopabilityProfile) float64 {
	penalty := 0.0
	if p.HydrophobicPatch > 0.30 {
		penalty += (p.HydrophobicPatch - 0.30) * 100
	}
	if p.NetCharge < -2 || p.NetCharge > 8 {
		penalty += math.Min(math.Abs(p.NetCharge), 10) * 1.5
	}
	if !p.PIUndetermined && (p.PI < 5 || p.PI > 10) {
		penalty += 10
	}
	if p.BetaPropensity > 1.2 {
		penalty += (p.BetaPropensity - 1.2) * 30
	}
	if p.SelfDockRisk > 3.0 {
		penalty += (p.SelfDockRisk - 3.0) * 5
	}
	return math.Max(0, math.Min(100, 100-penalty))
}

// hydrophobicPatch returns the size of the largest spatially contiguous
// cluster of exposed hydrophobic residues, as a fraction of the binder
// length.  Scattered hydrophobic residues are harmless; one large face is
// the liability.
func (g *Gate) hydrophobicPatch(residues []*structure.Residue, seq string) float64 {
	n := len(residues)
	var members []int
	for i := 0; i < n; i++ {
		if structure.HydropathyIndex(seq[i]) <= hydrophobicThreshold {
			continue
		}
		if g.buriedInBinder(residues, i) {
			continue
		}
		members = append(members, i)
	}
	if len(members) == 0 {
		return 0
	}

	// Union clusters by side-chain proximity.
	parent := make(map[int]int, len(members))
	for _, m := range members {
		parent[m] = m
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a := residues[members[i]].CBOrCA()
			b := residues[members[j]].CBOrCA()
			if a == nil || b == nil {
				continue
			}
			if structure.Distance(a.Coord, b.Coord) < patchAdjacency {
				parent[find(members[i])] = find(members[j])
			}
		}
	}
	counts := map[int]int{}
	largest := 0
	for _, m := range members {
		r := find(m)
		counts[r]++
		if counts[r] > largest {
			largest = counts[r]
		}
	}
	return float64(largest) / float64(n)
}

// patchAdjacency is the side-chain distance under which two exposed residues
// belong to the same surface patch.
const patchAdjacency = 8.0

// buriedInBinder reports whether residue i is packed inside the binder:
// enough binder atoms crowd its side-chain reference point that it cannot
// present a surface patch.
func (g *Gate) buriedInBinder(residues []*structure.Residue, i int) bool {
	cb := residues[i].CBOrCA()
	if cb == nil {
		return true
	}
	n := 0
	for ri := range residues {
		if ri == i {
			continue
		}
		for ai := range residues[ri].Atoms {
			if structure.Distance(cb.Coord, residues[ri].Atoms[ai].Coord) < burialProbeRadius {
				n++
			}
		}
	}
	return n > burialNeighborLimit
}

const (
	burialProbeRadius   = 10.0
	burialNeighborLimit = 40
)

// NetCharge is the Henderson-Hasselbalch net charge of seq at the given pH,
// including both termini.
func NetCharge(seq string, ph float64) float64 {
	charge := 1 / (1 + math.Pow(10, ph-pKaNTerm))
	charge -= 1 / (1 + math.Pow(10, pKaCTerm-ph))
	for i := 0; i < len(seq); i++ {
		if pka, ok := pKaPositive[seq[i]]; ok {
			charge += 1 / (1 + math.Pow(10, ph-pka))
		}
		if pka, ok := pKaNegative[seq[i]]; ok {
			charge -= 1 / (1 + math.Pow(10, pka-ph))
		}
	}
	return charge
}

// IsoelectricPoint bisects [0, 14] for the pH of zero net charge.  ok is
// false when the tolerance is not reached within maxIterations.
func IsoelectricPoint(seq string, maxIterations int) (float64, bool) {
	lo, hi := 0.0, 14.0
	for i := 0; i < maxIterations; i++ {
		mid := (lo + hi) / 2
		c := NetCharge(seq, mid)
		if math.Abs(c) < piTolerance {
			return mid, true
		}
		if c > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, false
}

const piTolerance = 1e-3

// sequenceBetaPropensity is the mean Chou-Fasman sheet propensity over the
// whole sequence; unknown letters count as neutral 1.0.
func sequenceBetaPropensity(seq string) float64 {
	vals := make([]float64, len(seq))
	for i := 0; i < len(seq); i++ {
		if v, ok := betaPropensity[seq[i]]; ok {
			vals[i] = v
		} else {
			vals[i] = 1.0
		}
	}
	return stat.Mean(vals, nil)
}

// selfDockRisk docks the binder against a rigid copy of itself in a handful
// of seeded orientations and keeps the worst interface score.  A binder that
// scores well against itself will aggregate.
func (g *Gate) selfDockRisk(residues []*structure.Residue, seq string, seed uint64) float64 {
	if len(residues) == 0 {
		return 0
	}

	// Both copies flatten the binder into one renumbered chain, so identity
	// overrides can thread the candidate sequence onto each without residue
	// number collisions between the original chains.
	override := scoring.Override{}
	for i := range residues {
		override[structure.ResidueID{ChainID: selfChainA, Seq: i + 1}] = seq[i]
		override[structure.ResidueID{ChainID: selfChainB, Seq: i + 1}] = seq[i]
	}

	scorer := scoring.NewScorer(config.ScoringConfig{
		ContactCutoff: selfDockContactCutoff,
		ClashCutoff:   config.DefaultClashCutoff,
		HBondMinDist:  config.DefaultHBondMinDist,
		HBondMaxDist:  config.DefaultHBondMaxDist,
		BurialRadius:  config.DefaultBurialRadius,
		ContactWeight: config.DefaultContactWeight,
		ClashWeight:   config.DefaultClashWeight,
		HBondWeight:   config.DefaultHBondWeight,
		BurialWeight:  config.DefaultBurialWeight,
	})

	rng := rand.New(rand.NewSource(seed))
	orientations := g.cfg.SelfDockOrientations
	if orientations < 1 {
		orientations = 1
	}

	risk := 0.0
	for o := 0; o < orientations; o++ {
		fixed := flattenBinder(residues, selfChainA)
		moving := flattenBinder(residues, selfChainB)

		axis := r3.Unit(r3.Vec{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5, Z: rng.Float64() - 0.5})
		angle := rng.Float64() * 2 * math.Pi
		dir := r3.Unit(r3.Vec{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5, Z: rng.Float64() - 0.5})
		dist := 20 + 20*rng.Float64()

		// Rotate the copy about its own centroid, then park it dist away from
		// the fixed copy along the approach direction.
		rot := r3.NewRotation(angle, axis)
		center := structure.AtomCentroid(moving)
		structure.Transform(moving, rot, r3.Sub(center, rot.Rotate(center)))
		target := r3.Add(structure.AtomCentroid(fixed), r3.Scale(dist, dir))
		translate(moving, r3.Sub(target, structure.AtomCentroid(moving)))

		pair := &structure.Structure{Chains: []structure.Chain{fixed.Chains[0], moving.Chains[0]}}
		sv, err := scorer.Score(pair, []string{selfChainB}, override)
		if err != nil {
			continue
		}
		if sv.Composite > risk {
			risk = sv.Composite
		}
	}
	return risk
}

func translate(s *structure.Structure, delta r3.Vec) {
	s.EachResidue(func(_ string, r *structure.Residue) {
		for i := range r.Atoms {
			r.Atoms[i].Coord = r3.Add(r.Atoms[i].Coord, delta)
		}
	})
}

const (
	selfChainA            = "S1"
	selfChainB            = "S2"
	selfDockContactCutoff = 10.0
)

// flattenBinder copies the binder residues into a fresh single-chain
// structure under the given chain id, renumbered from 1.
func flattenBinder(residues []*structure.Residue, id string) *structure.Structure {
	s := &structure.Structure{Chains: []structure.Chain{{ID: id}}}
	for ri := range residues {
		r := *residues[ri]
		r.Seq = ri + 1
		r.ICode = ""
		r.Atoms = append([]structure.Atom(nil), residues[ri].Atoms...)
		s.Chains[0].Residues = append(s.Chains[0].Residues, r)
	}
	return s
}
