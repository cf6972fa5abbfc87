// Package scoring evaluates binder/target interfaces.  All terms are cheap
// geometric proxies over one conformation: distance-weighted contacts, steric
// clashes, an N-O hydrogen-bond proxy, and a neighbour-count burial proxy.
// Scores are comparable only within one run; they carry no physical units.
//
// Scoring is sequence-aware.  The design search relabels residue identities
// without rebuilding side chains, so the scorer accepts an identity override
// map: contact weights and side-chain hydrogen-bond capability follow the
// overridden sequence, which is what makes mutations visible to the search.
package scoring

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexbind/internal/config"
	"github.com/turtacn/flexbind/internal/domain/structure"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
	"github.com/turtacn/flexbind/pkg/types/design"
)

// Override maps residues to replacement one-letter identities.
type Override map[structure.ResidueID]byte

// Scorer computes interface score vectors for the binder chains against the
// rest of the structure.  A Scorer is safe for concurrent use.
type Scorer struct {
	cfg    config.ScoringConfig
	onCall func()
}

// NewScorer returns a scorer with the given cutoffs and weights.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// InstrumentCalls registers a callback invoked once per Score call, for
// operational counters.  Set it before sharing the scorer; fn must be safe
// for concurrent use.
func (s *Scorer) InstrumentCalls(fn func()) {
	s.onCall = fn
}

// residueView is one residue with its effective identity applied.
type residueView struct {
	res    *structure.Residue
	id     structure.ResidueID
	letter byte
	binder bool
}

// Score evaluates the interface between the binder chains and every other
// chain of conf.  override relabels residue identities; nil means the
// structure's own sequence.
func (s *Scorer) Score(conf *structure.Structure, binderChains []string, override Override) (design.ScoreVector, error) {
	if s.onCall != nil {
		s.onCall()
	}
	if conf == nil {
		return design.ScoreVector{}, apperrors.InvalidInput("scoring needs a structure")
	}
	if len(binderChains) == 0 {
		return design.ScoreVector{}, apperrors.InvalidInput("scoring needs at least one binder chain")
	}
	binderSet := make(map[string]bool, len(binderChains))
	for _, id := range binderChains {
		if conf.Chain(id) == nil {
			return design.ScoreVector{}, apperrors.New(apperrors.ErrCodeScoringFailed,
				"binder chain not present").WithDetail("chain " + id)
		}
		binderSet[id] = true
	}

	views := s.views(conf, binderSet)
	applyOverride(views, override)

	contact := s.contactScore(views)
	clash := s.clashScore(views)
	hbond := s.hbondScore(views)
	burial := s.burialScore(views)

	composite := s.cfg.ContactWeight*contact +
		s.cfg.HBondWeight*hbond +
		s.cfg.BurialWeight*burial -
		s.cfg.ClashWeight*clashPenaltyScale*clash

	return design.ScoreVector{
		ContactScore: contact,
		ClashScore:   clash,
		HBondProxy:   hbond,
		SASABurial:   burial,
		Composite:    composite,
	}, nil
}

// clashPenaltyScale makes a single steric clash outweigh several contacts.
const clashPenaltyScale = 10.0

func (s *Scorer) views(conf *structure.Structure, binderSet map[string]bool) []residueView {
	var out []residueView
	conf.EachResidue(func(chainID string, r *structure.Residue) {
		out = append(out, residueView{
			res:    r,
			id:     structure.ResidueID{ChainID: chainID, Seq: r.Seq},
			letter: r.OneLetter(),
			binder: binderSet[chainID],
		})
	})
	return out
}

// applyOverride rewrites view letters per the override map.
func applyOverride(views []residueView, override Override) {
	if override == nil {
		return
	}
	for i := range views {
		if c, ok := override[views[i].id]; ok {
			views[i].letter = c
		}
	}
}

// contactScore sums distance-decayed binder/target residue contacts.  Each
// contact is weighted by the binder residue's hydropathy so that relabelling
// a contact residue moves the score: hydrophobic identities strengthen
// interface packing, strongly polar ones weaken it.  Weights stay positive,
// so adding a contact never lowers the score.
func (s *Scorer) contactScore(views []residueView) float64 {
	cutoff := s.cfg.ContactCutoff
	total := 0.0
	for i := range views {
		if !views[i].binder {
			continue
		}
		bi := views[i].res.CBOrCA()
		if bi == nil {
			continue
		}
		for j := range views {
			if views[j].binder {
				continue
			}
			tj := views[j].res.CBOrCA()
			if tj == nil {
				continue
			}
			d := structure.Distance(bi.Coord, tj.Coord)
			if d >= cutoff {
				continue
			}
			decay := 1 - d/cutoff
			weight := 1 + structure.HydropathyIndex(views[i].letter)/9.0
			total += decay * weight
		}
	}
	return total
}

// clashScore counts binder/target atom pairs closer than the clash cutoff.
// Identity overrides cannot change it: clashes are a property of the fixed
// backbone geometry.
func (s *Scorer) clashScore(views []residueView) float64 {
	n := 0
	for i := range views {
		if !views[i].binder {
			continue
		}
		for ai := range views[i].res.Atoms {
			a := &views[i].res.Atoms[ai]
			for j := range views {
				if views[j].binder {
					continue
				}
				for oi := range views[j].res.Atoms {
					if structure.Distance(a.Coord, views[j].res.Atoms[oi].Coord) < s.cfg.ClashCutoff {
						n++
					}
				}
			}
		}
	}
	return float64(n)
}

// hbondScore is a donor/acceptor proxy: backbone N-O pairs across the
// interface inside the hydrogen-bond distance window count fully, and binder
// residues whose (possibly overridden) side chain is polar add half a count
// when their side-chain reference point sits within side-chain reach of a
// target backbone polar atom.  On top of the distance window, a pair counts
// only when the partner lies in the half-space the donor group points into,
// a crude stand-in for the donor-hydrogen-acceptor angle.
func (s *Scorer) hbondScore(views []residueView) float64 {
	minD, maxD := s.cfg.HBondMinDist, s.cfg.HBondMaxDist
	total := 0.0

	// Backbone-backbone: N against O in both directions.
	for i := range views {
		if !views[i].binder {
			continue
		}
		for _, pair := range [][2]string{{structure.AtomN, structure.AtomO}, {structure.AtomO, structure.AtomN}} {
			ba := views[i].res.Atom(pair[0])
			if ba == nil {
				continue
			}
			for j := range views {
				if views[j].binder {
					continue
				}
				ta := views[j].res.Atom(pair[1])
				if ta == nil {
					continue
				}
				d := structure.Distance(ba.Coord, ta.Coord)
				if d >= minD && d <= maxD && orientedAway(views[i].res, ba, ta) {
					total += 1.0
				}
			}
		}
	}

	// Side-chain capability: the CB stands in for the side chain, so the
	// window extends by a bond length or two of reach.
	reach := maxD + sideChainReach
	for i := range views {
		if !views[i].binder || !structure.HasPolarSideChain(views[i].letter) {
			continue
		}
		cb := views[i].res.CBOrCA()
		if cb == nil {
			continue
		}
		for j := range views {
			if views[j].binder {
				continue
			}
			for _, name := range []string{structure.AtomN, structure.AtomO} {
				ta := views[j].res.Atom(name)
				if ta == nil {
					continue
				}
				d := structure.Distance(cb.Coord, ta.Coord)
				if d >= minD && d <= reach && orientedAway(views[i].res, cb, ta) {
					total += 0.5
				}
			}
		}
	}
	return total
}

// orientedAway reports whether partner sits in the half-space that donor
// points into, taking the residue's CA as the base of the donor group.
// Residues without a CA pass the check.
func orientedAway(r *structure.Residue, donor, partner *structure.Atom) bool {
	ca := r.Atom(structure.AtomCA)
	if ca == nil || ca == donor {
		return true
	}
	out := r3.Sub(donor.Coord, ca.Coord)
	toPartner := r3.Sub(partner.Coord, donor.Coord)
	return r3.Dot(out, toPartner) > 0
}

// sideChainReach extends the hydrogen-bond window for the CB-based
// side-chain proxy.
const sideChainReach = 2.0

// burialScore measures how much binder surface the interface covers: for
// each binder residue, the number of target atoms within the burial radius
// of its side-chain reference point, saturated per residue and summed.
// Isolated binders score 0 and the score can only grow as target atoms pack
// against the binder.
func (s *Scorer) burialScore(views []residueView) float64 {
	total := 0.0
	for i := range views {
		if !views[i].binder {
			continue
		}
		cb := views[i].res.CBOrCA()
		if cb == nil {
			continue
		}
		n := 0
		for j := range views {
			if views[j].binder {
				continue
			}
			for ai := range views[j].res.Atoms {
				if structure.Distance(cb.Coord, views[j].res.Atoms[ai].Coord) < s.cfg.BurialRadius {
					n++
				}
			}
		}
		total += math.Min(1.0, float64(n)/burialSaturation)
	}
	return total
}

// burialSaturation is the neighbour count at which a residue counts as fully
// buried.
const burialSaturation = 20.0
