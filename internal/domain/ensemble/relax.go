package ensemble

import (
	"context"
	"math"

	"github.com/turtacn/flexbind/internal/domain/structure"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// Relaxer drives a perturbed conformation toward a locally consistent
// geometry.  Relax mutates conf in place and returns a dimensionless energy
// proxy: comparable across conformations of the same structure, lower is
// better.  ref is the unperturbed ground state the conformation derives from.
type Relaxer interface {
	Relax(ctx context.Context, ref, conf *structure.Structure, flexible []structure.ResidueID) (float64, error)
}

// GeometricRelaxer is the always-available relaxation engine: a damped
// harmonic pull toward the reference backbone plus a short-range repulsion
// between non-bonded clashing atoms.  It is not a physical force field; it
// exists to remove the worst artefacts of Gaussian perturbation while keeping
// the sampled diversity.
type GeometricRelaxer struct {
	// MaxIterations caps the relaxation loop.
	MaxIterations int
	// Tolerance is the energy delta below which the loop stops.
	Tolerance float64
	// ClashRadius is the non-bonded atom-pair distance that triggers repulsion.
	ClashRadius float64
	// SpringK scales the pull toward the reference position.
	SpringK float64
	// StepSize scales per-iteration displacement.
	StepSize float64
}

// NewGeometricRelaxer returns a relaxer with the given loop bounds and the
// standard spring and step constants.
func NewGeometricRelaxer(maxIterations int, tolerance, clashRadius float64) *GeometricRelaxer {
	return &GeometricRelaxer{
		MaxIterations: maxIterations,
		Tolerance:     tolerance,
		ClashRadius:   clashRadius,
		SpringK:       1.0,
		StepSize:      0.3,
	}
}

// atomEntry flattens one atom with its residue identity so that clash terms
// can skip bonded neighbours.
type atomEntry struct {
	atom    *structure.Atom
	chainID string
	seq     int
	flexBB  bool
}

type flexAtom struct {
	entry int
	ref   r3.Vec
}

// bonded reports whether two entries are within bonding range of each other
// in the chain topology: same residue, or backbone of adjacent residues on
// one chain (the peptide bond).  Such pairs are always closer than any
// sensible clash radius and must not repel.
func bonded(a, b *atomEntry) bool {
	if a.chainID != b.chainID {
		return false
	}
	d := a.seq - b.seq
	return d >= -1 && d <= 1
}

// Relax implements Relaxer.  It returns RelaxationDiverged when the energy
// proxy stops being finite; callers discard such conformations.
func (g *GeometricRelaxer) Relax(ctx context.Context, ref, conf *structure.Structure, flexible []structure.ResidueID) (float64, error) {
	entries, flex := g.index(ref, conf, flexible)
	if len(flex) == 0 {
		return 0, nil
	}

	prev := math.Inf(1)
	for iter := 0; iter < g.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return 0, apperrors.Cancelled("relaxation")
		}
		for fi := range flex {
			e := &entries[flex[fi].entry]
			force := r3.Scale(g.SpringK, r3.Sub(flex[fi].ref, e.atom.Coord))
			force = r3.Add(force, g.repulsion(entries, e))
			e.atom.Coord = r3.Add(e.atom.Coord, r3.Scale(g.StepSize, force))
		}
		e := g.energy(entries, flex)
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return 0, apperrors.New(apperrors.ErrCodeRelaxationDiverged, "energy proxy is not finite")
		}
		if math.Abs(prev-e) < g.Tolerance {
			return e, nil
		}
		prev = e
	}
	return prev, nil
}

// repulsion sums unit-vector pushes away from every non-bonded atom within
// ClashRadius of e.  Coincident atoms contribute nothing; the spring term
// separates them on later iterations.
func (g *GeometricRelaxer) repulsion(entries []atomEntry, e *atomEntry) r3.Vec {
	var f r3.Vec
	for i := range entries {
		o := &entries[i]
		if o == e || bonded(e, o) {
			continue
		}
		d := structure.Distance(e.atom.Coord, o.atom.Coord)
		if d <= 0 || d >= g.ClashRadius {
			continue
		}
		away := r3.Scale(1/d, r3.Sub(e.atom.Coord, o.atom.Coord))
		f = r3.Add(f, r3.Scale(g.ClashRadius-d, away))
	}
	return f
}

// energy is the harmonic strain of the flexible atoms plus a quadratic clash
// penalty over non-bonded pairs involving at least one flexible atom.
func (g *GeometricRelaxer) energy(entries []atomEntry, flex []flexAtom) float64 {
	e := 0.0
	for fi := range flex {
		d := r3.Sub(flex[fi].ref, entries[flex[fi].entry].atom.Coord)
		e += 0.5 * g.SpringK * r3.Dot(d, d)
	}
	for fi := range flex {
		a := &entries[flex[fi].entry]
		for i := range entries {
			o := &entries[i]
			if o == a || bonded(a, o) {
				continue
			}
			// Halve flexible-flexible pairs, which are visited twice.
			w := 1.0
			if o.flexBB {
				w = 0.5
			}
			d := structure.Distance(a.atom.Coord, o.atom.Coord)
			if d < g.ClashRadius {
				gap := g.ClashRadius - d
				e += 0.5 * w * gap * gap
			}
		}
	}
	return e
}

// index flattens conf into atom entries and pairs each flexible backbone
// atom with its reference position in ref.
func (g *GeometricRelaxer) index(ref, conf *structure.Structure, flexible []structure.ResidueID) ([]atomEntry, []flexAtom) {
	isFlex := make(map[structure.ResidueID]bool, len(flexible))
	for _, id := range flexible {
		isFlex[id] = true
	}

	var entries []atomEntry
	conf.EachResidue(func(chainID string, r *structure.Residue) {
		for i := range r.Atoms {
			entries = append(entries, atomEntry{
				atom:    &r.Atoms[i],
				chainID: chainID,
				seq:     r.Seq,
			})
		}
	})

	var flex []flexAtom
	for i := range entries {
		e := &entries[i]
		id := structure.ResidueID{ChainID: e.chainID, Seq: e.seq}
		if !isFlex[id] || !structure.IsBackboneAtom(e.atom.Name) {
			continue
		}
		refRes := ref.Lookup(id)
		if refRes == nil {
			continue
		}
		refAtom := refRes.Atom(e.atom.Name)
		if refAtom == nil {
			continue
		}
		flex = append(flex, flexAtom{entry: i, ref: refAtom.Coord})
		e.flexBB = true
	}
	return entries, flex
}
