package testutil

import (
	"github.com/turtacn/flexbind/internal/domain/structure"
	"gonum.org/v1/gonum/spatial/r3"
)

// caSpacing is the approximate Calpha-Calpha distance of an extended chain.
const caSpacing = 3.8

// MakeChain builds a synthetic extended chain: one residue per letter of seq,
// Calpha atoms spaced along x starting at origin, full backbone, and a Cbeta
// for every non-glycine pointing cbDir along y.  Residue numbering starts at
// startSeq.
func MakeChain(id, seq string, origin r3.Vec, cbDir float64, startSeq int) structure.Chain {
	c := structure.Chain{ID: id}
	for i := 0; i < len(seq); i++ {
		name, ok := structure.ThreeLetterCode(seq[i])
		if !ok {
			name = "UNK"
		}
		x := origin.X + float64(i)*caSpacing
		res := structure.Residue{Name: name, Seq: startSeq + i}
		res.Atoms = []structure.Atom{
			{Name: structure.AtomN, Element: "N", Coord: r3.Vec{X: x - 1.2, Y: origin.Y + 0.8, Z: origin.Z}, Occupancy: 1},
			{Name: structure.AtomCA, Element: "C", Coord: r3.Vec{X: x, Y: origin.Y, Z: origin.Z}, Occupancy: 1},
			{Name: structure.AtomC, Element: "C", Coord: r3.Vec{X: x + 1.2, Y: origin.Y + 0.6, Z: origin.Z}, Occupancy: 1},
			{Name: structure.AtomO, Element: "O", Coord: r3.Vec{X: x + 1.3, Y: origin.Y + 1.8, Z: origin.Z}, Occupancy: 1},
		}
		if seq[i] != 'G' {
			res.Atoms = append(res.Atoms, structure.Atom{
				Name: structure.AtomCB, Element: "C",
				Coord:     r3.Vec{X: x, Y: origin.Y + cbDir, Z: origin.Z + 0.8},
				Occupancy: 1,
			})
		}
		c.Residues = append(c.Residues, res)
	}
	return c
}

// TwoChainComplex builds a synthetic target/binder complex: the target on
// chain A at y=0 with side chains pointing up, the binder on chain B five
// Angstroms above with side chains pointing down.  Every binder Calpha is
// within interface-detection range of the target, and no inter-chain atom
// pair is close enough to clash.
func TwoChainComplex(targetSeq, binderSeq string) *structure.Structure {
	return &structure.Structure{Chains: []structure.Chain{
		MakeChain("A", targetSeq, r3.Vec{}, 1, 1),
		MakeChain("B", binderSeq, r3.Vec{Y: 5}, -1, 1),
	}}
}

// DefaultComplex is TwoChainComplex with the sequences used across the test
// suite: a five-residue target and a six-residue binder.
func DefaultComplex() *structure.Structure {
	return TwoChainComplex("AGLSV", "KTWSEV")
}

// BinderIDs returns the ResidueIDs of every chain-B residue of s, sorted.
func BinderIDs(s *structure.Structure) []structure.ResidueID {
	var ids []structure.ResidueID
	b := s.Chain("B")
	if b == nil {
		return ids
	}
	for i := range b.Residues {
		ids = append(ids, structure.ResidueID{ChainID: "B", Seq: b.Residues[i].Seq})
	}
	structure.SortResidueIDs(ids)
	return ids
}
