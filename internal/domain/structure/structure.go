// Package structure holds the immutable-by-convention molecular model shared
// by every pipeline stage: atoms with gonum spatial coordinates, residues,
// chains, and whole structures, together with the lookups (Calpha, Cbeta,
// one-letter codes) the geometry code leans on.
package structure

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Backbone atom names.  Perturbation and relaxation act on these only.
const (
	AtomN  = "N"
	AtomCA = "CA"
	AtomC  = "C"
	AtomO  = "O"
	AtomCB = "CB"
)

// Atom is a single atom record.  Coord is in Angstroms.
type Atom struct {
	Serial    int
	Name      string
	Element   string
	Coord     r3.Vec
	Occupancy float64
	BFactor   float64
}

// Residue is one amino-acid residue.  Name is the three-letter code in upper
// case; Seq is the author-assigned residue number from the source file.
type Residue struct {
	Name  string
	Seq   int
	ICode string
	Atoms []Atom
}

// Atom returns the named atom, or nil when absent.
func (r *Residue) Atom(name string) *Atom {
	for i := range r.Atoms {
		if r.Atoms[i].Name == name {
			return &r.Atoms[i]
		}
	}
	return nil
}

// CA returns the alpha carbon, or nil for residues missing one.
func (r *Residue) CA() *Atom { return r.Atom(AtomCA) }

// CBOrCA returns the beta carbon when present (glycine has none) and falls
// back to the alpha carbon.  This is the reference point for side-chain
// contact geometry.
func (r *Residue) CBOrCA() *Atom {
	if cb := r.Atom(AtomCB); cb != nil {
		return cb
	}
	return r.CA()
}

// OneLetter returns the residue's one-letter code, 'X' for non-standard names.
func (r *Residue) OneLetter() byte {
	if c, ok := OneLetterCode(r.Name); ok {
		return c
	}
	return 'X'
}

// Centroid returns the arithmetic mean of the residue's atom coordinates.
func (r *Residue) Centroid() r3.Vec {
	pts := make([]r3.Vec, len(r.Atoms))
	for i := range r.Atoms {
		pts[i] = r.Atoms[i].Coord
	}
	return Centroid(pts)
}

// Chain is an ordered list of residues sharing a chain identifier.
type Chain struct {
	ID       string
	Residues []Residue
}

// Atoms returns pointers to every atom of the chain in residue order.
func (c *Chain) Atoms() []*Atom {
	var out []*Atom
	for ri := range c.Residues {
		for ai := range c.Residues[ri].Atoms {
			out = append(out, &c.Residues[ri].Atoms[ai])
		}
	}
	return out
}

// Residue returns the residue with the given sequence number, or nil.
func (c *Chain) Residue(seq int) *Residue {
	for i := range c.Residues {
		if c.Residues[i].Seq == seq {
			return &c.Residues[i]
		}
	}
	return nil
}

// Sequence returns the chain's one-letter sequence.
func (c *Chain) Sequence() string {
	var b strings.Builder
	b.Grow(len(c.Residues))
	for i := range c.Residues {
		b.WriteByte(c.Residues[i].OneLetter())
	}
	return b.String()
}

// Structure is a set of chains.  Stages treat structures as values: anything
// that mutates coordinates works on a Clone.
type Structure struct {
	Chains []Chain
}

// Chain returns the chain with the given identifier, or nil.
func (s *Structure) Chain(id string) *Chain {
	for i := range s.Chains {
		if s.Chains[i].ID == id {
			return &s.Chains[i]
		}
	}
	return nil
}

// ChainIDs returns the chain identifiers in their file order.
func (s *Structure) ChainIDs() []string {
	ids := make([]string, len(s.Chains))
	for i := range s.Chains {
		ids[i] = s.Chains[i].ID
	}
	return ids
}

// AtomCount returns the total number of atoms.
func (s *Structure) AtomCount() int {
	n := 0
	for ci := range s.Chains {
		for ri := range s.Chains[ci].Residues {
			n += len(s.Chains[ci].Residues[ri].Atoms)
		}
	}
	return n
}

// ResidueCount returns the total number of residues.
func (s *Structure) ResidueCount() int {
	n := 0
	for ci := range s.Chains {
		n += len(s.Chains[ci].Residues)
	}
	return n
}

// Clone returns a deep copy sharing no slices with the receiver.
func (s *Structure) Clone() *Structure {
	out := &Structure{Chains: make([]Chain, len(s.Chains))}
	for ci := range s.Chains {
		src := &s.Chains[ci]
		dst := &out.Chains[ci]
		dst.ID = src.ID
		dst.Residues = make([]Residue, len(src.Residues))
		for ri := range src.Residues {
			dst.Residues[ri] = src.Residues[ri]
			dst.Residues[ri].Atoms = append([]Atom(nil), src.Residues[ri].Atoms...)
		}
	}
	return out
}

// EachResidue calls fn for every residue in chain then file order.
func (s *Structure) EachResidue(fn func(chainID string, r *Residue)) {
	for ci := range s.Chains {
		c := &s.Chains[ci]
		for ri := range c.Residues {
			fn(c.ID, &c.Residues[ri])
		}
	}
}

// ResidueID locates one residue within a structure.
type ResidueID struct {
	ChainID string
	Seq     int
}

func (id ResidueID) String() string { return fmt.Sprintf("%s:%d", id.ChainID, id.Seq) }

// Lookup resolves a ResidueID against a structure, or returns nil.
func (s *Structure) Lookup(id ResidueID) *Residue {
	c := s.Chain(id.ChainID)
	if c == nil {
		return nil
	}
	return c.Residue(id.Seq)
}

// SortResidueIDs orders ids by chain identifier then sequence number, the
// canonical order used everywhere a flexible set is iterated.
func SortResidueIDs(ids []ResidueID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].ChainID != ids[j].ChainID {
			return ids[i].ChainID < ids[j].ChainID
		}
		return ids[i].Seq < ids[j].Seq
	})
}
