package structure

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Distance returns the Euclidean distance between two points in Angstroms.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Centroid returns the arithmetic mean of the given points.  It panics on an
// empty input; callers guarantee at least one atom.
func Centroid(points []r3.Vec) r3.Vec {
	if len(points) == 0 {
		panic("structure: centroid of no points")
	}
	var sum r3.Vec
	for _, p := range points {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(points)), sum)
}

// AtomCentroid returns the centroid of every atom in the structure.
func AtomCentroid(s *Structure) r3.Vec {
	var sum r3.Vec
	n := 0
	s.EachResidue(func(_ string, r *Residue) {
		for i := range r.Atoms {
			sum = r3.Add(sum, r.Atoms[i].Coord)
			n++
		}
	})
	if n == 0 {
		panic("structure: centroid of empty structure")
	}
	return r3.Scale(1/float64(n), sum)
}

// NeighborCount returns the number of atoms in s strictly within radius of p,
// excluding atoms at p itself.  It is the primitive behind the burial proxy:
// more neighbours means more buried.
func NeighborCount(s *Structure, p r3.Vec, radius float64) int {
	n := 0
	s.EachResidue(func(_ string, r *Residue) {
		for i := range r.Atoms {
			d := Distance(r.Atoms[i].Coord, p)
			if d > 0 && d < radius {
				n++
			}
		}
	})
	return n
}

// BackboneRMSD returns the root-mean-square deviation between the backbone
// atoms of the given residues in two conformations of the same topology.
// Residues absent from either structure, or atoms absent from a residue, are
// skipped in both.  Returns 0 when no atom pairs exist.
func BackboneRMSD(a, b *Structure, ids []ResidueID) float64 {
	var sum float64
	n := 0
	for _, id := range ids {
		ra, rb := a.Lookup(id), b.Lookup(id)
		if ra == nil || rb == nil {
			continue
		}
		for _, name := range []string{AtomN, AtomCA, AtomC, AtomO} {
			aa, ab := ra.Atom(name), rb.Atom(name)
			if aa == nil || ab == nil {
				continue
			}
			d := r3.Sub(aa.Coord, ab.Coord)
			sum += r3.Dot(d, d)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// Transform applies the rigid motion x -> R*x + t to every atom of s in place.
func Transform(s *Structure, rot r3.Rotation, t r3.Vec) {
	s.EachResidue(func(_ string, r *Residue) {
		for i := range r.Atoms {
			r.Atoms[i].Coord = r3.Add(rot.Rotate(r.Atoms[i].Coord), t)
		}
	})
}
