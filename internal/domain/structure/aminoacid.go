package structure

// threeToOne maps the twenty canonical residue names to one-letter codes.
var threeToOne = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
}

var oneToThree = func() map[byte]string {
	m := make(map[byte]string, len(threeToOne))
	for three, one := range threeToOne {
		m[one] = three
	}
	return m
}()

// CanonicalAlphabet is the twenty one-letter codes in alphabetical order,
// the default design alphabet.
const CanonicalAlphabet = "ACDEFGHIKLMNPQRSTVWY"

// OneLetterCode converts a three-letter residue name; ok is false for
// non-standard residues (heteroatoms, modified residues, waters).
func OneLetterCode(name string) (byte, bool) {
	c, ok := threeToOne[name]
	return c, ok
}

// ThreeLetterCode converts a one-letter code; ok is false outside the
// canonical twenty.
func ThreeLetterCode(c byte) (string, bool) {
	name, ok := oneToThree[c]
	return name, ok
}

// IsStandardResidue reports whether name is one of the canonical twenty.
func IsStandardResidue(name string) bool {
	_, ok := threeToOne[name]
	return ok
}

// hydropathy is the Kyte-Doolittle scale, positive for hydrophobic residues.
var hydropathy = map[byte]float64{
	'I': 4.5, 'V': 4.2, 'L': 3.8, 'F': 2.8, 'C': 2.5,
	'M': 1.9, 'A': 1.8, 'G': -0.4, 'T': -0.7, 'S': -0.8,
	'W': -0.9, 'Y': -1.3, 'P': -1.6, 'H': -3.2, 'E': -3.5,
	'Q': -3.5, 'D': -3.5, 'N': -3.5, 'K': -3.9, 'R': -4.5,
}

// HydropathyIndex returns the Kyte-Doolittle hydropathy of a one-letter
// residue code, 0 for unknown codes.
func HydropathyIndex(c byte) float64 {
	return hydropathy[c]
}

// polarSideChain marks residues whose side chain can donate or accept a
// hydrogen bond.
var polarSideChain = map[byte]bool{
	'D': true, 'E': true, 'H': true, 'K': true, 'N': true,
	'Q': true, 'R': true, 'S': true, 'T': true, 'W': true, 'Y': true,
}

// HasPolarSideChain reports whether the residue's side chain can take part in
// a hydrogen bond.
func HasPolarSideChain(c byte) bool { return polarSideChain[c] }

// IsBackboneAtom reports whether name is one of the four backbone atoms.
func IsBackboneAtom(name string) bool {
	switch name {
	case AtomN, AtomCA, AtomC, AtomO:
		return true
	}
	return false
}
