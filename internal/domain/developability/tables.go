package developability

// Chou-Fasman beta-sheet propensities.  Values above 1 favour sheet
// formation; a high sequence mean flags aggregation-prone designs.
var betaPropensity = map[byte]float64{
	'V': 1.70, 'I': 1.60, 'Y': 1.47, 'F': 1.38, 'W': 1.37,
	'L': 1.30, 'T': 1.19, 'C': 1.19, 'Q': 1.10, 'M': 1.05,
	'R': 0.93, 'N': 0.89, 'H': 0.87, 'A': 0.83, 'S': 0.75,
	'G': 0.75, 'K': 0.74, 'D': 0.54, 'P': 0.55, 'E': 0.37,
}

// Ionizable-group pKa values (EMBOSS set for side chains).
const (
	pKaNTerm = 9.69
	pKaCTerm = 2.34
)

var pKaNegative = map[byte]float64{
	'D': 3.65, 'E': 4.25, 'C': 8.18, 'Y': 10.07,
}

var pKaPositive = map[byte]float64{
	'H': 6.00, 'K': 10.53, 'R': 12.48,
}

// hydrophobicThreshold splits the Kyte-Doolittle scale into patch-forming
// residues and the rest.
const hydrophobicThreshold = 2.0
