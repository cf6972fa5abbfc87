package pdbio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexbind/internal/domain/structure"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
)

const samplePDB = `HEADER    TEST STRUCTURE
ATOM      1  N   GLY A   1       0.000   1.000   0.000  1.00  0.00           N
ATOM      2  CA  GLY A   1       0.000   0.000   0.000  1.00  0.00           C
ATOM      3  C   GLY A   1       1.000   0.000   0.000  1.00  0.00           C
ATOM      4  O   GLY A   1       1.000  -1.000   0.000  1.00  0.00           O
ATOM      5  N  AALA A   2       2.000   0.000   0.000  1.00  0.00           N
ATOM      6  N  BALA A   2       2.100   0.000   0.000  0.50  0.00           N
ATOM      7  CA  ALA A   2       3.000   0.000   0.000  1.00  0.00           C
ATOM      8  CB  ALA A   2       3.000   1.000   0.000  1.00  0.00           C
HETATM    9  O   HOH A 101       9.000   9.000   9.000  1.00  0.00           O
ATOM     10  N   LYS B   5       8.000   0.000   0.000  1.00  0.00           N
ATOM     11  CA  LYS B   5       9.000   0.000   0.000  1.00  0.00           C
TER      12      LYS B   5
END
`

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(samplePDB))
	require.NoError(t, err)

	require.Len(t, s.Chains, 2)
	a := s.Chain("A")
	require.NotNil(t, a)
	require.Len(t, a.Residues, 2)
	assert.Equal(t, "GA", a.Sequence())

	// Alternate location B was dropped; the A copy of the nitrogen survived.
	ala := a.Residue(2)
	require.NotNil(t, ala)
	assert.Len(t, ala.Atoms, 3)
	assert.InDelta(t, 2.0, ala.Atom(structure.AtomN).Coord.X, 1e-9)

	// Heteroatoms never become residues.
	assert.Nil(t, a.Residue(101))

	b := s.Chain("B")
	require.NotNil(t, b)
	assert.Equal(t, 5, b.Residues[0].Seq)
	assert.Equal(t, "K", b.Sequence())
}

func TestParseInterleavedChains(t *testing.T) {
	pdb := "ATOM      1  CA  GLY A   1       0.000   0.000   0.000  1.00  0.00           C\n" +
		"ATOM      2  CA  LYS B   1       5.000   0.000   0.000  1.00  0.00           C\n" +
		"ATOM      3  CA  ALA A   2       1.000   0.000   0.000  1.00  0.00           C\n"
	s, err := Parse(strings.NewReader(pdb))
	require.NoError(t, err)

	require.Len(t, s.Chains, 2)
	a := s.Chain("A")
	require.NotNil(t, a)
	assert.Equal(t, "GA", a.Sequence())
	assert.Equal(t, "K", s.Chain("B").Sequence())
}

func TestParseFirstModelOnly(t *testing.T) {
	pdb := "ATOM      1  CA  GLY A   1       0.000   0.000   0.000  1.00  0.00           C\n" +
		"ENDMDL\n" +
		"ATOM      2  CA  GLY A   2       5.000   0.000   0.000  1.00  0.00           C\n"
	s, err := Parse(strings.NewReader(pdb))
	require.NoError(t, err)
	assert.Equal(t, 1, s.ResidueCount())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("HEADER only remarks\nEND\n"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePDBParseFailed))

	_, err = Parse(strings.NewReader("ATOM      1  CA  GLY A   1   bad line\n"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePDBParseFailed))
}

func TestWriteRoundTrip(t *testing.T) {
	s, err := Parse(strings.NewReader(samplePDB))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s))

	out := buf.String()
	assert.Contains(t, out, "TER")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "END"))

	back, err := Parse(strings.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, s.ResidueCount(), back.ResidueCount())
	assert.Equal(t, s.AtomCount(), back.AtomCount())
	assert.Equal(t, s.Chain("A").Sequence(), back.Chain("A").Sequence())

	ids := []structure.ResidueID{{ChainID: "A", Seq: 1}, {ChainID: "A", Seq: 2}}
	assert.InDelta(t, 0.0, structure.BackboneRMSD(s, back, ids), 1e-3)
}
