package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/testutil"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
	"github.com/turtacn/flexbind/pkg/types/design"
)

func targetStructure() *structure.Structure {
	return &structure.Structure{Chains: []structure.Chain{
		testutil.MakeChain("A", "AGLSV", r3.Vec{}, 1, 1),
	}}
}

func binderStructure(id string, y float64) *structure.Structure {
	return &structure.Structure{Chains: []structure.Chain{
		testutil.MakeChain(id, "KTWSEV", r3.Vec{Y: y}, -1, 1),
	}}
}

func TestRunInterfaceDetection(t *testing.T) {
	log := testutil.NewMockLogger()
	res, err := Run(Params{
		Target:            targetStructure(),
		Binder:            binderStructure("B", 5),
		BinderType:        design.BinderOther,
		InterfaceDistance: 8.0,
	}, log)
	require.NoError(t, err)

	assert.Equal(t, SourceInterface, res.Source)
	assert.Equal(t, []string{"B"}, res.BinderChains)
	// Binder residues sit 5 A above the target but the target is one residue
	// shorter, so the far end of the binder may exceed the cutoff laterally;
	// every detected residue must still be on the binder.
	require.NotEmpty(t, res.Flexible)
	for _, id := range res.Flexible {
		assert.Equal(t, "B", id.ChainID)
	}
	assert.True(t, log.HasMessage("info", "flexible set from interface detection"))
}

func TestRunExplicitSpec(t *testing.T) {
	res, err := Run(Params{
		Target:            targetStructure(),
		Binder:            binderStructure("B", 5),
		FlexibleSpec:      "B:3, B:1",
		BinderType:        design.BinderOther,
		InterfaceDistance: 8.0,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, SourceExplicit, res.Source)
	assert.Equal(t, []structure.ResidueID{{ChainID: "B", Seq: 1}, {ChainID: "B", Seq: 3}}, res.Flexible)
}

func TestRunExplicitSpecRejectsTargetResidues(t *testing.T) {
	_, err := Run(Params{
		Target:            targetStructure(),
		Binder:            binderStructure("B", 5),
		FlexibleSpec:      "A:1",
		BinderType:        design.BinderOther,
		InterfaceDistance: 8.0,
	}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeFlexibleSpecInvalid))
}

func TestRunCDRRanges(t *testing.T) {
	// A heavy chain numbered through the CDR-H1 window.
	binder := &structure.Structure{Chains: []structure.Chain{
		testutil.MakeChain("H", "KTWSEVKT", r3.Vec{Y: 5}, -1, 24),
	}}
	res, err := Run(Params{
		Target:            targetStructure(),
		Binder:            binder,
		BinderType:        design.BinderAntibodyFv,
		InterfaceDistance: 8.0,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, SourceCDR, res.Source)
	// Residues 24..31 exist; the H1 window 26..32 intersects at 26..31.
	var seqs []int
	for _, id := range res.Flexible {
		assert.Equal(t, "H", id.ChainID)
		seqs = append(seqs, id.Seq)
	}
	assert.Equal(t, []int{26, 27, 28, 29, 30, 31}, seqs)
}

func TestRunAntibodyWithoutHLFallsBack(t *testing.T) {
	log := testutil.NewMockLogger()
	res, err := Run(Params{
		Target:            targetStructure(),
		Binder:            binderStructure("B", 5),
		BinderType:        design.BinderAntibodyFv,
		InterfaceDistance: 8.0,
	}, log)
	require.NoError(t, err)

	assert.Equal(t, SourceInterface, res.Source)
	assert.True(t, log.HasMessage("warn",
		"antibody binder without H/L numbered chains, falling back to interface detection"))
}

func TestRunFallbackToWholeBinder(t *testing.T) {
	log := testutil.NewMockLogger()
	res, err := Run(Params{
		Target:            targetStructure(),
		Binder:            binderStructure("B", 500), // far outside any cutoff
		BinderType:        design.BinderOther,
		InterfaceDistance: 8.0,
	}, log)
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, res.Source)
	assert.Len(t, res.Flexible, 6)
	assert.True(t, log.HasMessage("warn",
		"no interface residues within cutoff, treating the whole binder as flexible"))
}

func TestRunRenamesCollidingChains(t *testing.T) {
	res, err := Run(Params{
		Target:            targetStructure(),
		Binder:            binderStructure("A", 5),
		BinderType:        design.BinderOther,
		InterfaceDistance: 8.0,
	}, nil)
	require.NoError(t, err)

	require.Len(t, res.BinderChains, 1)
	assert.NotEqual(t, "A", res.BinderChains[0])
	assert.Equal(t, "B", res.BinderChains[0])
	assert.Equal(t, "KTWSEV", res.Complex.Chain("B").Sequence())
	assert.Equal(t, "AGLSV", res.Complex.Chain("A").Sequence())
}

func TestCleanDropsNonStandardResidues(t *testing.T) {
	s := targetStructure()
	s.Chains[0].Residues = append(s.Chains[0].Residues, structure.Residue{
		Name: "HOH", Seq: 100,
		Atoms: []structure.Atom{{Name: "O", Element: "O"}},
	})
	// A residue missing its alpha carbon is also dropped.
	s.Chains[0].Residues = append(s.Chains[0].Residues, structure.Residue{
		Name: "ALA", Seq: 101,
		Atoms: []structure.Atom{{Name: structure.AtomN, Element: "N"}},
	})

	cleaned, dropped, err := Clean(s)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 5, cleaned.ResidueCount())
}

func TestCleanEverythingDropped(t *testing.T) {
	s := &structure.Structure{Chains: []structure.Chain{{
		ID: "X",
		Residues: []structure.Residue{{
			Name:  "HOH",
			Seq:   1,
			Atoms: []structure.Atom{{Name: "O"}},
		}},
	}}}
	_, _, err := Clean(s)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNoResiduesAfterClean))
}

func TestParseFlexibleSpec(t *testing.T) {
	ids, err := ParseFlexibleSpec("A:30, A:31,B:52, A:30")
	require.NoError(t, err)
	assert.Equal(t, []structure.ResidueID{
		{ChainID: "A", Seq: 30}, {ChainID: "A", Seq: 31}, {ChainID: "B", Seq: 52},
	}, ids)

	for _, bad := range []string{"", "  ", "A30", "A:", ":30", "A:x"} {
		_, err := ParseFlexibleSpec(bad)
		assert.Error(t, err, "spec %q must be rejected", bad)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeFlexibleSpecInvalid))
	}
}
