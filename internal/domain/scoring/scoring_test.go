package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexbind/internal/config"
	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/testutil"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
)

func scoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		ContactCutoff: config.DefaultContactCutoff,
		ClashCutoff:   config.DefaultClashCutoff,
		HBondMinDist:  config.DefaultHBondMinDist,
		HBondMaxDist:  config.DefaultHBondMaxDist,
		BurialRadius:  config.DefaultBurialRadius,
		ContactWeight: config.DefaultContactWeight,
		ClashWeight:   config.DefaultClashWeight,
		HBondWeight:   config.DefaultHBondWeight,
		BurialWeight:  config.DefaultBurialWeight,
	}
}

func TestScoreTightInterface(t *testing.T) {
	s := NewScorer(scoringConfig())
	sv, err := s.Score(testutil.DefaultComplex(), []string{"B"}, nil)
	require.NoError(t, err)

	assert.Greater(t, sv.ContactScore, 0.0)
	assert.Equal(t, 0.0, sv.ClashScore)
	assert.Greater(t, sv.SASABurial, 0.0)
	assert.Greater(t, sv.Composite, 0.0)
}

func TestScoreSeparationMonotonicity(t *testing.T) {
	s := NewScorer(scoringConfig())

	near, err := s.Score(testutil.DefaultComplex(), []string{"B"}, nil)
	require.NoError(t, err)

	farComplex := testutil.TwoChainComplex("AGLSV", "KTWSEV")
	for ri := range farComplex.Chains[1].Residues {
		for ai := range farComplex.Chains[1].Residues[ri].Atoms {
			farComplex.Chains[1].Residues[ri].Atoms[ai].Coord.Y += 20
		}
	}
	farSV, err := s.Score(farComplex, []string{"B"}, nil)
	require.NoError(t, err)

	assert.Less(t, farSV.ContactScore, near.ContactScore)
	assert.Less(t, farSV.SASABurial, near.SASABurial)
	assert.Less(t, farSV.Composite, near.Composite)
	assert.Equal(t, 0.0, farSV.ContactScore)
}

func TestScoreClashLowersComposite(t *testing.T) {
	s := NewScorer(scoringConfig())

	clean, err := s.Score(testutil.DefaultComplex(), []string{"B"}, nil)
	require.NoError(t, err)

	clashed := testutil.DefaultComplex()
	for ri := range clashed.Chains[1].Residues {
		for ai := range clashed.Chains[1].Residues[ri].Atoms {
			clashed.Chains[1].Residues[ri].Atoms[ai].Coord.Y -= 3.5
		}
	}
	sv, err := s.Score(clashed, []string{"B"}, nil)
	require.NoError(t, err)

	assert.Greater(t, sv.ClashScore, 0.0)
	assert.Less(t, sv.Composite, clean.Composite)
}

func TestScoreSequenceOverrideMovesContactScore(t *testing.T) {
	s := NewScorer(scoringConfig())
	conf := testutil.DefaultComplex()
	id := structure.ResidueID{ChainID: "B", Seq: 1}

	hydrophobic, err := s.Score(conf, []string{"B"}, Override{id: 'I'})
	require.NoError(t, err)
	polar, err := s.Score(conf, []string{"B"}, Override{id: 'R'})
	require.NoError(t, err)

	assert.Greater(t, hydrophobic.ContactScore, polar.ContactScore)
	// Geometry is untouched, so clashes cannot move.
	assert.Equal(t, hydrophobic.ClashScore, polar.ClashScore)
}

func TestScoreOverrideMovesHBondProxy(t *testing.T) {
	s := NewScorer(scoringConfig())
	conf := testutil.DefaultComplex()
	id := structure.ResidueID{ChainID: "B", Seq: 1}

	// Lysine can hydrogen-bond through its side chain, alanine cannot.
	withPolar, err := s.Score(conf, []string{"B"}, Override{id: 'K'})
	require.NoError(t, err)
	withApolar, err := s.Score(conf, []string{"B"}, Override{id: 'A'})
	require.NoError(t, err)

	assert.Greater(t, withPolar.HBondProxy, withApolar.HBondProxy)
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer(scoringConfig())
	a, err := s.Score(testutil.DefaultComplex(), []string{"B"}, nil)
	require.NoError(t, err)
	b, err := s.Score(testutil.DefaultComplex(), []string{"B"}, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScoreErrors(t *testing.T) {
	s := NewScorer(scoringConfig())

	_, err := s.Score(nil, []string{"B"}, nil)
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = s.Score(testutil.DefaultComplex(), []string{"Z"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeScoringFailed))

	_, err = s.Score(testutil.DefaultComplex(), nil, nil)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestScoreMultiChainBinder(t *testing.T) {
	s := NewScorer(scoringConfig())

	// Splitting the binder across two chains must not change the interface
	// against the target: both halves still count as binder.
	split := testutil.DefaultComplex()
	bc := split.Chain("B")
	half := len(bc.Residues) / 2
	extra := structure.Chain{ID: "C", Residues: bc.Residues[half:]}
	bc.Residues = bc.Residues[:half]
	split.Chains = append(split.Chains, extra)

	joined, err := s.Score(testutil.DefaultComplex(), []string{"B"}, nil)
	require.NoError(t, err)
	splitSV, err := s.Score(split, []string{"B", "C"}, nil)
	require.NoError(t, err)

	assert.InDelta(t, joined.Composite, splitSV.Composite, 1e-9)
	assert.Equal(t, joined.ContactScore, splitSV.ContactScore)
}
