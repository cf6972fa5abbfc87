package ensemble

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexbind/internal/config"
	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/testutil"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
)

func samplingConfig() config.SamplingConfig {
	return config.SamplingConfig{
		Samples:         5,
		Clusters:        3,
		Magnitude:       0.6,
		MergeRMSD:       config.DefaultMergeRMSD,
		RelaxIterations: config.DefaultRelaxIterations,
		RelaxTolerance:  config.DefaultRelaxTolerance,
		ClashRadius:     config.DefaultClashRadius,
		Workers:         4,
	}
}

func TestGenerateBounds(t *testing.T) {
	ground := testutil.DefaultComplex()
	flexible := testutil.BinderIDs(ground)
	gen := NewGenerator(samplingConfig(), nil, testutil.NewMockLogger())

	ens, err := gen.Generate(context.Background(), ground, flexible, 42)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(ens.States), 1)
	assert.LessOrEqual(t, len(ens.States), 3)
	assert.Same(t, ground, ens.GroundState)
	assert.Equal(t, 0, ens.Discarded)

	// Weights cover every trial.
	sum := 0.0
	for _, st := range ens.States {
		sum += st.Weight
		assert.NotNil(t, st.Structure)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// States come out in ascending energy order.
	for i := 1; i < len(ens.States); i++ {
		assert.LessOrEqual(t, ens.States[i-1].EnergyProxy, ens.States[i].EnergyProxy)
		assert.Equal(t, i, ens.States[i].Index)
	}

	// The ground state itself is never mutated by sampling.
	pristine := testutil.DefaultComplex()
	assert.InDelta(t, 0.0, structure.BackboneRMSD(pristine, ground, flexible), 1e-12)
}

func TestGenerateDeterministic(t *testing.T) {
	flexible := testutil.BinderIDs(testutil.DefaultComplex())

	run := func(workers int) *Ensemble {
		cfg := samplingConfig()
		cfg.Workers = workers
		ens, err := NewGenerator(cfg, nil, nil).Generate(context.Background(), testutil.DefaultComplex(), flexible, 42)
		require.NoError(t, err)
		return ens
	}

	a := run(1)
	b := run(4)

	require.Equal(t, len(a.States), len(b.States))
	for i := range a.States {
		assert.Equal(t, a.States[i].Weight, b.States[i].Weight)
		assert.InDelta(t, a.States[i].EnergyProxy, b.States[i].EnergyProxy, 1e-12)
		assert.InDelta(t, 0.0,
			structure.BackboneRMSD(a.States[i].Structure, b.States[i].Structure, flexible), 1e-12)
	}
}

func TestGenerateDifferentSeedsDiffer(t *testing.T) {
	flexible := testutil.BinderIDs(testutil.DefaultComplex())
	gen := NewGenerator(samplingConfig(), nil, nil)

	a, err := gen.Generate(context.Background(), testutil.DefaultComplex(), flexible, 1)
	require.NoError(t, err)
	b, err := gen.Generate(context.Background(), testutil.DefaultComplex(), flexible, 2)
	require.NoError(t, err)

	assert.Greater(t,
		structure.BackboneRMSD(a.States[0].Structure, b.States[0].Structure, flexible), 0.0)
}

func TestGenerateInvalidInput(t *testing.T) {
	gen := NewGenerator(samplingConfig(), nil, nil)

	_, err := gen.Generate(context.Background(), testutil.DefaultComplex(), nil, 42)
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = gen.Generate(context.Background(), &structure.Structure{}, testutil.BinderIDs(testutil.DefaultComplex()), 42)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ground := testutil.DefaultComplex()
	gen := NewGenerator(samplingConfig(), nil, nil)
	_, err := gen.Generate(ctx, ground, testutil.BinderIDs(ground), 42)
	require.Error(t, err)
	assert.True(t, apperrors.IsCancelled(err))
}

// divergingRelaxer fails every n-th call; 1 means every trial.
type divergingRelaxer struct {
	mu    sync.Mutex
	calls int
	every int
}

func newDivergingRelaxer(every int) *divergingRelaxer {
	return &divergingRelaxer{every: every}
}

func (d *divergingRelaxer) Relax(_ context.Context, _, _ *structure.Structure, _ []structure.ResidueID) (float64, error) {
	d.mu.Lock()
	d.calls++
	n := d.calls
	d.mu.Unlock()
	if n%d.every == 0 {
		return 0, apperrors.New(apperrors.ErrCodeRelaxationDiverged, "diverged")
	}
	return float64(n), nil
}

func TestGenerateAllTrialsDiscarded(t *testing.T) {
	ground := testutil.DefaultComplex()
	gen := NewGenerator(samplingConfig(), newDivergingRelaxer(1), testutil.NewMockLogger())

	_, err := gen.Generate(context.Background(), ground, testutil.BinderIDs(ground), 42)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEnsembleGenerationFailed))
}

func TestGenerateCountsDiscards(t *testing.T) {
	cfg := samplingConfig()
	cfg.Workers = 1 // call order must follow trial order
	ground := testutil.DefaultComplex()
	log := testutil.NewMockLogger()
	gen := NewGenerator(cfg, newDivergingRelaxer(2), log)

	ens, err := gen.Generate(context.Background(), ground, testutil.BinderIDs(ground), 7)
	require.NoError(t, err)

	assert.Equal(t, 2, ens.Discarded)
	assert.True(t, log.HasMessage("warn", "discarding diverged relaxation"))
	assert.GreaterOrEqual(t, len(ens.States), 1)
	assert.LessOrEqual(t, len(ens.States), cfg.Clusters)
}
