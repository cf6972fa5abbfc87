package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)
	require.NotNil(t, m)

	m.JobsTotal.WithLabelValues("done").Inc()
	m.ScorerCalls.Add(12)
	m.CandidatesRejected.WithLabelValues("glycosylation").Add(3)
	m.RelaxationsDiscarded.Inc()
	m.EnsembleStates.Observe(4)
	m.ObserveStage(StageEnsemble, 1500*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues("done")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ScorerCalls))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CandidatesRejected.WithLabelValues("glycosylation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelaxationsDiscarded))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["flexbind_jobs_total"])
	assert.True(t, names["flexbind_stage_duration_seconds"])
	assert.True(t, names["flexbind_scorer_calls_total"])
}

func TestNewNopMetricsIsIsolated(t *testing.T) {
	m1 := NewNopMetrics()
	m2 := NewNopMetrics()
	m1.ScorerCalls.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m1.ScorerCalls))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.ScorerCalls))
}
