// Package prometheus defines the pipeline's operational metrics.  Metrics
// live on a caller-supplied registry so that tests and embedding processes
// never collide on the global default registerer.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage label values used across metrics.
const (
	StagePreprocess     = "preprocess"
	StageEnsemble       = "ensemble"
	StageDesign         = "design"
	StageDevelopability = "developability"
)

// PipelineMetrics holds every metric the runner and its stages emit.
type PipelineMetrics struct {
	// JobsTotal counts finished jobs by outcome ("done", "failed", "cancelled").
	JobsTotal *prometheus.CounterVec

	// StageDuration observes wall-clock seconds per pipeline stage.
	StageDuration *prometheus.HistogramVec

	// ScorerCalls counts interface-scorer invocations; this is the hot path
	// and its growth rate is the primary capacity signal.
	ScorerCalls prometheus.Counter

	// EnsembleStates observes the ensemble size produced per job.
	EnsembleStates prometheus.Histogram

	// CandidatesRejected counts designer rejections by reason
	// ("glycosylation", "clash").
	CandidatesRejected *prometheus.CounterVec

	// RelaxationsDiscarded counts perturbation trials dropped for
	// non-convergence.
	RelaxationsDiscarded prometheus.Counter
}

// stageDurationBuckets suit stages that run from well under a second (fast
// mode on small complexes) to minutes (deep mode).
var stageDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// NewPipelineMetrics constructs and registers all pipeline metrics on reg.
// Registration failures panic via MustRegister: duplicate registration is a
// programming error, not a runtime condition.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flexbind",
			Name:      "jobs_total",
			Help:      "Finished design jobs by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flexbind",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration per pipeline stage.",
			Buckets:   stageDurationBuckets,
		}, []string{"stage"}),
		ScorerCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flexbind",
			Name:      "scorer_calls_total",
			Help:      "Interface scorer invocations across all jobs.",
		}),
		EnsembleStates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flexbind",
			Name:      "ensemble_states",
			Help:      "Representative conformational states per job.",
			Buckets:   []float64{1, 2, 3, 4, 5, 7, 10, 15, 20},
		}),
		CandidatesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flexbind",
			Name:      "candidates_rejected_total",
			Help:      "Designer child assignments rejected before ranking.",
		}, []string{"reason"}),
		RelaxationsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flexbind",
			Name:      "relaxations_discarded_total",
			Help:      "Perturbation trials discarded for non-convergence.",
		}),
	}

	reg.MustRegister(
		m.JobsTotal,
		m.StageDuration,
		m.ScorerCalls,
		m.EnsembleStates,
		m.CandidatesRejected,
		m.RelaxationsDiscarded,
	)
	return m
}

// ObserveStage records one stage execution.
func (m *PipelineMetrics) ObserveStage(stage string, elapsed time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// NewNopMetrics returns metrics bound to a throwaway registry, for tests and
// for callers that do not scrape.
func NewNopMetrics() *PipelineMetrics {
	return NewPipelineMetrics(prometheus.NewRegistry())
}
