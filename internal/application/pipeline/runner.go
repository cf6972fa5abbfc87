// Package pipeline orchestrates one design job end-to-end: preprocessing,
// ensemble sampling, beam-search sequence design, and the developability
// gate.  The runner owns stage sequencing, progress reporting, cancellation,
// and the job report; domain packages own the science.
package pipeline

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/flexbind/internal/application/preprocess"
	"github.com/turtacn/flexbind/internal/config"
	seqdesign "github.com/turtacn/flexbind/internal/domain/design"
	"github.com/turtacn/flexbind/internal/domain/developability"
	"github.com/turtacn/flexbind/internal/domain/ensemble"
	"github.com/turtacn/flexbind/internal/domain/scoring"
	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexbind/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/flexbind/pkg/errors"
	"github.com/turtacn/flexbind/pkg/types/design"
)

// JobParams is one job's input.  Zero-valued Seed and InterfaceDistance fall
// back to the pipeline configuration.
type JobParams struct {
	Target *structure.Structure
	Binder *structure.Structure

	BinderType design.BinderType
	Mode       design.RunMode
	Seed       uint64

	// FlexibleSpec is an explicit residue list like "B:30, B:52"; empty
	// means automatic resolution.
	FlexibleSpec      string
	InterfaceDistance float64
	NoGlycosylation   bool
}

// Runner executes jobs against a fixed configuration.  A Runner is safe for
// concurrent use; each Run call is independent.
type Runner struct {
	cfg        config.PipelineConfig
	log        logging.Logger
	metrics    *prometheus.PipelineMetrics
	relaxer    ensemble.Relaxer
	onEnsemble func(*ensemble.Ensemble)
}

// NewRunner wires a Runner.  log and metrics may be nil, in which case a nop
// logger and a throwaway registry are used.
func NewRunner(cfg config.PipelineConfig, log logging.Logger, metrics *prometheus.PipelineMetrics) *Runner {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	return &Runner{cfg: cfg, log: log, metrics: metrics}
}

// WithRelaxer installs a physics-backed relaxation engine, used when the
// sampling config selects "physics".  Returns the runner for chaining.
func (r *Runner) WithRelaxer(relaxer ensemble.Relaxer) *Runner {
	r.relaxer = relaxer
	return r
}

// resolveRelaxer maps the configured engine name to an implementation.  The
// geometric relaxer is always available (a nil return lets the generator
// build it from the sampling config); "physics" requires an engine installed
// via WithRelaxer.
func (r *Runner) resolveRelaxer(cfg config.SamplingConfig) (ensemble.Relaxer, error) {
	switch cfg.Relaxer {
	case config.RelaxerPhysics:
		if r.relaxer == nil {
			return nil, apperrors.New(apperrors.ErrCodeRelaxerUnavailable,
				"no physics relaxer is installed").
				WithDetail("pipeline.sampling.relaxer " + cfg.Relaxer)
		}
		return r.relaxer, nil
	default:
		return nil, nil
	}
}

// WithEnsembleObserver registers fn to receive each job's filtered ensemble
// before the design stage starts.  The CLI uses this to export per-state PDB
// files; observers must not mutate the ensemble.
func (r *Runner) WithEnsembleObserver(fn func(*ensemble.Ensemble)) *Runner {
	r.onEnsemble = fn
	return r
}

// Run executes one job.  The returned report is always non-nil and carries
// the terminal outcome; on failure or cancellation the error describes why
// and the report holds no partial results beyond diagnostics.
func (r *Runner) Run(ctx context.Context, params JobParams, sink ProgressSink) (*design.JobReport, error) {
	jobID := uuid.NewString()
	log := r.log.With(logging.String("job_id", jobID))

	seed := params.Seed
	if seed == 0 {
		seed = r.cfg.Seed
	}
	report := &design.JobReport{
		JobID:      jobID,
		BinderType: params.BinderType,
		Mode:       params.Mode,
		Seed:       seed,
	}

	publish := func(frac float64, status string) {
		report.LastProgress = frac
		report.LastStatus = status
		log.Info(status, logging.Float64("progress", frac))
		if sink != nil {
			sink.Publish(ProgressEvent{Fraction: frac, Status: status})
		}
	}

	err := r.run(ctx, params, seed, report, publish, log)
	switch {
	case err == nil:
		report.Outcome = design.OutcomeDone
	case apperrors.IsCancelled(err):
		report.Outcome = design.OutcomeCancelled
		report.FailReason = err.Error()
		log.Warn("job cancelled", logging.Err(err))
	default:
		report.Outcome = design.OutcomeFailed
		report.FailReason = err.Error()
		log.Error("job failed", logging.Err(err))
	}
	r.metrics.JobsTotal.WithLabelValues(string(report.Outcome)).Inc()
	return report, err
}

func (r *Runner) run(ctx context.Context, params JobParams, seed uint64, report *design.JobReport, publish func(float64, string), log logging.Logger) error {
	if err := validateParams(params); err != nil {
		return err
	}

	cfg := r.cfg
	cfg.ApplyMode(string(params.Mode))
	interfaceDist := params.InterfaceDistance
	if interfaceDist == 0 {
		interfaceDist = cfg.InterfaceDistance
	}
	relaxer, err := r.resolveRelaxer(cfg.Sampling)
	if err != nil {
		return err
	}

	boundary := func(stage string) error {
		if ctx.Err() != nil {
			return apperrors.Cancelled(stage)
		}
		return nil
	}

	// Step 1: preprocessing.
	if err := boundary("preprocess"); err != nil {
		return err
	}
	publish(0.05, "Step 1: cleaning structures and resolving flexible residues")
	start := time.Now()
	pre, err := preprocess.Run(preprocess.Params{
		Target:            params.Target,
		Binder:            params.Binder,
		FlexibleSpec:      params.FlexibleSpec,
		BinderType:        params.BinderType,
		InterfaceDistance: interfaceDist,
	}, log)
	if err != nil {
		return err
	}
	r.metrics.ObserveStage(prometheus.StagePreprocess, time.Since(start))

	// Step 2: ensemble sampling.
	if err := boundary("ensemble"); err != nil {
		return err
	}
	publish(0.15, "Step 2: sampling the conformational ensemble")
	start = time.Now()
	gen := ensemble.NewGenerator(cfg.Sampling, relaxer, log)
	ens, err := gen.Generate(ctx, pre.Complex, pre.Flexible, seed)
	if err != nil {
		return err
	}
	r.metrics.ObserveStage(prometheus.StageEnsemble, time.Since(start))
	r.metrics.RelaxationsDiscarded.Add(float64(ens.Discarded))
	report.Diagnostics.RelaxationsDiscarded = ens.Discarded

	scorer := scoring.NewScorer(cfg.Scoring)
	scorer.InstrumentCalls(r.metrics.ScorerCalls.Inc)

	clashRejected, err := dropClashingStates(ens, scorer, pre.BinderChains)
	if err != nil {
		return err
	}
	report.Diagnostics.ClashRejected = clashRejected
	if clashRejected > 0 {
		r.metrics.CandidatesRejected.WithLabelValues("clash").Add(float64(clashRejected))
		log.Warn("dropped states with excess interface clashes",
			logging.Int("states", clashRejected))
	}
	r.metrics.EnsembleStates.Observe(float64(len(ens.States)))
	report.EnsembleSize = len(ens.States)
	for _, st := range ens.States {
		report.States = append(report.States, design.StateSummary{
			Index:       st.Index,
			Weight:      st.Weight,
			EnergyProxy: st.EnergyProxy,
		})
	}

	if r.onEnsemble != nil {
		r.onEnsemble(ens)
	}

	// Step 3: sequence design.
	if err := boundary("design"); err != nil {
		return err
	}
	publish(0.45, "Step 3: searching sequence space")
	start = time.Now()
	designer := seqdesign.NewDesigner(cfg.Design, scorer, log)
	res, err := designer.Design(ctx, ens, pre.BinderChains, pre.Flexible, params.NoGlycosylation,
		func(done, total int) {
			publish(0.45+0.3*float64(done)/float64(total), "Step 3: searching sequence space")
		})
	if err != nil {
		return err
	}
	r.metrics.ObserveStage(prometheus.StageDesign, time.Since(start))
	report.Diagnostics.GlycosylationRejected = res.GlycoRejected
	if res.GlycoRejected > 0 {
		r.metrics.CandidatesRejected.WithLabelValues("glycosylation").Add(float64(res.GlycoRejected))
	}

	// Step 4: developability gate.
	if err := boundary("developability"); err != nil {
		return err
	}
	publish(0.8, "Step 4: gating developability")
	start = time.Now()
	gate := developability.NewGate(cfg.Developability, log)
	for i, cand := range res.Candidates {
		profile, err := gate.Evaluate(ens.GroundState, pre.BinderChains, cand.Sequence, seed)
		if err != nil {
			return err
		}
		report.Designs = append(report.Designs, design.DesignResult{
			Rank:           i + 1,
			Sequence:       cand.Sequence,
			Mutations:      mutationString(cand.Mutations),
			MeanScore:      cand.Mean,
			WorstScore:     cand.Worst,
			Robustness:     cand.Robustness,
			PerStateScores: cand.PerState,
			Developability: profile,
		})
	}
	r.metrics.ObserveStage(prometheus.StageDevelopability, time.Since(start))

	publish(1.0, "Done: report assembled")
	return nil
}

func validateParams(p JobParams) error {
	if p.Target == nil || p.Binder == nil {
		return apperrors.New(apperrors.ErrCodeJobConfigInvalid,
			"job needs both target and binder structures")
	}
	if !p.Mode.IsValid() {
		return apperrors.New(apperrors.ErrCodeJobConfigInvalid,
			"unknown run mode").WithDetail("mode " + p.Mode.String())
	}
	if !p.BinderType.IsValid() {
		return apperrors.New(apperrors.ErrCodeJobConfigInvalid,
			"unknown binder type").WithDetail("binder_type " + p.BinderType.String())
	}
	return nil
}

// dropClashingStates removes representative states whose relaxed geometry
// clashes more than the unperturbed ground state does.  Sequence relabelling
// during design cannot change clash geometry, so states that start out
// clash-heavy would only drag every candidate's worst-case score without
// discriminating between sequences.  At least one state always survives and
// the survivors' weights are renormalised.
func dropClashingStates(ens *ensemble.Ensemble, scorer *scoring.Scorer, binderChains []string) (int, error) {
	ground, err := scorer.Score(ens.GroundState, binderChains, nil)
	if err != nil {
		return 0, err
	}

	var survivors []ensemble.State
	bestIdx, bestClash := -1, math.Inf(1)
	for i, st := range ens.States {
		sv, err := scorer.Score(st.Structure, binderChains, nil)
		if err != nil {
			return 0, err
		}
		if sv.ClashScore <= ground.ClashScore {
			survivors = append(survivors, st)
		} else if sv.ClashScore < bestClash {
			bestIdx, bestClash = i, sv.ClashScore
		}
	}
	if len(survivors) == 0 && bestIdx >= 0 {
		survivors = append(survivors, ens.States[bestIdx])
	}

	dropped := len(ens.States) - len(survivors)
	if dropped > 0 {
		total := 0.0
		for _, st := range survivors {
			total += st.Weight
		}
		for i := range survivors {
			if total > 0 {
				survivors[i].Weight /= total
			}
		}
		ens.States = survivors
	}
	return dropped, nil
}

// mutationString renders mutations as a stable semicolon-joined list, e.g.
// "KB:1I;TB:2W".  The wildtype renders as the empty string.
func mutationString(muts []seqdesign.Mutation) string {
	parts := make([]string, len(muts))
	for i, m := range muts {
		parts[i] = m.String()
	}
	return strings.Join(parts, ";")
}
