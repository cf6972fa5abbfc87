// Package config defines all configuration structures for the FlexBind
// pipeline.  No I/O or parsing logic lives here, only plain data types and
// validation.  Loading (file, environment, watch) is in loader.go and
// defaults are in defaults.go.
package config

import (
	"fmt"

	"github.com/turtacn/flexbind/internal/infrastructure/monitoring/logging"
)

// SamplingConfig holds ensemble-generation tunables.  Samples, Clusters and
// Magnitude are normally filled from the mode preset; the remaining fields
// are physical constants that rarely change.
type SamplingConfig struct {
	// Samples is the number of perturb-and-relax trials (S).
	Samples int `mapstructure:"samples"`
	// Clusters caps the number of representative states (K).
	Clusters int `mapstructure:"clusters"`
	// Magnitude is the Gaussian displacement std-dev in Angstroms.
	Magnitude float64 `mapstructure:"magnitude"`
	// MergeRMSD is the cluster merge radius tau in Angstroms.
	MergeRMSD float64 `mapstructure:"merge_rmsd"`
	// RelaxIterations caps the relaxation loop per trial.
	RelaxIterations int `mapstructure:"relax_iterations"`
	// RelaxTolerance is the energy-proxy delta below which relaxation is
	// considered converged.
	RelaxTolerance float64 `mapstructure:"relax_tolerance"`
	// ClashRadius is the atom-pair distance treated as a steric clash.
	ClashRadius float64 `mapstructure:"clash_radius"`
	// Relaxer selects the relaxation engine: "geometric" (always available)
	// or "physics" (optional drop-in).
	Relaxer string `mapstructure:"relaxer"`
	// Workers bounds the number of concurrent perturb-and-relax trials.
	Workers int `mapstructure:"workers"`
}

// ScoringConfig holds the interface-scorer cutoffs and composite weights.
type ScoringConfig struct {
	ContactCutoff float64 `mapstructure:"contact_cutoff"`
	ClashCutoff   float64 `mapstructure:"clash_cutoff"`
	HBondMinDist  float64 `mapstructure:"hbond_min_dist"`
	HBondMaxDist  float64 `mapstructure:"hbond_max_dist"`
	// BurialRadius is the neighbour-count radius of the SASA proxy.
	BurialRadius float64 `mapstructure:"burial_radius"`

	// Composite weights; clash is subtracted.
	ContactWeight float64 `mapstructure:"contact_weight"`
	ClashWeight   float64 `mapstructure:"clash_weight"`
	HBondWeight   float64 `mapstructure:"hbond_weight"`
	BurialWeight  float64 `mapstructure:"burial_weight"`
}

// DesignConfig holds beam-search tunables.  BeamWidth and Candidates come
// from the mode preset unless overridden.
type DesignConfig struct {
	// BeamWidth is the number of partial assignments retained per depth (B).
	BeamWidth int `mapstructure:"beam_width"`
	// Candidates is the number of finished designs returned (N <= B).
	Candidates int `mapstructure:"candidates"`
	// MaxPositions caps the search depth; zero means the full flexible set.
	MaxPositions int `mapstructure:"max_positions"`
	// Alphabet restricts mutations; empty means all twenty canonical types.
	Alphabet string `mapstructure:"alphabet"`
	// WorstWeight and MeanWeight combine per-state composites into the
	// robustness objective; worst is weighted more heavily so that designs
	// do not collapse on any single state.
	WorstWeight float64 `mapstructure:"worst_weight"`
	MeanWeight  float64 `mapstructure:"mean_weight"`
	// Workers bounds concurrent child evaluations per depth.
	Workers int `mapstructure:"workers"`
}

// DevelopabilityConfig holds the gate's thresholds.  The per-amino-acid
// property tables are code-owned immutable values, not configuration.
type DevelopabilityConfig struct {
	// PassThreshold and WarnThreshold split the composite into PASS/WARN/FAIL.
	PassThreshold float64 `mapstructure:"pass_threshold"`
	WarnThreshold float64 `mapstructure:"warn_threshold"`
	// PH is the pH at which net charge is evaluated.
	PH float64 `mapstructure:"ph"`
	// PIMaxIterations bounds the pI bisection.
	PIMaxIterations int `mapstructure:"pi_max_iterations"`
	// SelfDockOrientations is the number of seeded rigid self-dock poses.
	SelfDockOrientations int `mapstructure:"self_dock_orientations"`
}

// PipelineConfig aggregates the per-stage tunables.
type PipelineConfig struct {
	// InterfaceDistance is the auto-detect cutoff in Angstroms.
	InterfaceDistance float64 `mapstructure:"interface_distance"`
	// Seed is the default RNG seed when a job does not supply one.
	Seed uint64 `mapstructure:"seed"`

	Sampling       SamplingConfig       `mapstructure:"sampling"`
	Scoring        ScoringConfig        `mapstructure:"scoring"`
	Design         DesignConfig         `mapstructure:"design"`
	Developability DevelopabilityConfig `mapstructure:"developability"`
}

// MetricsConfig controls the Prometheus exposition endpoint of long-running
// deployments; the CLI leaves it disabled.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the root configuration for all FlexBind processes.
type Config struct {
	Log      logging.LogConfig `mapstructure:"log"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Pipeline PipelineConfig    `mapstructure:"pipeline"`
}

// Validate reports the first configuration inconsistency found.  It assumes
// ApplyDefaults has already run.  Mode-preset fields (samples, clusters,
// magnitude, beam width, candidates) may still be zero here, meaning they
// will be resolved by the job's run mode via ApplyMode.
func (c *Config) Validate() error {
	p := &c.Pipeline
	if p.InterfaceDistance < 3.0 || p.InterfaceDistance > 20.0 {
		return fmt.Errorf("pipeline.interface_distance must be in [3, 20], got %g", p.InterfaceDistance)
	}
	if p.Sampling.Samples < 0 {
		return fmt.Errorf("pipeline.sampling.samples must be >= 1, got %d", p.Sampling.Samples)
	}
	if p.Sampling.Clusters < 0 {
		return fmt.Errorf("pipeline.sampling.clusters must be >= 1, got %d", p.Sampling.Clusters)
	}
	if p.Sampling.MergeRMSD <= 0 {
		return fmt.Errorf("pipeline.sampling.merge_rmsd must be positive, got %g", p.Sampling.MergeRMSD)
	}
	if p.Sampling.Relaxer != RelaxerGeometric && p.Sampling.Relaxer != RelaxerPhysics {
		return fmt.Errorf("pipeline.sampling.relaxer must be %q or %q, got %q",
			RelaxerGeometric, RelaxerPhysics, p.Sampling.Relaxer)
	}
	if p.Design.BeamWidth < 0 {
		return fmt.Errorf("pipeline.design.beam_width must be >= 1, got %d", p.Design.BeamWidth)
	}
	if p.Design.Candidates < 0 ||
		(p.Design.BeamWidth > 0 && p.Design.Candidates > p.Design.BeamWidth) {
		return fmt.Errorf("pipeline.design.candidates must be in [1, beam_width], got %d", p.Design.Candidates)
	}
	if p.Design.WorstWeight < 0 || p.Design.MeanWeight < 0 ||
		p.Design.WorstWeight+p.Design.MeanWeight == 0 {
		return fmt.Errorf("pipeline.design robustness weights must be non-negative and not both zero")
	}
	if p.Scoring.HBondMinDist >= p.Scoring.HBondMaxDist {
		return fmt.Errorf("pipeline.scoring hbond distance window is empty: [%g, %g]",
			p.Scoring.HBondMinDist, p.Scoring.HBondMaxDist)
	}
	d := &p.Developability
	if d.WarnThreshold >= d.PassThreshold {
		return fmt.Errorf("pipeline.developability warn_threshold (%g) must be below pass_threshold (%g)",
			d.WarnThreshold, d.PassThreshold)
	}
	if d.PIMaxIterations < 1 {
		return fmt.Errorf("pipeline.developability.pi_max_iterations must be >= 1, got %d", d.PIMaxIterations)
	}
	return nil
}
