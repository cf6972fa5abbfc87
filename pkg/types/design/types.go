// Package design defines the plain data types that the FlexBind core exposes
// to downstream packaging and reporting collaborators.  The core owns no
// serialisation format beyond the JSON tags here; CSV/FASTA/PDB/ZIP emission
// is the consumer's responsibility.
package design

import "fmt"

// BinderType selects the flexible-residue detection strategy.
type BinderType string

const (
	BinderAntibodyFv BinderType = "antibody_fv"
	BinderOther      BinderType = "other"
)

// IsValid checks if the binder type is a known value.
func (b BinderType) IsValid() bool {
	switch b {
	case BinderAntibodyFv, BinderOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the binder type.
func (b BinderType) String() string { return string(b) }

// RunMode selects the sampling/search presets.
type RunMode string

const (
	ModeFast RunMode = "fast"
	ModeDeep RunMode = "deep"
)

// IsValid checks if the run mode is a known value.
func (m RunMode) IsValid() bool {
	return m == ModeFast || m == ModeDeep
}

// String returns the string representation of the run mode.
func (m RunMode) String() string { return string(m) }

// JobOutcome is the terminal state of a pipeline run.
type JobOutcome string

const (
	OutcomeDone      JobOutcome = "done"
	OutcomeFailed    JobOutcome = "failed"
	OutcomeCancelled JobOutcome = "cancelled"
)

// ScoreVector holds the interface score terms for one (state, sequence) pair.
// It is a pure function output, recomputable from its inputs.
type ScoreVector struct {
	StateIndex   int     `json:"state_index"`
	ContactScore float64 `json:"contact_score"`
	ClashScore   float64 `json:"clash_score"`
	HBondProxy   float64 `json:"hbond_proxy"`
	SASABurial   float64 `json:"sasa_burial"`
	Composite    float64 `json:"composite"`
}

// DevelopabilityFlag classifies a developability composite against the
// configured thresholds.
type DevelopabilityFlag string

const (
	FlagPass DevelopabilityFlag = "PASS"
	FlagWarn DevelopabilityFlag = "WARN"
	FlagFail DevelopabilityFlag = "FAIL"
)

// DevelopabilityProfile is the biophysical liability assessment of one
// designed sequence.  PIUndetermined marks a pI bisection that failed to
// converge; the composite is still computed from the remaining terms.
type DevelopabilityProfile struct {
	HydrophobicPatch float64            `json:"hydrophobic_patch"`
	NetCharge        float64            `json:"net_charge"`
	PI               float64            `json:"pi"`
	PIUndetermined   bool               `json:"pi_undetermined,omitempty"`
	BetaPropensity   float64            `json:"beta_propensity"`
	SelfDockRisk     float64            `json:"self_dock_risk"`
	Composite        float64            `json:"composite"`
	Flag             DevelopabilityFlag `json:"flag"`
}

// DesignResult is the final immutable join of one sequence candidate and its
// developability profile plus a rank; the unit returned to collaborators.
type DesignResult struct {
	Rank           int                   `json:"rank"`
	Sequence       string                `json:"sequence"`
	Mutations      string                `json:"mutations"`
	MeanScore      float64               `json:"mean_score"`
	WorstScore     float64               `json:"worst_score"`
	Robustness     float64               `json:"robustness"`
	PerStateScores []ScoreVector         `json:"per_state_scores"`
	Developability DevelopabilityProfile `json:"developability"`
}

// StateSummary describes one ensemble state for reporting.
type StateSummary struct {
	Index       int     `json:"index"`
	Weight      float64 `json:"weight"`
	EnergyProxy float64 `json:"energy_proxy"`
}

// Diagnostics carries the discarded-candidate counters that the job report
// surfaces alongside the ranked results.
type Diagnostics struct {
	RelaxationsDiscarded  int `json:"relaxations_discarded"`
	ClashRejected         int `json:"clash_rejected"`
	GlycosylationRejected int `json:"glycosylation_rejected"`
}

// JobReport is the full output of one pipeline run.
type JobReport struct {
	JobID        string         `json:"job_id"`
	Outcome      JobOutcome     `json:"outcome"`
	BinderType   BinderType     `json:"binder_type"`
	Mode         RunMode        `json:"mode"`
	Seed         uint64         `json:"seed"`
	EnsembleSize int            `json:"ensemble_size"`
	States       []StateSummary `json:"states"`
	Designs      []DesignResult `json:"designs"`
	Diagnostics  Diagnostics    `json:"diagnostics"`
	FailReason   string         `json:"fail_reason,omitempty"`
	LastProgress float64        `json:"last_progress"`
	LastStatus   string         `json:"last_status"`
}

// FastaHeader renders the FASTA description line for one design, matching the
// layout report consumers expect.
func (d DesignResult) FastaHeader() string {
	return fmt.Sprintf(">design_%03d mutations=%s robustness=%.3f flag=%s",
		d.Rank, d.Mutations, d.Robustness, d.Developability.Flag)
}
