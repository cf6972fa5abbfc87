package config

// Relaxer engine names.
const (
	RelaxerGeometric = "geometric"
	RelaxerPhysics   = "physics"
)

// Run modes.  Fast trades ensemble size and search width for turnaround;
// deep is the production setting.
const (
	ModeFast = "fast"
	ModeDeep = "deep"
)

// Default tunables.  Distances are in Angstroms.
const (
	DefaultInterfaceDistance = 8.0
	DefaultSeed              = uint64(42)

	DefaultMergeRMSD       = 1.5
	DefaultRelaxIterations = 50
	DefaultRelaxTolerance  = 1e-4
	DefaultClashRadius     = 2.0
	DefaultSamplingWorkers = 4

	DefaultContactCutoff = 8.0
	DefaultClashCutoff   = 2.0
	DefaultHBondMinDist  = 2.5
	DefaultHBondMaxDist  = 3.5
	DefaultBurialRadius  = 10.0

	DefaultContactWeight = 0.35
	DefaultClashWeight   = 0.20
	DefaultHBondWeight   = 0.25
	DefaultBurialWeight  = 0.20

	DefaultWorstWeight   = 0.6
	DefaultMeanWeight    = 0.4
	DefaultDesignWorkers = 4

	DefaultPassThreshold        = 70.0
	DefaultWarnThreshold        = 40.0
	DefaultPH                   = 7.4
	DefaultPIMaxIterations      = 100
	DefaultSelfDockOrientations = 4
)

// ModePreset carries the per-mode sampling and search sizes.
type ModePreset struct {
	Samples    int
	Magnitude  float64
	BeamWidth  int
	Candidates int
}

var modePresets = map[string]ModePreset{
	ModeFast: {Samples: 5, Magnitude: 0.6, BeamWidth: 3, Candidates: 3},
	ModeDeep: {Samples: 20, Magnitude: 1.0, BeamWidth: 5, Candidates: 5},
}

// PresetFor returns the sampling/search sizes for a run mode.  Unknown modes
// fall back to fast so that a bad flag degrades rather than explodes; the
// caller validates the mode separately.
func PresetFor(mode string) ModePreset {
	if p, ok := modePresets[mode]; ok {
		return p
	}
	return modePresets[ModeFast]
}

// ClustersFor derives the representative-state cap K from the trial count S.
func ClustersFor(samples int) int {
	k := samples / 3
	if k < 3 {
		k = 3
	}
	return k
}

// ApplyMode overwrites the preset-controlled fields of a pipeline config.
// Explicitly configured non-zero values from a file or environment are kept.
func (p *PipelineConfig) ApplyMode(mode string) {
	preset := PresetFor(mode)
	if p.Sampling.Samples == 0 {
		p.Sampling.Samples = preset.Samples
	}
	if p.Sampling.Magnitude == 0 {
		p.Sampling.Magnitude = preset.Magnitude
	}
	if p.Sampling.Clusters == 0 {
		p.Sampling.Clusters = ClustersFor(p.Sampling.Samples)
	}
	if p.Design.BeamWidth == 0 {
		p.Design.BeamWidth = preset.BeamWidth
	}
	if p.Design.Candidates == 0 {
		p.Design.Candidates = preset.Candidates
	}
}

// ApplyDefaults fills every zero-valued field with its default.  Mode-derived
// fields (samples, magnitude, clusters, beam width, candidates) are left to
// ApplyMode so that the job's run mode can still choose them.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9464"
	}

	p := &c.Pipeline
	if p.InterfaceDistance == 0 {
		p.InterfaceDistance = DefaultInterfaceDistance
	}
	if p.Seed == 0 {
		p.Seed = DefaultSeed
	}

	s := &p.Sampling
	if s.MergeRMSD == 0 {
		s.MergeRMSD = DefaultMergeRMSD
	}
	if s.RelaxIterations == 0 {
		s.RelaxIterations = DefaultRelaxIterations
	}
	if s.RelaxTolerance == 0 {
		s.RelaxTolerance = DefaultRelaxTolerance
	}
	if s.ClashRadius == 0 {
		s.ClashRadius = DefaultClashRadius
	}
	if s.Relaxer == "" {
		s.Relaxer = RelaxerGeometric
	}
	if s.Workers == 0 {
		s.Workers = DefaultSamplingWorkers
	}

	sc := &p.Scoring
	if sc.ContactCutoff == 0 {
		sc.ContactCutoff = DefaultContactCutoff
	}
	if sc.ClashCutoff == 0 {
		sc.ClashCutoff = DefaultClashCutoff
	}
	if sc.HBondMinDist == 0 {
		sc.HBondMinDist = DefaultHBondMinDist
	}
	if sc.HBondMaxDist == 0 {
		sc.HBondMaxDist = DefaultHBondMaxDist
	}
	if sc.BurialRadius == 0 {
		sc.BurialRadius = DefaultBurialRadius
	}
	if sc.ContactWeight == 0 {
		sc.ContactWeight = DefaultContactWeight
	}
	if sc.ClashWeight == 0 {
		sc.ClashWeight = DefaultClashWeight
	}
	if sc.HBondWeight == 0 {
		sc.HBondWeight = DefaultHBondWeight
	}
	if sc.BurialWeight == 0 {
		sc.BurialWeight = DefaultBurialWeight
	}

	d := &p.Design
	if d.WorstWeight == 0 && d.MeanWeight == 0 {
		d.WorstWeight = DefaultWorstWeight
		d.MeanWeight = DefaultMeanWeight
	}
	if d.Workers == 0 {
		d.Workers = DefaultDesignWorkers
	}

	dev := &p.Developability
	if dev.PassThreshold == 0 {
		dev.PassThreshold = DefaultPassThreshold
	}
	if dev.WarnThreshold == 0 {
		dev.WarnThreshold = DefaultWarnThreshold
	}
	if dev.PH == 0 {
		dev.PH = DefaultPH
	}
	if dev.PIMaxIterations == 0 {
		dev.PIMaxIterations = DefaultPIMaxIterations
	}
	if dev.SelfDockOrientations == 0 {
		dev.SelfDockOrientations = DefaultSelfDockOrientations
	}
}

// Default returns a fully populated configuration for the fast mode.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	c.Pipeline.ApplyMode(ModeFast)
	return c
}
