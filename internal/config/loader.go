package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all FlexBind settings.
const envPrefix = "FLEXBIND"

// newViper builds a pre-configured Viper instance: YAML file type, FLEXBIND_
// env prefix, automatic env binding, and a key replacer that maps "." to "_"
// so that nested keys like "pipeline.interface_distance" resolve to
// "FLEXBIND_PIPELINE_INTERFACE_DISTANCE".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every configuration key to viper.  Unmarshal only
// visits keys viper knows about, so without this, FLEXBIND_* environment
// variables for keys absent from the config file would be silently ignored.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"log.level", "log.format", "log.output_paths", "log.error_output_paths",
		"metrics.enabled", "metrics.addr",
		"pipeline.interface_distance", "pipeline.seed",
		"pipeline.sampling.samples", "pipeline.sampling.clusters",
		"pipeline.sampling.magnitude", "pipeline.sampling.merge_rmsd",
		"pipeline.sampling.relax_iterations", "pipeline.sampling.relax_tolerance",
		"pipeline.sampling.clash_radius", "pipeline.sampling.relaxer",
		"pipeline.sampling.workers",
		"pipeline.scoring.contact_cutoff", "pipeline.scoring.clash_cutoff",
		"pipeline.scoring.hbond_min_dist", "pipeline.scoring.hbond_max_dist",
		"pipeline.scoring.burial_radius",
		"pipeline.scoring.contact_weight", "pipeline.scoring.clash_weight",
		"pipeline.scoring.hbond_weight", "pipeline.scoring.burial_weight",
		"pipeline.design.beam_width", "pipeline.design.candidates",
		"pipeline.design.max_positions", "pipeline.design.alphabet",
		"pipeline.design.worst_weight", "pipeline.design.mean_weight",
		"pipeline.design.workers",
		"pipeline.developability.pass_threshold", "pipeline.developability.warn_threshold",
		"pipeline.developability.ph", "pipeline.developability.pi_max_iterations",
		"pipeline.developability.self_dock_orientations",
	} {
		v.SetDefault(key, nil)
	}
}

// Load reads the YAML file at configPath, merges any FLEXBIND_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from FLEXBIND_* environment variables,
// with no config file required.  This is the preferred loading strategy for
// containerised deployments.
//
// Environment variable naming convention:
//
//	FLEXBIND_<SECTION>_<FIELD>   e.g.  FLEXBIND_LOG_LEVEL, FLEXBIND_PIPELINE_SEED
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as the log level; callers are
// responsible for applying only the safe subset at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is not called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers should call Load first for error reporting.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			// A half-written or invalid file; keep the previous config.
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
