package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultInterfaceDistance, cfg.Pipeline.InterfaceDistance)
	assert.Equal(t, DefaultSeed, cfg.Pipeline.Seed)
	assert.Equal(t, RelaxerGeometric, cfg.Pipeline.Sampling.Relaxer)
}

func TestPresetFor(t *testing.T) {
	fast := PresetFor(ModeFast)
	assert.Equal(t, 5, fast.Samples)
	assert.Equal(t, 0.6, fast.Magnitude)
	assert.Equal(t, 3, fast.BeamWidth)

	deep := PresetFor(ModeDeep)
	assert.Equal(t, 20, deep.Samples)
	assert.Equal(t, 1.0, deep.Magnitude)
	assert.Equal(t, 5, deep.BeamWidth)

	// Unknown modes degrade to fast.
	assert.Equal(t, fast, PresetFor("bogus"))
}

func TestClustersFor(t *testing.T) {
	assert.Equal(t, 3, ClustersFor(1))
	assert.Equal(t, 3, ClustersFor(5))
	assert.Equal(t, 3, ClustersFor(9))
	assert.Equal(t, 6, ClustersFor(20))
}

func TestApplyModeKeepsExplicitValues(t *testing.T) {
	p := PipelineConfig{}
	p.Sampling.Samples = 7
	p.ApplyMode(ModeDeep)

	assert.Equal(t, 7, p.Sampling.Samples, "explicit sample count must survive the preset")
	assert.Equal(t, 1.0, p.Sampling.Magnitude)
	assert.Equal(t, 3, p.Sampling.Clusters, "K derives from the explicit S, not the preset's")
	assert.Equal(t, 5, p.Design.BeamWidth)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flexbind.yaml")
	yaml := `
log:
  level: debug
pipeline:
  interface_distance: 10.0
  sampling:
    samples: 12
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10.0, cfg.Pipeline.InterfaceDistance)
	assert.Equal(t, 12, cfg.Pipeline.Sampling.Samples)
	// Unset fields got defaults.
	assert.Equal(t, DefaultContactCutoff, cfg.Pipeline.Scoring.ContactCutoff)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestMustLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flexbind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))

	cfg := MustLoad(path)
	assert.Equal(t, "warn", cfg.Log.Level)

	assert.Panics(t, func() { MustLoad(filepath.Join(dir, "absent.yaml")) })
}

func TestWatchDeliversUpdatedConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flexbind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	updated := make(chan *Config, 1)
	Watch(path, func(c *Config) {
		select {
		case updated <- c:
		default:
		}
	})

	// Give the watcher a moment to attach before rewriting.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	select {
	case cfg := <-updated:
		assert.Equal(t, "debug", cfg.Log.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("no config update observed")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FLEXBIND_LOG_LEVEL", "warn")
	t.Setenv("FLEXBIND_PIPELINE_INTERFACE_DISTANCE", "6.5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 6.5, cfg.Pipeline.InterfaceDistance)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"interface distance too small", func(c *Config) { c.Pipeline.InterfaceDistance = 1.0 }},
		{"negative samples", func(c *Config) { c.Pipeline.Sampling.Samples = -1 }},
		{"zero merge rmsd", func(c *Config) { c.Pipeline.Sampling.MergeRMSD = 0 }},
		{"unknown relaxer", func(c *Config) { c.Pipeline.Sampling.Relaxer = "quantum" }},
		{"candidates above beam", func(c *Config) {
			c.Pipeline.Design.BeamWidth = 2
			c.Pipeline.Design.Candidates = 5
		}},
		{"empty hbond window", func(c *Config) {
			c.Pipeline.Scoring.HBondMinDist = 4.0
			c.Pipeline.Scoring.HBondMaxDist = 3.0
		}},
		{"warn above pass", func(c *Config) {
			c.Pipeline.Developability.WarnThreshold = 80
			c.Pipeline.Developability.PassThreshold = 70
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
