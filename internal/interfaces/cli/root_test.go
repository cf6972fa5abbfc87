package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	Version, GitCommit, BuildDate = "1.2.3", "abc123", "2026-08-30"
	defer func() { Version, GitCommit, BuildDate = "dev", "unknown", "unknown" }()

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "flexbind 1.2.3 (commit: abc123, built: 2026-08-30)\n", out)
}

func TestLoadConfigLogLevelOverride(t *testing.T) {
	cfg, err := loadConfig(&RootOptions{LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	_, err := loadConfig(&RootOptions{ConfigPath: "/nonexistent/flexbind.yaml"})
	assert.Error(t, err)
}
