// Package cli implements the flexbind command tree.  Commands consume the
// pipeline runner and the pkg/types DTOs; all file emission (report.json,
// designs.csv, designs.fasta, per-state PDBs) lives here, not in the core.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/flexbind/internal/config"
	"github.com/turtacn/flexbind/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flexbind",
		Short: "FlexBind: flexibility-aware protein binder design",
		Long: "FlexBind designs binder sequences against a target structure by sampling a\n" +
			"conformational ensemble of the binding interface, beam-searching sequence\n" +
			"space against every state, and gating the results on developability.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment + built-in defaults)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		NewRunCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the command tree.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig resolves configuration with priority flags > env > file >
// defaults, then applies the log-level override.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	return cfg, nil
}

// newLogger builds the process logger for CLI usage.  Logs default to
// stderr so that stdout stays free for command output.  When a config file
// is in play and --log-level does not pin the level, the file is watched for
// the rest of the command so that log.level edits take effect mid-run.
func newLogger(cfg *config.Config, opts *RootOptions) (logging.Logger, error) {
	lc := cfg.Log
	if len(lc.OutputPaths) == 0 {
		lc.OutputPaths = []string{"stderr"}
	}
	log, level, err := logging.NewReloadableLogger(lc)
	if err != nil {
		return nil, err
	}
	if opts.ConfigPath != "" && opts.LogLevel == "" {
		config.Watch(opts.ConfigPath, func(c *config.Config) {
			level.Set(c.Log.Level)
		})
	}
	return log, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flexbind %s (commit: %s, built: %s)\n",
				Version, GitCommit, BuildDate)
		},
	}
}
