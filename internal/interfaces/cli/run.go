package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/flexbind/internal/application/pipeline"
	"github.com/turtacn/flexbind/internal/domain/ensemble"
	"github.com/turtacn/flexbind/internal/domain/structure"
	"github.com/turtacn/flexbind/internal/infrastructure/pdbio"
	"github.com/turtacn/flexbind/pkg/types/design"
)

// RunOptions holds the run command's flags.
type RunOptions struct {
	TargetPath        string
	BinderPath        string
	Mode              string
	Seed              uint64
	BinderType        string
	Flexible          string
	InterfaceDistance float64
	NoGlycosylation   bool
	OutDir            string
}

// NewRunCmd creates the run command: one design job end-to-end, results
// written to the output directory.
func NewRunCmd(root *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one binder design job",
		Long: "Run one design job end-to-end: clean and merge the target and binder\n" +
			"structures, sample the conformational ensemble, search sequence space, gate\n" +
			"developability, and write report.json, designs.csv, designs.fasta and\n" +
			"per-state PDB files to the output directory.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJob(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.TargetPath, "target", "", "target structure PDB file [required]")
	f.StringVar(&opts.BinderPath, "binder", "", "binder structure PDB file [required]")
	f.StringVar(&opts.Mode, "mode", "fast", "run mode (fast, deep)")
	f.Uint64Var(&opts.Seed, "seed", 0, "RNG seed (0: use configured default)")
	f.StringVar(&opts.BinderType, "binder-type", "other", "binder type (antibody_fv, other)")
	f.StringVar(&opts.Flexible, "flexible", "", "explicit flexible residues, e.g. \"B:30, B:52\"")
	f.Float64Var(&opts.InterfaceDistance, "interface-distance", 0, "interface auto-detect cutoff in Angstroms (0: configured default)")
	f.BoolVar(&opts.NoGlycosylation, "no-glycosylation", true, "reject mutations that create N-X-[S/T] sequons (disable with --no-glycosylation=false)")
	f.StringVar(&opts.OutDir, "out", ".", "output directory")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("binder")

	return cmd
}

func runJob(cmd *cobra.Command, root *RootOptions, opts *RunOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, root)
	if err != nil {
		return err
	}

	target, err := readPDB(opts.TargetPath)
	if err != nil {
		return fmt.Errorf("reading target: %w", err)
	}
	binder, err := readPDB(opts.BinderPath)
	if err != nil {
		return fmt.Errorf("reading binder: %w", err)
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var states *ensemble.Ensemble
	runner := pipeline.NewRunner(cfg.Pipeline, log, nil).
		WithEnsembleObserver(func(e *ensemble.Ensemble) { states = e })

	sink := pipeline.FuncSink(func(ev pipeline.ProgressEvent) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%3.0f%%] %s\n", ev.Fraction*100, ev.Status)
	})

	report, runErr := runner.Run(cmd.Context(), pipeline.JobParams{
		Target:            target,
		Binder:            binder,
		BinderType:        design.BinderType(opts.BinderType),
		Mode:              design.RunMode(opts.Mode),
		Seed:              opts.Seed,
		FlexibleSpec:      opts.Flexible,
		InterfaceDistance: opts.InterfaceDistance,
		NoGlycosylation:   opts.NoGlycosylation,
	}, sink)

	// The report is written even for failed or cancelled jobs so that the
	// outcome and diagnostics survive on disk.
	if err := writeReport(filepath.Join(opts.OutDir, "report.json"), report); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if err := writeDesignsCSV(filepath.Join(opts.OutDir, "designs.csv"), report.Designs); err != nil {
		return err
	}
	if err := writeDesignsFASTA(filepath.Join(opts.OutDir, "designs.fasta"), report.Designs); err != nil {
		return err
	}
	if states != nil {
		if err := writeStatePDBs(opts.OutDir, states); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "job %s: %d designs, top robustness %.3f, results in %s\n",
		report.JobID, len(report.Designs), topRobustness(report), opts.OutDir)
	return nil
}

func readPDB(path string) (*structure.Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pdbio.Parse(f)
}

func writeReport(path string, report *design.JobReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func writeDesignsCSV(path string, designs []design.DesignResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"rank", "sequence", "mutations", "mean_score", "worst_score", "robustness",
		"hydrophobic_patch", "net_charge", "pi", "beta_propensity", "self_dock_risk",
		"developability", "flag",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, d := range designs {
		row := []string{
			strconv.Itoa(d.Rank),
			d.Sequence,
			d.Mutations,
			formatScore(d.MeanScore),
			formatScore(d.WorstScore),
			formatScore(d.Robustness),
			formatScore(d.Developability.HydrophobicPatch),
			formatScore(d.Developability.NetCharge),
			formatScore(d.Developability.PI),
			formatScore(d.Developability.BetaPropensity),
			formatScore(d.Developability.SelfDockRisk),
			formatScore(d.Developability.Composite),
			string(d.Developability.Flag),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeDesignsFASTA(path string, designs []design.DesignResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, d := range designs {
		if _, err := fmt.Fprintf(f, "%s\n%s\n", d.FastaHeader(), d.Sequence); err != nil {
			return err
		}
	}
	return nil
}

// writeStatePDBs exports the ground state and every representative state.
func writeStatePDBs(dir string, ens *ensemble.Ensemble) error {
	if err := writePDB(filepath.Join(dir, "ground.pdb"), ens.GroundState); err != nil {
		return err
	}
	for _, st := range ens.States {
		path := filepath.Join(dir, fmt.Sprintf("state_%03d.pdb", st.Index))
		if err := writePDB(path, st.Structure); err != nil {
			return err
		}
	}
	return nil
}

func writePDB(path string, s *structure.Structure) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pdbio.Write(f, s)
}

func topRobustness(report *design.JobReport) float64 {
	if len(report.Designs) == 0 {
		return 0
	}
	return report.Designs[0].Robustness
}
